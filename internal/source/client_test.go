package source

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(Config{
		URL:            srv.URL,
		Token:          "test-token",
		RequestTimeout: 2 * time.Second,
		RetryAttempts:  3,
		RetryDelay:     time.Millisecond,
	})
	return client, srv
}

func TestListEntities(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/states" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("missing bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]Entity{
			{ID: "sensor.hz2_01_temperature", State: "21.5",
				Attributes: Attributes{DeviceClass: "temperature", FriendlyName: "HZ2 Temperature"}},
			{ID: "switch.plug_01", State: "on"},
		})
	})

	entities, err := client.ListEntities(context.Background())
	if err != nil {
		t.Fatalf("ListEntities() error: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(entities))
	}
	if entities[0].Domain() != "sensor" {
		t.Errorf("Domain() = %q, want sensor", entities[0].Domain())
	}
	if entities[0].ObjectID() != "hz2_01_temperature" {
		t.Errorf("ObjectID() = %q", entities[0].ObjectID())
	}
}

func TestListEntitiesRetriesTransientFailure(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]Entity{{ID: "sensor.a", State: "1"}})
	})

	entities, err := client.ListEntities(context.Background())
	if err != nil {
		t.Fatalf("ListEntities() error after retries: %v", err)
	}
	if len(entities) != 1 {
		t.Errorf("expected 1 entity, got %d", len(entities))
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestGetState(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/states/sensor.voltage_01" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Entity{ID: "sensor.voltage_01", State: "220 V"})
	})

	state, err := client.GetState(context.Background(), "sensor.voltage_01")
	if err != nil {
		t.Fatalf("GetState() error: %v", err)
	}
	if state != "220 V" {
		t.Errorf("GetState() = %q", state)
	}

	_, err = client.GetState(context.Background(), "sensor.gone")
	if !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("expected ErrEntityNotFound, got %v", err)
	}
}

func TestCallService(t *testing.T) {
	var gotPath string
	var gotBody serviceRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	})

	err := client.CallService(context.Background(), "switch", "turn_on", "switch.plug_01")
	if err != nil {
		t.Fatalf("CallService() error: %v", err)
	}
	if gotPath != "/api/services/switch/turn_on" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody.EntityID != "switch.plug_01" {
		t.Errorf("entity_id = %q", gotBody.EntityID)
	}
}

func TestCallServiceNon2xx(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.CallService(context.Background(), "switch", "turn_off", "switch.plug_01")
	if !errors.Is(err, ErrActionFailed) {
		t.Errorf("expected ErrActionFailed, got %v", err)
	}
}

func TestIsReady(t *testing.T) {
	tests := []struct {
		state string
		want  bool
	}{
		{"21.5", true},
		{"on", true},
		{"off", true},
		{"unknown", false},
		{"Unavailable", false},
		{"none", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsReady(tt.state); got != tt.want {
			t.Errorf("IsReady(%q) = %v, want %v", tt.state, got, tt.want)
		}
	}
}
