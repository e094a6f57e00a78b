package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-link-gateway/internal/resolver"
)

// mockReader implements StateReader with canned states per entity.
type mockReader struct {
	mu     sync.Mutex
	states map[string]string
	errs   map[string]error
	reads  map[string]int
}

func newMockReader() *mockReader {
	return &mockReader{
		states: make(map[string]string),
		errs:   make(map[string]error),
		reads:  make(map[string]int),
	}
}

func (m *mockReader) GetState(_ context.Context, entityID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads[entityID]++
	if err, ok := m.errs[entityID]; ok {
		return "", err
	}
	return m.states[entityID], nil
}

func (m *mockReader) readCount(entityID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[entityID]
}

func testOptions() Options {
	return Options{
		ReadinessTimeout: 50 * time.Millisecond,
		ReadinessPoll:    5 * time.Millisecond,
	}
}

func socketDevice() *resolver.ResolvedDevice {
	return &resolver.ResolvedDevice{
		Spec: resolver.DeviceSpec{
			ID:                  "socket-01",
			Category:            resolver.CategorySocket,
			SupportedProperties: []string{resolver.PropState, resolver.PropCurrent, resolver.PropVoltage, resolver.PropActivePower},
			ConversionFactors:   map[string]float64{resolver.PropCurrent: 0.1},
			Enabled:             true,
		},
		Properties: map[string]string{
			resolver.PropState:   "switch.plug_01",
			resolver.PropCurrent: "sensor.plug_01_current",
		},
	}
}

func TestCollectConversionAndScaling(t *testing.T) {
	reader := newMockReader()
	reader.states["switch.plug_01"] = "on"
	reader.states["sensor.plug_01_current"] = "100"

	c := NewCollector(reader, testOptions(), nil)
	payload := c.Collect(context.Background(), socketDevice())

	// Raw 100 * factor 0.1 = 10.0, rounded to 2 decimals.
	if got := payload.Properties[resolver.PropCurrent]; got != 10.0 {
		t.Errorf("current = %v, want 10.0", got)
	}
	// State maps to 1 and is unaffected by any factor.
	if got := payload.Properties[resolver.PropState]; got != 1 {
		t.Errorf("state = %v, want 1", got)
	}
}

func TestCollectEmbeddedUnits(t *testing.T) {
	reader := newMockReader()
	reader.states["sensor.plug_01_voltage"] = "220 V"

	device := socketDevice()
	device.Properties = map[string]string{resolver.PropVoltage: "sensor.plug_01_voltage"}

	c := NewCollector(reader, testOptions(), nil)
	payload := c.Collect(context.Background(), device)

	if got := payload.Properties[resolver.PropVoltage]; got != 220.0 {
		t.Errorf("voltage = %v, want 220.0", got)
	}
}

func TestCollectRoundingPolicy(t *testing.T) {
	tests := []struct {
		prop   string
		raw    string
		factor float64
		want   float64
	}{
		{resolver.PropCurrent, "1.23456", 1, 1.23},
		{resolver.PropVoltage, "229.96", 1, 230.0},
		{resolver.PropTemp, "21.55", 1, 21.6},
		{resolver.PropEnergy, "12.34567", 1, 12.346},
		{resolver.PropActivePower, "1500.26", 1, 1500.3},
		{resolver.PropEnergy, "1234.5", 0.001, 1.235},
	}

	for _, tt := range tests {
		t.Run(tt.prop+"/"+tt.raw, func(t *testing.T) {
			reader := newMockReader()
			reader.states["sensor.x"] = tt.raw

			device := &resolver.ResolvedDevice{
				Spec: resolver.DeviceSpec{
					ID:                  "d",
					Category:            resolver.CategorySocket,
					SupportedProperties: []string{tt.prop},
					ConversionFactors:   map[string]float64{tt.prop: tt.factor},
				},
				Properties: map[string]string{tt.prop: "sensor.x"},
			}

			c := NewCollector(reader, testOptions(), nil)
			payload := c.Collect(context.Background(), device)
			if got := payload.Properties[tt.prop]; got != tt.want {
				t.Errorf("%s = %v, want %v", tt.prop, got, tt.want)
			}
		})
	}
}

func TestCollectBreakerTripState(t *testing.T) {
	reader := newMockReader()
	reader.states["switch.breaker_01"] = "trip"

	device := &resolver.ResolvedDevice{
		Spec: resolver.DeviceSpec{
			ID:                  "breaker-01",
			Category:            resolver.CategoryBreaker,
			SupportedProperties: []string{resolver.PropState},
		},
		Properties: map[string]string{resolver.PropState: "switch.breaker_01"},
	}

	c := NewCollector(reader, testOptions(), nil)
	payload := c.Collect(context.Background(), device)

	if got := payload.Properties[resolver.PropState]; got != 2 {
		t.Errorf("breaker trip state = %v, want 2", got)
	}
}

func TestCollectTripRejectedForSwitch(t *testing.T) {
	reader := newMockReader()
	reader.states["switch.plug_01"] = "trip"

	device := socketDevice()
	device.Properties = map[string]string{resolver.PropState: "switch.plug_01"}
	device.Spec.SupportedProperties = []string{resolver.PropState}
	device.Spec.Category = resolver.CategorySwitch

	c := NewCollector(reader, testOptions(), nil)
	payload := c.Collect(context.Background(), device)

	if _, ok := payload.Properties[resolver.PropState]; ok {
		t.Errorf("trip should not convert for a switch, got %v", payload.Properties)
	}
}

func TestCollectDefaultSubstitution(t *testing.T) {
	// Socket supports current but no entity resolved for it:
	// payload must carry current = 0 * factor.
	reader := newMockReader()
	reader.states["switch.plug_01"] = "off"

	device := socketDevice()
	device.Properties = map[string]string{resolver.PropState: "switch.plug_01"}

	c := NewCollector(reader, testOptions(), nil)
	payload := c.Collect(context.Background(), device)

	if got := payload.Properties[resolver.PropCurrent]; got != 0.0 {
		t.Errorf("defaulted current = %v, want 0.0", got)
	}
	if got := payload.Properties[resolver.PropVoltage]; got != 220.0 {
		t.Errorf("defaulted voltage = %v, want 220.0", got)
	}
	if got := payload.Properties[resolver.PropActivePower]; got != 0.0 {
		t.Errorf("defaulted active_power = %v, want 0.0", got)
	}
}

func TestCollectSensorBatteryDefault(t *testing.T) {
	reader := newMockReader()
	reader.states["sensor.hz2_01_temperature"] = "21.5"

	device := &resolver.ResolvedDevice{
		Spec: resolver.DeviceSpec{
			ID:                  "env-01",
			Category:            resolver.CategorySensor,
			SupportedProperties: []string{resolver.PropTemp, resolver.PropHum, resolver.PropBatt},
		},
		Properties: map[string]string{resolver.PropTemp: "sensor.hz2_01_temperature"},
	}

	c := NewCollector(reader, testOptions(), nil)
	payload := c.Collect(context.Background(), device)

	if got := payload.Properties[resolver.PropBatt]; got != 100.0 {
		t.Errorf("defaulted batt = %v, want 100", got)
	}
	// hum has no documented default and must be omitted.
	if _, ok := payload.Properties[resolver.PropHum]; ok {
		t.Error("hum should be omitted, not defaulted")
	}
}

func TestCollectReadinessWait(t *testing.T) {
	reader := newMockReader()
	reader.states["sensor.slow"] = "unknown"

	device := &resolver.ResolvedDevice{
		Spec: resolver.DeviceSpec{
			ID:                  "env-01",
			Category:            resolver.CategorySensor,
			SupportedProperties: []string{resolver.PropTemp},
		},
		Properties: map[string]string{resolver.PropTemp: "sensor.slow"},
	}

	c := NewCollector(reader, testOptions(), nil)
	payload := c.Collect(context.Background(), device)

	// Entity never became ready: property omitted, several polls made.
	if _, ok := payload.Properties[resolver.PropTemp]; ok {
		t.Errorf("not-ready entity should be omitted, got %v", payload.Properties)
	}
	if reader.readCount("sensor.slow") < 2 {
		t.Errorf("expected repeated readiness polls, got %d", reader.readCount("sensor.slow"))
	}
}

func TestCollectReadErrorOmitsProperty(t *testing.T) {
	reader := newMockReader()
	reader.states["switch.plug_01"] = "on"
	reader.errs["sensor.plug_01_current"] = errors.New("boom")

	c := NewCollector(reader, testOptions(), nil)
	device := socketDevice()
	// Drop voltage/power defaults from the picture.
	device.Spec.SupportedProperties = []string{resolver.PropState}
	payload := c.Collect(context.Background(), device)

	if got := payload.Properties[resolver.PropState]; got != 1 {
		t.Errorf("state = %v, want 1", got)
	}
	if _, ok := payload.Properties[resolver.PropCurrent]; ok {
		t.Error("failed read should omit property")
	}
}

func TestCollectOneState(t *testing.T) {
	reader := newMockReader()
	reader.states["switch.plug_01"] = "on"

	c := NewCollector(reader, testOptions(), nil)
	value, ok := c.CollectOne(context.Background(), socketDevice(), resolver.PropState)

	if !ok {
		t.Fatal("CollectOne should succeed for a resolved readable state")
	}
	if value != 1 {
		t.Errorf("state = %v, want 1", value)
	}
	// Only the requested property's entity is touched.
	if reader.readCount("sensor.plug_01_current") != 0 {
		t.Error("CollectOne read an unrelated entity")
	}
}

func TestCollectOneUnresolvedProperty(t *testing.T) {
	c := NewCollector(newMockReader(), testOptions(), nil)
	device := socketDevice()
	delete(device.Properties, resolver.PropState)

	if _, ok := c.CollectOne(context.Background(), device, resolver.PropState); ok {
		t.Error("CollectOne should fail for an unresolved property")
	}
}

func TestCollectOneReadFailure(t *testing.T) {
	reader := newMockReader()
	reader.errs["switch.plug_01"] = errors.New("boom")

	c := NewCollector(reader, testOptions(), nil)
	if _, ok := c.CollectOne(context.Background(), socketDevice(), resolver.PropState); ok {
		t.Error("CollectOne should fail when the read fails")
	}
}

func TestPayloadEmpty(t *testing.T) {
	if !(Payload{Properties: map[string]any{}}).Empty() {
		t.Error("empty payload should report Empty")
	}
	if (Payload{Properties: map[string]any{"temp": 1.0}}).Empty() {
		t.Error("non-empty payload should not report Empty")
	}
}
