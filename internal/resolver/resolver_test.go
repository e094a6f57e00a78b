package resolver

import (
	"reflect"
	"testing"

	"github.com/nerrad567/gray-link-gateway/internal/source"
)

func sensorSpec() DeviceSpec {
	return DeviceSpec{
		ID:                  "env-01",
		Category:            CategorySensor,
		EntityPrefix:        "sensor.hz2_01",
		SupportedProperties: []string{PropTemp, PropHum, PropBatt},
		RoutingKey:          RoutingKey{ProductKey: "pk1", DeviceName: "env01"},
		Enabled:             true,
	}
}

func socketSpec() DeviceSpec {
	return DeviceSpec{
		ID:                  "socket-01",
		Category:            CategorySocket,
		EntityPrefix:        "plug_01",
		SupportedProperties: []string{PropState, PropCurrent, PropVoltage, PropActivePower, PropEnergy},
		RoutingKey:          RoutingKey{ProductKey: "pk2", DeviceName: "plug01"},
		Enabled:             true,
	}
}

func TestResolveSensorProperties(t *testing.T) {
	entities := []source.Entity{
		{ID: "sensor.hz2_01_temperature", Attributes: source.Attributes{DeviceClass: "temperature"}},
		{ID: "sensor.hz2_01_humidity", Attributes: source.Attributes{DeviceClass: "humidity"}},
		{ID: "sensor.hz2_01_battery", Attributes: source.Attributes{DeviceClass: "battery"}},
		// Different prefix, must not match.
		{ID: "sensor.hz2_02_temperature", Attributes: source.Attributes{DeviceClass: "temperature"}},
	}

	catalog := New(nil).Resolve(entities, []DeviceSpec{sensorSpec()})

	dev, ok := catalog.Device("env-01")
	if !ok {
		t.Fatal("device env-01 not in catalog")
	}
	want := map[string]string{
		PropTemp: "sensor.hz2_01_temperature",
		PropHum:  "sensor.hz2_01_humidity",
		PropBatt: "sensor.hz2_01_battery",
	}
	if !reflect.DeepEqual(dev.Properties, want) {
		t.Errorf("Properties = %v, want %v", dev.Properties, want)
	}
}

func TestResolveDeterministic(t *testing.T) {
	entities := []source.Entity{
		{ID: "sensor.hz2_01_temperature"},
		{ID: "sensor.hz2_01_hum"},
		{ID: "switch.plug_01"},
		{ID: "sensor.plug_01_power", Attributes: source.Attributes{DeviceClass: "power"}},
	}
	specs := []DeviceSpec{sensorSpec(), socketSpec()}

	r := New(nil)
	first := r.Resolve(entities, specs)
	second := r.Resolve(entities, specs)

	for _, id := range first.DeviceIDs() {
		a, _ := first.Device(id)
		b, _ := second.Device(id)
		if !reflect.DeepEqual(a.Properties, b.Properties) {
			t.Errorf("device %s: resolve not idempotent: %v vs %v", id, a.Properties, b.Properties)
		}
	}
}

func TestResolveNoOverwrite(t *testing.T) {
	// Two entities both satisfy temp; the first encountered must be kept.
	entities := []source.Entity{
		{ID: "sensor.hz2_01_temperature", Attributes: source.Attributes{DeviceClass: "temperature"}},
		{ID: "sensor.hz2_01_temp_2", Attributes: source.Attributes{DeviceClass: "temperature"}},
	}

	catalog := New(nil).Resolve(entities, []DeviceSpec{sensorSpec()})
	dev, _ := catalog.Device("env-01")

	if got := dev.Properties[PropTemp]; got != "sensor.hz2_01_temperature" {
		t.Errorf("temp = %q, first match should win", got)
	}
	if len(dev.Properties) > len(sensorSpec().SupportedProperties) {
		t.Errorf("property count %d exceeds supported set", len(dev.Properties))
	}
}

func TestResolveSuffixCleaning(t *testing.T) {
	// Identifiers with trailing index suffixes resolve identically to the
	// same identifier with the suffix stripped.
	tests := []struct {
		entityID string
	}{
		{"sensor.hz2_01_temperature"},
		{"sensor.hz2_01_temperature_p3"},
		{"sensor.hz2_01_temperature_p_3_2"},
	}

	for _, tt := range tests {
		t.Run(tt.entityID, func(t *testing.T) {
			catalog := New(nil).Resolve(
				[]source.Entity{{ID: tt.entityID}},
				[]DeviceSpec{sensorSpec()},
			)
			dev, _ := catalog.Device("env-01")
			if dev.Properties[PropTemp] != tt.entityID {
				t.Errorf("temp not resolved from %s: %v", tt.entityID, dev.Properties)
			}
		})
	}
}

func TestCleanSuffix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"temperature_p3", "temperature"},
		{"temperature_p_3_2", "temperature"},
		{"energy_kwh", "energy_kwh"}, // unit suffix is not an index pattern
		{"temperature", "temperature"},
		{"voltage_v2", "voltage"},
	}
	for _, tt := range tests {
		if got := cleanSuffix(tt.in); got != tt.want {
			t.Errorf("cleanSuffix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveAmbiguousPowerVariants(t *testing.T) {
	tests := []struct {
		name   string
		entity source.Entity
		want   string
	}{
		{
			"class power_consumption maps to energy",
			source.Entity{ID: "sensor.plug_01_meter", Attributes: source.Attributes{DeviceClass: "power_consumption"}},
			PropEnergy,
		},
		{
			"class power maps to active_power",
			source.Entity{ID: "sensor.plug_01_meter", Attributes: source.Attributes{DeviceClass: "power"}},
			PropActivePower,
		},
		{
			"suffix power_consumption maps to energy",
			source.Entity{ID: "sensor.plug_01_power_consumption"},
			PropEnergy,
		},
		{
			"friendly name consumption maps to energy not power",
			source.Entity{ID: "sensor.plug_01_meter", Attributes: source.Attributes{FriendlyName: "Plug Power Consumption"}},
			PropEnergy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := New(nil).Resolve([]source.Entity{tt.entity}, []DeviceSpec{socketSpec()})
			dev, _ := catalog.Device("socket-01")
			if _, ok := dev.Properties[tt.want]; !ok {
				t.Errorf("expected %s resolved, got %v", tt.want, dev.Properties)
			}
			if len(dev.Properties) != 1 {
				t.Errorf("expected exactly one property, got %v", dev.Properties)
			}
		})
	}
}

func TestResolveDomainFilter(t *testing.T) {
	entities := []source.Entity{
		// Sensor spec must reject switch-domain entities.
		{ID: "switch.hz2_01_temperature", Attributes: source.Attributes{DeviceClass: "temperature"}},
		// Electrical spec accepts both switch and sensor domains.
		{ID: "switch.plug_01", Attributes: source.Attributes{DeviceClass: "switch"}},
		{ID: "sensor.plug_01_voltage", Attributes: source.Attributes{DeviceClass: "voltage"}},
		// Electrical spec rejects other domains.
		{ID: "light.plug_01_state"},
	}

	catalog := New(nil).Resolve(entities, []DeviceSpec{sensorSpec(), socketSpec()})

	env, _ := catalog.Device("env-01")
	if len(env.Properties) != 0 {
		t.Errorf("sensor spec matched foreign-domain entity: %v", env.Properties)
	}

	sock, _ := catalog.Device("socket-01")
	want := map[string]string{
		PropState:   "switch.plug_01",
		PropVoltage: "sensor.plug_01_voltage",
	}
	if !reflect.DeepEqual(sock.Properties, want) {
		t.Errorf("socket properties = %v, want %v", sock.Properties, want)
	}
}

func TestResolveUnsupportedPropertySkipped(t *testing.T) {
	spec := sensorSpec()
	spec.SupportedProperties = []string{PropTemp}

	entities := []source.Entity{
		{ID: "sensor.hz2_01_humidity", Attributes: source.Attributes{DeviceClass: "humidity"}},
	}

	catalog := New(nil).Resolve(entities, []DeviceSpec{spec})
	dev, _ := catalog.Device("env-01")
	if len(dev.Properties) != 0 {
		t.Errorf("unsupported property accepted: %v", dev.Properties)
	}
}

func TestResolveDisabledSpecSkipped(t *testing.T) {
	spec := sensorSpec()
	spec.Enabled = false

	catalog := New(nil).Resolve(nil, []DeviceSpec{spec})
	if _, ok := catalog.Device("env-01"); ok {
		t.Error("disabled spec should not appear in catalog")
	}
}

func TestResolveMissingPropertyIsNotError(t *testing.T) {
	// No battery entity exists; device resolves with batt simply absent.
	entities := []source.Entity{
		{ID: "sensor.hz2_01_temperature", Attributes: source.Attributes{DeviceClass: "temperature"}},
	}

	catalog := New(nil).Resolve(entities, []DeviceSpec{sensorSpec()})
	dev, ok := catalog.Device("env-01")
	if !ok {
		t.Fatal("device missing from catalog")
	}
	if _, ok := dev.Properties[PropBatt]; ok {
		t.Error("batt should be absent")
	}
	if _, ok := dev.Properties[PropTemp]; !ok {
		t.Error("temp should be resolved")
	}
}

func TestCatalogByRoutingKey(t *testing.T) {
	catalog := New(nil).Resolve(nil, []DeviceSpec{sensorSpec(), socketSpec()})

	dev, ok := catalog.ByRoutingKey(RoutingKey{ProductKey: "pk2", DeviceName: "plug01"})
	if !ok {
		t.Fatal("routing key lookup failed")
	}
	if dev.Spec.ID != "socket-01" {
		t.Errorf("routing key resolved wrong device: %s", dev.Spec.ID)
	}

	if _, ok := catalog.ByRoutingKey(RoutingKey{ProductKey: "nope", DeviceName: "nope"}); ok {
		t.Error("unknown routing key should not resolve")
	}
}

func TestCatalogStableOrdering(t *testing.T) {
	catalog := New(nil).Resolve(nil, []DeviceSpec{socketSpec(), sensorSpec()})
	want := []string{"env-01", "socket-01"}
	if !reflect.DeepEqual(catalog.DeviceIDs(), want) {
		t.Errorf("DeviceIDs() = %v, want %v", catalog.DeviceIDs(), want)
	}
}
