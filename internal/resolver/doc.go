// Package resolver maps source entities to the canonical device model.
//
// The source system reports entities under opaque, inconsistently-named
// identifiers ("sensor.hz2_01_temperature_p3", "switch.plug_01"). The
// resolver turns them into a per-device map of canonical properties
// (temp, hum, batt, state, current, voltage, active_power, energy,
// frequency) using a tiered, fallback-driven matching algorithm:
//
//  1. Domain compatibility filter per device category
//  2. Entity prefix containment
//  3. Index-suffix normalisation ("_p3", "_p_3_2" stripped)
//  4. Tiered property matching: device class > exact suffix > suffix
//     token > friendly-name keyword, first success wins
//  5. Supported-property membership and no-overwrite acceptance
//
// The canonical table lives in table.go as a single ordered list of
// variants; there is deliberately no other place naming heuristics are
// allowed to accumulate.
//
// Resolution output is an immutable Catalog. The gateway swaps the
// active catalog atomically once per discovery cycle, so readers on the
// telemetry and command paths never observe a partially-built mapping.
package resolver
