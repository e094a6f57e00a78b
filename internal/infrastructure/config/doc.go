// Package config provides configuration loading for Gray Link Gateway.
//
// Configuration is loaded from a YAML file with environment variable
// overrides (GRAYLINK_* pattern) and validated once at startup. The rest
// of the gateway consumes the resulting structs read-only; the device
// catalog entries in particular are never mutated after load.
//
// # Loading Order
//
//  1. Hardcoded defaults
//  2. YAML file values
//  3. Environment variables
//
// # Usage
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err) // fatal configuration errors abort startup
//	}
package config
