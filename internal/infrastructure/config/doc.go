// Package config handles loading and validating ADR-core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields and magnet-safety tunables
//   - Default value handling
//
// The ramp and regulation tunables (current ceiling, back-EMF limit,
// slew-rate limits, cycle period) default to the values the lab's HPD
// hardware has been operated with. A tunable missing from the YAML file
// keeps its default, so a minimal config only names the fridge and the
// broker.
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.ADR.Name)
package config
