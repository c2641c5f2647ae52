// Package config handles loading and validating TwinkleTaps Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files over built-in defaults
//   - Loading a .env file into the environment
//   - Overriding with TWINKLETAPS_* environment variables
//   - Validation of required fields
//
// Security Considerations:
//   - Secrets (session signing key, broker password, InfluxDB token) should be
//     set via environment variables, not committed config files
//
// Usage:
//
//	if err := config.LoadDotEnv(".env"); err != nil {
//	    return err
//	}
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
package config
