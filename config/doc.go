// Package config provides application configuration management.
//
// The config package handles loading and validation of the application's
// configuration from YAML files and PLAYGROUND_* environment variables. It
// covers server transports, the execution backend (local toolchains or the
// hosted remote API), logging, and per-language limit overrides.
//
// Usage:
//
//	cfg, err := config.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("Sandbox backend: %s\n", cfg.Sandbox.Backend)
package config
