// Package config handles loading and validating the Rego bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (REGO_SECTION_KEY)
//   - Validation of required fields and Rego 6xx protocol limits
//   - Default value handling
//
// Endpoint declarations mirror the protocol: command codes 0x00-0x7F,
// addresses 0x0000-0x0300, number bounds within [-100, 100] and steps within
// [0.01, 1.00]. YAML accepts hex literals for command and address.
//
// Security Considerations:
//   - MQTT passwords and InfluxDB tokens should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Serial.Device)
package config
