// Package config handles loading and validating the Maestro bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (MAESTRO_*)
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The MQTT password should be set via MAESTRO_MQTT_PASSWORD
//   - The config file should have restricted permissions (0600)
//   - MQTTAuthConfig.String never prints the password
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Maestro.SerialNumber)
package config
