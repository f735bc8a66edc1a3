// Package config loads experiment configuration from defaults, a YAML
// file, and environment variables, in that precedence order.
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("openfl.yaml").
//	    WithEnvPrefix("OPENFL").
//	    Load()
package config
