package config

import (
	"fmt"
	"strings"
)

// ValidateStatic rejects configurations that can never work, before any
// component is constructed.
func ValidateStatic(cfg *Config) error {
	var problems []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port must be in 1-65535, got %d", cfg.Server.Port))
	}
	if cfg.Server.ReadTimeoutSeconds < 0 {
		problems = append(problems, "server.read_timeout_seconds must not be negative")
	}
	if cfg.Server.WriteTimeoutSeconds < 0 {
		problems = append(problems, "server.write_timeout_seconds must not be negative")
	}

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level))
	}

	if cfg.KeyValue.Enabled {
		if cfg.KeyValue.Host == "" {
			problems = append(problems, "keyvalue.host is required when keyvalue.enabled is set")
		}
		if cfg.KeyValue.Port <= 0 || cfg.KeyValue.Port > 65535 {
			problems = append(problems, fmt.Sprintf("keyvalue.port must be in 1-65535, got %d", cfg.KeyValue.Port))
		}
	}

	if cfg.AdminRateLimit.Enabled {
		if cfg.AdminRateLimit.RPS <= 0 {
			problems = append(problems, "admin_rate_limit.rps must be positive")
		}
		if cfg.AdminRateLimit.Burst <= 0 {
			problems = append(problems, "admin_rate_limit.burst must be positive")
		}
	}

	if cfg.Engine.RateLimit.ScanFraction < 0 {
		problems = append(problems, "engine.rate_limit.scan_fraction must not be negative")
	}

	if cfg.Tracing.Enabled && cfg.Tracing.OTLP.Endpoint == "" {
		problems = append(problems, "tracing.otlp.endpoint is required when tracing.enabled is set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}
