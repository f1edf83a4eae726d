package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                8080,
			ReadTimeoutSeconds:  10,
			WriteTimeoutSeconds: 10,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

func TestValidateStatic(t *testing.T) {
	require.NoError(t, ValidateStatic(validConfig()))

	tests := []struct {
		name    string
		mutate  func(*Config)
		problem string
	}{
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			problem: "server.port",
		},
		{
			name:    "negative read timeout",
			mutate:  func(c *Config) { c.Server.ReadTimeoutSeconds = -1 },
			problem: "server.read_timeout_seconds",
		},
		{
			name:    "negative write timeout",
			mutate:  func(c *Config) { c.Server.WriteTimeoutSeconds = -5 },
			problem: "server.write_timeout_seconds",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			problem: "logging.level",
		},
		{
			name: "keyvalue enabled without host",
			mutate: func(c *Config) {
				c.KeyValue.Enabled = true
				c.KeyValue.Host = ""
				c.KeyValue.Port = 6379
			},
			problem: "keyvalue.host",
		},
		{
			name: "rate limit enabled without rps",
			mutate: func(c *Config) {
				c.AdminRateLimit.Enabled = true
				c.AdminRateLimit.Burst = 10
			},
			problem: "admin_rate_limit.rps",
		},
		{
			name: "tracing enabled without endpoint",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
			},
			problem: "tracing.otlp.endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := ValidateStatic(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.problem)
		})
	}
}
