package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func Load(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func bindEnvVariables() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout_seconds", "SERVER_READ_TIMEOUT_SECONDS")
	viper.BindEnv("server.write_timeout_seconds", "SERVER_WRITE_TIMEOUT_SECONDS")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("keyvalue.enabled", "KEYVALUE_ENABLED")
	viper.BindEnv("keyvalue.host", "KEYVALUE_HOST")
	viper.BindEnv("keyvalue.port", "KEYVALUE_PORT")
	viper.BindEnv("keyvalue.password", "KEYVALUE_PASSWORD")
	viper.BindEnv("keyvalue.db", "KEYVALUE_DB")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout_seconds", 10)
	viper.SetDefault("server.write_timeout_seconds", 10)
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("keyvalue.host", "localhost")
	viper.SetDefault("keyvalue.port", 6379)
	viper.SetDefault("admin_rate_limit.rps", 10.0)
	viper.SetDefault("admin_rate_limit.burst", 20)
	viper.SetDefault("engine.rate_limit.expiration_seconds", 300)
	viper.SetDefault("engine.rate_limit.cleanup_interval_seconds", 60)
	viper.SetDefault("engine.rate_limit.scan_fraction", 10)
}
