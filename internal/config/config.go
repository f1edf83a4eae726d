package config

type Config struct {
	Server         ServerConfig
	Logging        LoggingConfig
	Tracing        TracingConfig
	KeyValue       KeyValueConfig
	AdminRateLimit AdminRateLimitConfig
	Engine         EngineConfig
}

type ServerConfig struct {
	Port                int `mapstructure:"port"`
	ReadTimeoutSeconds  int `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int `mapstructure:"write_timeout_seconds"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

// KeyValueConfig points the key-value lookup rules at their backing store.
type KeyValueConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// AdminRateLimitConfig guards the administrative API, not the DNS hot path.
type AdminRateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// EngineConfig carries defaults applied to rules constructed without
// explicit parameters.
type EngineConfig struct {
	RateLimit RateLimitDefaults `mapstructure:"rate_limit"`
}

type RateLimitDefaults struct {
	ExpirationSeconds      int `mapstructure:"expiration_seconds"`
	CleanupIntervalSeconds int `mapstructure:"cleanup_interval_seconds"`
	ScanFraction           int `mapstructure:"scan_fraction"`
}
