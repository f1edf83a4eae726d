package constants

import "time"

const (
	ShutdownTimeout     = 5 * time.Second
	MaintenanceInterval = 60 * time.Second
)

const (
	DefaultTopN = 10
)

const (
	DefaultBenchTimes = 100000
	MaxBenchTimes     = 10000000
)

const (
	KeyValueLookupTimeout = 50 * time.Millisecond
	KeyValueDialTimeout   = 5 * time.Second
)

const (
	HTTPReadTimeout  = 10 * time.Second
	HTTPWriteTimeout = 10 * time.Second
	HTTPIdleTimeout  = 60 * time.Second
)
