package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Identity reconciliation watchdog: how often to retry applying buffered
// provider identifiers, and the total window after which the watchdog gives
// up and the identifiers stay unbound.
const (
	WatchdogInterval = 2 * time.Second
	WatchdogWindow   = 30 * time.Second
)

// Turn persistence retry policy: attempts are spaced by IngestBackoffBase
// doubled per attempt (1s, 2s, 4s).
const (
	IngestMaxAttempts = 3
	IngestBackoffBase = 1 * time.Second
)

// Per-connection ingest queue capacity. Turns beyond this while the worker
// is stalled are dropped rather than blocking the event callback.
const IngestQueueSize = 64

// Background job intervals
const (
	CleanupJobInterval = 5 * time.Minute
	StaleSessionAge    = 1 * time.Hour
)

// Default rate limiting
const DefaultRateLimitPerMin = 60
