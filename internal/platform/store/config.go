package store

import "time"

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG   PGConfig
	Lite SQLiteConfig
	CH   CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	// Guard/boot knobs:
	ConnectRetries int           // default 20 with exponential backoff capped at 2s
	PingTimeout    time.Duration // default 3s
}

// SQLiteConfig configures the embedded sqlite file
type SQLiteConfig struct {
	Enabled     bool
	Path        string        // file path or ":memory:"
	BusyTimeout time.Duration // default 5s
	LogSQL      bool
}

// CHConfig configures clickhouse connectivity
type CHConfig struct {
	Enabled bool
	URL     string
	Role    string // reported in client info, e.g. "scanner"
}
