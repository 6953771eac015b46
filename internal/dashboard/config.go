package dashboard

import "time"

// Config defines the runtime configuration for the dashboard backend.
// Values load from the environment (and .env) and can be overridden by
// flags in cmd/dashboard.
type Config struct {
	Addr             string        `env:"DASHBOARD_ADDR"`
	DBPath           string        `env:"DASHBOARD_DB"`
	Credential       string        `env:"DASHBOARD_CREDENTIAL"`
	FrameWidth       int           `env:"FRAME_WIDTH"`
	FrameHeight      int           `env:"FRAME_HEIGHT"`
	SnapshotInterval time.Duration `env:"SNAPSHOT_INTERVAL"`
	VideoInterval    time.Duration `env:"VIDEO_INTERVAL"`
	WalkerCount      int           `env:"WALKER_COUNT"`
	WalkerSeed       int64         `env:"WALKER_SEED"`
}

// DefaultConfig returns the defaults aligned with the original
// dashboard's behavior: 720p source frame, 500 ms live snapshots.
func DefaultConfig() Config {
	return Config{
		Addr:             ":8080",
		DBPath:           "./dashboard.db",
		FrameWidth:       1280,
		FrameHeight:      720,
		SnapshotInterval: 500 * time.Millisecond,
		VideoInterval:    100 * time.Millisecond,
		WalkerCount:      6,
		WalkerSeed:       1,
	}
}
