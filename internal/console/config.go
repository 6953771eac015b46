package console

import "time"

// Config defines the runtime configuration for the operator console.
// SourceWidth and SourceHeight are provisional: the video feed's own
// frame dimensions replace them once the first frame arrives.
type Config struct {
	Addr          string        `env:"CONSOLE_ADDR"`
	BackendURL    string        `env:"CONSOLE_BACKEND_URL"`
	Credential    string        `env:"CONSOLE_CREDENTIAL"`
	CanvasWidth   int           `env:"CANVAS_WIDTH"`
	CanvasHeight  int           `env:"CANVAS_HEIGHT"`
	SourceWidth   int           `env:"SOURCE_WIDTH"`
	SourceHeight  int           `env:"SOURCE_HEIGHT"`
	FrameInterval time.Duration `env:"FRAME_INTERVAL"`
}

// DefaultConfig returns the defaults: a 640x360 canvas over the
// backend's 720p source, frames at 10 fps.
func DefaultConfig() Config {
	return Config{
		Addr:          ":8081",
		BackendURL:    "http://localhost:8080",
		CanvasWidth:   640,
		CanvasHeight:  360,
		SourceWidth:   1280,
		SourceHeight:  720,
		FrameInterval: 100 * time.Millisecond,
	}
}
