package conductor

import (
	"log/slog"
	"runtime"
)

// Option configures a Conductor.
type Option func(*Conductor)

// WithWorkers bounds how many voices are compiled concurrently. Values < 1
// select runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(c *Conductor) {
		if n < 1 {
			n = runtime.NumCPU()
		}
		c.workers = n
	}
}

// WithLogger sets the logger for per-voice summaries and warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Conductor) {
		if l != nil {
			c.log = l
		}
	}
}

// WithChannel sets the MIDI channel (0-15) used for emitted events.
func WithChannel(ch uint8) Option {
	return func(c *Conductor) {
		c.channel = ch & 0x0f
	}
}
