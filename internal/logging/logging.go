// Package logging builds the process logger. Logs always go to stderr by
// default so stdout stays machine-readable.
package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Options configures New.
type Options struct {
	Level  string
	JSON   bool
	Output io.Writer
}

// New returns the root logger named "sentinel". Unknown levels fall back to
// info.
func New(opts Options) hclog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level := hclog.LevelFromString(opts.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:       "sentinel",
		Level:      level,
		Output:     out,
		JSONFormat: opts.JSON,
	})
}
