// Package logging builds the process-wide zerolog.Logger.
//
// Constructed once in main and injected through the component graph,
// per the "global mutable state" design note: no package-level logger,
// no singleton-behind-a-getter.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options controls logger construction.
type Options struct {
	// Level is one of zerolog's level strings (debug, info, warn, error).
	Level string
	// Pretty enables the human-readable console writer instead of JSON.
	Pretty bool
}

// New builds a zerolog.Logger per opts, defaulting to info/JSON.
func New(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if opts.Pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Logger()
}
