// Package logging configures the process-wide zerolog logger. Output goes
// to stderr: stdout carries the MCP stdio transport and must stay clean.
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger at the given level. Unknown levels fall back
// to info.
func New(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}
