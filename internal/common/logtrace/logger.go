// Package logtrace configures structured logging for the client.
package logtrace

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the global zerolog logger. Output goes to stderr so
// it never interferes with command output on stdout. The level defaults to
// warn and can be lowered with SENSEHEL_LOG_LEVEL (e.g. "debug").
func InitLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level := zerolog.WarnLevel
	if s := os.Getenv("SENSEHEL_LOG_LEVEL"); s != "" {
		if l, err := zerolog.ParseLevel(s); err == nil {
			level = l
		}
	}
	log.Logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}
