package utils

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger creates the application logger. It writes human-readable
// console output to stdout.
func NewLogger() zerolog.Logger {
	writer := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(writer).With().Timestamp().Logger()
}
