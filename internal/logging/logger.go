package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the service logger writing JSON lines to stdout and to every
// extra writer, such as a LogstashWriter.
func New(level string, writers ...io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	outputs := []io.Writer{os.Stdout}
	for _, w := range writers {
		if w != nil {
			outputs = append(outputs, w)
		}
	}
	var out io.Writer = outputs[0]
	if len(outputs) > 1 {
		out = zerolog.MultiLevelWriter(outputs...)
	}

	return zerolog.New(out).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Str("service", "airmango-admin-api").
		Logger()
}

// ParseLevel falls back to info for empty or unknown levels.
func ParseLevel(value string) zerolog.Level {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return zerolog.InfoLevel
	}
	lvl, err := zerolog.ParseLevel(value)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}
