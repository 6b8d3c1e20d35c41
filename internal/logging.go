package internal

import (
	"io"

	"github.com/charmbracelet/log"
)

// LevelForVerbosity maps the count of -v flags to a log level.
func LevelForVerbosity(v int) log.Level {
	switch {
	case v <= 0:
		return log.ErrorLevel
	case v == 1:
		return log.InfoLevel
	default:
		return log.DebugLevel
	}
}

func NewLogger(w io.Writer, verbosity int) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           LevelForVerbosity(verbosity),
		Prefix:          "gsync",
		ReportTimestamp: verbosity > 1,
	})
}
