// Package logging configures the logrus logger instance passed to the
// orchestrator's components. There is no package-level global: callers
// build one logger at startup and thread it through explicitly.
package logging

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// New builds a logger at the given level. levelName is one of
// "debug", "info", "warn", "error"; an empty or unrecognized value
// falls back to "info". JSON output is used when stdout is not a
// terminal (e.g. under systemd), text output otherwise.
func New(levelName string) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(parseLevel(levelName))

	if isTerminal(os.Stdout) {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	}

	return logger
}

func parseLevel(levelName string) logrus.Level {
	switch levelName {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "info", "":
		return logrus.InfoLevel
	default:
		return logrus.InfoLevel
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
