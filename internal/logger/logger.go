package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a new logger with the specified log level writing to w.
// A nil writer means stderr; stdout is reserved for command output.
func New(level string, w io.Writer) *logrus.Logger {
	logger := logrus.New()

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if w == nil {
		w = os.Stderr
	}
	logger.SetOutput(w)

	return logger
}

// Discard returns a logger that drops everything. Used by tests and by
// library callers that don't care about diagnostics.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// WithFields creates a logger entry with the specified fields
func WithFields(logger logrus.FieldLogger, fields logrus.Fields) *logrus.Entry {
	return logger.WithFields(fields)
}
