// Package monitoring holds the process-wide diagnostic logger.
package monitoring

import (
	"io"

	log "github.com/sirupsen/logrus"
)

var logger = newLogger()

func newLogger() *log.Logger {
	l := log.New()
	l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	l.SetLevel(log.InfoLevel)
	return l
}

// Logf is the package-level diagnostic logger. It defaults to the shared
// logrus logger at info level and may be replaced by SetLogger.
var Logf func(format string, v ...interface{}) = logger.Infof

// SetLogger replaces Logf. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Logger returns the shared structured logger.
func Logger() *log.Logger {
	return logger
}

// WithFields starts a structured entry on the shared logger.
func WithFields(fields log.Fields) *log.Entry {
	return logger.WithFields(fields)
}

func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// SetLevel parses a logrus level name such as "debug" or "warn".
func SetLevel(level string) error {
	parsed, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(parsed)
	return nil
}
