package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logger bound to stderr. Stdout belongs to the result payload.
func New(level string) *logrus.Logger {
	return NewWithOutput(os.Stderr, level)
}

func NewWithOutput(w io.Writer, level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
		log.Warnf("unknown log level %q, using info", level)
	}
	log.SetLevel(lvl)
	return log
}

// Discard is used by tests and library callers that do not care about diagnostics.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
