package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns the server logger: JSON on stdout unless LOG_FORMAT=text, level from LOG_LEVEL.
func New() *logrus.Logger {
	return NewWithOutput(os.Stdout, os.Getenv("LOG_FORMAT"))
}

// NewWithOutput builds a logger writing to w. format is "text" or "json" (the default).
func NewWithOutput(w io.Writer, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	if strings.EqualFold(strings.TrimSpace(format), "text") {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	l.SetLevel(ParseLevel(os.Getenv("LOG_LEVEL"), logrus.InfoLevel))
	return l
}

// ParseLevel reads a logrus level name, returning def when s is empty or unknown.
func ParseLevel(s string, def logrus.Level) logrus.Level {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return lvl
}
