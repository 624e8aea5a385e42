// Package logger builds the process logger and terminal progress bars.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr, configured from LOG_LEVEL
// (debug, info, warn, error) and LOG_FORMAT (json, text).
func New() *logrus.Logger {
	return NewWithOutput(os.Stderr, os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

func NewWithOutput(w io.Writer, level, format string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)

	lvl := logrus.InfoLevel
	switch strings.ToLower(level) {
	case "debug":
		lvl = logrus.DebugLevel
	case "warn", "warning":
		lvl = logrus.WarnLevel
	case "error":
		lvl = logrus.ErrorLevel
	}
	log.SetLevel(lvl)

	if strings.ToLower(format) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// Progress returns a bar of n steps drawn on w. Pass io.Discard to silence it.
func Progress(w io.Writer, n int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(n,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}
