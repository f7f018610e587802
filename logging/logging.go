package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Dir   string
	Level string
	JSON  bool
	// Name is the log file name inside Dir.
	Name string
}

// New returns a logger writing to a rotating file. The terminal belongs to
// the TUI, so nothing is written to stdout or stderr.
func New(opts Options) (*logrus.Logger, io.Closer, error) {
	if opts.Dir == "" {
		opts.Dir = "logs"
	}
	if opts.Name == "" {
		opts.Name = "aileron.log"
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}

	w := &lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, opts.Name),
		MaxSize:    32, // MB
		MaxBackups: 3,
		MaxAge:     14,
	}
	if level >= logrus.DebugLevel {
		w.MaxSize = 128
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	if opts.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	}
	return logger, w, nil
}

// Discard is a logger for code paths that run without a log file.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func ParseLevel(s string) (logrus.Level, error) {
	if s == "" {
		return logrus.InfoLevel, nil
	}
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}
