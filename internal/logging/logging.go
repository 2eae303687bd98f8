// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// levelWriter sends info and warn to out and error and above to errOut.
// When file is set it receives every level.
type levelWriter struct {
	out    io.Writer
	errOut io.Writer
	file   io.Writer
}

func (w *levelWriter) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

func (w *levelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	dst := w.out
	if level >= zerolog.ErrorLevel && level != zerolog.NoLevel {
		dst = w.errOut
	}
	n, err := dst.Write(p)
	if err != nil {
		return n, err
	}
	if w.file != nil {
		if _, err := w.file.Write(p); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Options configure New.
type Options struct {
	Level   string
	File    string
	Console bool
	Stdout  io.Writer
	Stderr  io.Writer
}

// New returns a logger routing by level, and a func that closes the log file
// if one was opened.
func New(opts Options) (zerolog.Logger, func(), error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("parsing log level: %w", err)
		}
		level = parsed
	}

	w := &levelWriter{out: opts.Stdout, errOut: opts.Stderr}
	if w.out == nil {
		w.out = os.Stdout
	}
	if w.errOut == nil {
		w.errOut = os.Stderr
	}
	if opts.Console {
		w.out = zerolog.ConsoleWriter{Out: w.out, TimeFormat: time.DateTime}
		w.errOut = zerolog.ConsoleWriter{Out: w.errOut, TimeFormat: time.DateTime}
	}

	cleanup := func() {}
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("opening log file: %w", err)
		}
		w.file = f
		cleanup = func() { f.Close() }
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	return logger, cleanup, nil
}
