package logger

import (
	"errors"
	"io"
)

type Option func(*ZapLogger)

// Filename redirects the rotated log file. An empty name disables the file
// sink.
func Filename(name string) Option {
	return func(l *ZapLogger) {
		l.filename = name
	}
}

// Rotation sets the lumberjack limits: megabytes per file, files kept and
// days kept.
func Rotation(maxSizeMB, maxBackups, maxAgeDays int) Option {
	return func(l *ZapLogger) {
		l.maxSize = maxSizeMB
		l.maxBackups = maxBackups
		l.maxAge = maxAgeDays
	}
}

// MinLevel overrides the configured level.
func MinLevel(level Level) Option {
	return func(l *ZapLogger) {
		l.level = toZapLevel(level)
	}
}

// Console replaces stdout as the always-on sink. Tools that print results
// on stdout send their logs to stderr with it.
func Console(w io.Writer) Option {
	return func(l *ZapLogger) {
		l.console = w
	}
}

func (l *ZapLogger) validate() error {
	var errs []error
	if l.console == nil {
		errs = append(errs, errors.New("console writer is required"))
	}
	if l.filename != "" {
		if l.maxSize <= 0 {
			errs = append(errs, errors.New("invalid maxSize: must be > 0"))
		}
		if l.maxBackups < 0 {
			errs = append(errs, errors.New("invalid maxBackups: must be >= 0"))
		}
		if l.maxAge <= 0 {
			errs = append(errs, errors.New("invalid maxAge: must be > 0"))
		}
	}
	return errors.Join(errs...)
}
