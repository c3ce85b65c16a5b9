// File: internal/log/log.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// slog handlers backed by charmbracelet/log formatters.

package log

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

const (
	TextFormat   = "text"
	LogfmtFormat = "logfmt"
	JSONFormat   = "json"
)

var (
	ErrInvalidLevel  = errors.New("invalid log level")
	ErrInvalidFormat = errors.New("invalid log format")
)

// CreateHandlerWithStrings builds a slog.Handler writing to w.
func CreateHandlerWithStrings(w io.Writer, logLevel, logFormat string) (slog.Handler, error) {
	level, err := GetLevel(logLevel)
	if err != nil {
		return nil, err
	}

	formatter, err := GetFormatter(logFormat)
	if err != nil {
		return nil, err
	}

	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: formatter != charmlog.TextFormatter,
	}), nil
}

// GetLevel parses a level name. Empty means info.
func GetLevel(level string) (charmlog.Level, error) {
	if level == "" {
		return charmlog.InfoLevel, nil
	}
	l, err := charmlog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, level)
	}
	return l, nil
}

// GetFormatter maps a format name to a formatter. Empty means text.
func GetFormatter(format string) (charmlog.Formatter, error) {
	switch strings.ToLower(format) {
	case "", TextFormat:
		return charmlog.TextFormatter, nil
	case LogfmtFormat:
		return charmlog.LogfmtFormatter, nil
	case JSONFormat:
		return charmlog.JSONFormatter, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, format)
}

// SlogLevel converts a level name to its slog equivalent.
func SlogLevel(level string) (slog.Level, error) {
	l, err := GetLevel(level)
	if err != nil {
		return slog.LevelInfo, err
	}
	return slog.Level(l), nil
}
