// Package cliutil holds the CLI-facing logger, TTY detection and table
// rendering for SQLFlow's command line; cmd/sqlflow uses its RenderTable.
//
// Logger is grounded on the teacher's charmbracelet/log adapter
// (internal/infrastructure/logging/logger.go): same Options shape, same
// level-parsing and field-merge idiom, with the ports.Logger
// interface/correlation-id plumbing dropped since SQLFlow has no
// application/infrastructure split to bridge.
package cliutil

import (
	"fmt"
	"io"
	"os"
	"strings"

	cblog "github.com/charmbracelet/log"
)

// LoggerOptions configures the charmbracelet/log-backed CLI logger.
type LoggerOptions struct {
	Writer       io.Writer
	Level        string
	ReportCaller bool
	Component    string
}

// Logger is SQLFlow's CLI-facing structured logger.
type Logger struct {
	logger *cblog.Logger
	fields []any
}

// NewLogger builds a Logger from opts.
func NewLogger(opts LoggerOptions) (*Logger, error) {
	writer := opts.Writer
	if writer == nil {
		writer = os.Stderr
	}

	level := cblog.InfoLevel
	if opts.Level != "" {
		parsed, err := cblog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	base := cblog.NewWithOptions(writer, cblog.Options{
		Level:           level,
		ReportTimestamp: true,
		ReportCaller:    opts.ReportCaller,
	})

	var fields []any
	if opts.Component != "" {
		fields = append(fields, "component", opts.Component)
	}

	return &Logger{logger: base, fields: fields}, nil
}

// Debug logs at debug level with structured key/value fields.
func (l *Logger) Debug(msg string, fields ...any) { l.log(cblog.DebugLevel, msg, fields...) }

// Info logs at info level with structured key/value fields.
func (l *Logger) Info(msg string, fields ...any) { l.log(cblog.InfoLevel, msg, fields...) }

// Warn logs at warn level with structured key/value fields.
func (l *Logger) Warn(msg string, fields ...any) { l.log(cblog.WarnLevel, msg, fields...) }

// Error logs at error level with structured key/value fields.
func (l *Logger) Error(msg string, fields ...any) { l.log(cblog.ErrorLevel, msg, fields...) }

// With derives a Logger carrying additional persistent fields.
func (l *Logger) With(fields ...any) *Logger {
	next := make([]any, len(l.fields))
	copy(next, l.fields)
	next = append(next, fields...)
	return &Logger{logger: l.logger, fields: next}
}

func (l *Logger) log(level cblog.Level, msg string, fields ...any) {
	if l == nil || l.logger == nil {
		return
	}
	payload := mergeFields(l.fields, fields)
	switch level {
	case cblog.DebugLevel:
		l.logger.Debug(msg, payload...)
	case cblog.WarnLevel:
		l.logger.Warn(msg, payload...)
	case cblog.ErrorLevel:
		l.logger.Error(msg, payload...)
	default:
		l.logger.Info(msg, payload...)
	}
}

// mergeFields deduplicates key/value pairs across base and additions,
// additions winning on key collision, keys in first-seen order.
func mergeFields(base, additions []any) []any {
	store := make(map[string]any)
	var order []string

	addPair := func(key string, value any) {
		if key == "" {
			return
		}
		if _, exists := store[key]; !exists {
			order = append(order, key)
		}
		store[key] = value
	}

	process := func(values []any) {
		for i := 0; i+1 < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			addPair(key, values[i+1])
		}
	}

	process(base)
	process(additions)

	result := make([]any, 0, len(order)*2)
	for _, key := range order {
		result = append(result, key, store[key])
	}
	return result
}
