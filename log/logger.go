// Copyright (c) 2025 The TrackMesh developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
)

const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError

	levelMaxVerbosity = LevelTrace
)

// FromLegacyLevel converts from old (0-9) to slog levels.
func FromLegacyLevel(lvl int) slog.Level {
	switch lvl {
	case 0:
		return LevelError + 4 // crit, effectively silences everything below
	case 1:
		return LevelError
	case 2:
		return LevelWarn
	case 3:
		return LevelInfo
	case 4:
		return LevelDebug
	default:
		return LevelTrace
	}
}

// Logger writes key/value pairs to a Handler.
type Logger interface {
	// With returns a new Logger that has this logger's attributes plus the given attributes.
	With(ctx ...any) Logger

	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
}

type logger struct {
	inner *slog.Logger
}

// NewLogger returns a logger with the specified handler set.
func NewLogger(h slog.Handler) Logger {
	return &logger{slog.New(h)}
}

func (l *logger) With(ctx ...any) Logger {
	return &logger{l.inner.With(ctx...)}
}

func (l *logger) write(level slog.Level, msg string, attrs ...any) {
	l.inner.Log(context.Background(), level, msg, attrs...)
}

func (l *logger) Trace(msg string, ctx ...any) { l.write(LevelTrace, msg, ctx...) }
func (l *logger) Debug(msg string, ctx ...any) { l.write(LevelDebug, msg, ctx...) }
func (l *logger) Info(msg string, ctx ...any)  { l.write(LevelInfo, msg, ctx...) }
func (l *logger) Warn(msg string, ctx ...any)  { l.write(LevelWarn, msg, ctx...) }
func (l *logger) Error(msg string, ctx ...any) { l.write(LevelError, msg, ctx...) }

var root atomic.Value

func init() {
	root.Store(&logger{slog.New(DiscardHandler())})
}

// SetDefault sets the default global logger.
func SetDefault(l Logger) {
	root.Store(l)
}

// Root returns the root logger.
func Root() Logger {
	return root.Load().(Logger)
}

// WithContext returns a logger extended with the given attributes.
// It follows the root logger, so handlers installed later (e.g. by flag
// parsing in main) apply to loggers created at package init time.
func WithContext(ctx ...any) Logger {
	return &ctxLogger{attrs: ctx}
}

type ctxLogger struct {
	attrs []any
}

func (c *ctxLogger) With(ctx ...any) Logger {
	return &ctxLogger{attrs: append(append([]any(nil), c.attrs...), ctx...)}
}

func (c *ctxLogger) Trace(msg string, ctx ...any) { Root().With(c.attrs...).Trace(msg, ctx...) }
func (c *ctxLogger) Debug(msg string, ctx ...any) { Root().With(c.attrs...).Debug(msg, ctx...) }
func (c *ctxLogger) Info(msg string, ctx ...any)  { Root().With(c.attrs...).Info(msg, ctx...) }
func (c *ctxLogger) Warn(msg string, ctx ...any)  { Root().With(c.attrs...).Warn(msg, ctx...) }
func (c *ctxLogger) Error(msg string, ctx ...any) { Root().With(c.attrs...).Error(msg, ctx...) }

// InitTerminal points the root logger at a terminal handler writing to stderr
// with the given verbosity level.
func InitTerminal(level slog.Level, useColor bool) {
	var lvl slog.LevelVar
	lvl.Set(level)
	SetDefault(NewLogger(NewTerminalHandlerWithLevel(os.Stderr, &lvl, useColor)))
}
