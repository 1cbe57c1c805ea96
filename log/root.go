// Copyright (c) 2025 The Stakewell developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package log

import (
	"log/slog"
	"os"
	"sync/atomic"
)

var root atomic.Value

func init() {
	root.Store(&logger{slog.New(DiscardHandler())})
}

// SetDefault sets the default global logger.
func SetDefault(l Logger) {
	lg := l.(*logger)
	root.Store(lg)
	slog.SetDefault(lg.inner)
}

// Root returns the root logger.
func Root() Logger {
	return root.Load().(*logger)
}

// WithContext returns a logger carrying the given context attributes,
// the conventional way to make a per-package logger:
//
//	var logger = log.WithContext("pkg", "pool")
func WithContext(ctx ...any) Logger {
	return Root().With(ctx...)
}

// The following functions bypass the exported logger methods (logger.Debug,
// etc.) to keep the call depth the same for all paths to logger.Write so
// runtime.Caller(2) always refers to the call site in client code.

// Trace is a convenient alias for Root().Trace.
func Trace(msg string, ctx ...any) {
	root.Load().(*logger).Write(LevelTrace, msg, ctx...)
}

// Debug is a convenient alias for Root().Debug.
func Debug(msg string, ctx ...any) {
	root.Load().(*logger).Write(slog.LevelDebug, msg, ctx...)
}

// Info is a convenient alias for Root().Info.
func Info(msg string, ctx ...any) {
	root.Load().(*logger).Write(slog.LevelInfo, msg, ctx...)
}

// Warn is a convenient alias for Root().Warn.
func Warn(msg string, ctx ...any) {
	root.Load().(*logger).Write(slog.LevelWarn, msg, ctx...)
}

// Error is a convenient alias for Root().Error.
func Error(msg string, ctx ...any) {
	root.Load().(*logger).Write(slog.LevelError, msg, ctx...)
}

// Crit is a convenient alias for Root().Crit.
func Crit(msg string, ctx ...any) {
	root.Load().(*logger).Write(LevelCrit, msg, ctx...)
	os.Exit(1)
}
