// Copyright (c) 2026 The vmlayer Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package log is a thin wrapper over go-ethereum's log/slog-based structured
// logger: rather than re-deriving its byte-exact terminal/logfmt formatting,
// this package re-uses it directly (it is already a module dependency for
// primitives, runtime and callframe) and layers on the conventional Trace/Debug/Info/Warn/
// Error/Crit call shape the rest of this engine's packages use.
package log

import (
	"io"
	"log/slog"
	"os"

	gethlog "github.com/ethereum/go-ethereum/log"
	"github.com/mattn/go-isatty"
)

// Level aliases gethlog's slog levels, including the below-Debug Trace level
// and above-Error Crit level the standard library doesn't define.
type Level = slog.Level

const (
	LevelTrace = gethlog.LevelTrace
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
	LevelCrit  = gethlog.LevelCrit
)

// Logger is the call surface every package in this engine logs through.
type Logger = gethlog.Logger

// NewLogger wraps a slog.Handler with the Trace/Debug/.../Crit convenience
// methods.
func NewLogger(h slog.Handler) Logger { return gethlog.NewLogger(h) }

// NewTerminalHandler builds a colorized handler for interactive use,
// auto-detecting color support the way a CLI tool should: mattn/go-isatty
// reports whether w is actually a terminal rather than a redirected file.
func NewTerminalHandler(w io.Writer) slog.Handler {
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return gethlog.NewTerminalHandler(w, useColor)
}

// JSONHandler builds a handler suitable for production/CI log aggregation.
func JSONHandler(w io.Writer) slog.Handler { return gethlog.JSONHandler(w) }

// SetDefault installs l as the logger used by the package-level
// Trace/Debug/Info/Warn/Error/Crit functions below.
func SetDefault(l Logger) { gethlog.SetDefault(l) }

func Trace(msg string, ctx ...any) { gethlog.Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { gethlog.Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { gethlog.Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { gethlog.Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { gethlog.Error(msg, ctx...) }
func Crit(msg string, ctx ...any)  { gethlog.Crit(msg, ctx...) }

func init() {
	SetDefault(NewLogger(NewTerminalHandler(os.Stderr)))
}
