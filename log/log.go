// Copyright 2025 The A2A Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log provides a context-scoped structured logger built on log/slog.
// A logger is attached to a context with [AttachLogger] and used through package-level
// functions which fall back to [slog.Default] when no logger was attached.
package log

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// AttachLogger returns a copy of ctx which carries the provided logger.
func AttachLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFrom returns the logger attached to ctx or the default logger.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// With returns a copy of ctx with a logger which includes the given attributes in every record.
func With(ctx context.Context, args ...any) context.Context {
	return AttachLogger(ctx, LoggerFrom(ctx).With(args...))
}

// Log emits a record with the provided level using the logger attached to ctx.
func Log(ctx context.Context, level slog.Level, msg string, args ...any) {
	LoggerFrom(ctx).Log(ctx, level, msg, args...)
}

// Debug emits a debug record.
func Debug(ctx context.Context, msg string, args ...any) {
	Log(ctx, slog.LevelDebug, msg, args...)
}

// Info emits an info record.
func Info(ctx context.Context, msg string, args ...any) {
	Log(ctx, slog.LevelInfo, msg, args...)
}

// Warn emits a warning record.
func Warn(ctx context.Context, msg string, args ...any) {
	Log(ctx, slog.LevelWarn, msg, args...)
}

// Error emits an error record with the error stored under the "error" key.
func Error(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append([]any{"error", err.Error()}, args...)
	}
	Log(ctx, slog.LevelError, msg, args...)
}
