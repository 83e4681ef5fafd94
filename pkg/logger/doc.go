// Package logger provides structured logging with context extraction and
// Sentry integration.
//
// This package extends the standard library's log/slog with automatic
// context-based attribute injection and optional Sentry error reporting.
// Every component in this module takes a *slog.Logger; this package is
// where those loggers are built.
//
// # Basic Usage
//
// Create a JSON logger with context extractors:
//
//	log := logger.New(
//	    logger.StringExtractor(ctxkeys.RequestID, "request_id"),
//	)
//
//	log.InfoContext(ctx, "enrollment saved", slog.String("course_id", id))
//
// Extractors are called on every log call, so request-scoped values stay
// fresh. An extractor returning false adds nothing for that entry.
//
// # Sentry Integration
//
// For production error tracking, use NewWithSentry:
//
//	log := logger.NewWithSentry(logger.SentryConfig{
//	    DSN:         os.Getenv("SENTRY_DSN"),
//	    Environment: "production",
//	    MinLevel:    slog.LevelWarn,
//	})
//
// Errors create Issues in Sentry, warnings are stored for context. If the
// DSN is empty or Sentry fails to initialize, the logger falls back to
// stdout-only logging, so the same code path works in development.
//
// # Custom Handlers
//
// [NewContextHandler] can wrap any slog.Handler to add context extraction:
//
//	handler := slog.NewTextHandler(os.Stderr, nil)
//	log := slog.New(logger.NewContextHandler(handler, extractors...))
//
// [NewNope] returns a logger that discards everything; components use it as
// their default when no logger is configured.
package logger
