// Package logging provides structured logging utilities for gmailplayground.
//
// All logging goes through the standard library's slog package. Setup installs a
// default logger that writes to two places at once:
//
//   - the console (stdout), at INFO, or DEBUG when --verbose is given
//   - a log file that always records DEBUG and rotates at midnight
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithOperation(slog.Default(), "gmail.query_threads")
//	logger.Info("received threads",
//	    logging.ThreadID(id),
//	    logging.Status(logging.StatusSuccess))
//
// Tokens are never logged directly; use SanitizeToken.
package logging
