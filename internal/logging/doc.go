// Package logging provides structured logging for spark.
//
// It wraps zap with a small Config type so the log level, format and
// constant fields can be driven from the main configuration file. Use
// NewLogger for production output and NewTestLogger in tests to assert
// on emitted entries.
package logging
