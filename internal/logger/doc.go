// Package logger wraps charmbracelet/log behind a small structured logging
// interface. Loggers are passed to components explicitly; there is no
// package-level default.
package logger
