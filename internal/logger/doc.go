// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - context helpers (ToContext/FromContext/WithName/WithMinLevel),
//   - level configuration and parsing utilities,
//   - leveled message and key-value helpers (Info, WarnKV, ErrorKV, etc.).
//
// Every bootstrap stage receives a context and extracts the logger from it, so
// download, extraction and launch messages carry the component name.
package logger
