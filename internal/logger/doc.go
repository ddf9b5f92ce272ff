// Package logger provides a small wrapper around zap to offer:
//   - a global sugared logger with a console encoder,
//   - file outputs for background monitors (NewWithOutputs),
//   - context helpers (ToContext/FromContext/WithName/WithKV/WithContextLevel),
//   - level configuration and parsing utilities,
//   - convenience functions (Infof, ErrorKV, etc.).
//
// Services accept a context and extract the logger from it, so every log line
// carries the scope (monitor, scan, daemon, ...) it was written from.
package logger
