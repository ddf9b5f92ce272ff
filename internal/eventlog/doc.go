// Package eventlog provides sinks for proximity engine events:
//   - FileSink: an append-only CBOR journal,
//   - Reader: a filtered iterator over a journal,
//   - LoggerSink: structured log lines through the logger package,
//   - Multi and Stamped: fan-out and session stamping.
//
// Every sink is safe for concurrent use.
package eventlog
