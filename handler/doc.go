// Package handler provides the Handler interface and its built-in
// implementations for dispatching log records to various outputs.
//
// Handlers that write to local destinations support both synchronous and
// asynchronous operation. In async mode, a copy of each record is sent
// to a bounded channel and processed by a background goroutine, which
// keeps the caller's hot path fast even under slow I/O.
//
// When the async queue is full, each handler applies a per-level
// OverflowPolicy: DropNewest (default for Debug/Info/Warn), DropOldest,
// or Block with a configurable timeout (default for Error and above).
// Low-priority records never stall the application while errors are
// never silently dropped.
//
// Built-in handlers:
//
//   - ConsoleHandler writes formatted records to any io.Writer (default: stdout).
//   - FileHandler writes to a file with automatic rotation by size, age,
//     or interval, optional gzip compression of backups, and old backup
//     cleanup.
//   - HTTPHandler ships newline-delimited JSON batches to a collector
//     endpoint.
//   - MultiHandler fans out a single record to multiple child handlers.
//   - SlogHandler adapts any Handler to log/slog.Handler, so jogger can
//     serve as a drop-in backend for the standard library.
//
// Handlers track dropped, blocked, processed, and failed-write counts
// via the Stats type, exposed through the StatsProvider interface.
package handler
