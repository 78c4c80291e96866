// Package logger is the public API of jogger. Most users only need to
// import this package.
//
// A Logger is immutable after construction: the name, level, default
// extras, and handler are set once via the Builder and never modified.
// This makes Logger safe for concurrent use without any locking on the
// read path.
//
// The package initializes a default Logger (async, InfoLevel, text
// format to stdout) in init(). The package-level functions Info,
// Error, Debugf, etc. delegate to this default instance, so simple
// programs can log without any setup:
//
//	logger.Info("ready", logger.F("port", 8080))
//
// For custom configuration, use the Builder:
//
//	log := logger.NewBuilder().
//	    WithName("api").
//	    WithHandler(myHandler).
//	    WithLevel(logger.DebugLevel).
//	    WithCaller(true).
//	    Build()
//
// Child loggers are created via With, which returns a new Logger that
// shares the same handler but carries additional default extras, and
// Named, which extends the logger name with a dot-joined segment:
//
//	reqLog := log.Named("http").With(logger.F("request_id", id))
//
// Format-style methods (Infof and friends) store the format string and
// arguments on the record; interpolation happens in the formatter, so
// a record dropped by an overflow policy never pays for it.
//
// Level checks happen before any allocation, so filtered-out messages
// cost only a single integer comparison.
package logger
