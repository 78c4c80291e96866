package logger_test

import (
	"io"
	"os"

	"github.com/Agnonimoose/jogger/formatter"
	"github.com/Agnonimoose/jogger/handler"
	"github.com/Agnonimoose/jogger/logger"
)

// Use the package-level default logger for quick, no-setup logging.
func Example() {
	logger.Info("Application started")
	logger.Info("User login",
		logger.F("username", "alice"),
		logger.F("user_id", 123),
	)
}

// Create a custom Logger with the Builder pattern.
func ExampleNewBuilder() {
	ch := handler.NewConsoleHandler(handler.ConsoleConfig{
		Writer: io.Discard,
		Async:  false,
	})

	log := logger.NewBuilder().
		WithName("api").
		WithHandler(ch).
		WithLevel(logger.DebugLevel).
		WithCaller(true).
		WithExtra(logger.F("service", "api")).
		Build()

	log.Info("ready", logger.F("port", 8080))
	log.Close()
}

// Use With to create a child logger with persistent context extras.
func ExampleLogger_With() {
	ch := handler.NewConsoleHandler(handler.ConsoleConfig{
		Writer: io.Discard,
		Async:  false,
	})

	log := logger.NewBuilder().
		WithHandler(ch).
		Build()

	reqLog := log.With(logger.Fields(
		"request_id", "req-12345",
		"method", "GET",
	))

	reqLog.Info("Processing request", logger.F("path", "/api/users"))
	reqLog.Info("Request completed", logger.F("status", 200))
	log.Close()
}

// Log a structured mapping as the message body.
func ExampleLogger_Payload() {
	jf, err := formatter.NewJSONFormatter(formatter.JSONConfig{
		Config: formatter.Config{Template: "%(levelname) %(message)"},
	})
	if err != nil {
		panic(err)
	}
	ch := handler.NewConsoleHandler(handler.ConsoleConfig{
		Writer:    os.Stdout,
		Async:     false,
		Formatter: jf,
	})

	log := logger.NewBuilder().WithHandler(ch).Build()
	log.Payload(logger.InfoLevel, map[string]any{
		"event": "signup",
		"plan":  "pro",
	})
	log.Close()

	// Output:
	// {"levelname":"INFO","message":null,"event":"signup","plan":"pro"}
}
