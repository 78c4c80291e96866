package formatter_test

import (
	"fmt"
	"time"

	"github.com/Agnonimoose/jogger/core"
	"github.com/Agnonimoose/jogger/formatter"
)

func ExampleNewJSONFormatter() {
	f, _ := formatter.NewJSONFormatter(formatter.JSONConfig{
		Config: formatter.Config{Template: "%(levelname) %(name) %(message)"},
	})

	rec := &core.Record{
		Name:    "api",
		Level:   core.InfoLevel,
		Created: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		Msg:     "request handled",
		Extra:   core.Extra{"status": 200},
	}

	out, _ := f.Format(rec)
	fmt.Print(string(out))
	// Output:
	// {"levelname":"INFO","name":"api","message":"request handled","status":200}
}

func ExampleNewJSONFormatter_renameFields() {
	f, _ := formatter.NewJSONFormatter(formatter.JSONConfig{
		Config:       formatter.Config{Template: "%(levelname) %(message)"},
		RenameFields: map[string]string{"levelname": "severity"},
		StaticFields: map[string]any{"service": "payments"},
	})

	rec := &core.Record{
		Level:   core.WarnLevel,
		Created: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		Msg:     "rate limited",
	}

	out, _ := f.Format(rec)
	fmt.Print(string(out))
	// Output:
	// {"severity":"WARN","message":"rate limited","service":"payments"}
}

func ExampleNewJSONFormatter_structuredMessage() {
	f, _ := formatter.NewJSONFormatter(formatter.JSONConfig{
		Config: formatter.Config{Template: "%(message)"},
	})

	rec := &core.Record{
		Level:   core.InfoLevel,
		Created: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		Msg:     map[string]any{"event": "login", "user": "alice"},
	}

	out, _ := f.Format(rec)
	fmt.Print(string(out))
	// Output:
	// {"message":null,"event":"login","user":"alice"}
}

func ExampleNewTextFormatter() {
	f := formatter.NewTextFormatter(formatter.Config{})

	rec := &core.Record{
		Name:    "worker",
		Level:   core.InfoLevel,
		Created: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
		Msg:     "job %s done",
		Args:    []any{"backfill"},
		Extra:   core.Extra{"took": 250 * time.Millisecond},
	}

	out, _ := f.Format(rec)
	fmt.Print(string(out))
	// Output:
	// 2026-01-15T12:00:00Z [INFO] worker: job backfill done took=250ms
}
