package handler

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/valyala/fastjson"

	"github.com/Agnonimoose/jogger/core"
)

// captureServer records every request a handler ships to it.
type captureServer struct {
	mu     sync.Mutex
	bodies []string
	header []http.Header
	status int
}

func newCaptureServer(t *testing.T, status int) (*captureServer, string) {
	t.Helper()
	cs := &captureServer{status: status}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		cs.mu.Lock()
		cs.bodies = append(cs.bodies, string(body))
		cs.header = append(cs.header, r.Header.Clone())
		cs.mu.Unlock()
		w.WriteHeader(cs.status)
	}))
	t.Cleanup(srv.Close)
	return cs, srv.URL
}

func (cs *captureServer) count() int {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return len(cs.bodies)
}

func (cs *captureServer) request(i int) (string, http.Header) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return cs.bodies[i], cs.header[i]
}

func ndjsonLines(body string) []string {
	return strings.Split(strings.TrimSuffix(body, "\n"), "\n")
}

func TestHTTPHandler_RequiresURL(t *testing.T) {
	_, err := NewHTTPHandler(HTTPConfig{})
	if err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestHTTPHandler_BatchSend(t *testing.T) {
	cs, url := newCaptureServer(t, http.StatusOK)

	h, err := NewHTTPHandler(HTTPConfig{
		URL:           url,
		APIKey:        "test-key",
		BatchSize:     3,
		FlushInterval: time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}

	h.Handle(newTestRecord(core.InfoLevel, "batch 0"))
	h.Handle(newTestRecord(core.InfoLevel, "batch 1"))
	h.Handle(newTestRecord(core.InfoLevel, "batch 2"))

	// Close drains and stops the sender, so all sends are done after it.
	h.Close()

	if got := cs.count(); got != 1 {
		t.Fatalf("got %d requests, want 1", got)
	}

	body, header := cs.request(0)
	lines := ndjsonLines(body)
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), body)
	}
	for i, line := range lines {
		v, err := fastjson.Parse(line)
		if err != nil {
			t.Fatalf("line %d is not valid JSON: %v\n%s", i, err, line)
		}
		want := "batch " + string(rune('0'+i))
		if got := string(v.GetStringBytes("message")); got != want {
			t.Errorf("line %d message = %q, want %q", i, got, want)
		}
		if v.Get("timestamp") == nil {
			t.Errorf("line %d missing injected timestamp", i)
		}
	}

	if got := header.Get("Content-Type"); got != "application/x-ndjson" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := header.Get("Authorization"); got != "Bearer test-key" {
		t.Errorf("Authorization = %q", got)
	}
	if got := header.Get("X-Instance-ID"); got != h.InstanceID() {
		t.Errorf("X-Instance-ID = %q, want %q", got, h.InstanceID())
	}
}

func TestHTTPHandler_FlushInterval(t *testing.T) {
	cs, url := newCaptureServer(t, http.StatusOK)

	h, err := NewHTTPHandler(HTTPConfig{
		URL:           url,
		BatchSize:     100,
		FlushInterval: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer h.Close()

	h.Handle(newTestRecord(core.InfoLevel, "partial batch"))

	deadline := time.After(5 * time.Second)
	for cs.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("flush interval never shipped the partial batch")
		case <-time.After(5 * time.Millisecond):
		}
	}

	body, _ := cs.request(0)
	if !strings.Contains(body, "partial batch") {
		t.Errorf("shipped body missing message: %s", body)
	}
}

func TestHTTPHandler_DrainOnClose(t *testing.T) {
	cs, url := newCaptureServer(t, http.StatusOK)

	h, err := NewHTTPHandler(HTTPConfig{
		URL:           url,
		BatchSize:     100,
		FlushInterval: time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}

	h.Handle(newTestRecord(core.InfoLevel, "drain 1"))
	h.Handle(newTestRecord(core.InfoLevel, "drain 2"))
	h.Close()

	if got := cs.count(); got != 1 {
		t.Fatalf("got %d requests, want 1", got)
	}
	body, _ := cs.request(0)
	if len(ndjsonLines(body)) != 2 {
		t.Errorf("got %d lines, want 2:\n%s", len(ndjsonLines(body)), body)
	}

	snap := h.Stats()
	if snap.ProcessedTotal != 2 {
		t.Errorf("ProcessedTotal = %d, want 2", snap.ProcessedTotal)
	}
}

func TestHTTPHandler_DropWhenFull(t *testing.T) {
	_, url := newCaptureServer(t, http.StatusOK)

	h, err := NewHTTPHandler(HTTPConfig{
		URL:        url,
		BufferSize: 1,
	})
	if err != nil {
		t.Fatal(err)
	}

	// Stop the sender first so nothing empties the queue.
	h.Close()

	h.Handle(newTestRecord(core.InfoLevel, "fits"))
	h.Handle(newTestRecord(core.InfoLevel, "dropped"))

	snap := h.Stats()
	if got := snap.DroppedTotal[core.InfoLevel]; got != 1 {
		t.Errorf("dropped = %d, want 1", got)
	}
}

func TestHTTPHandler_ServerError(t *testing.T) {
	_, url := newCaptureServer(t, http.StatusInternalServerError)

	h, err := NewHTTPHandler(HTTPConfig{
		URL:           url,
		BatchSize:     1,
		FlushInterval: time.Hour,
	})
	if err != nil {
		t.Fatal(err)
	}

	h.Handle(newTestRecord(core.ErrorLevel, "rejected"))
	h.Close()

	snap := h.Stats()
	if snap.WriteErrorsTotal != 1 {
		t.Errorf("WriteErrorsTotal = %d, want 1", snap.WriteErrorsTotal)
	}
	if snap.ProcessedTotal != 0 {
		t.Errorf("ProcessedTotal = %d, want 0", snap.ProcessedTotal)
	}
}

func TestHTTPHandler_CloseIdempotent(t *testing.T) {
	_, url := newCaptureServer(t, http.StatusOK)

	h, err := NewHTTPHandler(HTTPConfig{URL: url})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := h.Close(); err != nil {
			t.Errorf("Close #%d failed: %v", i+1, err)
		}
	}
}
