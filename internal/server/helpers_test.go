package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/tjfontaine/fullstack-app-server/internal/config"
	"github.com/tjfontaine/fullstack-app-server/internal/domain"
)

// newCaptureLogger returns a JSON logger writing into the returned buffer.
func newCaptureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), &buf
}

// logRecords parses every JSON log line in buf.
func logRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var records []map[string]any
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for sc.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("invalid log line %q: %v", sc.Text(), err)
		}
		records = append(records, rec)
	}
	return records
}

func errorRecords(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, rec := range logRecords(t, buf) {
		if rec["level"] == "ERROR" {
			out = append(out, rec)
		}
	}
	return out
}

// writeFiles creates files (relative path -> content) under a new temp dir.
func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// testRouter is a small chi router standing in for the application router.
func testRouter() chi.Router {
	r := chi.NewRouter()
	r.Post("/api/echo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"body": Body(r.Context())})
	})
	r.Get("/api/hello", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	})
	r.Method(http.MethodGet, "/api/boom", HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		return errors.New("database exploded")
	}))
	r.Method(http.MethodGet, "/api/teapot", HandlerFunc(func(w http.ResponseWriter, r *http.Request) error {
		return domain.NewAPIError("teapot", "short and stout").WithStatusCode(http.StatusTeapot)
	}))
	r.Get("/api/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("handler panicked")
	})
	return r
}

func jsonOptions() Options {
	return Options{BodyMode: config.BodyModeJSON, BodyLimit: 1024, IndexFile: "index.html"}
}
