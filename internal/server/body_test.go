package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/tjfontaine/fullstack-app-server/internal/config"
)

// captureBody runs req through the decoder for mode and reports what the
// next handler saw.
func captureBody(t *testing.T, mode string, limit int64, req *http.Request) (rec *httptest.ResponseRecorder, decoded any, raw string, called bool) {
	t.Helper()

	decoder, err := BodyDecoder(mode, limit)
	if err != nil {
		t.Fatalf("BodyDecoder() error = %v", err)
	}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		decoded = Body(r.Context())
		if r.Body != nil {
			b, _ := io.ReadAll(r.Body)
			raw = string(b)
		}
		w.WriteHeader(http.StatusOK)
	})

	rec = httptest.NewRecorder()
	decoder(next).ServeHTTP(rec, req)
	return rec, decoded, raw, called
}

func newBodyRequest(method, contentType, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req
}

func TestBodyDecoder_Modes(t *testing.T) {
	tests := []struct {
		name        string
		mode        string
		contentType string
		body        string
		want        any
	}{
		{"json object", config.BodyModeJSON, "application/json", `{"a":1}`, map[string]any{"a": float64(1)}},
		{"json array", config.BodyModeJSON, "application/json; charset=utf-8", `[1,2]`, []any{float64(1), float64(2)}},
		{"json whitespace only", config.BodyModeJSON, "application/json", "  ", map[string]any{}},
		{"urlencoded", config.BodyModeURLEncoded, "application/x-www-form-urlencoded", "a=1&b=two", url.Values{"a": {"1"}, "b": {"two"}}},
		{"text", config.BodyModeText, "text/plain", "hello there", "hello there"},
		{"raw", config.BodyModeRaw, "application/octet-stream", "\x00\x01", []byte{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, decoded, raw, called := captureBody(t, tt.mode, 1024, newBodyRequest(http.MethodPost, tt.contentType, tt.body))

			if !called {
				t.Fatalf("next not called, status = %d body = %s", rec.Code, rec.Body.String())
			}
			if !reflect.DeepEqual(decoded, tt.want) {
				t.Errorf("Body() = %#v, want %#v", decoded, tt.want)
			}
			if raw != tt.body {
				t.Errorf("r.Body = %q, want the original body %q", raw, tt.body)
			}
		})
	}
}

func TestBodyDecoder_PassThrough(t *testing.T) {
	tests := []struct {
		name string
		mode string
		req  *http.Request
	}{
		{"content type mismatch", config.BodyModeJSON, newBodyRequest(http.MethodPost, "text/plain", `{"a":1}`)},
		{"no content type", config.BodyModeJSON, newBodyRequest(http.MethodPost, "", `{"a":1}`)},
		{"form in text mode", config.BodyModeText, newBodyRequest(http.MethodPost, "application/x-www-form-urlencoded", "a=1")},
		{"no body", config.BodyModeJSON, httptest.NewRequest(http.MethodGet, "/", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, decoded, _, called := captureBody(t, tt.mode, 1024, tt.req)
			if !called {
				t.Fatal("next not called")
			}
			if decoded != nil {
				t.Errorf("Body() = %#v, want nil", decoded)
			}
		})
	}
}

func TestBodyDecoder_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		limit    int64
		req      *http.Request
		wantCode int
	}{
		{"malformed json", config.BodyModeJSON, 1024, newBodyRequest(http.MethodPost, "application/json", `{"a":`), http.StatusBadRequest},
		{"json scalar", config.BodyModeJSON, 1024, newBodyRequest(http.MethodPost, "application/json", `"just a string"`), http.StatusBadRequest},
		{"too large", config.BodyModeJSON, 8, newBodyRequest(http.MethodPost, "application/json", `{"a":"0123456789"}`), http.StatusRequestEntityTooLarge},
		{"too large raw", config.BodyModeRaw, 2, newBodyRequest(http.MethodPut, "application/octet-stream", "abcdef"), http.StatusRequestEntityTooLarge},
		{"json latin1 charset", config.BodyModeJSON, 1024, newBodyRequest(http.MethodPost, "application/json; charset=iso-8859-1", `{"a":1}`), http.StatusUnsupportedMediaType},
		{"json utf-16 charset", config.BodyModeJSON, 1024, newBodyRequest(http.MethodPost, "application/json; charset=utf-16", `{"a":1}`), http.StatusUnsupportedMediaType},
		{"bad form escape", config.BodyModeURLEncoded, 1024, newBodyRequest(http.MethodPost, "application/x-www-form-urlencoded", "a=%zz"), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _, _, called := captureBody(t, tt.mode, tt.limit, tt.req)
			if called {
				t.Fatal("next must not run after a decoding failure")
			}
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestBodyDecoder_InvalidConfig(t *testing.T) {
	if _, err := BodyDecoder("yaml", 1024); err == nil {
		t.Error("expected error for unknown mode")
	}
	if _, err := BodyDecoder(config.BodyModeJSON, 0); err == nil {
		t.Error("expected error for zero limit")
	}
}

func TestBind(t *testing.T) {
	decoder, err := BodyDecoder(config.BodyModeJSON, 1024)
	if err != nil {
		t.Fatal(err)
	}

	var got struct {
		Title string `json:"title"`
	}
	var bindErr error
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bindErr = Bind(r, &got)
	})

	decoder(next).ServeHTTP(httptest.NewRecorder(), newBodyRequest(http.MethodPost, "application/json", `{"title":"Stuff"}`))
	if bindErr != nil {
		t.Fatalf("Bind() error = %v", bindErr)
	}
	if got.Title != "Stuff" {
		t.Errorf("Title = %q, want Stuff", got.Title)
	}

	// Without a decoded JSON body Bind refuses.
	if err := Bind(httptest.NewRequest(http.MethodPost, "/", nil), &got); err == nil {
		t.Error("expected error when no JSON body was decoded")
	}
}
