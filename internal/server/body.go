package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/tjfontaine/fullstack-app-server/internal/config"
	"github.com/tjfontaine/fullstack-app-server/internal/domain"
)

// bodyKey identifies the decoded request body in the request context.
type bodyKey struct{}

type decodedBody struct {
	mode  string
	raw   []byte
	value any
}

type bodyCodec struct {
	mediaType string
	utf8Only  bool
	decode    func(raw []byte) (any, error)
}

var bodyCodecs = map[string]bodyCodec{
	config.BodyModeJSON: {
		mediaType: "application/json",
		utf8Only:  true,
		decode:    decodeJSON,
	},
	config.BodyModeURLEncoded: {
		mediaType: "application/x-www-form-urlencoded",
		decode: func(raw []byte) (any, error) {
			values, err := url.ParseQuery(string(raw))
			if err != nil {
				return nil, domain.ErrInvalidRequest("malformed form body").WithCause(err)
			}
			return values, nil
		},
	},
	config.BodyModeText: {
		mediaType: "text/plain",
		decode: func(raw []byte) (any, error) {
			return string(raw), nil
		},
	},
	config.BodyModeRaw: {
		mediaType: "application/octet-stream",
		decode: func(raw []byte) (any, error) {
			return raw, nil
		},
	},
}

// decodeJSON accepts only objects and arrays at the top level. An empty body
// decodes to an empty object.
func decodeJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return map[string]any{}, nil
	}
	if trimmed[0] != '{' && trimmed[0] != '[' {
		return nil, domain.ErrInvalidRequest("JSON body must be an object or array")
	}
	var v any
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return nil, domain.ErrInvalidRequest("malformed JSON body").WithCause(err)
	}
	return v, nil
}

// BodyDecoder returns the body decoding stage for mode. Requests whose
// Content-Type does not match the mode pass through untouched. The raw body
// is restored on r.Body for handlers that read it themselves.
func BodyDecoder(mode string, limit int64) (func(http.Handler) http.Handler, error) {
	codec, ok := bodyCodecs[mode]
	if !ok {
		return nil, fmt.Errorf("pipeline: unknown body mode %q", mode)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("pipeline: body limit must be positive, got %d", limit)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hasBody(r) {
				next.ServeHTTP(w, r)
				return
			}
			params, ok := mediaTypeParams(r, codec.mediaType)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			if charset, set := params["charset"]; set && codec.utf8Only && !strings.EqualFold(charset, "utf-8") {
				Fail(w, r, domain.ErrUnsupportedMediaType(fmt.Sprintf("unsupported charset %q", strings.ToUpper(charset))))
				return
			}

			raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
			r.Body.Close()
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					Fail(w, r, domain.ErrPayloadTooLarge(fmt.Sprintf("request body exceeds %d bytes", limit)))
					return
				}
				Fail(w, r, domain.ErrInvalidRequest("unable to read request body").WithCause(err))
				return
			}

			value, err := codec.decode(raw)
			if err != nil {
				Fail(w, r, err)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(raw))
			ctx := context.WithValue(r.Context(), bodyKey{}, &decodedBody{mode: mode, raw: raw, value: value})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}, nil
}

func hasBody(r *http.Request) bool {
	if r.Body == nil || r.Body == http.NoBody {
		return false
	}
	return r.ContentLength != 0 || len(r.TransferEncoding) > 0
}

// mediaTypeParams reports whether the request Content-Type is want and
// returns its parameters.
func mediaTypeParams(r *http.Request, want string) (map[string]string, bool) {
	mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != want {
		return nil, false
	}
	return params, true
}

// Body returns the decoded request body: a JSON value (map[string]any or
// []any), url.Values, a string or a []byte depending on the body mode. It
// returns nil if the body was not decoded.
func Body(ctx context.Context) any {
	if b, ok := ctx.Value(bodyKey{}).(*decodedBody); ok {
		return b.value
	}
	return nil
}

// Bind unmarshals the decoded JSON body into dst.
func Bind(r *http.Request, dst any) error {
	b, ok := r.Context().Value(bodyKey{}).(*decodedBody)
	if !ok || b.mode != config.BodyModeJSON {
		return domain.ErrInvalidRequest("request body must be application/json")
	}
	raw := bytes.TrimSpace(b.raw)
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.ErrInvalidRequest("request body does not match the expected shape").WithCause(err)
	}
	return nil
}
