package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/tjfontaine/fullstack-app-server/internal/domain"
)

// errorSinkKey identifies the request-scoped error sink installed by the pipeline.
type errorSinkKey struct{}

type errorSink struct {
	w        middleware.WrapResponseWriter
	dispatch ErrorHandler
}

// HandlerFunc is an http.Handler that reports failures by returning them.
// A non-nil error is forwarded with Fail.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

func (fn HandlerFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := fn(w, r); err != nil {
		Fail(w, r, err)
	}
}

// Fail forwards err to the pipeline's terminal error stage. Outside a
// pipeline the error is written directly with RespondError.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}
	if sink, ok := r.Context().Value(errorSinkKey{}).(*errorSink); ok {
		sink.dispatch(sink.w, r, err)
		return
	}
	RespondError(w, r, err)
}

// errorBoundary installs the error sink and converts panics into forwarded
// errors, so the terminal stage sees every failure below it.
func (p *Pipeline) errorBoundary(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		sink := &errorSink{
			w: ww,
			dispatch: func(w http.ResponseWriter, r *http.Request, err error) {
				p.terminal(w, r, err, RespondError)
			},
		}
		r = r.WithContext(context.WithValue(r.Context(), errorSinkKey{}, sink))

		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			err, ok := rec.(error)
			if !ok {
				err = fmt.Errorf("%v", rec)
			}
			Fail(ww, r, fmt.Errorf("panic: %w", err))
		}()

		next.ServeHTTP(ww, r)
	})
}

// LogErrors is the terminal error stage: it records the error with the
// originating method and path, then forwards it unchanged.
func LogErrors(logger *slog.Logger) ErrorStage {
	return func(w http.ResponseWriter, r *http.Request, err error, next ErrorHandler) {
		logger.LogAttrs(r.Context(), slog.LevelError, "request error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", GetRequestID(r.Context())),
		)
		AddError(r.Context(), err)
		next(w, r, err)
	}
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Type    domain.ErrorType `json:"type"`
	Message string           `json:"message"`
}

// RespondError is the default error responder. It writes a JSON error
// envelope unless the response has already started. Server errors never
// expose their message.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	if sw, ok := w.(interface{ Status() int }); ok && sw.Status() != 0 {
		return
	}

	apiErr := domain.ToAPIError(err)
	status := apiErr.HTTPStatusCode()
	message := apiErr.Message
	if status >= http.StatusInternalServerError {
		message = http.StatusText(status)
	}

	h := w.Header()
	h.Del("Content-Length")
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	_ = json.NewEncoder(w).Encode(errorEnvelope{Error: errorBody{Type: apiErr.Type, Message: message}})
}
