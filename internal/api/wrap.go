package api

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/opus-domini/alertd/internal/alerts"
)

// Result is what a resource handler hands to the response wrapper. A zero
// Status means 200.
type Result struct {
	Status int
	Data   any
	Header http.Header
}

type resultFunc func(r *http.Request) (Result, error)

// panicError carries a recovered handler panic as an ordinary fault.
type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.value)
}

// requestError marks input the handler could not interpret at all, such as
// a malformed path parameter or body.
type requestError struct {
	msg string
	err error
}

func (e *requestError) Error() string { return e.msg }

func (e *requestError) Unwrap() error { return e.err }

func badRequest(msg string, err error) error {
	return &requestError{msg: msg, err: err}
}

type fault struct {
	status   int
	code     string
	message  string
	details  any
	expected bool
}

// classify maps a handler error onto an HTTP fault. It only reads err.
func classify(err error) fault {
	var (
		notFound *alerts.NotFoundError
		invalid  *alerts.ValidationError
		request  *requestError
	)
	switch {
	case errors.As(err, &notFound):
		return fault{
			status:   http.StatusNotFound,
			code:     "ALERT_NOT_FOUND",
			message:  notFound.Error(),
			details:  map[string]any{"alertId": notFound.ID},
			expected: true,
		}
	case errors.As(err, &invalid):
		var details any
		if len(invalid.Fields) > 0 {
			details = map[string]any{"fields": invalid.Fields}
		}
		return fault{
			status:   http.StatusBadRequest,
			code:     "INVALID_REQUEST",
			message:  invalid.Error(),
			details:  details,
			expected: true,
		}
	case errors.As(err, &request):
		return fault{
			status:   http.StatusBadRequest,
			code:     "INVALID_REQUEST",
			message:  request.Error(),
			expected: true,
		}
	default:
		return fault{
			status:  http.StatusInternalServerError,
			code:    "INTERNAL",
			message: "internal server error",
		}
	}
}

// wrap is the response wrapper: it runs next, serializes the value it
// returns as JSON, and turns any fault (including a panic) into an error
// response after logging it exactly once.
func (h *Handler) wrap(operation string, next resultFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		res, err := invoke(next, r)
		if err != nil {
			f := h.logFault(r, operation, err)
			h.writeError(w, f.status, f.code, f.message, f.details)
			h.metrics.ObserveRequest(operation, f.status, time.Since(start))
			return
		}

		status := res.Status
		if status == 0 {
			status = http.StatusOK
		}
		body, err := encodeJSON(res.Data)
		if err != nil {
			f := h.logFault(r, operation, fmt.Errorf("encode response: %w", err))
			h.writeError(w, f.status, f.code, f.message, f.details)
			h.metrics.ObserveRequest(operation, f.status, time.Since(start))
			return
		}
		for key, values := range res.Header {
			w.Header()[key] = values
		}
		h.writeBody(w, status, contentTypeJSON, body)
		h.metrics.ObserveRequest(operation, status, time.Since(start))
	}
}

// observe records request metrics for handlers that write their own
// response.
func (h *Handler) observe(operation string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		h.metrics.ObserveRequest(operation, rec.status, time.Since(start))
	}
}

func invoke(next resultFunc, r *http.Request) (res Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			if p == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
				panic(p)
			}
			res, err = Result{}, &panicError{value: p, stack: debug.Stack()}
		}
	}()
	return next(r)
}

func (h *Handler) logFault(r *http.Request, operation string, err error) fault {
	f := classify(err)
	h.metrics.ObserveFault(operation, f.code)

	attrs := []any{
		"operation", operation,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", RequestID(r.Context()),
		"status", f.status,
		"err", err,
	}
	if f.expected {
		h.logger.Warn("request failed", attrs...)
		return f
	}
	var p *panicError
	if errors.As(err, &p) {
		attrs = append(attrs, "stack", string(p.stack))
	}
	h.logger.Error("unexpected handler fault", attrs...)
	return f
}
