package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/opus-domini/alertd/internal/alerts"
	"github.com/opus-domini/alertd/internal/events"
	"github.com/opus-domini/alertd/internal/metrics"
)

const (
	maxBodyBytes    = 1 << 20
	contentTypeJSON = "application/json"
	contentTypeYAML = "application/yaml"
)

// AlertStore is the storage the alert handlers operate on.
type AlertStore interface {
	List(ctx context.Context) ([]alerts.Alert, error)
	Get(ctx context.Context, id int64) (alerts.Alert, error)
	Create(ctx context.Context, write alerts.AlertWrite) (alerts.Alert, error)
	// PatchBody resolves id before decoding body, so an unknown id is
	// NotFound whatever the body holds.
	PatchBody(ctx context.Context, id int64, contentType string, body []byte) (alerts.Alert, error)
}

type Options struct {
	Store AlertStore
	// Events enables GET /api/events when set.
	Events *events.Hub
	// Metrics enables GET /metrics and request instrumentation when set.
	Metrics *metrics.Metrics
	// Logger defaults to slog.Default().
	Logger  *slog.Logger
	Version string
}

type Handler struct {
	store   AlertStore
	events  *events.Hub
	metrics *metrics.Metrics
	logger  *slog.Logger
	version string

	routes   []routeBinding
	docsOnce sync.Once
	docs     openAPIDocument

	done      chan struct{}
	closeOnce sync.Once
}

// Register mounts every route on mux and returns the handler so the caller
// can Close it on shutdown.
func Register(mux *http.ServeMux, opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		store:   opts.Store,
		events:  opts.Events,
		metrics: opts.Metrics,
		logger:  logger,
		version: opts.Version,
		done:    make(chan struct{}),
	}
	h.registerAlertsRoutes(mux)
	h.registerMetaRoutes(mux)
	return h
}

// Close ends open event streams. It is safe to call more than once.
func (h *Handler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Handler) meta(_ *http.Request) (Result, error) {
	return Result{Data: map[string]any{
		"version": h.version,
		"docs":    "/api/docs",
		"events":  h.events != nil,
		"metrics": h.metrics != nil,
	}}, nil
}

func decodeJSON(r *http.Request, dst any) error {
	defer func() { _ = r.Body.Close() }()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return badRequest(fmt.Sprintf("invalid json body: %v", err), err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return badRequest("invalid json body: multiple json values", nil)
	}
	return nil
}

func readBody(r *http.Request) ([]byte, error) {
	defer func() { _ = r.Body.Close() }()
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, badRequest("request body too large", err)
		}
		return nil, badRequest("could not read request body", err)
	}
	return body, nil
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string, details any) {
	errObj := map[string]any{
		"code":    code,
		"message": message,
	}
	if details != nil {
		errObj["details"] = details
	}
	h.writeJSON(w, status, map[string]any{"error": errObj})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := encodeJSON(payload)
	if err != nil {
		h.logger.Error("json encode error", "err", err)
		h.writeBody(w, http.StatusInternalServerError, contentTypeJSON,
			[]byte(`{"error":{"code":"INTERNAL","message":"internal server error"}}`+"\n"))
		return
	}
	h.writeBody(w, status, contentTypeJSON, body)
}

func encodeJSON(payload any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeBody sends a fully encoded body. A failed write means the client
// went away, so it is only logged at debug.
func (h *Handler) writeBody(w http.ResponseWriter, status int, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		h.logger.Debug("response write failed", "status", status, "err", err)
	}
}
