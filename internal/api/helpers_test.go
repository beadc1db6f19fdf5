package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opus-domini/alertd/internal/alerts"
	"github.com/opus-domini/alertd/internal/events"
	"github.com/opus-domini/alertd/internal/metrics"
)

// recordingHandler captures log records so tests can count them.
type recordingHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, r.Clone())
	return nil
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *recordingHandler) WithGroup(string) slog.Handler { return h }

func (h *recordingHandler) snapshot() []slog.Record {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]slog.Record(nil), h.records...)
}

func recordAttr(r slog.Record, key string) (slog.Value, bool) {
	var (
		out   slog.Value
		found bool
	)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == key {
			out, found = a.Value, true
			return false
		}
		return true
	})
	return out, found
}

// mockStore lets tests force store failures.
type mockStore struct {
	err       error
	panicWith any
}

func (m *mockStore) fail() error {
	if m.panicWith != nil {
		panic(m.panicWith)
	}
	return m.err
}

func (m *mockStore) List(context.Context) ([]alerts.Alert, error) { return nil, m.fail() }

func (m *mockStore) Get(context.Context, int64) (alerts.Alert, error) {
	return alerts.Alert{}, m.fail()
}

func (m *mockStore) Create(context.Context, alerts.AlertWrite) (alerts.Alert, error) {
	return alerts.Alert{}, m.fail()
}

func (m *mockStore) PatchBody(context.Context, int64, string, []byte) (alerts.Alert, error) {
	return alerts.Alert{}, m.fail()
}

type testEnv struct {
	mux     *http.ServeMux
	handler *Handler
	store   *alerts.Store
	hub     *events.Hub
	metrics *metrics.Metrics
	logs    *recordingHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	hub := events.NewHub()
	st, err := alerts.New(alerts.DefaultSeed(), alerts.Options{
		Publish: func(eventType string, payload map[string]any) {
			hub.Publish(events.NewEvent(eventType, payload))
		},
	})
	require.NoError(t, err)
	env := &testEnv{store: st, hub: hub, logs: &recordingHandler{}}
	env.metrics = metrics.New(st.Len)
	env.mux = http.NewServeMux()
	env.handler = Register(env.mux, Options{
		Store:   st,
		Events:  hub,
		Metrics: env.metrics,
		Logger:  slog.New(env.logs),
		Version: "test",
	})
	t.Cleanup(env.handler.Close)
	return env
}

func newFailingEnv(t *testing.T, store AlertStore) *testEnv {
	t.Helper()
	env := &testEnv{logs: &recordingHandler{}, metrics: metrics.New(nil)}
	env.mux = http.NewServeMux()
	env.handler = Register(env.mux, Options{
		Store:   store,
		Metrics: env.metrics,
		Logger:  slog.New(env.logs),
	})
	t.Cleanup(env.handler.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var out errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body=%s", rec.Body.String())
	return out
}

func decodeAlert(t *testing.T, rec *httptest.ResponseRecorder) alerts.Alert {
	t.Helper()
	var out alerts.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "body=%s", rec.Body.String())
	return out
}
