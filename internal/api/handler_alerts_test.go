package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opus-domini/alertd/internal/alerts"
)

func TestGetAlert(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	for _, path := range []string{"/api/alerts/1", "/alerts/1"} {
		rec := env.do(t, http.MethodGet, path, "", "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"id":1,"name":"First","frequency":0,"active":true}`, rec.Body.String())
	}

	rec := env.do(t, http.MethodGet, "/api/alerts/2", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":2,"name":"Second","frequency":0,"active":false}`, rec.Body.String())
	assert.Empty(t, env.logs.snapshot(), "successful requests log no faults")
}

func TestGetAlertNotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/alerts/99", "", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	body := decodeErrorBody(t, rec)
	assert.Equal(t, "ALERT_NOT_FOUND", body.Error.Code)
	assert.Contains(t, body.Error.Message, "99")
	assert.EqualValues(t, 99, body.Error.Details["alertId"])

	records := env.logs.snapshot()
	require.Len(t, records, 1)
	assert.Equal(t, slog.LevelWarn, records[0].Level)
}

func TestGetAlertBadID(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	for _, id := range []string{"abc", "0", "-1", "1.5"} {
		rec := env.do(t, http.MethodGet, "/api/alerts/"+id, "", "")
		require.Equal(t, http.StatusBadRequest, rec.Code, id)
		assert.Equal(t, "INVALID_REQUEST", decodeErrorBody(t, rec).Error.Code)
	}
}

func TestListAlerts(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/alerts", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Alerts []alerts.Alert `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, alerts.DefaultSeed(), body.Alerts)
}

func TestCreateAlert(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/alerts", "application/json", `{"name":"Disk","frequency":0.5}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decodeAlert(t, rec)
	assert.Equal(t, int64(3), created.ID)
	assert.Equal(t, "Disk", created.Name)
	assert.Equal(t, 0.5, created.Frequency)
	assert.True(t, created.Active)
	assert.Equal(t, "/api/alerts/3", rec.Header().Get("Location"))

	got := env.do(t, http.MethodGet, "/api/alerts/3", "", "")
	require.Equal(t, http.StatusOK, got.Code)
	assert.Equal(t, created, decodeAlert(t, got))

	legacy := env.do(t, http.MethodPost, "/alerts", "application/json", `{"name":"Legacy","active":false}`)
	require.Equal(t, http.StatusCreated, legacy.Code)
	assert.Equal(t, int64(4), decodeAlert(t, legacy).ID)
}

func TestCreateAlertInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"empty_body", ""},
		{"malformed", `{"name":`},
		{"missing_name", `{"frequency":1}`},
		{"blank_name", `{"name":"   "}`},
		{"negative_frequency", `{"name":"x","frequency":-2}`},
		{"client_id", `{"id":7,"name":"x"}`},
		{"unknown_field", `{"name":"x","field":"hidden"}`},
		{"two_values", `{"name":"x"}{"name":"y"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			rec := env.do(t, http.MethodPost, "/api/alerts", "application/json", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, "INVALID_REQUEST", decodeErrorBody(t, rec).Error.Code)
			assert.Equal(t, 2, env.store.Len())
			assert.Len(t, env.logs.snapshot(), 1)
		})
	}
}

func TestCreateAlertReportsFields(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/alerts", "application/json", `{"name":"ok","frequency":-1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields, ok := decodeErrorBody(t, rec).Error.Details["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "must be >= 0", fields["frequency"])
}

func TestPatchAlert(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodPatch, "/api/alerts/2", "application/json", `{"name":"Renamed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id":2,"name":"Renamed","frequency":0,"active":false}`, rec.Body.String())

	got := env.do(t, http.MethodGet, "/alerts/2", "", "")
	require.Equal(t, http.StatusOK, got.Code)
	assert.Equal(t, "Renamed", decodeAlert(t, got).Name)
}

func TestPatchAlertForm(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodPatch, "/alerts/2", alerts.MediaTypeForm, "name=Renamed")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id":2,"name":"Renamed","frequency":0,"active":false}`, rec.Body.String())
}

func TestPatchAlertEmptyBodyReturnsRecord(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	for _, contentType := range []string{"", "application/json"} {
		rec := env.do(t, http.MethodPatch, "/alerts/1", contentType, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.JSONEq(t, `{"id":1,"name":"First","frequency":0,"active":true}`, rec.Body.String())
	}
}

func TestPatchAlertUnknownIDBeatsBadBody(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"empty_body", "application/json", ""},
		{"array_body", "application/json", `[1]`},
		{"broken_json", "application/json", `{"name":`},
		{"unsupported_type", "text/plain", "name=x"},
		{"form_unknown_field", alerts.MediaTypeForm, "field=hidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			rec := env.do(t, http.MethodPatch, "/alerts/99", tt.contentType, tt.body)
			require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
			assert.Equal(t, "ALERT_NOT_FOUND", decodeErrorBody(t, rec).Error.Code)
		})
	}
}

func TestPatchAlertOversizedBody(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	body := `{"name":"` + strings.Repeat("x", maxBodyBytes) + `"}`

	rec := env.do(t, http.MethodPatch, "/alerts/99", "application/json", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPatch, "/alerts/1", "application/json", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeErrorBody(t, rec).Error.Message, "too large")
}

func TestPatchAlertJSONPatch(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodPatch, "/api/alerts/1", alerts.MediaTypeJSONPatch,
		`[{"op":"replace","path":"/active","value":false},{"op":"replace","path":"/frequency","value":4}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"id":1,"name":"First","frequency":4,"active":false}`, rec.Body.String())
}

func TestPatchAlertNotFound(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodPatch, "/api/alerts/77", "application/json", `{"name":"Ghost"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ALERT_NOT_FOUND", decodeErrorBody(t, rec).Error.Code)

	list := env.do(t, http.MethodGet, "/api/alerts", "", "")
	var body struct {
		Alerts []alerts.Alert `json:"alerts"`
	}
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &body))
	assert.Equal(t, alerts.DefaultSeed(), body.Alerts)
}

func TestPatchAlertRejected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		body        string
	}{
		{"change_id", "application/json", `{"id":5}`},
		{"form_unknown_field", alerts.MediaTypeForm, "field=hidden"},
		{"not_object", "application/json", `"Renamed"`},
		{"bad_type", "application/json", `{"active":"no"}`},
		{"unsupported_type", "text/plain", `name=x`},
		{"bad_json_patch", alerts.MediaTypeJSONPatch, `[{"op":"replace","path":"/missing/deep","value":1}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			rec := env.do(t, http.MethodPatch, "/api/alerts/1", tt.contentType, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			got := env.do(t, http.MethodGet, "/api/alerts/1", "", "")
			assert.JSONEq(t, `{"id":1,"name":"First","frequency":0,"active":true}`, got.Body.String())
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodDelete, "/api/alerts/1", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMeta(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/meta", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"version":"test","docs":"/api/docs","events":true,"metrics":true}`, rec.Body.String())
}
