package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/opus-domini/alertd/internal/alerts"
)

func TestDocsJSON(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/docs", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var doc openAPIDocument
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Equal(t, "3.0.3", doc.OpenAPI)
	assert.Equal(t, "test", doc.Info.Version)

	item, ok := doc.Paths["/api/alerts/{id}"]
	require.True(t, ok)
	require.Contains(t, item, "get")
	require.Contains(t, item, "patch")
	assert.Equal(t, "getAlert", item["get"].OperationID)
	assert.Contains(t, item["get"].Responses, "404")
	require.Len(t, item["get"].Parameters, 1)
	assert.Equal(t, "id", item["get"].Parameters[0].Name)
	assert.Equal(t, "path", item["get"].Parameters[0].In)

	create := doc.Paths["/api/alerts"]["post"]
	assert.Contains(t, create.Responses, "201")
	assert.Contains(t, create.Responses, "400")
	assert.NotContains(t, create.Responses, "405")
	require.NotNil(t, create.RequestBody)
	assert.Equal(t, "#/components/schemas/AlertWrite", create.RequestBody.Content["application/json"].Schema.Ref)

	patch := doc.Paths["/api/alerts/{id}"]["patch"]
	require.NotNil(t, patch.RequestBody)
	assert.False(t, patch.RequestBody.Required)
	assert.Contains(t, patch.RequestBody.Content, alerts.MediaTypeForm)
	assert.Contains(t, patch.RequestBody.Content, alerts.MediaTypeJSONPatch)

	assert.NotContains(t, doc.Paths, "/alerts", "aliases are not documented twice")
	assert.Contains(t, doc.Paths, "/metrics")
	assert.Equal(t, []string{"name"}, doc.Components.Schemas["AlertWrite"].Required)
}

func TestDocsYAML(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	byQuery := env.do(t, http.MethodGet, "/api/docs?format=yaml", "", "")
	require.Equal(t, http.StatusOK, byQuery.Code)
	assert.Equal(t, "application/yaml", byQuery.Header().Get("Content-Type"))

	var doc openAPIDocument
	require.NoError(t, yaml.Unmarshal(byQuery.Body.Bytes(), &doc))
	assert.Equal(t, "patchAlert", doc.Paths["/api/alerts/{id}"]["patch"].OperationID)

	req := httptest.NewRequest(http.MethodGet, "/api/docs", nil)
	req.Header.Set("Accept", "application/yaml")
	byAccept := httptest.NewRecorder()
	env.mux.ServeHTTP(byAccept, req)
	assert.Equal(t, byQuery.Body.String(), byAccept.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/docs?format=json", nil)
	req.Header.Set("Accept", "application/yaml")
	forced := httptest.NewRecorder()
	env.mux.ServeHTTP(forced, req)
	assert.Equal(t, "application/json", forced.Header().Get("Content-Type"))
}

func TestBuildDocumentDefaultsVersion(t *testing.T) {
	t.Parallel()

	doc := buildDocument("", nil)
	assert.Equal(t, "dev", doc.Info.Version)
	assert.Empty(t, doc.Paths)
	assert.Contains(t, doc.Components.Schemas, "Alert")
}
