package api

import (
	"net/http"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type openAPIDocument struct {
	OpenAPI    string                                 `json:"openapi" yaml:"openapi"`
	Info       openAPIInfo                            `json:"info" yaml:"info"`
	Paths      map[string]map[string]openAPIOperation `json:"paths" yaml:"paths"`
	Components openAPIComponents                      `json:"components" yaml:"components"`
}

type openAPIInfo struct {
	Title   string `json:"title" yaml:"title"`
	Version string `json:"version" yaml:"version"`
}

type openAPIOperation struct {
	OperationID string                     `json:"operationId" yaml:"operationId"`
	Summary     string                     `json:"summary" yaml:"summary"`
	Parameters  []openAPIParameter         `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *openAPIRequestBody        `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   map[string]openAPIResponse `json:"responses" yaml:"responses"`
}

type openAPIParameter struct {
	Name        string        `json:"name" yaml:"name"`
	In          string        `json:"in" yaml:"in"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool          `json:"required" yaml:"required"`
	Schema      openAPISchema `json:"schema" yaml:"schema"`
}

type openAPIRequestBody struct {
	Description string                      `json:"description,omitempty" yaml:"description,omitempty"`
	Required    bool                        `json:"required" yaml:"required"`
	Content     map[string]openAPIMediaType `json:"content" yaml:"content"`
}

type openAPIResponse struct {
	Description string                      `json:"description" yaml:"description"`
	Content     map[string]openAPIMediaType `json:"content,omitempty" yaml:"content,omitempty"`
}

type openAPIMediaType struct {
	Schema openAPISchema `json:"schema" yaml:"schema"`
}

type openAPIComponents struct {
	Schemas map[string]openAPISchema `json:"schemas" yaml:"schemas"`
}

type openAPISchema struct {
	Ref                  string                   `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Type                 string                   `json:"type,omitempty" yaml:"type,omitempty"`
	Format               string                   `json:"format,omitempty" yaml:"format,omitempty"`
	Description          string                   `json:"description,omitempty" yaml:"description,omitempty"`
	Minimum              *float64                 `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Required             []string                 `json:"required,omitempty" yaml:"required,omitempty"`
	Properties           map[string]openAPISchema `json:"properties,omitempty" yaml:"properties,omitempty"`
	Items                *openAPISchema           `json:"items,omitempty" yaml:"items,omitempty"`
	AdditionalProperties *bool                    `json:"additionalProperties,omitempty" yaml:"additionalProperties,omitempty"`
}

func schemaRef(name string) openAPISchema {
	return openAPISchema{Ref: "#/components/schemas/" + name}
}

func componentSchemas() map[string]openAPISchema {
	zero := 0.0
	closed := false
	alertProps := func(withID bool) map[string]openAPISchema {
		props := map[string]openAPISchema{
			"name":      {Type: "string", Description: "Human-readable label"},
			"frequency": {Type: "number", Format: "double", Minimum: &zero},
			"active":    {Type: "boolean"},
		}
		if withID {
			props["id"] = openAPISchema{Type: "integer", Format: "int64", Description: "Immutable identifier"}
		}
		return props
	}
	return map[string]openAPISchema{
		"Alert": {
			Type:       "object",
			Required:   []string{"id", "name", "frequency", "active"},
			Properties: alertProps(true),
		},
		"AlertWrite": {
			Type:                 "object",
			Required:             []string{"name"},
			Properties:           alertProps(false),
			AdditionalProperties: &closed,
		},
		"AlertPatch": {
			Type:        "object",
			Description: "Merge patch of mutable fields. The id may be repeated but not changed.",
			Properties:  alertProps(true),
		},
		"AlertList": {
			Type: "object",
			Properties: map[string]openAPISchema{
				"alerts": {Type: "array", Items: &openAPISchema{Ref: "#/components/schemas/Alert"}},
			},
		},
		"Meta": {
			Type: "object",
			Properties: map[string]openAPISchema{
				"version": {Type: "string"},
				"docs":    {Type: "string"},
				"events":  {Type: "boolean"},
				"metrics": {Type: "boolean"},
			},
		},
		"Error": {
			Type: "object",
			Properties: map[string]openAPISchema{
				"error": {
					Type:     "object",
					Required: []string{"code", "message"},
					Properties: map[string]openAPISchema{
						"code":    {Type: "string"},
						"message": {Type: "string"},
						"details": {Type: "object"},
					},
				},
			},
		},
	}
}

func buildDocument(version string, routes []routeBinding) openAPIDocument {
	if version == "" {
		version = "dev"
	}
	doc := openAPIDocument{
		OpenAPI:    "3.0.3",
		Info:       openAPIInfo{Title: "alertd", Version: version},
		Paths:      make(map[string]map[string]openAPIOperation),
		Components: openAPIComponents{Schemas: componentSchemas()},
	}
	for _, route := range routes {
		op := openAPIOperation{
			OperationID: route.operation,
			Summary:     route.summary,
			Responses:   make(map[string]openAPIResponse, len(route.responses)),
		}
		for _, p := range route.params {
			op.Parameters = append(op.Parameters, openAPIParameter{
				Name:        p.name,
				In:          p.in,
				Description: p.description,
				Required:    p.required,
				Schema:      openAPISchema{Type: p.schemaType},
			})
		}
		if route.body != nil {
			content := make(map[string]openAPIMediaType, len(route.body.contentTypes))
			for _, ct := range route.body.contentTypes {
				content[ct] = openAPIMediaType{Schema: schemaRef(route.body.schema)}
			}
			op.RequestBody = &openAPIRequestBody{
				Description: route.body.description,
				Required:    !route.body.optional,
				Content:     content,
			}
		}
		for _, resp := range route.responses {
			out := openAPIResponse{Description: resp.description}
			if resp.schema != "" {
				out.Content = map[string]openAPIMediaType{
					"application/json": {Schema: schemaRef(resp.schema)},
				}
			}
			op.Responses[strconv.Itoa(resp.status)] = out
		}

		methods, ok := doc.Paths[route.path]
		if !ok {
			methods = make(map[string]openAPIOperation)
			doc.Paths[route.path] = methods
		}
		methods[strings.ToLower(route.method)] = op
	}
	return doc
}

func (h *Handler) serveDocs(w http.ResponseWriter, r *http.Request) {
	h.docsOnce.Do(func() {
		h.docs = buildDocument(h.version, h.routes)
	})

	if !wantsYAML(r) {
		h.writeJSON(w, http.StatusOK, h.docs)
		return
	}
	body, err := yaml.Marshal(h.docs)
	if err != nil {
		h.logger.Error("docs yaml encode failed", "err", err)
		h.writeError(w, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
		return
	}
	h.writeBody(w, http.StatusOK, contentTypeYAML, body)
}

func wantsYAML(r *http.Request) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))) {
	case "yaml", "yml":
		return true
	case "json":
		return false
	}
	accept := strings.ToLower(r.Header.Get("Accept"))
	return strings.Contains(accept, "application/yaml") || strings.Contains(accept, "application/x-yaml")
}
