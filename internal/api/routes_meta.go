package api

import "net/http"

func (h *Handler) registerMetaRoutes(mux *http.ServeMux) {
	routes := []routeBinding{
		{
			method:    http.MethodGet,
			path:      "/api/meta",
			operation: "meta",
			summary:   "Server version and feature flags",
			responses: []responseDoc{{status: http.StatusOK, description: "Server metadata", schema: "Meta"}},
			handler:   h.meta,
		},
		{
			method:    http.MethodGet,
			path:      "/api/docs",
			operation: "docs",
			summary:   "OpenAPI document for this server (format=yaml for YAML)",
			params: []paramDoc{{
				name:        "format",
				in:          "query",
				description: "json (default) or yaml",
				schemaType:  "string",
			}},
			responses: []responseDoc{{status: http.StatusOK, description: "OpenAPI 3 document"}},
			raw:       h.serveDocs,
		},
		{
			method:    http.MethodGet,
			path:      "/api/events",
			operation: "events",
			summary:   "Server-sent stream of alert changes",
			params: []paramDoc{{
				name:        "type",
				in:          "query",
				description: "Comma-separated event types to receive; all when omitted",
				schemaType:  "string",
			}},
			responses: []responseDoc{
				{status: http.StatusOK, description: "text/event-stream of alert.created and alert.updated events"},
				{status: http.StatusServiceUnavailable, description: "Event streaming is disabled", schema: "Error"},
			},
			raw: h.streamEvents,
		},
	}
	if h.metrics != nil {
		routes = append(routes, routeBinding{
			method:    http.MethodGet,
			path:      "/metrics",
			operation: "metrics",
			summary:   "Prometheus metrics",
			responses: []responseDoc{{status: http.StatusOK, description: "Prometheus text exposition"}},
			raw:       h.metrics.Handler().ServeHTTP,
		})
	}
	h.registerRoutes(mux, routes)
}
