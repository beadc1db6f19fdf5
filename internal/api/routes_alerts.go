package api

import (
	"net/http"

	"github.com/opus-domini/alertd/internal/alerts"
)

var alertIDParamDoc = paramDoc{
	name:        "id",
	in:          "path",
	description: "The ID of the alert",
	schemaType:  "integer",
	required:    true,
}

func (h *Handler) registerAlertsRoutes(mux *http.ServeMux) {
	h.registerRoutes(mux, []routeBinding{
		{
			method:    http.MethodGet,
			path:      "/api/alerts",
			aliases:   []string{"/alerts"},
			operation: "listAlerts",
			summary:   "List all alerts",
			responses: []responseDoc{
				{status: http.StatusOK, description: "Alerts ordered by id", schema: "AlertList"},
			},
			handler: h.listAlerts,
		},
		{
			method:    http.MethodPost,
			path:      "/api/alerts",
			aliases:   []string{"/alerts"},
			operation: "createAlert",
			summary:   "Create a new alert",
			body: &bodyDoc{
				description:  "An Alert item",
				schema:       "AlertWrite",
				contentTypes: []string{"application/json"},
			},
			responses: []responseDoc{
				{status: http.StatusCreated, description: "Created alert", schema: "Alert"},
				{status: http.StatusBadRequest, description: "Invalid input", schema: "Error"},
			},
			handler: h.createAlert,
		},
		{
			method:    http.MethodGet,
			path:      "/api/alerts/{id}",
			aliases:   []string{"/alerts/{id}"},
			operation: "getAlert",
			summary:   "Get a specific alert",
			params:    []paramDoc{alertIDParamDoc},
			responses: []responseDoc{
				{status: http.StatusOK, description: "The alert", schema: "Alert"},
				{status: http.StatusBadRequest, description: "Bad alert ID", schema: "Error"},
				{status: http.StatusNotFound, description: "Unknown alert ID", schema: "Error"},
			},
			handler: h.getAlert,
		},
		{
			method:    http.MethodPatch,
			path:      "/api/alerts/{id}",
			aliases:   []string{"/alerts/{id}"},
			operation: "patchAlert",
			summary:   "Patch a specific alert",
			params:    []paramDoc{alertIDParamDoc},
			body: &bodyDoc{
				optional:    true,
				description: "Fields to change. A merge patch such as {\"name\":\"Renamed\"}, a JSON Patch operation list, or form fields. An empty body changes nothing.",
				schema:      "AlertPatch",
				contentTypes: []string{
					"application/json",
					alerts.MediaTypeMergePatch,
					alerts.MediaTypeJSONPatch,
					alerts.MediaTypeForm,
				},
			},
			responses: []responseDoc{
				{status: http.StatusOK, description: "The updated alert", schema: "Alert"},
				{status: http.StatusBadRequest, description: "Invalid patch or bad alert ID", schema: "Error"},
				{status: http.StatusNotFound, description: "Unknown alert ID", schema: "Error"},
			},
			handler: h.patchAlert,
		},
	})
}
