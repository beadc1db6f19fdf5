package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/opus-domini/alertd/internal/alerts"
)

const storeTimeout = 3 * time.Second

func (h *Handler) listAlerts(r *http.Request) (Result, error) {
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	list, err := h.store.List(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{Data: map[string]any{"alerts": list}}, nil
}

func (h *Handler) createAlert(r *http.Request) (Result, error) {
	var req alerts.AlertWrite
	if err := decodeJSON(r, &req); err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	created, err := h.store.Create(ctx, req)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Status: http.StatusCreated,
		Data:   created,
		Header: http.Header{"Location": {"/api/alerts/" + strconv.FormatInt(created.ID, 10)}},
	}, nil
}

func (h *Handler) getAlert(r *http.Request) (Result, error) {
	id, err := alertIDParam(r)
	if err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	alert, err := h.store.Get(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return Result{Data: alert}, nil
}

func (h *Handler) patchAlert(r *http.Request) (Result, error) {
	id, err := alertIDParam(r)
	if err != nil {
		return Result{}, err
	}
	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()

	body, err := readBody(r)
	if err != nil {
		// An unknown id outranks an unreadable body.
		if _, getErr := h.store.Get(ctx, id); getErr != nil {
			return Result{}, getErr
		}
		return Result{}, err
	}

	updated, err := h.store.PatchBody(ctx, id, r.Header.Get("Content-Type"), body)
	if err != nil {
		return Result{}, err
	}
	return Result{Data: updated}, nil
}

func alertIDParam(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(r.PathValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("alert id must be a positive integer", err)
	}
	return id, nil
}
