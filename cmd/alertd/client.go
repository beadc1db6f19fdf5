package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	fastshot "github.com/opus-domini/fast-shot"

	"github.com/opus-domini/alertd/internal/alerts"
)

const clientTimeout = 10 * time.Second

// alertClient talks to a running alertd over HTTP.
type alertClient struct {
	http fastshot.ClientHttpMethods
}

type apiError struct {
	Status  int
	Code    string
	Message string
}

func (e *apiError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

func newAlertClient(baseURL string) *alertClient {
	return &alertClient{
		http: fastshot.NewClient(strings.TrimRight(baseURL, "/")).
			Config().SetTimeout(clientTimeout).
			Header().Add("Accept", "application/json").
			Build(),
	}
}

func alertPath(id int64) string {
	return "/api/alerts/" + strconv.FormatInt(id, 10)
}

func (c *alertClient) List(ctx context.Context) ([]alerts.Alert, error) {
	resp, err := c.http.GET("/api/alerts").Context().Set(ctx).Send()
	if err != nil {
		return nil, err
	}
	var out struct {
		Alerts []alerts.Alert `json:"alerts"`
	}
	if err := decodeResponse(resp, &out); err != nil {
		return nil, err
	}
	return out.Alerts, nil
}

func (c *alertClient) Get(ctx context.Context, id int64) (alerts.Alert, error) {
	resp, err := c.http.GET(alertPath(id)).Context().Set(ctx).Send()
	if err != nil {
		return alerts.Alert{}, err
	}
	var out alerts.Alert
	return out, decodeResponse(resp, &out)
}

func (c *alertClient) Create(ctx context.Context, write alerts.AlertWrite) (alerts.Alert, error) {
	resp, err := c.http.POST("/api/alerts").
		Context().Set(ctx).
		Body().AsJSON(write).
		Send()
	if err != nil {
		return alerts.Alert{}, err
	}
	var out alerts.Alert
	return out, decodeResponse(resp, &out)
}

// Patch sends fields as a merge patch.
func (c *alertClient) Patch(ctx context.Context, id int64, fields map[string]any) (alerts.Alert, error) {
	resp, err := c.http.PATCH(alertPath(id)).
		Context().Set(ctx).
		Body().AsJSON(fields).
		Header().Set("Content-Type", alerts.MediaTypeMergePatch).
		Send()
	if err != nil {
		return alerts.Alert{}, err
	}
	var out alerts.Alert
	return out, decodeResponse(resp, &out)
}

func decodeResponse(resp *fastshot.Response, dst any) error {
	defer resp.Body().Close()
	if resp.Status().IsError() {
		var body struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		_ = resp.Body().AsJSON(&body)
		return &apiError{
			Status:  resp.Status().Code(),
			Code:    body.Error.Code,
			Message: body.Error.Message,
		}
	}
	if err := resp.Body().AsJSON(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
