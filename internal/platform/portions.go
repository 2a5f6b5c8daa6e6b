package platform

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
)

// NewPortionID generates the identifier for one unit of work.
func NewPortionID() string {
	return uuid.NewString()
}

// Delivery is one batch handed to the platform for a portion. A delivery with
// no records may still carry an error marked fatal.
type Delivery struct {
	Records []map[string]any `json:"records"`
	Error   string           `json:"error,omitempty"`
	IsFatal bool             `json:"is_fatal,omitempty"`
}

// SendDelivery posts one batch of records (or a terminal error) to a portion.
func (c *Client) SendDelivery(ctx context.Context, portionID string, delivery Delivery) error {
	if delivery.Records == nil {
		delivery.Records = []map[string]any{}
	}
	path := "/api/v3/portions/" + url.PathEscape(portionID) + "/records"
	return c.do(ctx, http.MethodPost, path, delivery, nil)
}

// FinalizePortion closes out an in-progress portion.
func (c *Client) FinalizePortion(ctx context.Context, portionID string) error {
	path := "/api/v3/portions/" + url.PathEscape(portionID) + "/finalize"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// CreateSyntheticFinalizedFailedPortion reports a failed sync for which no
// portion was ever started: a synthetic, already-finalized unit of work
// carrying the failure traceback.
func (c *Client) CreateSyntheticFinalizedFailedPortion(ctx context.Context, connectorID, portionID, errText string, isFatal, testRun bool) error {
	body := map[string]any{
		"connector_id": connectorID,
		"portion_id":   portionID,
		"status":       "failed",
		"error":        errText,
		"is_fatal":     isFatal,
		"test_run":     testRun,
	}
	return c.do(ctx, http.MethodPost, "/api/v3/portions/synthetic", body, nil)
}

// CreateSyntheticFinalizedEmptyPortion reports a sync that reached no data at
// all as a synthetic, already-finalized empty unit of work.
func (c *Client) CreateSyntheticFinalizedEmptyPortion(ctx context.Context, connectorID, portionID string) error {
	body := map[string]any{
		"connector_id": connectorID,
		"portion_id":   portionID,
		"status":       "empty",
	}
	return c.do(ctx, http.MethodPost, "/api/v3/portions/synthetic", body, nil)
}
