package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/fjod/go_storefront/internal/domain"
)

// CreateOrder posts the order and returns the server-assigned id when the response carries one.
func (c *Client) CreateOrder(ctx context.Context, sub domain.OrderSubmission) (string, error) {
	payload, err := json.Marshal(sub)
	if err != nil {
		return "", fmt.Errorf("marshal order: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, ordersPath, nil, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do("create order", req)
	if err != nil {
		return "", err
	}

	var created struct {
		ID    string `json:"_id"`
		Order *struct {
			ID string `json:"_id"`
		} `json:"order"`
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil
	}
	if err := json.Unmarshal(body, &created); err != nil {
		// the order exists server-side; an unreadable body only loses the id
		c.log.Warn().Err(err).Msg("could not decode order confirmation")
		return "", nil
	}
	if created.Order != nil && created.Order.ID != "" {
		return created.Order.ID, nil
	}
	return created.ID, nil
}

func (c *Client) ListOrders(ctx context.Context) ([]domain.Order, error) {
	req, err := c.newRequest(ctx, http.MethodGet, ordersPath, nil, nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do("list orders", req)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Orders []domain.Order `json:"orders"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	if resp.Orders == nil {
		return []domain.Order{}, nil
	}
	return resp.Orders, nil
}

// CompleteOrder marks an order done; the API removes it from the listing.
func (c *Client) CompleteOrder(ctx context.Context, id string) error {
	if id == "" {
		return &domain.ValidationError{Field: "id", Reason: "order id is required"}
	}
	req, err := c.newRequest(ctx, http.MethodPost, ordersPath+"/"+url.PathEscape(id)+"/delete", nil, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = c.do("complete order "+id, req)
	return err
}
