package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"fest-ticketing/internal/config"
	"fest-ticketing/internal/models"
)

// Razorpay is a thin client for the gateway's orders endpoint. The
// notes map sent here is echoed verbatim into webhook deliveries, so
// it must never be rewritten on the way out.
type Razorpay struct {
	baseURL   string
	keyID     string
	keySecret string
	hc        *http.Client
}

func NewRazorpay(cfg config.RazorpayConfig, hc *http.Client) *Razorpay {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Razorpay{
		baseURL:   cfg.BaseURL,
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		hc:        hc,
	}
}

// CreateOrder creates a remote order for the given subunit amount.
func (c *Razorpay) CreateOrder(ctx context.Context, opts models.GatewayOrderOptions) (*models.GatewayOrder, error) {
	body, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("marshal order options: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway order request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(detail))
	}

	var order models.GatewayOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, fmt.Errorf("decode gateway order: %w", err)
	}
	if order.ID == "" {
		return nil, fmt.Errorf("gateway order response missing id")
	}

	return &order, nil
}
