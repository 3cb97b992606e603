package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ProcessorRequest is one charge or refund instruction for the payment
// processor.
type ProcessorRequest struct {
	OrderID  string `json:"order_id"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// ProcessorResult is the processor's answer. Success false with a Reason is
// a decline, not a transport failure.
type ProcessorResult struct {
	Success   bool   `json:"success"`
	Reference string `json:"reference"`
	Reason    string `json:"reason"`
}

// ProcessorGateway abstracts the payment processor for the lifecycle
// manager. Exactly-once delivery is the processor's own concern via its
// idempotency keys; this client just reports outcomes.
type ProcessorGateway interface {
	Charge(ctx context.Context, orderID string, amount decimal.Decimal, currency string) (*ProcessorResult, error)
	Refund(ctx context.Context, orderID string, amount decimal.Decimal, currency string) (*ProcessorResult, error)
}

// ProcessorClient talks to the payment processor's HTTP API.
type ProcessorClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewProcessorClient constructs a ProcessorClient.
func NewProcessorClient(baseURL, apiKey string) *ProcessorClient {
	return &ProcessorClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Charge captures a payment for an order.
func (c *ProcessorClient) Charge(ctx context.Context, orderID string, amount decimal.Decimal, currency string) (*ProcessorResult, error) {
	return c.post(ctx, "/charges", orderID, amount, currency)
}

// Refund returns money for an order.
func (c *ProcessorClient) Refund(ctx context.Context, orderID string, amount decimal.Decimal, currency string) (*ProcessorResult, error) {
	return c.post(ctx, "/refunds", orderID, amount, currency)
}

func (c *ProcessorClient) post(ctx context.Context, path, orderID string, amount decimal.Decimal, currency string) (*ProcessorResult, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("payment processor is not configured")
	}

	payload := ProcessorRequest{
		OrderID:  orderID,
		Amount:   amount.StringFixed(2),
		Currency: currency,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		log.Printf("[Processor] %s request failed: %v", path, err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[Processor] %s returned status %d", path, resp.StatusCode)
		return nil, fmt.Errorf("processor returned status %d", resp.StatusCode)
	}

	var result ProcessorResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}
