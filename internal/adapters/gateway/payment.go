package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pr-poehali-dev/farmer-landing-project-sub001/internal/domain"
)

// HTTPPaymentGateway talks to the external payment service over its REST
// surface. Confirmation is synchronous; a non-2xx response means the payment
// did not clear and the request must stay approved.
type HTTPPaymentGateway struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

type HTTPPaymentGatewayConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
}

func NewHTTPPaymentGateway(cfg HTTPPaymentGatewayConfig) (*HTTPPaymentGateway, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("payment gateway requires a base URL")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPPaymentGateway{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
	}, nil
}

type paymentCall struct {
	RequestID string  `json:"request_id"`
	Amount    float64 `json:"amount"`
}

func (g *HTTPPaymentGateway) post(ctx context.Context, path, requestID string, amount float64) error {
	body, err := json.Marshal(paymentCall{RequestID: requestID, Amount: amount})
	if err != nil {
		return fmt.Errorf("marshal payment call: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build payment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call payment service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("payment service responded %d: %w", resp.StatusCode, domain.ErrConflict)
	}
	return nil
}

func (g *HTTPPaymentGateway) ConfirmPayment(ctx context.Context, requestID string, amount float64) error {
	return g.post(ctx, "/v1/payments/confirm", requestID, amount)
}

func (g *HTTPPaymentGateway) RequestRefund(ctx context.Context, requestID string, amount float64) error {
	return g.post(ctx, "/v1/payments/refund", requestID, amount)
}

// MemoryPaymentGateway is the in-process stand-in for tests and local runs.
// Failures can be injected per method.
type MemoryPaymentGateway struct {
	mu         sync.Mutex
	Confirmed  []string
	Refunded   []string
	ConfirmErr error
	RefundErr  error
}

func NewMemoryPaymentGateway() *MemoryPaymentGateway { return &MemoryPaymentGateway{} }

func (g *MemoryPaymentGateway) ConfirmPayment(_ context.Context, requestID string, _ float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.ConfirmErr != nil {
		return g.ConfirmErr
	}
	g.Confirmed = append(g.Confirmed, requestID)
	return nil
}

func (g *MemoryPaymentGateway) RequestRefund(_ context.Context, requestID string, _ float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.RefundErr != nil {
		return g.RefundErr
	}
	g.Refunded = append(g.Refunded, requestID)
	return nil
}
