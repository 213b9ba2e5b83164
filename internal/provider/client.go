package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"payrelay/internal/config"
	"payrelay/internal/constants"
	"payrelay/pkg/metrics"
)

// Fetcher is the provider surface the poll loop depends on.
type Fetcher interface {
	FetchTransactions(ctx context.Context) ([]Transaction, error)
	FetchWithdrawals(ctx context.Context) ([]Withdrawal, error)
}

// Client reads transaction and withdrawal state from the payment provider.
// Only the first page is polled each cycle; more than one page of new
// records between ticks is silently missed.
type Client struct {
	baseURL string
	auth    string
	client  *http.Client
}

func NewClient(cfg config.ProviderConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = constants.ProviderHTTPTimeout
	}

	credentials := fmt.Sprintf("%s:%s", cfg.PublicKey, cfg.SecretKey)

	return &Client{
		baseURL: cfg.BaseURL,
		auth:    "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials)),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) FetchTransactions(ctx context.Context) ([]Transaction, error) {
	var resp transactionListResponse
	if err := c.fetch(ctx, "transactions", &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) FetchWithdrawals(ctx context.Context) ([]Withdrawal, error) {
	var resp withdrawalListResponse
	if err := c.fetch(ctx, "withdrawals", &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) fetch(ctx context.Context, resource string, out interface{}) error {
	url := fmt.Sprintf("%s/%s?page=1&pageSize=%d", c.baseURL, resource, constants.ProviderPageSize)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", c.auth)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ObserveProviderFetch(resource, time.Since(start), "error")
		return fmt.Errorf("provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		metrics.ObserveProviderFetch(resource, time.Since(start), "error")
		return fmt.Errorf("provider returned status %d for %s", resp.StatusCode, resource)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.ObserveProviderFetch(resource, time.Since(start), "error")
		return fmt.Errorf("failed to decode %s response: %w", resource, err)
	}

	metrics.ObserveProviderFetch(resource, time.Since(start), "ok")
	return nil
}
