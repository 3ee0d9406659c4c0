package peer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is a thin HTTP client for the peer marketplace read APIs. It
// returns raw bodies so the caller can record them before parsing.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// FetchPricingInsights retrieves the pricing-insights payload for one
// catalog item.
func (c *Client) FetchPricingInsights(ctx context.Context, catalogID string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/v2/catalog/%s/pricing_insights", c.baseURL, url.PathEscape(catalogID))
	return c.get(ctx, endpoint)
}

// FetchRecentSales retrieves the recent-sales payload for one catalog item.
func (c *Client) FetchRecentSales(ctx context.Context, catalogID string) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/v2/catalog/%s/recent_sales", c.baseURL, url.PathEscape(catalogID))
	return c.get(ctx, endpoint)
}

func (c *Client) get(ctx context.Context, endpoint string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request %s returned status %d", endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return body, nil
}
