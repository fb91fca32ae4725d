package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is the REST client for the poll provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// GetQuotes fetches the latest quote for each symbol in one batched request.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) ([]Quote, error) {
	endpoint := fmt.Sprintf("%s/v1/quotes?symbols=%s",
		c.baseURL, url.QueryEscape(strings.Join(symbols, ",")))

	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	// Execute the HTTP request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("making request: %w", err)
	}
	defer resp.Body.Close()

	// Check HTTP status code
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("quote provider error: %s", body)
	}

	var rawResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&rawResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if rawResp.Code != 0 {
		return nil, fmt.Errorf("quote provider error %d: %s", rawResp.Code, rawResp.Message)
	}

	// Decode result into QuoteListResponse
	var result QuoteListResponse
	if err := json.Unmarshal(rawResp.Result, &result); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}

	return result.Quotes, nil
}
