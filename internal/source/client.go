// Package source downloads draw history datasets over HTTP.
package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rewired-gh/meihua/internal/models"
	"github.com/rewired-gh/meihua/internal/storage"
)

// Client fetches dataset files from a base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a new dataset client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Fetch downloads {base}/{dataset file} and parses it as a local dataset.
// It makes a single attempt.
func (c *Client) Fetch(ctx context.Context, game models.GameConfig) ([]models.HistoryRecord, error) {
	if game.DatasetFile == "" {
		return nil, fmt.Errorf("no dataset file for %s", game.Type)
	}
	url := fmt.Sprintf("%s/%s", c.baseURL, game.DatasetFile)

	resp, err := c.doRequest(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s history: %w", game.Type, err)
	}
	defer resp.Body.Close()

	records, err := storage.ParseDataset(game.Type, resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s history: %w", game.Type, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s dataset at %s: %w", game.Type, url, storage.ErrNoData)
	}
	return records, nil
}

// doRequest performs a GET and rejects non-2xx responses
func (c *Client) doRequest(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return resp, nil
}
