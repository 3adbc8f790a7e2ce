package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vishu3131/civisync/domain"
	"github.com/vishu3131/civisync/internal/syncer"
)

// Client is a thin HTTP client for the sync engine's API.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) do(ctx context.Context, method, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}

// SyncUser triggers a synchronous sync for one user.
func (c *Client) SyncUser(ctx context.Context, uid string) (*domain.SyncResult, error) {
	var result domain.SyncResult
	if err := c.do(ctx, http.MethodPost, "/v1/sync/users/"+uid, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SyncAll starts a batch sweep.
func (c *Client) SyncAll(ctx context.Context) (*domain.BatchResult, error) {
	var result domain.BatchResult
	if err := c.do(ctx, http.MethodPost, "/v1/sync/all", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Stats fetches the aggregate counters.
func (c *Client) Stats(ctx context.Context) (*domain.SyncStats, error) {
	var stats domain.SyncStats
	if err := c.do(ctx, http.MethodGet, "/v1/sync/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Status fetches trigger manager state.
func (c *Client) Status(ctx context.Context) (*syncer.Status, error) {
	var status syncer.Status
	if err := c.do(ctx, http.MethodGet, "/v1/sync/status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}
