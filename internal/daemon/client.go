package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultClientTimeout bounds every client request.
const DefaultClientTimeout = 2 * time.Second

// Client talks to a running daemon.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient returns a Client for baseURL. A zero timeout uses
// DefaultClientTimeout.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultClientTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// Active fetches the daemon's tracking state.
func (c *Client) Active(ctx context.Context) (ActiveState, error) {
	var st ActiveState
	err := c.getJSON(ctx, "/v1/active", &st)
	return st, err
}

// ActiveDomain returns the domain currently accruing time, or "" when
// nothing is tracked or the daemon cannot be reached.
func (c *Client) ActiveDomain(ctx context.Context) string {
	st, err := c.Active(ctx)
	if err != nil || !st.Tracking {
		return ""
	}
	return st.Domain
}

// Status checks that the daemon is up.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var st StatusResponse
	err := c.getJSON(ctx, "/status", &st)
	return st, err
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon request %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
