package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Client speaks the record API over HTTP/JSON. Outgoing calls are rate
// limited locally so a retry burst cannot make a 429 situation worse.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// ClientConfig carries the remote endpoint settings from config.
type ClientConfig struct {
	BaseURL string
	Token   string
	RPS     float64
	Burst   int
	Timeout time.Duration
}

func NewClient(cfg ClientConfig, logger *zerolog.Logger) *Client {
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := &http.Client{Timeout: cfg.Timeout}
	if cfg.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		httpClient = oauth2.NewClient(context.Background(), src)
		httpClient.Timeout = cfg.Timeout
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		logger:  logger.With().Str("component", "remote-client").Logger(),
	}
}

// Save writes one record atomically and returns the remote-assigned ID.
func (c *Client) Save(ctx context.Context, rec Record) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/records", rec, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", fmt.Errorf("remote store returned empty record id")
	}
	return resp.ID, nil
}

// Query fetches records matching the predicate.
func (c *Client) Query(ctx context.Context, q Query) ([]Record, error) {
	vals := url.Values{}
	vals.Set("type", string(q.Type))
	if q.Parent != "" {
		vals.Set("parent", q.Parent)
	}
	if q.InviteCode != "" {
		vals.Set("invite_code", q.InviteCode)
	}
	if q.Limit > 0 {
		vals.Set("limit", strconv.Itoa(q.Limit))
	}

	var resp struct {
		Records []Record `json:"records"`
	}
	if err := c.do(ctx, http.MethodGet, "/records?"+vals.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// AccountStatus reports backend reachability and account health.
func (c *Client) AccountStatus(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/account/status", nil, &resp); err != nil {
		return err
	}
	if resp.Status != "available" {
		return fmt.Errorf("%w: status %q", ErrAccountUnavailable, resp.Status)
	}
	return nil
}

// CreateShare makes a root record joinable and returns its share handle.
func (c *Client) CreateShare(ctx context.Context, rootRecordID string) (Share, error) {
	req := struct {
		RecordID string `json:"record_id"`
	}{RecordID: rootRecordID}

	var share Share
	if err := c.do(ctx, http.MethodPost, "/shares", req, &share); err != nil {
		return Share{}, err
	}
	return share, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug().Int("status", resp.StatusCode).Str("path", path).Msg("remote call failed")
		return &StatusError{Code: resp.StatusCode, Body: truncate(string(raw), 200)}
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
