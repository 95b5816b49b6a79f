// Package sheets posts rows to a spreadsheet web app (an Apps Script style
// endpoint that appends the JSON body as a row).
package sheets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrNotConfigured is returned by Append when no web-app URL is set.
var ErrNotConfigured = errors.New("sheets: web app url not configured")

// Row is a JSON object appended to the sheet.
type Row map[string]interface{}

// Client appends rows. It never retries; a failed append is lost.
type Client struct {
	http   *resty.Client
	url    string
	apiKey string
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey adds api_key to every row.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient swaps the underlying resty client.
func WithHTTPClient(rc *resty.Client) Option {
	return func(c *Client) { c.http = rc }
}

// New creates a Client posting to webAppURL.
func New(webAppURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := &Client{
		http: resty.New().
			SetTimeout(timeout).
			SetRetryCount(0).
			SetHeader("Content-Type", "application/json").
			SetHeader("Accept", "application/json"),
		url: webAppURL,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Enabled reports whether a destination is configured.
func (c *Client) Enabled() bool { return c != nil && c.url != "" }

// Append posts row. Any non-2xx status is an error.
func (c *Client) Append(ctx context.Context, row Row) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	body := make(Row, len(row)+1)
	for k, v := range row {
		body[k] = v
	}
	if c.apiKey != "" {
		body["api_key"] = c.apiKey
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("post row: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("post row: unexpected status %d", resp.StatusCode())
	}
	return nil
}
