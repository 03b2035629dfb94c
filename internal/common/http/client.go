package http

import (
	"context"
	"net/http"
	"time"
)

// Client applies a per-call deadline on top of a shared transport so callers
// can pass tenant-specific timeouts without building a client per tenant.
type Client struct {
	httpClient     *http.Client
	defaultTimeout time.Duration
}

func NewClient(defaultTimeout time.Duration) *Client {
	return &Client{
		httpClient:     &http.Client{Transport: http.DefaultTransport},
		defaultTimeout: defaultTimeout,
	}
}

// NewClientWithHTTP wraps an existing *http.Client, e.g. httptest.Server.Client().
func NewClientWithHTTP(hc *http.Client, defaultTimeout time.Duration) *Client {
	return &Client{httpClient: hc, defaultTimeout: defaultTimeout}
}

// Do sends req with the given timeout; zero falls back to the default.
// The returned cancel func must be called once the body has been consumed.
func (c *Client) Do(ctx context.Context, req *http.Request, timeout time.Duration) (*http.Response, context.CancelFunc, error) {
	if timeout <= 0 {
		timeout = c.defaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	resp, err := c.httpClient.Do(req.WithContext(callCtx))
	if err != nil {
		cancel()
		return nil, func() {}, err
	}
	return resp, cancel, nil
}
