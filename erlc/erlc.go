// Package erlc is a client for the ER:LC private server API.
package erlc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/time/rate"
)

// DefaultBase is the API root used when a Client has no Base.
const DefaultBase = "https://api.policeroleplay.community/v1/"

// Client holds the context for requests to the ER:LC API.
type Client struct {
	// HTTP is the HTTP client for performing requests.
	// If nil, http.DefaultClient is used.
	HTTP *http.Client
	// Key is the server key sent with every request.
	Key string
	// Base is the API root. If empty, DefaultBase is used.
	Base string
	// Rate spaces out requests. If nil, requests are not limited.
	Rate *rate.Limiter
}

// ErrNoKey is the error returned for requests on a client with no key.
var ErrNoKey = errors.New("no ER:LC server key")

// ErrUnauthorized is wrapped by errors for requests the API rejects with 403.
var ErrUnauthorized = errors.New("invalid server key or unauthorized")

// do performs an HTTP request against an API endpoint.
// The response body is truncated to 2 MB.
// Errors are only returned for failures to obtain a response.
func (c *Client) do(ctx context.Context, method, ep string, body []byte) (int, []byte, error) {
	if c.Key == "" {
		return 0, nil, ErrNoKey
	}
	u, err := c.url(ep)
	if err != nil {
		return 0, nil, err
	}
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return 0, nil, fmt.Errorf("couldn't make request: %w", err)
	}
	req.Header.Set("Server-Key", c.Key)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "*/*")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if c.Rate != nil {
		if err := c.Rate.Wait(ctx); err != nil {
			return 0, nil, fmt.Errorf("couldn't wait for rate limit: %w", err)
		}
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("couldn't %s: %w", method, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("couldn't read response: %w", err)
	}
	return resp.StatusCode, b, nil
}

func (c *Client) url(ep string) (string, error) {
	base := c.Base
	if base == "" {
		base = DefaultBase
	}
	u, err := url.JoinPath(base, ep)
	if err != nil {
		return "", fmt.Errorf("bad API url %q + %q: %w", base, ep, err)
	}
	return u, nil
}
