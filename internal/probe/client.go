// Package probe issues single bounded HTTP requests against candidate URLs
// and classifies transport failures into retryable and terminal kinds.
package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultMaxRedirects bounds redirect chains; misconfigured vhosts
	// commonly loop, and a loop is a deterministic failure.
	DefaultMaxRedirects = 5

	// DefaultMaxBodyBytes caps how much of a response body is retained
	// per probe.
	DefaultMaxBodyBytes = 64 * 1024

	// DefaultUserAgent mirrors a common browser so probes are not served
	// bot-specific responses.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Response is the bounded view of a completed probe.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       string // truncated to MaxBodyBytes
	Elapsed    time.Duration
}

// Client performs individual probes. The zero value is not usable; call
// NewClient so transport settings are applied consistently.
type Client struct {
	Timeout            time.Duration
	UserAgent          string
	InsecureSkipVerify bool
	MaxRedirects       int
	MaxBodyBytes       int64

	httpClient *http.Client
}

// NewClient builds a probe client. Zero-valued fields fall back to package
// defaults.
func NewClient(timeout time.Duration, insecureSkipVerify bool) *Client {
	c := &Client{
		Timeout:            timeout,
		UserAgent:          DefaultUserAgent,
		InsecureSkipVerify: insecureSkipVerify,
		MaxRedirects:       DefaultMaxRedirects,
		MaxBodyBytes:       DefaultMaxBodyBytes,
	}
	c.httpClient = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: insecureSkipVerify},
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= c.MaxRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
	return c
}

// Fetch issues one request and returns the bounded response. Errors are
// classified so errors.Is works against the package sentinels. HEAD requests
// fall back to GET when the server rejects the method outright.
func (c *Client) Fetch(ctx context.Context, method, url string) (*Response, error) {
	resp, err := c.do(ctx, method, url)
	if err != nil && method == http.MethodHead {
		if ctx.Err() != nil {
			return nil, classify(err)
		}
		resp, err = c.do(ctx, http.MethodGet, url)
	}
	if err != nil {
		return nil, classify(err)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// A partial body is still usable evidence, so a read error here is not
	// fatal; keep whatever arrived.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes()))
	// Drain the remainder so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		Body:       string(body),
		Elapsed:    time.Since(start),
	}, nil
}

func (c *Client) userAgent() string {
	if c.UserAgent == "" {
		return DefaultUserAgent
	}
	return c.UserAgent
}

func (c *Client) maxBodyBytes() int64 {
	if c.MaxBodyBytes <= 0 {
		return DefaultMaxBodyBytes
	}
	return c.MaxBodyBytes
}
