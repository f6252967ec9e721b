// Package api is the HTTP client for the invoice backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/imgajeed76/invgrid/internal/logger"
)

// Options configures a Client.
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 disables limiting
	Burst             int
	MaxRetries        int // applies to reads only
	HTTPClient        *http.Client
	Logger            *logger.Logger
}

// Client talks to the invoice REST endpoints. It is safe for concurrent use.
// Mutations are sent once; reads retry transient failures.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	log        *logger.Logger

	group singleflight.Group
}

// New builds a client.
func New(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), max(opts.Burst, 1))
	}

	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: hc,
		limiter:    limiter,
		maxRetries: max(opts.MaxRetries, 0),
		log:        log,
	}
}

// BaseURL returns the server root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) doOnce(ctx context.Context, method, path string, body any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Op: method + " " + path, Err: err}
		}
	}

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, fmt.Errorf("encode %s body: %w", path, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("request failed", "method", method, "path", path, "error", err.Error())
		return nil, &TransportError{Op: method + " " + path, Err: err}
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, &TransportError{Op: "read " + path, Err: readErr}
	}

	c.log.Debug("request done",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &ServerError{StatusCode: resp.StatusCode, Body: string(raw)}
		var er struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &er) == nil {
			se.Message = er.Error
		}
		return raw, se
	}
	return raw, nil
}

// do sends one request and decodes a 2xx body into out (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	raw, err := c.doOnce(ctx, method, path, body)
	if err != nil {
		return err
	}
	return decode(path, raw, out)
}

// get is do for reads, retrying transient failures with jittered backoff.
func (c *Client) get(ctx context.Context, path string, out any) error {
	backoff := 250 * time.Millisecond
	for attempt := 0; ; attempt++ {
		raw, err := c.doOnce(ctx, http.MethodGet, path, nil)
		if err == nil {
			return decode(path, raw, out)
		}
		if attempt >= c.maxRetries || !IsRetryable(err) || ctx.Err() != nil {
			return err
		}

		sleepFor := jitter(backoff)
		c.log.Warn("retrying read",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return &TransportError{Op: "GET " + path, Err: ctx.Err()}
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}
}

func decode(path string, raw []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &TransportError{Op: "decode " + path, Err: err}
	}
	return nil
}

func jitter(base time.Duration) time.Duration {
	delta := float64(base) * 0.2
	return time.Duration(float64(base) - delta + rand.Float64()*2*delta)
}
