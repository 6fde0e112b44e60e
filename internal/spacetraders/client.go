package spacetraders

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papaburgs/voidinvestor/internal/gate"
	"github.com/papaburgs/voidinvestor/internal/types"
)

const (
	DefaultBaseURL = "https://api.spacetraders.io/v2"
	defaultTimeout = 10 * time.Second
	max429Retries  = 5
	lockOn429      = time.Second
	pauseOn429     = 250 * time.Millisecond
)

// ResponseError is returned when the api answers with a non 2xx status.
// Body holds the raw payload so callers can decide how to read it.
type ResponseError struct {
	Method     string
	Path       string
	StatusCode int
	Body       []byte
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// Client talks to the SpaceTraders api. All requests pass through the gate.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	gate    *gate.Gate
}

type Option func(*Client)

// WithHTTPClient replaces the default http client (10 second timeout).
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per request timeout of the default http client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

func New(baseURL, token string, g *gate.Gate, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultTimeout},
		gate:    g,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// WithToken returns a copy of the client that authenticates with token and
// shares the gate and http client of c.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) BaseURL() string { return c.baseURL }

type envelope[T any] struct {
	Data T           `json:"data"`
	Meta *types.Meta `json:"meta,omitempty"`
}

// call sends one request and decodes the data member of the response.
func call[T any](ctx context.Context, c *Client, method, path string, body any) (T, *types.Meta, error) {
	var zero T
	raw, err := c.do(ctx, method, path, body)
	if err != nil {
		return zero, nil, err
	}
	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, nil, fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return env.Data, env.Meta, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	l := slog.With("function", "do", "method", method, "path", path)

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s request: %w", method, path, err)
		}
	}

	var retries429 int
	for {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("could not create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		if c.gate != nil {
			if err := c.gate.Latch(ctx); err != nil {
				return nil, fmt.Errorf("waiting for gate: %w", err)
			}
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("http request failed: %w", err)
		}
		b, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read %s %s response: %w", method, path, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retries429++
			if retries429 >= max429Retries {
				return nil, &ResponseError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: b}
			}
			l.Warn("rate limited, backing off", "attempt", retries429)
			if c.gate != nil {
				c.gate.Lock(lockOn429)
				continue
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(pauseOn429):
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			l.Debug("api call returned non-2xx status", "rc", resp.StatusCode, "body", strings.TrimSpace(string(b)))
			return nil, &ResponseError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: b}
		}
		return b, nil
	}
}
