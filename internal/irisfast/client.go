package irisfast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/park285/Cheese-Fortune-bot/internal/obslog"
)

// StatusError is a non-2xx reply from the Iris HTTP API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("iris api error: status=%d body=%s", e.Code, e.Body)
}

// Retryable reports whether the status is a transient gateway/server failure.
func (e *StatusError) Retryable() bool {
	switch e.Code {
	case fasthttp.StatusInternalServerError, fasthttp.StatusBadGateway,
		fasthttp.StatusServiceUnavailable, fasthttp.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

type Client struct {
	baseURL string
	http    *fasthttp.Client
	headers HeaderProvider

	timeout  time.Duration
	attempts int
	backoff  func(attempt int) time.Duration
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithMaxConnsPerHost(n int) Option {
	return func(c *Client) { c.http.MaxConnsPerHost = n }
}

func WithHeaderProvider(h HeaderProvider) Option {
	return func(c *Client) { c.headers = h }
}

// WithRetry sets the total attempts for replies. Values below 1 mean one attempt.
func WithRetry(attempts int) Option {
	return func(c *Client) { c.attempts = attempts }
}

// WithDial swaps the transport dialer; tests use an in-memory listener.
func WithDial(dial fasthttp.DialFunc) Option {
	return func(c *Client) { c.http.Dial = dial }
}

func withBackoff(f func(int) time.Duration) Option {
	return func(c *Client) { c.backoff = f }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http: &fasthttp.Client{
			Name:            "cheese-fortune-bot",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			MaxConnsPerHost: 64,
		},
		timeout:  10 * time.Second,
		attempts: 3,
		backoff:  backoffDuration,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.attempts < 1 {
		c.attempts = 1
	}
	return c
}

func (c *Client) GetConfig(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := c.call(ctx, fasthttp.MethodGet, "/config", nil, &cfg, 1); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) Decrypt(ctx context.Context, data string) (string, error) {
	var resp DecryptResponse
	if err := c.call(ctx, fasthttp.MethodPost, "/decrypt", DecryptRequest{Data: data}, &resp, c.attempts); err != nil {
		return "", err
	}
	return resp.Decrypted, nil
}

func (c *Client) SendMessage(ctx context.Context, room, message string) error {
	return c.reply(ctx, ReplyRequest{Type: replyText, Room: room, Data: message})
}

func (c *Client) SendImage(ctx context.Context, room, imageBase64 string) error {
	return c.reply(ctx, ReplyRequest{Type: replyImage, Room: room, Data: imageBase64})
}

func (c *Client) reply(ctx context.Context, req ReplyRequest) error {
	if strings.TrimSpace(req.Room) == "" {
		return errors.New("reply: empty room")
	}
	return c.call(ctx, fasthttp.MethodPost, "/reply", req, nil, c.attempts)
}

// call sends one JSON request, retrying transport errors and 5xx replies.
func (c *Client) call(ctx context.Context, method, path string, in, out any, attempts int) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)
	req.Header.SetContentType("application/json")
	if c.headers != nil {
		for k, v := range c.headers() {
			if strings.TrimSpace(k) != "" && strings.TrimSpace(v) != "" {
				req.Header.Set(k, v)
			}
		}
	}
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		req.SetBody(payload)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			obslog.L().Debug("iris_retry", zap.String("path", path), zap.Int("attempt", attempt), zap.Error(lastErr))
			if err := sleepCtx(ctx, c.backoff(attempt-1)); err != nil {
				return lastErr
			}
		}
		resp.Reset()
		if err := c.http.DoDeadline(req, resp, c.deadline(ctx)); err != nil {
			lastErr = fmt.Errorf("request %s: %w", path, err)
			continue
		}
		if code := resp.StatusCode(); code < 200 || code >= 300 {
			se := &StatusError{Code: code, Body: truncate(string(resp.Body()), 512)}
			if !se.Retryable() {
				return se
			}
			lastErr = se
			continue
		}
		if out != nil {
			if err := json.Unmarshal(resp.Body(), out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	}
	return lastErr
}

func (c *Client) deadline(ctx context.Context) time.Time {
	limit := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(limit) {
		return dl
	}
	return limit
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// backoffDuration doubles from 100ms and caps at 3.2s.
func backoffDuration(attempt int) time.Duration {
	attempt = max(1, min(attempt, 6))
	return (100 * time.Millisecond) << (attempt - 1)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
