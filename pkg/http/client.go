// Package http is a small JSON-over-HTTP client that retries transient
// failures with exponential backoff.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

const (
	defaultMaxElapsed      = 2 * time.Minute
	defaultInitialInterval = 100 * time.Millisecond
	defaultMaxInterval     = 10 * time.Second
)

type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// RequestOptions describes one logical call. Zero backoff fields take the
// package defaults; MaxTries 0 means bounded by MaxElapsed only.
type RequestOptions struct {
	Method  string
	URL     string
	Headers map[string]string
	Context context.Context
	// Timeout bounds the whole call, retries included.
	Timeout         time.Duration
	MaxTries        uint
	MaxElapsed      time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func (o RequestOptions) withDefaults() RequestOptions {
	if o.Method == "" {
		o.Method = http.MethodGet
	}
	if o.Context == nil {
		o.Context = context.Background()
	}
	if o.MaxElapsed == 0 {
		o.MaxElapsed = defaultMaxElapsed
	}
	if o.InitialInterval == 0 {
		o.InitialInterval = defaultInitialInterval
	}
	if o.MaxInterval == 0 {
		o.MaxInterval = defaultMaxInterval
	}
	return o
}

func (o RequestOptions) retryOptions() []backoff.RetryOption {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = o.InitialInterval
	b.MaxInterval = o.MaxInterval
	b.Reset()

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(o.MaxElapsed),
	}
	if o.MaxTries > 0 {
		opts = append(opts, backoff.WithMaxTries(o.MaxTries))
	}
	return opts
}

type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// StatusError is returned for non-2xx responses. Body holds the raw
// response so callers can decode API specific error payloads.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	kind := "client error"
	if e.StatusCode >= 500 {
		kind = "server error"
	}
	return fmt.Sprintf("%s: %d - %s", kind, e.StatusCode, string(e.Body))
}

// Retryable reports whether the server may succeed on a later attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= 500
}

// NewClientWithLogger creates a new HTTP client with a custom logger
func NewClientWithLogger(logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Do sends the request, retrying network failures and 5xx responses.
// 4xx responses fail immediately with a *StatusError.
func (c *Client) Do(opts RequestOptions) (*Response, error) {
	opts = opts.withDefaults()
	log := c.logger.With(zap.String("method", opts.Method), zap.String("url", opts.URL))

	ctx := opts.Context
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	attempt := 0
	resp, err := backoff.Retry(ctx, func() (*Response, error) {
		attempt++
		resp, err := c.send(ctx, opts)
		if err == nil {
			return resp, nil
		}

		switch e := err.(type) {
		case *StatusError:
			if !e.Retryable() {
				log.Debug("Request rejected", zap.Int("status_code", e.StatusCode), zap.ByteString("response", e.Body))
				return nil, backoff.Permanent(err)
			}
			log.Warn("Server error, retrying", zap.Int("status_code", e.StatusCode), zap.Int("attempt", attempt))
		case *permanentError:
			return nil, backoff.Permanent(e.err)
		default:
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			log.Warn("Request failed, retrying", zap.Error(err), zap.Int("attempt", attempt))
		}
		return nil, err
	}, opts.retryOptions()...)
	if err != nil {
		log.Debug("Request gave up", zap.Error(err), zap.Int("attempts", attempt))
		return nil, err
	}

	log.Debug("Request completed", zap.Int("status_code", resp.StatusCode), zap.Int("attempts", attempt))
	return resp, nil
}

// permanentError marks failures that no retry can fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }

// send performs a single attempt.
func (c *Client) send(ctx context.Context, opts RequestOptions) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, nil)
	if err != nil {
		return nil, &permanentError{fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &permanentError{fmt.Errorf("failed to read response body: %w", err)}
	}
	if httpResp.StatusCode >= 400 {
		return nil, &StatusError{StatusCode: httpResp.StatusCode, Body: body}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}, nil
}

func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.Do(RequestOptions{
		Method:  http.MethodGet,
		URL:     url,
		Headers: headers,
		Context: ctx,
	})
}
