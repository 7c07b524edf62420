package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	httpclient "github.com/natserract/sfsearch/pkg/http"
	"go.uber.org/zap"
)

const defaultFetchTimeout = 10 * time.Second

// HTTPRateFetcher reads rates from an exchangerate-api style endpoint:
// GET <baseURL>/<BASE> returning {"base": "USD", "rates": {"EUR": 0.85, ...}}.
type HTTPRateFetcher struct {
	baseURL string
	client  *httpclient.Client
	timeout time.Duration
	logger  *zap.Logger
}

type ratesResponse struct {
	Base    string             `json:"base"`
	Rates   map[string]float64 `json:"rates"`
	Success *bool              `json:"success"`
}

// NewHTTPRateFetcher creates a fetcher against baseURL,
// e.g. https://api.exchangerate-api.com/v4/latest.
func NewHTTPRateFetcher(baseURL string, logger *zap.Logger) *HTTPRateFetcher {
	return &HTTPRateFetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpclient.NewClientWithLogger(logger),
		timeout: defaultFetchTimeout,
		logger:  logger,
	}
}

// WithTimeout overrides the 10s bound on a fetch.
func (f *HTTPRateFetcher) WithTimeout(d time.Duration) *HTTPRateFetcher {
	f.timeout = d
	return f
}

// Fetch implements RateFetcher. Every failure is reported in the outcome.
func (f *HTTPRateFetcher) Fetch(ctx context.Context, base string) FetchOutcome {
	url := fmt.Sprintf("%s/%s", f.baseURL, normalizeCode(base))
	f.logger.Debug("Fetching exchange rates", zap.String("url", url))

	resp, err := f.client.Do(httpclient.RequestOptions{
		URL:      url,
		Context:  ctx,
		Timeout:  f.timeout,
		MaxTries: 2,
	})
	if err != nil {
		return FetchOutcome{Err: fmt.Errorf("failed to fetch exchange rates: %w", err)}
	}

	var body ratesResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return FetchOutcome{Err: fmt.Errorf("failed to parse exchange rates: %w", err)}
	}
	if body.Success != nil && !*body.Success {
		return FetchOutcome{Err: errors.New("exchange rate API reported failure")}
	}
	if len(body.Rates) == 0 {
		return FetchOutcome{Err: errors.New("exchange rate response has no rates")}
	}

	return FetchOutcome{Rates: body.Rates}
}
