// Package currency converts opportunity amounts into a reporting currency.
//
// Rates are held in a RateTable expressed as "units of Base per 1 unit of
// the currency". Tables come from a live exchange-rate endpoint when it
// answers and from a static fallback table otherwise, so a conversion is
// always attempted even when the network is unavailable.
package currency

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
)

type RateSource string

const (
	SourceLive     RateSource = "live"
	SourceFallback RateSource = "fallback"
)

// RateTable maps an uppercase ISO code to units of Base per 1 unit of that
// currency. Base always maps to exactly 1.0.
type RateTable struct {
	Base   string
	Rates  map[string]float64
	Source RateSource
}

// NewRateTable copies rates into a new table. Codes are uppercased,
// non-positive and non-finite rates are dropped and Base is forced to 1.0.
func NewRateTable(base string, rates map[string]float64, source RateSource) RateTable {
	base = normalizeCode(base)
	t := RateTable{
		Base:   base,
		Rates:  make(map[string]float64, len(rates)+1),
		Source: source,
	}
	for code, rate := range rates {
		if !isUsableRate(rate) {
			continue
		}
		t.Rates[normalizeCode(code)] = rate
	}
	t.Rates[base] = 1.0
	return t
}

// Rate returns the base-denominated rate for code.
func (t RateTable) Rate(code string) (float64, bool) {
	r, ok := t.Rates[normalizeCode(code)]
	return r, ok
}

// DefaultFallbackRates returns the static USD-denominated table used when no
// live rates are available.
func DefaultFallbackRates() RateTable {
	return NewRateTable("USD", map[string]float64{
		"USD": 1.0,
		"EUR": 1.18,
		"GBP": 1.37,
		"JPY": 0.0067,
		"CAD": 0.74,
		"AUD": 0.67,
		"CHF": 1.14,
		"CNY": 0.14,
		"INR": 0.012,
		"BRL": 0.20,
	}, SourceFallback)
}

// FetchOutcome is the result of asking a live rate source for rates.
// Rates are "units of X per 1 unit of base", as exchange-rate APIs publish
// them. A non-nil Err means the fetch failed and Rates must be ignored.
type FetchOutcome struct {
	Rates map[string]float64
	Err   error
}

// RateFetcher fetches live rates for a base currency.
type RateFetcher interface {
	Fetch(ctx context.Context, base string) FetchOutcome
}

var errNoFetcher = errors.New("no live rate source configured")

// Normalizer produces rate tables and converts amounts.
type Normalizer struct {
	fallback RateTable
	fetcher  RateFetcher
	logger   *zap.Logger
}

// NewNormalizer creates a Normalizer. fallback is used whenever fetcher is
// nil or fails; it is copied so later changes by the caller have no effect.
func NewNormalizer(fallback RateTable, fetcher RateFetcher, logger *zap.Logger) *Normalizer {
	return &Normalizer{
		fallback: NewRateTable(fallback.Base, fallback.Rates, SourceFallback),
		fetcher:  fetcher,
		logger:   logger,
	}
}

// GetRates returns a table denominated in base. It never fails: when the
// live source cannot be used the fallback table is rescaled to base.
func (n *Normalizer) GetRates(ctx context.Context, base string) RateTable {
	base = normalizeCode(base)
	if base == "" {
		base = n.fallback.Base
	}

	outcome := FetchOutcome{Err: errNoFetcher}
	if n.fetcher != nil {
		outcome = n.fetcher.Fetch(ctx, base)
	}
	return n.selectTable(base, outcome)
}

// selectTable picks the live table when the fetch succeeded and yielded at
// least one usable rate, and the rescaled fallback table otherwise.
func (n *Normalizer) selectTable(base string, outcome FetchOutcome) RateTable {
	if outcome.Err == nil {
		inverted := make(map[string]float64, len(outcome.Rates))
		for code, perBase := range outcome.Rates {
			if !isUsableRate(perBase) {
				n.logger.Debug("Skipping unusable live rate", zap.String("currency", code), zap.Float64("rate", perBase))
				continue
			}
			inverted[code] = 1.0 / perBase
		}
		delete(inverted, base)

		if len(inverted) > 0 {
			table := NewRateTable(base, inverted, SourceLive)
			n.logger.Info("Fetched live exchange rates",
				zap.String("base", table.Base),
				zap.Int("currencies", len(table.Rates)))
			return table
		}
		outcome.Err = fmt.Errorf("live rate response for %s contained no usable rates", base)
	}

	n.logger.Warn("Failed to fetch live exchange rates, using fallback rates",
		zap.String("base", base),
		zap.Error(outcome.Err))
	return n.rescaledFallback(base)
}

func (n *Normalizer) rescaledFallback(base string) RateTable {
	baseRate, ok := n.fallback.Rates[base]
	if !ok {
		n.logger.Warn("Requested base currency missing from fallback rates, keeping fallback base",
			zap.String("requested_base", base),
			zap.String("fallback_base", n.fallback.Base))
		return NewRateTable(n.fallback.Base, n.fallback.Rates, SourceFallback)
	}

	rescaled := make(map[string]float64, len(n.fallback.Rates))
	for code, rate := range n.fallback.Rates {
		rescaled[code] = rate / baseRate
	}
	return NewRateTable(base, rescaled, SourceFallback)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func isUsableRate(rate float64) bool {
	return rate > 0 && !math.IsInf(rate, 0) && !math.IsNaN(rate)
}
