package currency

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const largeRatioThreshold = 10.0

// ConversionResult describes one conversion attempt. When Success is false
// ConvertedAmount still holds a usable value (the original amount) and Note
// says why the conversion did not happen.
type ConversionResult struct {
	OriginalAmount   float64
	OriginalCurrency string
	ConvertedAmount  float64
	TargetCurrency   string
	Rate             float64
	Success          bool
	Note             string
}

// Convert converts amount from one currency to another using table.
// The checks run in a fixed order: zero amount, missing codes, same
// currency, unknown source currency, then the direct or cross-rate path
// depending on whether to is the table's base.
func (n *Normalizer) Convert(amount float64, from, to string, table RateTable) ConversionResult {
	res := ConversionResult{
		OriginalAmount:   amount,
		OriginalCurrency: from,
		ConvertedAmount:  amount,
		TargetCurrency:   to,
	}

	if amount == 0 {
		res.ConvertedAmount = 0
		res.Rate = 1.0
		res.Success = true
		res.Note = "zero amount"
		return res
	}

	from, to = normalizeCode(from), normalizeCode(to)
	if from == "" || to == "" {
		res.Note = "missing currency information"
		return res
	}
	res.OriginalCurrency, res.TargetCurrency = from, to

	if from == to {
		res.Rate = 1.0
		res.Success = true
		res.Note = "same currency"
		return res
	}

	fromRate, ok := table.Rates[from]
	if !ok {
		res.Note = fmt.Sprintf("conversion rate not available for %s", from)
		return res
	}

	rate := fromRate
	path := fmt.Sprintf("direct to base %s", table.Base)
	if to != table.Base {
		toRate, ok := table.Rates[to]
		if !ok {
			res.Note = fmt.Sprintf("conversion rate not available for %s", to)
			return res
		}
		rate = fromRate / toRate
		path = fmt.Sprintf("cross rate via base %s", table.Base)
	}

	if !isFinite(amount) || !isFinite(rate) || rate == 0 {
		res.Note = fmt.Sprintf("conversion calculation error: cannot apply rate %v to amount %v", rate, amount)
		return res
	}

	converted := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(rate)).Round(2)
	res.ConvertedAmount = converted.InexactFloat64()
	res.Rate = decimal.NewFromFloat(rate).Round(6).InexactFloat64()
	if !isFinite(res.ConvertedAmount) {
		res.ConvertedAmount = amount
		res.Rate = 0
		res.Note = "conversion calculation error: result out of range"
		return res
	}

	res.Success = true
	res.Note = fmt.Sprintf("converted via %s rates (%s)", table.Source, path)

	switch {
	case rate > largeRatioThreshold:
		n.logger.Warn("Large conversion ratio",
			zap.String("from", from),
			zap.String("to", to),
			zap.Float64("amount", amount),
			zap.Float64("converted", res.ConvertedAmount),
			zap.Float64("rate", rate))
	case rate < 1/largeRatioThreshold:
		n.logger.Debug("Small conversion ratio",
			zap.String("from", from),
			zap.String("to", to),
			zap.Float64("rate", rate))
	}

	n.logger.Debug("Converted amount",
		zap.String("from", from),
		zap.String("to", to),
		zap.Float64("amount", amount),
		zap.Float64("converted", res.ConvertedAmount),
		zap.Float64("rate", res.Rate))
	return res
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
