package indicators

import (
	"sort"

	"chiron/internal/domain/market_data"
	"chiron/pkg/errors"
)

// DefaultMinBars is the longest lookback any indicator needs (Ichimoku's 52
// rounded down to the usable floor the engine enforces).
const DefaultMinBars = 50

// Normalize cleans raw upstream bars into a PriceSeries satisfying the
// domain invariants: valid closes only, at most one bar per calendar period,
// strictly ascending dates. It is a pure function over its input.
//
// Returns errors.ErrInsufficientData when fewer than minBars usable bars remain.
func Normalize(raw []market_data.PricePoint, g market_data.Granularity, minBars int) (market_data.PriceSeries, error) {
	if minBars <= 0 {
		minBars = DefaultMinBars
	}

	// Keep the chronologically latest bar per calendar period.
	byPeriod := make(map[string]market_data.PricePoint, len(raw))
	for _, bar := range raw {
		p, ok := sanitize(bar)
		if !ok {
			continue
		}
		key := g.PeriodKey(p.Date)
		if prev, exists := byPeriod[key]; !exists || p.Date.After(prev.Date) {
			byPeriod[key] = p
		}
	}

	series := make(market_data.PriceSeries, 0, len(byPeriod))
	for _, p := range byPeriod {
		series = append(series, p)
	}
	sort.Slice(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})

	if len(series) < minBars {
		return nil, errors.Wrapf(errors.ErrInsufficientData,
			"normalize: %d usable bars, need %d", len(series), minBars)
	}

	return series, nil
}

// sanitize drops bars with unusable closes and repairs zero open/high/low
// fields, which monthly aggregates commonly ship. High and low are widened
// so the low <= open,close <= high invariant always holds afterward.
func sanitize(p market_data.PricePoint) (market_data.PricePoint, bool) {
	if p.Close <= 0 || p.Close != p.Close { // NaN check
		return p, false
	}

	if p.Open <= 0 {
		p.Open = p.Close
	}
	if p.High <= 0 {
		p.High = p.Close
	}
	if p.Low <= 0 {
		p.Low = p.Close
	}

	if p.Open > p.High {
		p.High = p.Open
	}
	if p.Close > p.High {
		p.High = p.Close
	}
	if p.Open < p.Low {
		p.Low = p.Open
	}
	if p.Close < p.Low {
		p.Low = p.Close
	}

	return p, p.Valid()
}
