// Package analysis runs the full technical-analysis pipeline: it normalizes
// raw bars, computes the indicator battery and level map, aggregates them
// into one overall signal and a price target, and manages the lifecycle of
// the persisted bundle.
package analysis

import (
	"chiron/internal/domain/technical"
)

// votesRequired is the minimum agreeing votes for a non-neutral aggregate.
const votesRequired = 2

// Aggregate folds the indicator battery into one overall signal by majority
// vote. OVERSOLD is the net buy outcome, OVERBOUGHT the net sell outcome.
// RSI and Stochastic must both be present; without them the answer is
// NEUTRAL regardless of what the remaining indicators say.
func Aggregate(r technical.Readings, currentPrice float64) technical.Signal {
	if r.RSI == nil || r.Stochastic == nil {
		return technical.SignalNeutral
	}

	buy, sell := 0, 0

	vote := func(s technical.Signal) {
		switch s {
		case technical.SignalOversold:
			buy++
		case technical.SignalOverbought:
			sell++
		}
	}
	vote(r.RSI.Signal)
	vote(r.Stochastic.Signal)

	// MACD votes on line-vs-signal position; a flat histogram abstains.
	if m := r.MACD; m != nil {
		if m.Histogram > 0 && m.MACD > m.Signal {
			buy++
		} else if m.Histogram < 0 && m.MACD < m.Signal {
			sell++
		}
	}

	// Bollinger votes when price escapes the band.
	if b := r.Bollinger; b != nil && currentPrice > 0 {
		if currentPrice < b.Lower {
			buy++
		} else if currentPrice > b.Upper {
			sell++
		}
	}

	switch {
	case buy >= votesRequired:
		return technical.SignalOversold
	case sell >= votesRequired:
		return technical.SignalOverbought
	default:
		return technical.SignalNeutral
	}
}
