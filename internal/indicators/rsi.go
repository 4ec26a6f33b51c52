package indicators

import (
	"chiron/internal/domain/market_data"
	"chiron/internal/domain/technical"
)

// DefaultRSIPeriod is the standard Wilder lookback.
const DefaultRSIPeriod = 14

// RSI computes Wilder's smoothed Relative Strength Index at the latest bar.
// The first average gain/loss is a simple mean over the first period deltas;
// subsequent averages use Wilder smoothing. Returns nil when fewer than
// period+1 points exist.
func RSI(series market_data.PriceSeries, period int) *technical.RSIReading {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	closes := series.Closes()
	if len(closes) < period+1 {
		return nil
	}

	gains := 0.0
	losses := 0.0
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gains += delta
		} else {
			losses += -delta
		}
	}
	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain := 0.0
		loss := 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	rsi := 100.0
	if avgLoss != 0 {
		rs := avgGain / avgLoss
		rsi = 100.0 - (100.0 / (1 + rs))
	}

	return &technical.RSIReading{
		Value:  Round2(rsi),
		Signal: classifyOscillator(rsi, 70, 30),
	}
}

// classifyOscillator maps an oscillator value to a signal using the
// unrounded value, so rounding never flips a classification.
func classifyOscillator(v, overbought, oversold float64) technical.Signal {
	switch {
	case v >= overbought:
		return technical.SignalOverbought
	case v <= oversold:
		return technical.SignalOversold
	default:
		return technical.SignalNeutral
	}
}
