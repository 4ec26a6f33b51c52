package indicators

import (
	"chiron/internal/domain/market_data"
	"chiron/internal/domain/technical"
)

// SMA is the simple average of the last period closes. When fewer points
// exist all of them are used; with no data at all the result is 0.
func SMA(series market_data.PriceSeries, period int) float64 {
	tail := series.Tail(period)
	if len(tail) == 0 {
		return 0
	}
	return mean(tail.Closes())
}

// EMA runs the exponential recursion over the last period closes, seeded with
// the oldest close in that window. Same fallback behavior as SMA.
func EMA(series market_data.PriceSeries, period int) float64 {
	tail := series.Tail(period)
	if len(tail) == 0 {
		return 0
	}
	closes := tail.Closes()
	multiplier := 2.0 / (float64(period) + 1)
	ema := closes[0]
	for i := 1; i < len(closes); i++ {
		ema = (closes[i]-ema)*multiplier + ema
	}
	return ema
}

// emaSeries computes the full EMA sequence over values with an SMA seed.
// Index period-1 holds the first defined value; earlier slots are zero and
// must not be read. Returns nil when fewer than period values exist.
func emaSeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	out := make([]float64, len(values))
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	out[period-1] = sum / float64(period)

	multiplier := 2.0 / (float64(period) + 1)
	for i := period; i < len(values); i++ {
		out[i] = (values[i]-out[i-1])*multiplier + out[i-1]
	}
	return out
}

// MovingAverages computes the standard SMA/EMA battery over the tail of the
// series. Values are 0 only when literally no data exists.
func MovingAverages(series market_data.PriceSeries) *technical.MovingAverageReading {
	if len(series) == 0 {
		return nil
	}
	return &technical.MovingAverageReading{
		SMA20:  Round4(SMA(series, 20)),
		SMA50:  Round4(SMA(series, 50)),
		SMA200: Round4(SMA(series, 200)),
		EMA12:  Round4(EMA(series, 12)),
		EMA26:  Round4(EMA(series, 26)),
	}
}
