package indicators

import (
	"chiron/internal/domain/market_data"
	"chiron/internal/domain/technical"
)

// Default Bollinger parameters.
const (
	DefaultBollingerPeriod = 20
	DefaultBollingerStdDev = 2.0
)

// Bollinger computes the band set over the last period closes: middle is the
// SMA, the half-width is stdDevMult times the population standard deviation
// of the same window. When fewer than period points exist the available tail
// is used; returns nil below 2 points.
func Bollinger(series market_data.PriceSeries, period int, stdDevMult float64) *technical.BollingerReading {
	if period <= 0 {
		period = DefaultBollingerPeriod
	}
	if stdDevMult <= 0 {
		stdDevMult = DefaultBollingerStdDev
	}

	tail := series.Tail(period)
	if len(tail) < 2 {
		return nil
	}

	closes := tail.Closes()
	middle := mean(closes)
	halfWidth := stdDevMult * populationStdDev(closes)
	upper := middle + halfWidth
	lower := middle - halfWidth

	return &technical.BollingerReading{
		Upper:  Round4(upper),
		Middle: Round4(middle),
		Lower:  Round4(lower),
		Width:  Round4(upper - lower),
	}
}
