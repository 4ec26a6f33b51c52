package indicators

import (
	"chiron/internal/domain/market_data"
	"chiron/internal/domain/technical"
)

// Default MACD periods.
const (
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// MACD computes the latest MACD line, signal line and histogram. The MACD
// line is EMA(fast) - EMA(slow) aligned on the slow EMA's start index; the
// signal line is an EMA of the MACD line itself. Returns nil when fewer than
// slow+signal points exist.
func MACD(series market_data.PriceSeries, fast, slow, signalPeriod int) *technical.MACDReading {
	if fast <= 0 {
		fast = DefaultMACDFast
	}
	if slow <= 0 {
		slow = DefaultMACDSlow
	}
	if signalPeriod <= 0 {
		signalPeriod = DefaultMACDSignal
	}

	closes := series.Closes()
	if len(closes) < slow+signalPeriod {
		return nil
	}

	emaFast := emaSeries(closes, fast)
	emaSlow := emaSeries(closes, slow)
	if emaFast == nil || emaSlow == nil {
		return nil
	}

	// MACD line exists from the slow EMA's first defined index onward.
	macdLine := make([]float64, 0, len(closes)-slow+1)
	for i := slow - 1; i < len(closes); i++ {
		macdLine = append(macdLine, emaFast[i]-emaSlow[i])
	}

	signalSeries := emaSeries(macdLine, signalPeriod)
	if signalSeries == nil {
		return nil
	}

	macd := macdLine[len(macdLine)-1]
	signal := signalSeries[len(signalSeries)-1]

	return &technical.MACDReading{
		MACD:      Round4(macd),
		Signal:    Round4(signal),
		Histogram: Round4(macd - signal),
	}
}

// MACDHistogramSeries returns the histogram for every bar where it is
// defined, oldest first. Used to locate crossovers.
func MACDHistogramSeries(series market_data.PriceSeries, fast, slow, signalPeriod int) []float64 {
	closes := series.Closes()
	if len(closes) < slow+signalPeriod {
		return nil
	}

	emaFast := emaSeries(closes, fast)
	emaSlow := emaSeries(closes, slow)

	macdLine := make([]float64, 0, len(closes)-slow+1)
	for i := slow - 1; i < len(closes); i++ {
		macdLine = append(macdLine, emaFast[i]-emaSlow[i])
	}

	signalSeries := emaSeries(macdLine, signalPeriod)
	hist := make([]float64, 0, len(macdLine)-signalPeriod+1)
	for i := signalPeriod - 1; i < len(macdLine); i++ {
		hist = append(hist, macdLine[i]-signalSeries[i])
	}
	return hist
}
