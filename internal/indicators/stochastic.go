package indicators

import (
	"chiron/internal/domain/market_data"
	"chiron/internal/domain/technical"
)

// Default Stochastic Oscillator periods.
const (
	DefaultStochasticK = 14
	DefaultStochasticD = 3
)

// Stochastic computes the oscillator at the latest bar: %K over the trailing
// kPeriod window and %D as the simple moving average of the last dPeriod %K
// values. Returns nil when fewer than kPeriod points exist or the measured
// window has zero range.
func Stochastic(series market_data.PriceSeries, kPeriod, dPeriod int) *technical.StochasticReading {
	if kPeriod <= 0 {
		kPeriod = DefaultStochasticK
	}
	if dPeriod <= 0 {
		dPeriod = DefaultStochasticD
	}
	if len(series) < kPeriod {
		return nil
	}

	// %K for every bar that has a full trailing window, newest last.
	kValues := make([]float64, 0, len(series)-kPeriod+1)
	for end := kPeriod; end <= len(series); end++ {
		window := series[end-kPeriod : end]
		k, ok := percentK(window)
		if !ok {
			continue
		}
		kValues = append(kValues, k)
	}
	if len(kValues) == 0 {
		return nil
	}

	k := kValues[len(kValues)-1]
	dWindow := kValues
	if len(dWindow) > dPeriod {
		dWindow = dWindow[len(dWindow)-dPeriod:]
	}
	d := mean(dWindow)

	signal := technical.SignalNeutral
	if k >= 80 && d >= 80 {
		signal = technical.SignalOverbought
	} else if k <= 20 && d <= 20 {
		signal = technical.SignalOversold
	}

	return &technical.StochasticReading{
		K:      Round2(k),
		D:      Round2(d),
		Signal: signal,
	}
}

func percentK(window market_data.PriceSeries) (float64, bool) {
	lowest := window[0].Low
	highest := window[0].High
	for _, p := range window {
		if p.Low < lowest {
			lowest = p.Low
		}
		if p.High > highest {
			highest = p.High
		}
	}
	if highest == lowest {
		return 0, false
	}
	close := window[len(window)-1].Close
	return (close - lowest) / (highest - lowest) * 100, true
}
