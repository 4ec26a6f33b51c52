package indicators

import (
	"math"

	"chiron/internal/domain/market_data"
)

// Round4 rounds price-like values to 4 decimal places for display stability.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// Round2 rounds oscillator percentages to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// populationStdDev is the uncorrected standard deviation (divide by N).
func populationStdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	sum := 0.0
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

// midpoint returns (highest high + lowest low) / 2 over the trailing n bars.
func midpoint(s market_data.PriceSeries, n int) float64 {
	tail := s.Tail(n)
	if len(tail) == 0 {
		return 0
	}
	highest := tail[0].High
	lowest := tail[0].Low
	for _, p := range tail {
		if p.High > highest {
			highest = p.High
		}
		if p.Low < lowest {
			lowest = p.Low
		}
	}
	return (highest + lowest) / 2
}
