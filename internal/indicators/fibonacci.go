package indicators

import (
	"chiron/internal/domain/market_data"
	"chiron/internal/domain/technical"
)

// DefaultFibonacciBars is the trailing window the retracement is measured
// over, expressed in bars of the configured granularity (12 months for the
// monthly default).
const DefaultFibonacciBars = 12

// Fibonacci computes retracement levels over the trailing window:
// level = high - (high-low) * ratio. Returns nil when fewer than 2 points
// exist or the window has zero range.
func Fibonacci(series market_data.PriceSeries, periodBars int) *technical.FibonacciReading {
	if periodBars <= 0 {
		periodBars = DefaultFibonacciBars
	}

	tail := series.Tail(periodBars)
	if len(tail) < 2 {
		return nil
	}

	high := tail[0].High
	low := tail[0].Low
	for _, p := range tail {
		if p.High > high {
			high = p.High
		}
		if p.Low < low {
			low = p.Low
		}
	}
	if high == low {
		return nil
	}

	diff := high - low
	return &technical.FibonacciReading{
		High:   Round4(high),
		Low:    Round4(low),
		Fib236: Round4(high - diff*0.236),
		Fib382: Round4(high - diff*0.382),
		Fib500: Round4(high - diff*0.5),
		Fib618: Round4(high - diff*0.618),
		Fib786: Round4(high - diff*0.786),
	}
}
