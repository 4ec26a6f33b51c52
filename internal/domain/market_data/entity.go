package market_data

import (
	"fmt"
	"math"
	"time"
)

// Granularity is the calendar period one bar covers.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
)

// ParseGranularity maps a config string to a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case GranularityDaily, GranularityWeekly, GranularityMonthly:
		return Granularity(s), nil
	default:
		return "", fmt.Errorf("unknown granularity %q", s)
	}
}

// PeriodKey returns a key identifying the calendar period a date falls in.
// Bars sharing a key are duplicates of the same period.
func (g Granularity) PeriodKey(t time.Time) string {
	switch g {
	case GranularityWeekly:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case GranularityMonthly:
		return t.Format("2006-01")
	default:
		return t.Format("2006-01-02")
	}
}

// PricePoint is one OHLCV bar for a single calendar period.
// Points are immutable once produced by the normalizer.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Valid reports whether the bar satisfies low <= open,close <= high and close > 0.
func (p PricePoint) Valid() bool {
	if p.Close <= 0 || math.IsNaN(p.Close) || math.IsInf(p.Close, 0) {
		return false
	}
	return p.Low <= p.Open && p.Open <= p.High &&
		p.Low <= p.Close && p.Close <= p.High
}

// PriceSeries is an ordered sequence of bars, strictly ascending by date,
// deduplicated to at most one bar per calendar period.
type PriceSeries []PricePoint

// Closes returns close prices in chronological order.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Close
	}
	return out
}

// Highs returns high prices in chronological order.
func (s PriceSeries) Highs() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.High
	}
	return out
}

// Lows returns low prices in chronological order.
func (s PriceSeries) Lows() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Low
	}
	return out
}

// Last returns the most recent bar. Callers must check len(s) > 0 first.
func (s PriceSeries) Last() PricePoint {
	return s[len(s)-1]
}

// Tail returns the trailing n bars (all bars when fewer exist).
func (s PriceSeries) Tail(n int) PriceSeries {
	if n >= len(s) {
		return s
	}
	return s[len(s)-n:]
}

// Quote is the latest known price for an instrument.
type Quote struct {
	Price float64   `json:"price"`
	AsOf  time.Time `json:"as_of"`
}
