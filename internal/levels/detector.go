// Package levels detects support/resistance price zones by clustering
// repeatedly-touched highs and lows, plus psychologically round prices near
// the current quote. Every detection starts fresh; stored levels are never
// mutated retroactively.
package levels

import (
	"math"
	"sort"

	"chiron/internal/domain/market_data"
	"chiron/internal/domain/technical"
)

// Detection defaults.
const (
	DefaultLookback  = 20
	DefaultTolerance = 0.015 // cluster band as a fraction of price
)

// Detect clusters the highs and lows of the trailing lookback bars into
// ranked support/resistance zones relative to currentPrice. Levels above the
// current price are resistance, below are support.
func Detect(series market_data.PriceSeries, lookback int, tolerance float64, currentPrice float64) technical.Levels {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	tail := series.Tail(lookback)

	touches := make([]float64, 0, len(tail)*2)
	for _, p := range tail {
		touches = append(touches, p.High, p.Low)
	}

	var support, resistance []technical.Level
	for _, c := range cluster(touches, tolerance) {
		kind := technical.LevelSupport
		if c.price > currentPrice {
			kind = technical.LevelResistance
		}
		lvl := technical.Level{
			Price:    round4(c.price),
			Strength: c.touches,
			Kind:     kind,
			Touches:  c.touches,
		}
		if kind == technical.LevelSupport {
			support = append(support, lvl)
		} else {
			resistance = append(resistance, lvl)
		}
	}

	rank(support)
	rank(resistance)

	return technical.Levels{
		Support:       support,
		Resistance:    resistance,
		Psychological: psychologicalLevels(currentPrice),
	}
}

type priceCluster struct {
	price   float64
	touches int
}

// cluster greedily groups sorted prices whose spread stays within the
// tolerance band of the cluster mean.
func cluster(prices []float64, tolerance float64) []priceCluster {
	if len(prices) == 0 {
		return nil
	}
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)

	var clusters []priceCluster
	sum := sorted[0]
	count := 1
	for _, p := range sorted[1:] {
		center := sum / float64(count)
		if p-center <= center*tolerance {
			sum += p
			count++
			continue
		}
		clusters = append(clusters, priceCluster{price: sum / float64(count), touches: count})
		sum = p
		count = 1
	}
	clusters = append(clusters, priceCluster{price: sum / float64(count), touches: count})
	return clusters
}

func rank(levels []technical.Level) {
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Strength > levels[j].Strength
	})
}

// psychologicalLevels returns the round prices bracketing the current price.
// The rounding step scales with price magnitude: 5 under 100, 10 under 1000,
// 50 under 10000, 100 above.
func psychologicalLevels(currentPrice float64) []technical.Level {
	if currentPrice <= 0 {
		return nil
	}

	step := 100.0
	switch {
	case currentPrice < 100:
		step = 5
	case currentPrice < 1000:
		step = 10
	case currentPrice < 10000:
		step = 50
	}

	below := math.Floor(currentPrice/step) * step
	var out []technical.Level
	for _, price := range []float64{below - step, below, below + step, below + 2*step} {
		if price <= 0 || price == currentPrice {
			continue
		}
		out = append(out, technical.Level{
			Price:    round4(price),
			Strength: 1,
			Kind:     technical.LevelPsychological,
			Touches:  0,
		})
	}
	return out
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
