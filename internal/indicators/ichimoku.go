package indicators

import (
	"chiron/internal/domain/market_data"
	"chiron/internal/domain/technical"
)

// Ichimoku lookback horizons.
const (
	ichimokuTenkan  = 9
	ichimokuKijun   = 26
	ichimokuSenkouB = 52
)

// Ichimoku computes the cloud components at the latest bar. The indicator
// needs 52 points to be meaningful at all; below that it returns nil.
// Senkou spans default to 0 when their own lookback is not yet covered.
func Ichimoku(series market_data.PriceSeries) *technical.IchimokuReading {
	if len(series) < ichimokuSenkouB {
		return nil
	}

	tenkan := midpoint(series, ichimokuTenkan)
	kijun := midpoint(series, ichimokuKijun)

	senkouA := 0.0
	if len(series) >= ichimokuKijun {
		senkouA = (tenkan + kijun) / 2
	}

	senkouB := 0.0
	if len(series) >= ichimokuSenkouB {
		senkouB = midpoint(series, ichimokuSenkouB)
	}

	return &technical.IchimokuReading{
		TenkanSen:   Round4(tenkan),
		KijunSen:    Round4(kijun),
		SenkouSpanA: Round4(senkouA),
		SenkouSpanB: Round4(senkouB),
		ChikouSpan:  Round4(series.Last().Close),
	}
}
