package market_data

import (
	"context"
)

// PriceHistoryProvider supplies raw bars for one instrument.
// Bars may arrive in any order and may be sparse; the engine normalizes them.
type PriceHistoryProvider interface {
	// GetBars returns up to limit raw bars for the instrument at the given granularity.
	GetBars(ctx context.Context, instrumentID string, granularity Granularity, limit int) ([]PricePoint, error)

	// GetMonthlyBars returns up to limit raw monthly bars.
	GetMonthlyBars(ctx context.Context, instrumentID string, limit int) ([]PricePoint, error)
}

// CurrentQuoteProvider supplies the latest traded price.
// A nil quote with nil error means no price is currently obtainable.
type CurrentQuoteProvider interface {
	GetLatestPrice(ctx context.Context, instrumentID string) (*Quote, error)
}
