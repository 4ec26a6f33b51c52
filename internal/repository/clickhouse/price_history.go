package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"chiron/internal/domain/market_data"
	"chiron/internal/metrics"
	"chiron/pkg/errors"
)

// Compile-time checks
var (
	_ market_data.PriceHistoryProvider = (*PriceHistoryRepository)(nil)
	_ market_data.CurrentQuoteProvider = (*PriceHistoryRepository)(nil)
)

// PriceHistoryRepository reads OHLCV bars and latest quotes from ClickHouse.
// Bars come back newest-first and possibly sparse; ordering and deduplication
// are the normalizer's job, not this repository's.
type PriceHistoryRepository struct {
	conn driver.Conn
}

// NewPriceHistoryRepository creates a new price history repository
func NewPriceHistoryRepository(conn driver.Conn) *PriceHistoryRepository {
	return &PriceHistoryRepository{conn: conn}
}

// GetBars retrieves up to limit raw bars for one instrument and granularity
func (r *PriceHistoryRepository) GetBars(ctx context.Context, instrumentID string, granularity market_data.Granularity, limit int) ([]market_data.PricePoint, error) {
	started := time.Now()

	query := `
		SELECT period_start, open, high, low, close, volume
		FROM instrument_bars
		WHERE instrument_id = ? AND granularity = ?
		ORDER BY period_start DESC
		LIMIT ?`

	rows, err := r.conn.Query(ctx, query, instrumentID, string(granularity), limit)
	metrics.RecordDBQuery("clickhouse", "get_bars", time.Since(started), err)
	if err != nil {
		return nil, errors.Wrapf(err, "query bars for %s", instrumentID)
	}
	defer rows.Close()

	var points []market_data.PricePoint
	for rows.Next() {
		var p market_data.PricePoint
		if err := rows.Scan(&p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, errors.Wrap(err, "scan bar")
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate bars")
	}

	return points, nil
}

// GetMonthlyBars retrieves up to limit raw monthly bars
func (r *PriceHistoryRepository) GetMonthlyBars(ctx context.Context, instrumentID string, limit int) ([]market_data.PricePoint, error) {
	return r.GetBars(ctx, instrumentID, market_data.GranularityMonthly, limit)
}

// GetLatestPrice returns the most recent quote for the instrument, or nil
// when none exists. Absence of a price is not an error here; the caller
// classifies it.
func (r *PriceHistoryRepository) GetLatestPrice(ctx context.Context, instrumentID string) (*market_data.Quote, error) {
	started := time.Now()

	query := `
		SELECT price, as_of
		FROM instrument_quotes
		WHERE instrument_id = ?
		ORDER BY as_of DESC
		LIMIT 1`

	rows, err := r.conn.Query(ctx, query, instrumentID)
	metrics.RecordDBQuery("clickhouse", "get_latest_price", time.Since(started), err)
	if err != nil {
		return nil, errors.Wrapf(err, "query latest price for %s", instrumentID)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	var q market_data.Quote
	if err := rows.Scan(&q.Price, &q.AsOf); err != nil {
		return nil, errors.Wrap(err, "scan quote")
	}
	return &q, nil
}
