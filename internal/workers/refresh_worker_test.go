package workers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chiron/internal/domain/market_data"
	"chiron/internal/domain/technical"
	"chiron/internal/services/analysis"
	"chiron/pkg/errors"
)

type staticHistory struct {
	bars map[string][]market_data.PricePoint
}

func (s *staticHistory) GetBars(ctx context.Context, instrumentID string, g market_data.Granularity, limit int) ([]market_data.PricePoint, error) {
	return s.bars[instrumentID], nil
}

func (s *staticHistory) GetMonthlyBars(ctx context.Context, instrumentID string, limit int) ([]market_data.PricePoint, error) {
	return s.bars[instrumentID], nil
}

type staticQuotes struct{}

func (staticQuotes) GetLatestPrice(ctx context.Context, instrumentID string) (*market_data.Quote, error) {
	return &market_data.Quote{Price: 100, AsOf: time.Now()}, nil
}

type memoryStore struct {
	active    map[string]*technical.Bundle
	activated []string
}

func (m *memoryStore) FindActive(ctx context.Context, instrumentID string) (*technical.Bundle, error) {
	b, ok := m.active[instrumentID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "no active bundle for %s", instrumentID)
	}
	return b, nil
}

func (m *memoryStore) DeactivateAndActivate(ctx context.Context, instrumentID string, previousID *uuid.UUID, bundle *technical.Bundle) error {
	m.active[instrumentID] = bundle
	m.activated = append(m.activated, instrumentID)
	return nil
}

func (m *memoryStore) ListActiveInstruments(ctx context.Context) ([]string, error) {
	out := make([]string, 0, len(m.active))
	for id := range m.active {
		out = append(out, id)
	}
	return out, nil
}

func flatBars(n int) []market_data.PricePoint {
	start := time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]market_data.PricePoint, 0, n)
	for i := 0; i < n; i++ {
		price := 100 + float64(i%10)
		bars = append(bars, market_data.PricePoint{
			Date:   start.AddDate(0, i, 0),
			Open:   price,
			High:   price + 2,
			Low:    price - 2,
			Close:  price,
			Volume: 5000,
		})
	}
	return bars
}

func TestRefreshWorker_SweepsActiveInstruments(t *testing.T) {
	store := &memoryStore{active: map[string]*technical.Bundle{
		"AAPL": {ID: uuid.New(), InstrumentID: "AAPL", ExpiresAt: time.Now().Add(time.Hour), IsActive: true},
		"MSFT": {ID: uuid.New(), InstrumentID: "MSFT", ExpiresAt: time.Now().Add(time.Hour), IsActive: true},
	}}
	history := &staticHistory{bars: map[string][]market_data.PricePoint{
		"AAPL": flatBars(60),
		"MSFT": flatBars(60),
	}}

	service := analysis.NewService(
		analysis.ServiceConfig{Granularity: market_data.GranularityMonthly},
		history, staticQuotes{}, store, nil, nil,
	)

	worker := NewRefreshWorker(service, 24*time.Hour, 100, true)
	require.NoError(t, worker.Run(context.Background()))

	// Both instruments were force-recomputed despite fresh bundles.
	assert.ElementsMatch(t, []string{"AAPL", "MSFT"}, store.activated)

	health := worker.Health()
	assert.Equal(t, int64(1), health.RunCount)
	assert.Equal(t, int64(0), health.ErrorCount)
}

func TestRefreshWorker_SkipsInsufficientInstruments(t *testing.T) {
	store := &memoryStore{active: map[string]*technical.Bundle{
		"AAPL": {ID: uuid.New(), InstrumentID: "AAPL", ExpiresAt: time.Now().Add(time.Hour), IsActive: true},
		"TINY": {ID: uuid.New(), InstrumentID: "TINY", ExpiresAt: time.Now().Add(time.Hour), IsActive: true},
	}}
	history := &staticHistory{bars: map[string][]market_data.PricePoint{
		"AAPL": flatBars(60),
		"TINY": flatBars(5), // not enough for any indicator
	}}

	service := analysis.NewService(
		analysis.ServiceConfig{Granularity: market_data.GranularityMonthly},
		history, staticQuotes{}, store, nil, nil,
	)

	worker := NewRefreshWorker(service, 24*time.Hour, 100, true)
	require.NoError(t, worker.Run(context.Background()), "sweep continues past bad instruments")

	assert.ElementsMatch(t, []string{"AAPL"}, store.activated)
}
