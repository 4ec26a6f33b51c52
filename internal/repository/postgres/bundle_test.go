package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chiron/internal/domain/market_data"
	"chiron/internal/domain/technical"
	"chiron/internal/testsupport"
	"chiron/pkg/errors"
)

func testBundle(instrumentID string) *technical.Bundle {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &technical.Bundle{
		ID:           uuid.New(),
		InstrumentID: instrumentID,
		Granularity:  market_data.GranularityMonthly,
		Readings: technical.Readings{
			RSI:  &technical.RSIReading{Value: 28.5, Signal: technical.SignalOversold},
			MACD: &technical.MACDReading{MACD: -1.2, Signal: -0.8, Histogram: -0.4},
		},
		Levels: technical.Levels{
			Support: []technical.Level{
				{Price: 95, Strength: 4, Kind: technical.LevelSupport, Touches: 4},
			},
		},
		Signal: technical.SignalOversold,
		Target: technical.PriceTarget{
			MinPrice:    decimal.NewFromFloat(88),
			MaxPrice:    decimal.NewFromFloat(112),
			FairEntry:   decimal.NewFromFloat(98),
			Confidence:  62.5,
			Explanation: "looks washed out",
		},
		CurrentPrice: decimal.NewFromFloat(100.25),
		CalculatedAt: now,
		ExpiresAt:    now.Add(30 * 24 * time.Hour),
		IsActive:     true,
	}
}

func cleanupBundles(t *testing.T, repo *BundleRepository, instrumentID string) {
	t.Cleanup(func() {
		_, _ = repo.db.ExecContext(context.Background(),
			`DELETE FROM technical_bundles WHERE instrument_id = $1`, instrumentID)
	})
}

// stubDBTX scripts read-path results without a live database.
type stubDBTX struct {
	getErr      error
	instruments []string
}

func (s *stubDBTX) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

func (s *stubDBTX) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return nil, nil
}

func (s *stubDBTX) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return nil
}

func (s *stubDBTX) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	return s.getErr
}

func (s *stubDBTX) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	if out, ok := dest.(*[]string); ok {
		*out = append(*out, s.instruments...)
	}
	return nil
}

func (s *stubDBTX) NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error) {
	return nil, nil
}

func TestBundleRepository_FindActiveMapsNoRows(t *testing.T) {
	repo := &BundleRepository{q: &stubDBTX{getErr: sql.ErrNoRows}}

	_, err := repo.FindActive(context.Background(), "AAPL")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestBundleRepository_ReadsGoThroughQuerier(t *testing.T) {
	repo := &BundleRepository{q: &stubDBTX{instruments: []string{"AAPL", "MSFT"}}}

	instruments, err := repo.ListActiveInstruments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, instruments)
}

func TestBundleRepository_ActivateAndFind(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	repo := NewBundleRepository(testDB.Client().DB())
	ctx := context.Background()

	instrumentID := "it-" + uuid.NewString()
	cleanupBundles(t, repo, instrumentID)

	bundle := testBundle(instrumentID)
	require.NoError(t, repo.DeactivateAndActivate(ctx, instrumentID, nil, bundle))

	found, err := repo.FindActive(ctx, instrumentID)
	require.NoError(t, err)

	assert.Equal(t, bundle.ID, found.ID)
	assert.Equal(t, bundle.Signal, found.Signal)
	assert.True(t, found.IsActive)
	require.NotNil(t, found.Readings.RSI)
	assert.Equal(t, 28.5, found.Readings.RSI.Value)
	assert.Equal(t, "looks washed out", found.Target.Explanation)
	assert.True(t, bundle.CurrentPrice.Equal(found.CurrentPrice))
}

func TestBundleRepository_FindActiveNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	repo := NewBundleRepository(testDB.Client().DB())

	_, err := repo.FindActive(context.Background(), "it-"+uuid.NewString())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestBundleRepository_SupersedesPrevious(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	repo := NewBundleRepository(testDB.Client().DB())
	ctx := context.Background()

	instrumentID := "it-" + uuid.NewString()
	cleanupBundles(t, repo, instrumentID)

	first := testBundle(instrumentID)
	require.NoError(t, repo.DeactivateAndActivate(ctx, instrumentID, nil, first))

	second := testBundle(instrumentID)
	require.NoError(t, repo.DeactivateAndActivate(ctx, instrumentID, &first.ID, second))

	found, err := repo.FindActive(ctx, instrumentID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, found.ID)

	// Exactly one active row may remain; the first is kept for history.
	var total, active int
	require.NoError(t, repo.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM technical_bundles WHERE instrument_id = $1`, instrumentID))
	require.NoError(t, repo.db.GetContext(ctx, &active,
		`SELECT COUNT(*) FROM technical_bundles WHERE instrument_id = $1 AND is_active = true`, instrumentID))
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, active)
}

func TestBundleRepository_ListActiveInstruments(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	testDB := testsupport.NewTestPostgres(t)
	repo := NewBundleRepository(testDB.Client().DB())
	ctx := context.Background()

	instrumentID := "it-" + uuid.NewString()
	cleanupBundles(t, repo, instrumentID)

	require.NoError(t, repo.DeactivateAndActivate(ctx, instrumentID, nil, testBundle(instrumentID)))

	instruments, err := repo.ListActiveInstruments(ctx)
	require.NoError(t, err)
	assert.Contains(t, instruments, instrumentID)
}
