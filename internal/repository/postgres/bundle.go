package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"chiron/internal/domain/market_data"
	"chiron/internal/domain/technical"
	"chiron/internal/metrics"
	"chiron/pkg/errors"
)

// Compile-time check
var _ technical.BundleStore = (*BundleRepository)(nil)

// BundleRepository implements technical.BundleStore using sqlx. Readings,
// levels and the target band are stored as JSONB; superseded bundles stay in
// the table as inactive rows.
type BundleRepository struct {
	db *sqlx.DB // transaction opener for DeactivateAndActivate
	q  DBTX     // read paths
}

// NewBundleRepository creates a new bundle repository
func NewBundleRepository(db *sqlx.DB) *BundleRepository {
	return &BundleRepository{db: db, q: db}
}

type bundleRow struct {
	ID           uuid.UUID       `db:"id"`
	InstrumentID string          `db:"instrument_id"`
	Granularity  string          `db:"granularity"`
	Readings     []byte          `db:"readings"`
	Levels       []byte          `db:"levels"`
	Signal       string          `db:"signal"`
	Target       []byte          `db:"target"`
	CurrentPrice decimal.Decimal `db:"current_price"`
	CalculatedAt time.Time       `db:"calculated_at"`
	ExpiresAt    time.Time       `db:"expires_at"`
	IsActive     bool            `db:"is_active"`
}

func toRow(b *technical.Bundle) (*bundleRow, error) {
	readings, err := json.Marshal(b.Readings)
	if err != nil {
		return nil, errors.Wrap(err, "marshal readings")
	}
	levelsJSON, err := json.Marshal(b.Levels)
	if err != nil {
		return nil, errors.Wrap(err, "marshal levels")
	}
	target, err := json.Marshal(b.Target)
	if err != nil {
		return nil, errors.Wrap(err, "marshal target")
	}

	return &bundleRow{
		ID:           b.ID,
		InstrumentID: b.InstrumentID,
		Granularity:  string(b.Granularity),
		Readings:     readings,
		Levels:       levelsJSON,
		Signal:       string(b.Signal),
		Target:       target,
		CurrentPrice: b.CurrentPrice,
		CalculatedAt: b.CalculatedAt,
		ExpiresAt:    b.ExpiresAt,
		IsActive:     b.IsActive,
	}, nil
}

func (r *bundleRow) toDomain() (*technical.Bundle, error) {
	b := &technical.Bundle{
		ID:           r.ID,
		InstrumentID: r.InstrumentID,
		Granularity:  market_data.Granularity(r.Granularity),
		Signal:       technical.Signal(r.Signal),
		CurrentPrice: r.CurrentPrice,
		CalculatedAt: r.CalculatedAt,
		ExpiresAt:    r.ExpiresAt,
		IsActive:     r.IsActive,
	}

	if err := json.Unmarshal(r.Readings, &b.Readings); err != nil {
		return nil, errors.Wrap(err, "unmarshal readings")
	}
	if err := json.Unmarshal(r.Levels, &b.Levels); err != nil {
		return nil, errors.Wrap(err, "unmarshal levels")
	}
	if err := json.Unmarshal(r.Target, &b.Target); err != nil {
		return nil, errors.Wrap(err, "unmarshal target")
	}

	return b, nil
}

// FindActive retrieves the active bundle for an instrument
func (r *BundleRepository) FindActive(ctx context.Context, instrumentID string) (*technical.Bundle, error) {
	started := time.Now()

	var row bundleRow
	query := `
		SELECT id, instrument_id, granularity, readings, levels, signal, target,
		       current_price, calculated_at, expires_at, is_active
		FROM technical_bundles
		WHERE instrument_id = $1 AND is_active = true`

	err := r.q.GetContext(ctx, &row, query, instrumentID)
	metrics.RecordDBQuery("postgres", "bundle_find_active", time.Since(started), err)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "no active bundle for %s", instrumentID)
	}
	if err != nil {
		return nil, err
	}

	return row.toDomain()
}

// DeactivateAndActivate flips the previous active bundle to inactive and
// inserts the new bundle as active within one transaction. All active rows
// for the instrument are deactivated, not just previousID, so a lost race
// between concurrent recomputations still leaves exactly one active bundle.
func (r *BundleRepository) DeactivateAndActivate(ctx context.Context, instrumentID string, previousID *uuid.UUID, bundle *technical.Bundle) error {
	row, err := toRow(bundle)
	if err != nil {
		return err
	}

	started := time.Now()
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin bundle transaction")
	}
	defer tx.Rollback()

	deactivate := `
		UPDATE technical_bundles
		SET is_active = false
		WHERE instrument_id = $1 AND is_active = true`
	if _, err := tx.ExecContext(ctx, deactivate, instrumentID); err != nil {
		return errors.Wrap(err, "deactivate previous bundle")
	}

	insert := `
		INSERT INTO technical_bundles (
			id, instrument_id, granularity, readings, levels, signal, target,
			current_price, calculated_at, expires_at, is_active
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)`
	_, err = tx.ExecContext(ctx, insert,
		row.ID, row.InstrumentID, row.Granularity,
		row.Readings, row.Levels, row.Signal, row.Target,
		row.CurrentPrice, row.CalculatedAt, row.ExpiresAt, row.IsActive,
	)
	if err != nil {
		return errors.Wrap(err, "insert new bundle")
	}

	err = tx.Commit()
	metrics.RecordDBQuery("postgres", "bundle_activate", time.Since(started), err)
	return err
}

// ListActiveInstruments returns every instrument carrying an active bundle
func (r *BundleRepository) ListActiveInstruments(ctx context.Context) ([]string, error) {
	started := time.Now()

	var instruments []string
	query := `
		SELECT instrument_id FROM technical_bundles
		WHERE is_active = true
		ORDER BY instrument_id`

	err := r.q.SelectContext(ctx, &instruments, query)
	metrics.RecordDBQuery("postgres", "bundle_list_active", time.Since(started), err)
	if err != nil {
		return nil, err
	}

	return instruments, nil
}

// CountActive returns the number of active bundles, feeding the gauge
// exported by the metrics package.
func (r *BundleRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM technical_bundles WHERE is_active = true`
	if err := r.q.GetContext(ctx, &count, query); err != nil {
		return 0, err
	}
	return count, nil
}
