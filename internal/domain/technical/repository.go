package technical

import (
	"context"

	"github.com/google/uuid"
)

// BundleStore persists analysis bundles.
type BundleStore interface {
	// FindActive returns the active bundle for the instrument,
	// or errors.ErrNotFound when none exists.
	FindActive(ctx context.Context, instrumentID string) (*Bundle, error)

	// DeactivateAndActivate flips the previous active bundle (when previousID
	// is non-nil) to inactive and inserts the new bundle as active, in one
	// transaction. No state may be left with two active bundles or none
	// persisted after a reported success.
	DeactivateAndActivate(ctx context.Context, instrumentID string, previousID *uuid.UUID, bundle *Bundle) error

	// ListActiveInstruments returns every instrument that carries an active bundle.
	ListActiveInstruments(ctx context.Context) ([]string, error)
}

// NarrativeAnnotator turns a technical picture into human-readable prose.
// It is best-effort and never authoritative over numeric outputs.
type NarrativeAnnotator interface {
	Explain(ctx context.Context, nc NarrativeContext) (*Annotation, error)
}
