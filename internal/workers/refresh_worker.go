package workers

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"chiron/internal/metrics"
	"chiron/internal/services/analysis"
	"chiron/pkg/errors"
)

// RefreshWorker sweeps every instrument carrying an active bundle and forces
// a recomputation, so staleness is repaired ahead of user traffic instead of
// lazily on first access. Individual instrument failures are logged and
// skipped; the sweep continues.
type RefreshWorker struct {
	*BaseWorker
	service *analysis.Service
	limiter *rate.Limiter
}

// NewRefreshWorker creates the nightly refresh worker. ratePerSecond caps
// recomputations per second so a sweep cannot saturate the data stores.
func NewRefreshWorker(service *analysis.Service, interval time.Duration, ratePerSecond float64, enabled bool) *RefreshWorker {
	if ratePerSecond <= 0 {
		ratePerSecond = 2
	}
	return &RefreshWorker{
		BaseWorker: NewBaseWorker("bundle_refresh", interval, enabled),
		service:    service,
		limiter:    rate.NewLimiter(rate.Limit(ratePerSecond), 1),
	}
}

// Run executes one full refresh sweep
func (w *RefreshWorker) Run(ctx context.Context) error {
	start := time.Now()

	instruments, err := w.service.ListActiveInstruments(ctx)
	if err != nil {
		w.RecordError(err, time.Since(start))
		return errors.Wrap(err, "list active instruments")
	}

	metrics.ActiveBundles.Set(float64(len(instruments)))
	w.Log().Infof("Refreshing %d instruments", len(instruments))

	refreshed := 0
	skipped := 0
	for _, instrumentID := range instruments {
		if err := w.limiter.Wait(ctx); err != nil {
			w.RecordError(err, time.Since(start))
			return err
		}

		_, err := w.service.GetOrCompute(ctx, instrumentID, analysis.Options{Force: true})
		if err != nil {
			skipped++
			switch {
			case errors.Is(err, errors.ErrInsufficientData), errors.Is(err, errors.ErrNoPriceAvailable):
				w.Log().Warnf("Skipping %s: %v", instrumentID, err)
			case ctx.Err() != nil:
				w.RecordError(err, time.Since(start))
				return err
			default:
				w.Log().Errorf("Refresh failed for %s: %v", instrumentID, err)
			}
			continue
		}
		refreshed++
	}

	w.Log().Infow("Refresh sweep completed",
		"refreshed", refreshed,
		"skipped", skipped,
		"duration", time.Since(start),
	)
	w.RecordRun(time.Since(start))
	return nil
}
