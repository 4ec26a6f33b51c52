package analysis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"chiron/internal/adapters/config"
	"chiron/internal/domain/market_data"
	"chiron/internal/domain/technical"
	"chiron/internal/indicators"
	"chiron/internal/levels"
	"chiron/internal/metrics"
	"chiron/pkg/errors"
	"chiron/pkg/logger"
)

// DefaultBundleTTL keeps a bundle servable for 30 days after computation.
const DefaultBundleTTL = 30 * 24 * time.Hour

// ServiceConfig tunes the analysis pipeline.
type ServiceConfig struct {
	Granularity    market_data.Granularity
	MinBars        int
	HistoryLimit   int
	BundleTTL      time.Duration
	FibonacciBars  int
	LevelLookback  int
	LevelTolerance float64
}

// ServiceConfigFrom maps the env-driven analysis section into a ServiceConfig.
func ServiceConfigFrom(cfg config.AnalysisConfig) (ServiceConfig, error) {
	g, err := market_data.ParseGranularity(cfg.Granularity)
	if err != nil {
		return ServiceConfig{}, errors.Wrap(err, "analysis config")
	}
	return ServiceConfig{
		Granularity:    g,
		MinBars:        cfg.MinBars,
		HistoryLimit:   cfg.HistoryLimit,
		BundleTTL:      cfg.BundleTTL,
		FibonacciBars:  cfg.FibonacciBars,
		LevelLookback:  cfg.LevelLookback,
		LevelTolerance: cfg.LevelTolerance,
	}, nil
}

func (c *ServiceConfig) applyDefaults() {
	if c.Granularity == "" {
		c.Granularity = market_data.GranularityMonthly
	}
	if c.MinBars <= 0 {
		c.MinBars = indicators.DefaultMinBars
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 240
	}
	if c.BundleTTL <= 0 {
		c.BundleTTL = DefaultBundleTTL
	}
	if c.FibonacciBars <= 0 {
		c.FibonacciBars = indicators.DefaultFibonacciBars
	}
	if c.LevelLookback <= 0 {
		c.LevelLookback = levels.DefaultLookback
	}
	if c.LevelTolerance <= 0 {
		c.LevelTolerance = levels.DefaultTolerance
	}
}

// Options controls one GetOrCompute invocation.
type Options struct {
	// Force skips freshness checks and always recomputes.
	Force bool
}

// Service is the cache/lifecycle manager: it serves a fresh active bundle
// when one exists and otherwise runs the full pipeline and atomically
// supersedes the previous bundle. Stateless between calls; safe for
// concurrent use across instruments and, at the cost of duplicated work,
// for the same instrument.
type Service struct {
	cfg       ServiceConfig
	history   market_data.PriceHistoryProvider
	quotes    market_data.CurrentQuoteProvider
	store     technical.BundleStore
	cache     *BundleCache
	estimator *TargetEstimator
	log       *logger.Logger
}

// NewService wires the pipeline. cache may be nil (no fast path) and the
// estimator's annotator may be nil (fallback explanations only).
func NewService(
	cfg ServiceConfig,
	history market_data.PriceHistoryProvider,
	quotes market_data.CurrentQuoteProvider,
	store technical.BundleStore,
	cache *BundleCache,
	estimator *TargetEstimator,
) *Service {
	cfg.applyDefaults()
	if cache == nil {
		cache = NewBundleCache(nil, false)
	}
	if estimator == nil {
		estimator = NewTargetEstimator(nil)
	}
	return &Service{
		cfg:       cfg,
		history:   history,
		quotes:    quotes,
		store:     store,
		cache:     cache,
		estimator: estimator,
		log:       logger.Get().With("component", "analysis_service"),
	}
}

// GetOrCompute returns the instrument's technical-analysis bundle, reusing
// the active one while it is fresh and recomputing otherwise.
//
// On ErrInsufficientData or ErrNoPriceAvailable nothing is persisted and any
// existing stale bundle is left untouched.
func (s *Service) GetOrCompute(ctx context.Context, instrumentID string, opts Options) (*technical.Bundle, error) {
	if instrumentID == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "instrument id required")
	}

	now := time.Now().UTC()

	if !opts.Force {
		if cached := s.cache.Get(ctx, instrumentID); cached != nil {
			return cached, nil
		}
	}

	previous, err := s.store.FindActive(ctx, instrumentID)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, errors.Wrapf(err, "find active bundle for %s", instrumentID)
	}

	if previous != nil && !opts.Force && previous.Fresh(now) {
		metrics.BundleCacheHits.WithLabelValues("postgres").Inc()
		s.cache.Set(ctx, previous)
		return previous, nil
	}
	metrics.BundleCacheMisses.WithLabelValues("postgres").Inc()

	bundle, err := s.compute(ctx, instrumentID, now)
	if err != nil {
		return nil, err
	}

	var previousID *uuid.UUID
	if previous != nil {
		previousID = &previous.ID
	}
	if err := s.store.DeactivateAndActivate(ctx, instrumentID, previousID, bundle); err != nil {
		metrics.BundleRecomputations.WithLabelValues("persistence_error").Inc()
		return nil, errors.Wrapf(errors.ErrPersistenceFailure, "activate bundle for %s: %v", instrumentID, err)
	}

	s.cache.Set(ctx, bundle)
	metrics.BundleRecomputations.WithLabelValues("success").Inc()

	s.log.Infow("bundle recomputed",
		"instrument_id", instrumentID,
		"signal", bundle.Signal,
		"current_price", bundle.CurrentPrice,
		"expires_at", bundle.ExpiresAt,
	)
	return bundle, nil
}

// compute runs the normalize-indicate-aggregate-estimate pipeline without
// touching storage.
func (s *Service) compute(ctx context.Context, instrumentID string, now time.Time) (*technical.Bundle, error) {
	started := time.Now()
	defer func() {
		metrics.BundleComputeDuration.Observe(time.Since(started).Seconds())
	}()

	raw, err := s.history.GetBars(ctx, instrumentID, s.cfg.Granularity, s.cfg.HistoryLimit)
	if err != nil {
		metrics.BundleRecomputations.WithLabelValues("history_error").Inc()
		return nil, errors.Wrapf(err, "fetch price history for %s", instrumentID)
	}

	series, err := indicators.Normalize(raw, s.cfg.Granularity, s.cfg.MinBars)
	if err != nil {
		metrics.BundleRecomputations.WithLabelValues("insufficient_data").Inc()
		return nil, err
	}

	quote, err := s.quotes.GetLatestPrice(ctx, instrumentID)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch latest price for %s", instrumentID)
	}
	if quote == nil || quote.Price <= 0 {
		metrics.BundleRecomputations.WithLabelValues("no_price").Inc()
		return nil, errors.Wrapf(errors.ErrNoPriceAvailable, "instrument %s", instrumentID)
	}
	currentPrice := quote.Price

	readings := s.computeReadings(series)
	levelMap := levels.Detect(series, s.cfg.LevelLookback, s.cfg.LevelTolerance, currentPrice)
	signal := Aggregate(readings, currentPrice)

	target := s.estimator.Estimate(ctx, technical.NarrativeContext{
		InstrumentID: instrumentID,
		CurrentPrice: currentPrice,
		Signal:       signal,
		Readings:     readings,
		Levels:       levelMap,
	})

	return &technical.Bundle{
		ID:           uuid.New(),
		InstrumentID: instrumentID,
		Granularity:  s.cfg.Granularity,
		Readings:     readings,
		Levels:       levelMap,
		Signal:       signal,
		Target:       target,
		CurrentPrice: decimal.NewFromFloat(indicators.Round4(currentPrice)),
		CalculatedAt: now,
		ExpiresAt:    now.Add(s.cfg.BundleTTL),
		IsActive:     true,
	}, nil
}

func (s *Service) computeReadings(series market_data.PriceSeries) technical.Readings {
	return technical.Readings{
		RSI:            indicators.RSI(series, indicators.DefaultRSIPeriod),
		Stochastic:     indicators.Stochastic(series, indicators.DefaultStochasticK, indicators.DefaultStochasticD),
		MACD:           indicators.MACD(series, indicators.DefaultMACDFast, indicators.DefaultMACDSlow, indicators.DefaultMACDSignal),
		MovingAverages: indicators.MovingAverages(series),
		Bollinger:      indicators.Bollinger(series, indicators.DefaultBollingerPeriod, indicators.DefaultBollingerStdDev),
		Fibonacci:      indicators.Fibonacci(series, s.cfg.FibonacciBars),
		Ichimoku:       indicators.Ichimoku(series),
	}
}

// ListActiveInstruments exposes the store's active-instrument listing for
// the refresh worker.
func (s *Service) ListActiveInstruments(ctx context.Context) ([]string, error) {
	return s.store.ListActiveInstruments(ctx)
}
