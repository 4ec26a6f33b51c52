package analysis

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"chiron/internal/domain/technical"
	"chiron/internal/indicators"
	"chiron/internal/metrics"
	"chiron/pkg/logger"
)

// Band and confidence tuning for the rule-based target.
const (
	bandDownPct      = 0.88 // minPrice floor relative to current price
	bandUpPct        = 1.12 // maxPrice ceiling relative to current price
	supportCushion   = 0.97 // entry just under the strongest support
	resistanceMargin = 1.03 // exit just over the strongest resistance

	baseConfidence   = 50.0
	narrativePenalty = 0.75 // confidence multiplier when the annotator is unavailable
)

// EstimateTarget derives the conservative entry band from the technical
// picture. Pure and deterministic; narrative annotation happens elsewhere and
// never touches these numbers.
func EstimateTarget(currentPrice float64, r technical.Readings, lv technical.Levels) technical.PriceTarget {
	minPrice := currentPrice * bandDownPct
	if s := lv.StrongestSupport(); s != nil {
		minPrice = math.Min(minPrice, s.Price*supportCushion)
	}

	maxPrice := currentPrice * bandUpPct
	if res := lv.StrongestResistance(); res != nil {
		maxPrice = math.Max(maxPrice, res.Price*resistanceMargin)
	}

	fair := currentPrice
	confidence := baseConfidence

	if rsi := r.RSI; rsi != nil {
		switch rsi.Signal {
		case technical.SignalOversold:
			fair *= 0.98
			confidence += 10
		case technical.SignalOverbought:
			fair *= 1.02
			confidence -= 10
		}
	}

	if m := r.MACD; m != nil {
		if m.Histogram > 0 {
			fair *= 1.01
			confidence += 5
		} else if m.Histogram < 0 {
			fair *= 0.99
			confidence -= 5
		}
	}

	if b := r.Bollinger; b != nil {
		if currentPrice <= b.Lower {
			fair *= 0.98
			confidence += 10
		} else if currentPrice >= b.Upper {
			fair *= 1.02
			confidence -= 10
		}
	}

	if ma := r.MovingAverages; ma != nil && ma.SMA50 > 0 && ma.SMA200 > 0 {
		if currentPrice > ma.SMA50 && ma.SMA50 > ma.SMA200 {
			fair *= 1.01
			confidence += 10
		} else if currentPrice < ma.SMA50 && ma.SMA50 < ma.SMA200 {
			fair *= 0.99
			confidence -= 10
		}
	}

	if fib := r.Fibonacci; fib != nil {
		if currentPrice <= fib.Fib618 {
			// Deep retracement: attractive entry zone.
			fair *= 0.99
			confidence += 5
		} else if currentPrice >= fib.Fib382 {
			fair *= 1.01
			confidence -= 5
		}
	}

	if ich := r.Ichimoku; ich != nil && ich.SenkouSpanA > 0 && ich.SenkouSpanB > 0 {
		cloudTop := math.Max(ich.SenkouSpanA, ich.SenkouSpanB)
		cloudBottom := math.Min(ich.SenkouSpanA, ich.SenkouSpanB)
		if currentPrice > cloudTop && currentPrice > ich.KijunSen {
			fair *= 1.01
			confidence += 10
		} else if currentPrice < cloudBottom && currentPrice < ich.KijunSen {
			fair *= 0.99
			confidence -= 10
		}
	}

	fair = math.Max(minPrice, math.Min(maxPrice, fair))
	confidence = math.Max(0, math.Min(100, confidence))

	return technical.PriceTarget{
		MinPrice:   decimal.NewFromFloat(indicators.Round4(minPrice)),
		MaxPrice:   decimal.NewFromFloat(indicators.Round4(maxPrice)),
		FairEntry:  decimal.NewFromFloat(indicators.Round4(fair)),
		Confidence: indicators.Round2(confidence),
	}
}

// TargetEstimator wraps the rule-based target with optional narrative
// annotation behind a circuit breaker.
type TargetEstimator struct {
	annotator technical.NarrativeAnnotator
	breaker   *CircuitBreaker
	log       *logger.Logger
}

// NewTargetEstimator creates the estimator. A nil annotator is valid and
// means every target ships the fallback explanation.
func NewTargetEstimator(annotator technical.NarrativeAnnotator) *TargetEstimator {
	return &TargetEstimator{
		annotator: annotator,
		breaker:   NewCircuitBreaker(DefaultBreakerThreshold, DefaultBreakerCooldown),
		log:       logger.Get().With("component", "target_estimator"),
	}
}

// Estimate computes the numeric band, then consults the annotator for prose.
// Annotator failure only costs confidence and explanation quality.
func (e *TargetEstimator) Estimate(ctx context.Context, nc technical.NarrativeContext) technical.PriceTarget {
	target := EstimateTarget(nc.CurrentPrice, nc.Readings, nc.Levels)

	if e.annotator == nil {
		return e.fallback(target, nc.Signal)
	}
	if !e.breaker.Allow() {
		metrics.NarrativeCalls.WithLabelValues("skipped").Inc()
		return e.fallback(target, nc.Signal)
	}

	started := time.Now()
	ann, err := e.annotator.Explain(ctx, nc)
	metrics.RecordNarrativeCall(time.Since(started), err)
	if err != nil || ann == nil || ann.Text == "" {
		e.breaker.RecordFailure()
		if err != nil {
			e.log.Warnf("narrative annotation failed for %s: %v", nc.InstrumentID, err)
		}
		return e.fallback(target, nc.Signal)
	}
	e.breaker.RecordSuccess()

	target.Explanation = ann.Text
	if ann.ConfidenceHint > 0 {
		blended := (target.Confidence + ann.ConfidenceHint) / 2
		target.Confidence = indicators.Round2(math.Max(0, math.Min(100, blended)))
	}
	return target
}

func (e *TargetEstimator) fallback(target technical.PriceTarget, signal technical.Signal) technical.PriceTarget {
	target.Confidence = indicators.Round2(target.Confidence * narrativePenalty)
	target.Explanation = fallbackExplanation(signal, target)
	return target
}

func fallbackExplanation(signal technical.Signal, t technical.PriceTarget) string {
	var stance string
	switch signal {
	case technical.SignalOversold:
		stance = "indicators lean toward accumulation"
	case technical.SignalOverbought:
		stance = "indicators lean toward caution"
	default:
		stance = "indicators are mixed"
	}
	return fmt.Sprintf(
		"Rule-based estimate: %s; suggested entry near %s within the %s-%s band.",
		stance, t.FairEntry.StringFixed(2), t.MinPrice.StringFixed(2), t.MaxPrice.StringFixed(2),
	)
}
