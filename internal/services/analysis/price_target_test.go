package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chiron/internal/domain/technical"
	"chiron/pkg/errors"
)

func supportLevel(price float64, touches int) technical.Level {
	return technical.Level{Price: price, Strength: touches, Kind: technical.LevelSupport, Touches: touches}
}

func resistanceLevel(price float64, touches int) technical.Level {
	return technical.Level{Price: price, Strength: touches, Kind: technical.LevelResistance, Touches: touches}
}

func TestEstimateTarget_BandInvariants(t *testing.T) {
	readings := technical.Readings{
		RSI:  rsi(technical.SignalOversold),
		MACD: macd(1),
	}
	lv := technical.Levels{
		Support:    []technical.Level{supportLevel(95, 5)},
		Resistance: []technical.Level{resistanceLevel(115, 4)},
	}

	target := EstimateTarget(100, readings, lv)

	min, _ := target.MinPrice.Float64()
	max, _ := target.MaxPrice.Float64()
	fair, _ := target.FairEntry.Float64()

	assert.LessOrEqual(t, min, fair)
	assert.LessOrEqual(t, fair, max)
	assert.GreaterOrEqual(t, target.Confidence, 0.0)
	assert.LessOrEqual(t, target.Confidence, 100.0)

	// min picks the lower of the two candidates: 100*0.88 vs 95*0.97.
	assert.InDelta(t, 88.0, min, 1e-9)
	// max picks the higher: 100*1.12 vs 115*1.03.
	assert.InDelta(t, 118.45, max, 1e-9)
}

func TestEstimateTarget_DefaultBandWithoutLevels(t *testing.T) {
	target := EstimateTarget(200, technical.Readings{}, technical.Levels{})

	min, _ := target.MinPrice.Float64()
	max, _ := target.MaxPrice.Float64()
	assert.InDelta(t, 176.0, min, 1e-9)
	assert.InDelta(t, 224.0, max, 1e-9)
	assert.Equal(t, baseConfidence, target.Confidence)
}

func TestEstimateTarget_BullishNudgesRaiseConfidence(t *testing.T) {
	bullish := technical.Readings{
		RSI:       rsi(technical.SignalOversold),
		MACD:      macd(2),
		Bollinger: &technical.BollingerReading{Upper: 250, Middle: 220, Lower: 210},
	}
	target := EstimateTarget(205, bullish, technical.Levels{})
	assert.Greater(t, target.Confidence, baseConfidence)

	bearish := technical.Readings{
		RSI:       rsi(technical.SignalOverbought),
		MACD:      macd(-2),
		Bollinger: &technical.BollingerReading{Upper: 200, Middle: 180, Lower: 160},
	}
	target = EstimateTarget(205, bearish, technical.Levels{})
	assert.Less(t, target.Confidence, baseConfidence)
}

// fakeAnnotator scripts the narrative collaborator.
type fakeAnnotator struct {
	annotation *technical.Annotation
	err        error
	calls      int
}

func (f *fakeAnnotator) Explain(ctx context.Context, nc technical.NarrativeContext) (*technical.Annotation, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.annotation, nil
}

func narrativeContext(price float64) technical.NarrativeContext {
	return technical.NarrativeContext{
		InstrumentID: "AAPL",
		CurrentPrice: price,
		Signal:       technical.SignalNeutral,
		Readings:     technical.Readings{RSI: rsi(technical.SignalNeutral)},
	}
}

func TestTargetEstimator_NarrativeNeverTouchesNumbers(t *testing.T) {
	nc := narrativeContext(100)
	ruleBased := EstimateTarget(nc.CurrentPrice, nc.Readings, nc.Levels)

	annotator := &fakeAnnotator{annotation: &technical.Annotation{Text: "prose about the chart"}}
	estimator := NewTargetEstimator(annotator)

	target := estimator.Estimate(context.Background(), nc)

	assert.True(t, ruleBased.MinPrice.Equal(target.MinPrice))
	assert.True(t, ruleBased.MaxPrice.Equal(target.MaxPrice))
	assert.True(t, ruleBased.FairEntry.Equal(target.FairEntry))
	assert.Equal(t, "prose about the chart", target.Explanation)
	assert.Equal(t, 1, annotator.calls)
}

func TestTargetEstimator_FailurePenalizesConfidenceOnly(t *testing.T) {
	nc := narrativeContext(100)
	ruleBased := EstimateTarget(nc.CurrentPrice, nc.Readings, nc.Levels)

	annotator := &fakeAnnotator{err: errors.New("model overloaded")}
	estimator := NewTargetEstimator(annotator)

	target := estimator.Estimate(context.Background(), nc)

	assert.True(t, ruleBased.MinPrice.Equal(target.MinPrice))
	assert.True(t, ruleBased.MaxPrice.Equal(target.MaxPrice))
	assert.True(t, ruleBased.FairEntry.Equal(target.FairEntry))
	assert.InDelta(t, ruleBased.Confidence*narrativePenalty, target.Confidence, 0.01)
	assert.NotEmpty(t, target.Explanation, "fallback explanation must be present")
	for _, r := range target.Explanation {
		require.Less(t, int(r), 128, "fallback text stays plain ASCII")
	}
}

func TestTargetEstimator_NilAnnotatorUsesFallback(t *testing.T) {
	nc := narrativeContext(100)
	estimator := NewTargetEstimator(nil)

	target := estimator.Estimate(context.Background(), nc)

	assert.NotEmpty(t, target.Explanation)
	ruleBased := EstimateTarget(nc.CurrentPrice, nc.Readings, nc.Levels)
	assert.InDelta(t, ruleBased.Confidence*narrativePenalty, target.Confidence, 0.01)
}

func TestTargetEstimator_ConfidenceHintBlends(t *testing.T) {
	nc := narrativeContext(100)
	ruleBased := EstimateTarget(nc.CurrentPrice, nc.Readings, nc.Levels)

	annotator := &fakeAnnotator{annotation: &technical.Annotation{Text: "text", ConfidenceHint: 100}}
	estimator := NewTargetEstimator(annotator)

	target := estimator.Estimate(context.Background(), nc)
	assert.Greater(t, target.Confidence, ruleBased.Confidence)
	assert.LessOrEqual(t, target.Confidence, 100.0)
}

func TestTargetEstimator_BreakerShortCircuitsAfterThreshold(t *testing.T) {
	nc := narrativeContext(100)
	annotator := &fakeAnnotator{err: errors.New("down")}
	estimator := NewTargetEstimator(annotator)

	for i := 0; i < DefaultBreakerThreshold+3; i++ {
		estimator.Estimate(context.Background(), nc)
	}

	require.Equal(t, DefaultBreakerThreshold, annotator.calls,
		"open breaker must stop hitting the collaborator")
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	b := NewCircuitBreaker(2, 10*time.Millisecond)

	assert.True(t, b.Allow())
	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.Allow(), "breaker opens at the threshold")

	time.Sleep(15 * time.Millisecond)
	assert.True(t, b.Allow(), "cooldown elapsed allows a probe")

	b.RecordSuccess()
	assert.True(t, b.Allow(), "success closes the breaker")
}
