package technical

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"chiron/internal/domain/market_data"
)

// Signal is the classification attached to an indicator reading and to the
// aggregate outcome. For the aggregate, OVERSOLD is the net buy signal and
// OVERBOUGHT the net sell signal, matching the per-indicator enum.
type Signal string

const (
	SignalOverbought Signal = "OVERBOUGHT"
	SignalOversold   Signal = "OVERSOLD"
	SignalNeutral    Signal = "NEUTRAL"
)

// RSIReading is the latest Wilder RSI value and its classification.
type RSIReading struct {
	Value  float64 `json:"value"`
	Signal Signal  `json:"signal"`
}

// StochasticReading is the latest %K/%D pair and its classification.
type StochasticReading struct {
	K      float64 `json:"k"`
	D      float64 `json:"d"`
	Signal Signal  `json:"signal"`
}

// MACDReading is the latest MACD line, signal line and histogram.
type MACDReading struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// MovingAverageReading carries the standard SMA/EMA battery, each computed
// over the last N deduplicated points. A value of 0 means no data existed.
type MovingAverageReading struct {
	SMA20  float64 `json:"sma20"`
	SMA50  float64 `json:"sma50"`
	SMA200 float64 `json:"sma200"`
	EMA12  float64 `json:"ema12"`
	EMA26  float64 `json:"ema26"`
}

// BollingerReading is the latest band set.
type BollingerReading struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
	Width  float64 `json:"width"`
}

// FibonacciReading holds retracement levels over the measured window.
type FibonacciReading struct {
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Fib236 float64 `json:"fib236"`
	Fib382 float64 `json:"fib382"`
	Fib500 float64 `json:"fib500"`
	Fib618 float64 `json:"fib618"`
	Fib786 float64 `json:"fib786"`
}

// IchimokuReading holds the cloud components at the latest bar.
type IchimokuReading struct {
	TenkanSen   float64 `json:"tenkan_sen"`
	KijunSen    float64 `json:"kijun_sen"`
	SenkouSpanA float64 `json:"senkou_span_a"`
	SenkouSpanB float64 `json:"senkou_span_b"`
	ChikouSpan  float64 `json:"chikou_span"`
}

// Readings collects the latest value of every indicator. A nil field means
// the indicator could not be computed for this series; consumers branch on
// presence instead of probing sentinel values.
type Readings struct {
	RSI            *RSIReading           `json:"rsi,omitempty"`
	Stochastic     *StochasticReading    `json:"stochastic,omitempty"`
	MACD           *MACDReading          `json:"macd,omitempty"`
	MovingAverages *MovingAverageReading `json:"moving_averages,omitempty"`
	Bollinger      *BollingerReading     `json:"bollinger,omitempty"`
	Fibonacci      *FibonacciReading     `json:"fibonacci,omitempty"`
	Ichimoku       *IchimokuReading      `json:"ichimoku,omitempty"`
}

// LevelKind distinguishes the three level categories.
type LevelKind string

const (
	LevelSupport       LevelKind = "support"
	LevelResistance    LevelKind = "resistance"
	LevelPsychological LevelKind = "psychological"
)

// Level is one support/resistance price zone.
type Level struct {
	Price    float64   `json:"price"`
	Strength int       `json:"strength"`
	Kind     LevelKind `json:"kind"`
	Touches  int       `json:"touches"`
}

// Levels groups detected levels by category, each ranked by strength descending.
type Levels struct {
	Support       []Level `json:"support"`
	Resistance    []Level `json:"resistance"`
	Psychological []Level `json:"psychological"`
}

// StrongestSupport returns the highest-strength support level, or nil.
func (l Levels) StrongestSupport() *Level {
	if len(l.Support) == 0 {
		return nil
	}
	return &l.Support[0]
}

// StrongestResistance returns the highest-strength resistance level, or nil.
func (l Levels) StrongestResistance() *Level {
	if len(l.Resistance) == 0 {
		return nil
	}
	return &l.Resistance[0]
}

// PriceTarget is the conservative entry band derived from the technical picture.
// The numeric band is always the rule-based output; narrative annotation may
// only contribute Explanation and a confidence adjustment.
type PriceTarget struct {
	MinPrice    decimal.Decimal `json:"min_price"`
	MaxPrice    decimal.Decimal `json:"max_price"`
	FairEntry   decimal.Decimal `json:"fair_entry"`
	Confidence  float64         `json:"confidence"`
	Explanation string          `json:"explanation"`
}

// Bundle is the persisted snapshot of one full technical-analysis computation.
// At most one bundle per instrument is active at any time; superseded bundles
// are kept inactive for history.
type Bundle struct {
	ID           uuid.UUID               `json:"id" db:"id"`
	InstrumentID string                  `json:"instrument_id" db:"instrument_id"`
	Granularity  market_data.Granularity `json:"granularity" db:"granularity"`
	Readings     Readings                `json:"readings"`
	Levels       Levels                  `json:"levels"`
	Signal       Signal                  `json:"signal" db:"signal"`
	Target       PriceTarget             `json:"target"`
	CurrentPrice decimal.Decimal         `json:"current_price" db:"current_price"`
	CalculatedAt time.Time               `json:"calculated_at" db:"calculated_at"`
	ExpiresAt    time.Time               `json:"expires_at" db:"expires_at"`
	IsActive     bool                    `json:"is_active" db:"is_active"`
}

// Fresh reports whether the bundle can still be served from cache.
func (b *Bundle) Fresh(now time.Time) bool {
	return b.IsActive && b.ExpiresAt.After(now)
}

// Annotation is the narrative collaborator's best-effort output.
type Annotation struct {
	Text           string  `json:"text"`
	ConfidenceHint float64 `json:"confidence_hint"`
}

// NarrativeContext is the technical picture handed to the annotator.
type NarrativeContext struct {
	InstrumentID string
	CurrentPrice float64
	Signal       Signal
	Readings     Readings
	Levels       Levels
}
