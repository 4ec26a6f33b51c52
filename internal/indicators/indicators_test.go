package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chiron/internal/domain/market_data"
	"chiron/internal/domain/technical"
)

func seriesFromCloses(closes []float64) market_data.PriceSeries {
	start := time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)
	series := make(market_data.PriceSeries, 0, len(closes))
	for i, c := range closes {
		series = append(series, market_data.PricePoint{
			Date:   start.AddDate(0, i, 0),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 1000,
		})
	}
	return series
}

func rising(start float64, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func falling(start float64, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start - step*float64(i)
	}
	return out
}

func TestRSI_AllGainsIsHundred(t *testing.T) {
	series := seriesFromCloses(rising(100, 1, 20))

	reading := RSI(series, 14)
	require.NotNil(t, reading)
	assert.Equal(t, 100.0, reading.Value)
	assert.Equal(t, technical.SignalOverbought, reading.Signal)
}

func TestRSI_AllLossesIsZero(t *testing.T) {
	series := seriesFromCloses(falling(100, 1, 20))

	reading := RSI(series, 14)
	require.NotNil(t, reading)
	assert.Equal(t, 0.0, reading.Value)
	assert.Equal(t, technical.SignalOversold, reading.Signal)
}

func TestRSI_NeutralMidRange(t *testing.T) {
	// Alternate equal gains and losses: RSI should hover near 50.
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
		if i%2 == 1 {
			closes[i] = 102
		}
	}
	series := seriesFromCloses(closes)

	reading := RSI(series, 14)
	require.NotNil(t, reading)
	assert.InDelta(t, 50, reading.Value, 10)
	assert.Equal(t, technical.SignalNeutral, reading.Signal)
}

func TestRSI_RequiresPeriodPlusOnePoints(t *testing.T) {
	series := seriesFromCloses(rising(100, 1, 14))
	assert.Nil(t, RSI(series, 14))
}

func TestStochastic_RisingSeriesIsOverbought(t *testing.T) {
	series := seriesFromCloses(rising(50, 1, 30))

	reading := Stochastic(series, 14, 3)
	require.NotNil(t, reading)
	assert.Equal(t, 100.0, reading.K)
	assert.Equal(t, 100.0, reading.D)
	assert.Equal(t, technical.SignalOverbought, reading.Signal)
}

func TestStochastic_FallingSeriesIsOversold(t *testing.T) {
	series := seriesFromCloses(falling(100, 1, 30))

	reading := Stochastic(series, 14, 3)
	require.NotNil(t, reading)
	assert.Equal(t, 0.0, reading.K)
	assert.Equal(t, 0.0, reading.D)
	assert.Equal(t, technical.SignalOversold, reading.Signal)
}

func TestStochastic_FlatSeriesHasNoReading(t *testing.T) {
	// Zero range in every window: %K is undefined throughout.
	series := seriesFromCloses(repeat(100, 30))
	assert.Nil(t, Stochastic(series, 14, 3))
}

func TestMovingAverages_FlatSeries(t *testing.T) {
	series := seriesFromCloses(repeat(42, 60))

	reading := MovingAverages(series)
	require.NotNil(t, reading)
	assert.Equal(t, 42.0, reading.SMA20)
	assert.Equal(t, 42.0, reading.SMA50)
	assert.Equal(t, 42.0, reading.SMA200)
	assert.Equal(t, 42.0, reading.EMA12)
	assert.Equal(t, 42.0, reading.EMA26)
}

func TestSMA_UsesTailOnly(t *testing.T) {
	closes := append(repeat(10, 40), repeat(20, 20)...)
	series := seriesFromCloses(closes)

	assert.Equal(t, 20.0, SMA(series, 20))
	// 50-bar tail spans 30 tens and 20 twenties.
	assert.InDelta(t, (30*10.0+20*20.0)/50, SMA(series, 50), 1e-9)
}

func TestEMA_WeighsRecentCloses(t *testing.T) {
	closes := append(repeat(10, 40), 100)
	series := seriesFromCloses(closes)

	ema := EMA(series, 12)
	sma := SMA(series, 12)
	assert.Greater(t, ema, sma, "EMA must react faster to the last spike")
}

func TestMACD_TrendFlipsHistogramSign(t *testing.T) {
	up := rising(100, 2, 45)
	down := falling(up[len(up)-1], 3, 25)
	series := seriesFromCloses(append(up, down...))

	reading := MACD(series, 12, 26, 9)
	require.NotNil(t, reading)
	assert.Negative(t, reading.Histogram, "sustained decline must push MACD below its signal line")

	hist := MACDHistogramSeries(series, 12, 26, 9)
	require.NotEmpty(t, hist)
	assert.Positive(t, hist[0], "histogram starts positive during the uptrend")

	flipped := false
	for i := 1; i < len(hist); i++ {
		if hist[i-1] > 0 && hist[i] < 0 {
			flipped = true
			break
		}
	}
	assert.True(t, flipped, "histogram must cross zero exactly where the trend turns")
}

func TestMACD_RequiresSlowPlusSignalPoints(t *testing.T) {
	series := seriesFromCloses(rising(100, 1, 34))
	assert.Nil(t, MACD(series, 12, 26, 9))

	series = seriesFromCloses(rising(100, 1, 35))
	assert.NotNil(t, MACD(series, 12, 26, 9))
}

func TestBollinger_FlatSeriesCollapses(t *testing.T) {
	series := seriesFromCloses(repeat(50, 25))

	reading := Bollinger(series, 20, 2)
	require.NotNil(t, reading)
	assert.Equal(t, 50.0, reading.Upper)
	assert.Equal(t, 50.0, reading.Middle)
	assert.Equal(t, 50.0, reading.Lower)
	assert.Equal(t, 0.0, reading.Width)
}

func TestBollinger_BandsAreSymmetric(t *testing.T) {
	series := seriesFromCloses(rising(100, 1, 25))

	reading := Bollinger(series, 20, 2)
	require.NotNil(t, reading)
	assert.InDelta(t, reading.Upper-reading.Middle, reading.Middle-reading.Lower, 1e-9)
	assert.InDelta(t, reading.Upper-reading.Lower, reading.Width, 1e-9)
	assert.Greater(t, reading.Width, 0.0)
}

func TestFibonacci_KnownLevels(t *testing.T) {
	// 12-bar window spanning exactly 80..120.
	closes := append(repeat(100, 20), []float64{80, 90, 95, 100, 105, 110, 115, 120, 118, 112, 108, 104}...)
	series := seriesFromCloses(closes)

	reading := Fibonacci(series, 12)
	require.NotNil(t, reading)
	assert.Equal(t, 120.0, reading.High)
	assert.Equal(t, 80.0, reading.Low)
	assert.Equal(t, 110.56, reading.Fib236)
	assert.Equal(t, 104.72, reading.Fib382)
	assert.Equal(t, 100.0, reading.Fib500)
	assert.Equal(t, 95.28, reading.Fib618)
	assert.Equal(t, 88.56, reading.Fib786)
}

func TestFibonacci_ZeroRangeHasNoReading(t *testing.T) {
	series := seriesFromCloses(repeat(100, 20))
	assert.Nil(t, Fibonacci(series, 12))
}

func TestIchimoku_RequiresFiftyTwoPoints(t *testing.T) {
	assert.Nil(t, Ichimoku(seriesFromCloses(rising(100, 1, 51))))
	assert.NotNil(t, Ichimoku(seriesFromCloses(rising(100, 1, 52))))
}

func TestIchimoku_FlatSeriesComponentsEqualPrice(t *testing.T) {
	series := seriesFromCloses(repeat(200, 60))

	reading := Ichimoku(series)
	require.NotNil(t, reading)
	assert.Equal(t, 200.0, reading.TenkanSen)
	assert.Equal(t, 200.0, reading.KijunSen)
	assert.Equal(t, 200.0, reading.SenkouSpanA)
	assert.Equal(t, 200.0, reading.SenkouSpanB)
	assert.Equal(t, 200.0, reading.ChikouSpan)
}

func TestIchimoku_MidpointsUseHighLowRange(t *testing.T) {
	series := seriesFromCloses(rising(100, 1, 60))

	reading := Ichimoku(series)
	require.NotNil(t, reading)
	// Tenkan midpoint of the last 9 bars: (159+151)/2.
	assert.Equal(t, 155.0, reading.TenkanSen)
	// Kijun midpoint of the last 26 bars: (159+134)/2.
	assert.Equal(t, 146.5, reading.KijunSen)
	assert.Equal(t, 159.0, reading.ChikouSpan)
}
