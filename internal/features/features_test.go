package features

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evenArrivals(start time.Time, n int, spacing time.Duration) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * spacing)
	}
	return out
}

func constant(px float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = px
	}
	return out
}

func TestZScoreUnavailableBelowWindow(t *testing.T) {
	prices := make([]float64, 0, 23)
	for i := 0; i < 23; i++ {
		prices = append(prices, 100+float64(i*i))
		assert.Equal(t, 0.0, ZScore(prices, 24), "n=%d", len(prices))
	}
}

func TestZScoreZeroVarianceIsZero(t *testing.T) {
	z := ZScore(constant(100, 24), 24)
	assert.Equal(t, 0.0, z)
	assert.False(t, math.IsNaN(z))
}

func TestZScoreUsesTrailingWindow(t *testing.T) {
	prices := append(constant(50, 30), constant(100, 23)...)
	prices = append(prices, 101)
	// the window holds 23 x 100 and one 101
	mean := (23*100.0 + 101) / 24
	std := math.Sqrt((23*math.Pow(100-mean, 2) + math.Pow(101-mean, 2)) / 24)
	assert.InDelta(t, (101-mean)/(std+1e-9), ZScore(prices, 24), 1e-9)
}

func TestShortSlope(t *testing.T) {
	assert.Equal(t, 0.0, ShortSlope([]float64{1, 2, 3}, 3))
	assert.Equal(t, 3.0, ShortSlope([]float64{1, 2, 3, 4}, 3))
	assert.Equal(t, -2.0, ShortSlope([]float64{9, 5, 4, 7, 3}, 3))
}

func TestRuns(t *testing.T) {
	up, down := Runs([]float64{1, 2, 3, 4, 3, 2, 2, 1})
	assert.Equal(t, 3, up)
	assert.Equal(t, 2, down)

	up, down = Runs(constant(5, 8))
	assert.Zero(t, up)
	assert.Zero(t, down)
}

func TestTickRateRatioSteadyFlow(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	// four ticks per second for twelve seconds
	arrivals := evenArrivals(start, 48, 250*time.Millisecond)
	assert.InDelta(t, 1.0, TickRateRatio(arrivals, time.Second, 10), 1e-12)
}

func TestTickRateRatioBurst(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	arrivals := evenArrivals(start, 12, time.Second)
	last := arrivals[len(arrivals)-1]
	for i := 1; i <= 4; i++ {
		arrivals = append(arrivals, last.Add(time.Duration(i)*100*time.Millisecond))
	}
	ratio := TickRateRatio(arrivals, time.Second, 10)
	assert.Greater(t, ratio, 1.05)
}

func TestTickRateRatioMedianFloor(t *testing.T) {
	// a single tick: nine empty buckets, median 0 floored to 1
	assert.Equal(t, 1.0, TickRateRatio([]time.Time{time.Now()}, time.Second, 10))
	assert.Equal(t, 0.0, TickRateRatio(nil, time.Second, 10))
}

func TestVolatilityRegimes(t *testing.T) {
	assert.Equal(t, 0.25, Volatility([]float64{100, 101, 102}, 50, 17, 0.25), "cold start floor")

	small := []float64{100, 101, 100, 101, 100, 130}
	assert.InDelta(t, MAD(small)*1.4826, Volatility(small, 50, 17, 0.25), 1e-12, "robust fallback")
	assert.InDelta(t, 0.5*1.4826, Volatility(small, 50, 17, 0.25), 1e-12)

	long := make([]float64, 0, 80)
	for i := 0; i < 80; i++ {
		long = append(long, float64(i%2))
	}
	assert.InDelta(t, 0.5, Volatility(long, 50, 17, 0.25), 1e-12, "population std over the window")
}

func TestComputeIsPure(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	prices := make([]float64, 0, 60)
	for i := 0; i < 60; i++ {
		prices = append(prices, 100+math.Sin(float64(i)/3))
	}
	arrivals := evenArrivals(start, 60, 300*time.Millisecond)
	pricesCopy := append([]float64(nil), prices...)

	x := NewExtractor(Params{})
	first := x.Compute(prices, arrivals, 0.0003)
	second := x.Compute(prices, arrivals, 0.0003)

	require.Equal(t, first, second)
	assert.Equal(t, pricesCopy, prices, "inputs must not be mutated")
	assert.Equal(t, 60, first.Samples)
	assert.Equal(t, 0.0003, first.RegimeStrength)
}

func TestNewExtractorDefaults(t *testing.T) {
	assert.Equal(t, DefaultParams(), NewExtractor(Params{}).Params())
}
