// Package features derives the statistical inputs of the decision policy from the tick history.
// Every function here is pure: the same buffer contents always produce the same Snapshot.
package features

import (
	"math"
	"sort"
	"time"
)

// Snapshot is computed fresh for every tick and discarded after the decision.
type Snapshot struct {
	ZScore         float64
	ShortSlope     float64
	TickRateRatio  float64
	RunUp          int
	RunDown        int
	RegimeStrength float64
	Volatility     float64
	Samples        int
}

// Params sizes the rolling windows.
type Params struct {
	ZWindow       int           // ticks in the z-score window
	SlopeLookback int           // ticks back for the short slope
	RunWindow     int           // ticks scanned for up/down runs
	VolWindow     int           // ticks in the volatility window
	VolMinSamples int           // below this, volatility falls back to MAD
	VolFloor      float64       // volatility when fewer than four ticks exist
	RateBucket    time.Duration // width of one tick-rate bucket
	RateBuckets   int           // buckets in the tick-rate median
}

// DefaultParams returns the production window sizes.
func DefaultParams() Params {
	return Params{
		ZWindow:       24,
		SlopeLookback: 3,
		RunWindow:     8,
		VolWindow:     50,
		VolMinSamples: 17,
		VolFloor:      0.25,
		RateBucket:    time.Second,
		RateBuckets:   10,
	}
}

const (
	zEpsilon   = 1e-9
	madToSigma = 1.4826
)

// Extractor computes snapshots with a fixed set of Params.
type Extractor struct {
	p Params
}

// NewExtractor fills zero fields of p with defaults.
func NewExtractor(p Params) Extractor {
	def := DefaultParams()
	if p.ZWindow <= 0 {
		p.ZWindow = def.ZWindow
	}
	if p.SlopeLookback <= 0 {
		p.SlopeLookback = def.SlopeLookback
	}
	if p.RunWindow <= 1 {
		p.RunWindow = def.RunWindow
	}
	if p.VolWindow <= 1 {
		p.VolWindow = def.VolWindow
	}
	if p.VolMinSamples <= 0 {
		p.VolMinSamples = def.VolMinSamples
	}
	if p.VolFloor <= 0 {
		p.VolFloor = def.VolFloor
	}
	if p.RateBucket <= 0 {
		p.RateBucket = def.RateBucket
	}
	if p.RateBuckets <= 0 {
		p.RateBuckets = def.RateBuckets
	}
	return Extractor{p: p}
}

// Params returns the effective parameters.
func (x Extractor) Params() Params { return x.p }

// Compute builds a Snapshot from prices and arrival times (both oldest first) and the regime strength.
// The tick-rate reference point is the latest arrival, never the wall clock.
func (x Extractor) Compute(prices []float64, arrivals []time.Time, regimeStrength float64) Snapshot {
	runUp, runDown := Runs(tail(prices, x.p.RunWindow))
	return Snapshot{
		ZScore:         ZScore(prices, x.p.ZWindow),
		ShortSlope:     ShortSlope(prices, x.p.SlopeLookback),
		TickRateRatio:  TickRateRatio(arrivals, x.p.RateBucket, x.p.RateBuckets),
		RunUp:          runUp,
		RunDown:        runDown,
		RegimeStrength: regimeStrength,
		Volatility:     Volatility(prices, x.p.VolWindow, x.p.VolMinSamples, x.p.VolFloor),
		Samples:        len(prices),
	}
}

// ZScore standardizes the latest price against the trailing window. It is 0 until window prices exist.
func ZScore(prices []float64, window int) float64 {
	if window <= 0 || len(prices) < window {
		return 0
	}
	w := tail(prices, window)
	mean, std := meanStd(w)
	return (w[len(w)-1] - mean) / (std + zEpsilon)
}

// ShortSlope is the price change over the last lookback ticks, 0 until lookback+1 prices exist.
func ShortSlope(prices []float64, lookback int) float64 {
	n := len(prices)
	if lookback <= 0 || n < lookback+1 {
		return 0
	}
	return prices[n-1] - prices[n-1-lookback]
}

// TickRateRatio divides the tick count of the latest bucket by the median count of the trailing buckets.
// The median is floored at 1. Values above 1 signal a burst of activity.
func TickRateRatio(arrivals []time.Time, bucket time.Duration, buckets int) float64 {
	if len(arrivals) == 0 || bucket <= 0 || buckets <= 0 {
		return 0
	}
	now := arrivals[len(arrivals)-1]
	counts := make([]float64, buckets)
	for i := len(arrivals) - 1; i >= 0; i-- {
		age := now.Sub(arrivals[i])
		if age < 0 {
			age = 0
		}
		idx := int(age / bucket)
		if idx >= buckets {
			break
		}
		counts[idx]++
	}
	current := counts[0]
	med := median(counts)
	if med < 1 {
		med = 1
	}
	return current / med
}

// Runs returns the longest streaks of strict increases and strict decreases in prices.
func Runs(prices []float64) (up, down int) {
	var curUp, curDown int
	for i := 1; i < len(prices); i++ {
		switch {
		case prices[i] > prices[i-1]:
			curUp++
			curDown = 0
		case prices[i] < prices[i-1]:
			curDown++
			curUp = 0
		default:
			curUp, curDown = 0, 0
		}
		up = max(up, curUp)
		down = max(down, curDown)
	}
	return up, down
}

// Volatility is the population standard deviation of the trailing window. With fewer than minSamples
// prices it falls back to a scaled median absolute deviation, and with fewer than four it returns floor.
func Volatility(prices []float64, window, minSamples int, floor float64) float64 {
	n := len(prices)
	if n < 4 {
		return floor
	}
	if n < minSamples {
		return MAD(prices) * madToSigma
	}
	_, std := meanStd(tail(prices, window))
	return std
}

// MAD is the median absolute deviation from the median.
func MAD(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	med := median(values)
	dev := make([]float64, len(values))
	for i, v := range values {
		dev[i] = math.Abs(v - med)
	}
	return median(dev)
}

func meanStd(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(values)))
}

// median sorts a copy; callers keep their ordering.
func median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func tail(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
