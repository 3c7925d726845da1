package regime

import (
	"math"
	"time"

	"perpbot-go/internal/signal"
)

const (
	DefaultFastPeriod = 20.0
	DefaultSlowPeriod = 50.0
	// DefaultBand is the hysteresis band around a zero EMA spread, as a fraction of price (2 bps).
	DefaultBand = 0.0002
)

// State is the estimator output after an update.
type State struct {
	FastEMA      float64
	SlowEMA      float64
	FastSlope    float64
	SlowSlope    float64
	Diff         float64 // FastEMA - SlowEMA
	Strength     float64 // |Diff| / price
	Bias         signal.Bias
	Warm         bool // false on the seeding tick, which carries no signal
	LastUpdateAt time.Time
}

// Estimator runs a fast and a slow EMA in parallel and derives a directional bias from their spread.
type Estimator struct {
	fast  *EMA
	slow  *EMA
	band  float64
	state State
}

// NewEstimator builds an estimator. Zero arguments select the defaults.
func NewEstimator(fastPeriod, slowPeriod, band float64) *Estimator {
	if fastPeriod <= 0 {
		fastPeriod = DefaultFastPeriod
	}
	if slowPeriod <= 0 {
		slowPeriod = DefaultSlowPeriod
	}
	if band <= 0 {
		band = DefaultBand
	}
	return &Estimator{fast: NewEMA(fastPeriod), slow: NewEMA(slowPeriod), band: band}
}

// Update folds a price observed at `at` into both averages.
// Arrival times that go backwards are treated as simultaneous.
func (e *Estimator) Update(price float64, at time.Time) State {
	if !e.fast.Ready() {
		e.fast.Update(price, 0)
		e.slow.Update(price, 0)
		e.state = State{FastEMA: price, SlowEMA: price, Bias: signal.BiasNeutral, LastUpdateAt: at}
		return e.state
	}

	dt := at.Sub(e.state.LastUpdateAt)
	fast := e.fast.Update(price, dt)
	slow := e.slow.Update(price, dt)
	diff := fast - slow

	bias := signal.BiasNeutral
	switch {
	case diff > e.band*price:
		bias = signal.BiasLong
	case diff < -e.band*price:
		bias = signal.BiasShort
	}

	last := e.state.LastUpdateAt
	if at.After(last) {
		last = at
	}
	e.state = State{
		FastEMA:      fast,
		SlowEMA:      slow,
		FastSlope:    e.fast.Slope(),
		SlowSlope:    e.slow.Slope(),
		Diff:         diff,
		Strength:     math.Abs(diff) / price,
		Bias:         bias,
		Warm:         true,
		LastUpdateAt: last,
	}
	return e.state
}
