// Package regime estimates trend direction from a pair of wall-clock decayed moving averages.
package regime

import (
	"math"
	"time"
)

// TimeConstant converts an EMA period expressed in minutes into a decay time constant in seconds,
// so that one minute of elapsed time decays the average like one bar of a period-length EMA.
func TimeConstant(periodMinutes float64) float64 {
	if periodMinutes < 1 {
		periodMinutes = 1
	}
	return -60 / math.Log(1-2/(periodMinutes+1))
}

// Alpha is the smoothing factor for an update dt after the previous one: 1 - exp(-dt/tau).
// It is 0 for non-positive dt and approaches 1 as dt grows. A zero tau (period 1) snaps to the price.
func Alpha(dt time.Duration, tau float64) float64 {
	if dt <= 0 {
		return 0
	}
	if tau <= 0 {
		return 1
	}
	return -math.Expm1(-dt.Seconds() / tau)
}

// EMA is an exponential moving average decayed by elapsed time instead of sample count.
type EMA struct {
	tau   float64
	value float64
	slope float64
	ready bool
}

// NewEMA builds an EMA for the given period in minutes.
func NewEMA(periodMinutes float64) *EMA {
	return &EMA{tau: TimeConstant(periodMinutes)}
}

// Update folds price into the average dt after the previous update and returns the new value.
// The first update seeds the average with price.
func (e *EMA) Update(price float64, dt time.Duration) float64 {
	if !e.ready {
		e.value, e.slope, e.ready = price, 0, true
		return e.value
	}
	prev := e.value
	e.value += Alpha(dt, e.tau) * (price - e.value)
	e.slope = e.value - prev
	return e.value
}

// Slope returns the signed change produced by the last update.
func (e *EMA) Slope() float64 { return e.slope }

// Ready reports whether the average has been seeded.
func (e *EMA) Ready() bool { return e.ready }
