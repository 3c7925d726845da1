// Package strategy turns regime bias and tick features into entry decisions.
package strategy

import (
	"fmt"
	"math"
	"time"

	"perpbot-go/internal/features"
	"perpbot-go/internal/signal"
)

// DecisionState is the only memory the policy carries between ticks. It is overwritten on every
// Evaluate call, whichever branch decides.
type DecisionState struct {
	LastSlope         float64
	LastTickRateRatio float64
}

// Input bundles what the policy reads for one tick.
type Input struct {
	Bias      signal.Bias
	FastSlope float64
	Features  features.Snapshot
	Ts        time.Time
}

// FlowEngine scores short-horizon order flow and gates it by regime strength and statistical extension.
type FlowEngine struct {
	p Params
}

// NewFlowEngine builds the policy; zero Params fields take defaults.
func NewFlowEngine(p Params) *FlowEngine {
	return &FlowEngine{p: p.withDefaults()}
}

// Name returns the identifier for logging.
func (e *FlowEngine) Name() string { return "FlowMomentum" }

// Params returns the effective thresholds.
func (e *FlowEngine) Params() Params { return e.p }

// Evaluate returns the action for this tick. Branches are checked in order and the first match wins:
// chop filter, reversal, momentum with bias, strong override. Proposals pass the exhaustion guard.
func (e *FlowEngine) Evaluate(in Input, st *DecisionState) signal.Decision {
	f := in.Features
	prev := *st
	defer func() {
		st.LastSlope = f.ShortSlope
		st.LastTickRateRatio = f.TickRateRatio
	}()

	out := signal.Decision{Action: signal.ActionNone, Ts: in.Ts}
	if f.RegimeStrength < e.p.ChopStrength {
		out.Reason = fmt.Sprintf("chop strength=%.5f", f.RegimeStrength)
		return out
	}

	accel := f.ShortSlope - prev.LastSlope
	out.Score = e.score(f, accel, in.FastSlope)
	z := f.ZScore

	var proposal signal.Action
	var branch string
	switch {
	case out.Score >= e.p.ReversalScore && z >= e.p.ReversalZ:
		proposal, branch = signal.ActionLong, "reversal"
	case out.Score <= -e.p.ReversalScore && z <= -e.p.ReversalZ:
		proposal, branch = signal.ActionShort, "reversal"
	case (in.Bias == signal.BiasLong || out.Score > e.p.MomentumScore) && z >= e.p.MomentumZ &&
		f.ShortSlope > 0 && (f.TickRateRatio >= e.p.BurstStrong || f.RunUp >= e.p.RunLength):
		proposal, branch = signal.ActionLong, "momentum"
	case (in.Bias == signal.BiasShort || out.Score < -e.p.MomentumScore) && z <= -e.p.MomentumZ &&
		f.ShortSlope < 0 && (f.TickRateRatio >= e.p.BurstStrong || f.RunDown >= e.p.RunLength):
		proposal, branch = signal.ActionShort, "momentum"
	case f.RegimeStrength >= e.p.StrongStrength && f.TickRateRatio >= e.p.BurstStrong &&
		z >= e.p.StrongZ && f.ShortSlope > 0 && accel > 0:
		proposal, branch = signal.ActionLong, "strong"
	case f.RegimeStrength >= e.p.StrongStrength && f.TickRateRatio >= e.p.BurstStrong &&
		z <= -e.p.StrongZ && f.ShortSlope < 0 && accel < 0:
		proposal, branch = signal.ActionShort, "strong"
	default:
		out.Reason = fmt.Sprintf("no setup score=%.2f z=%.2f", out.Score, z)
		return out
	}

	if e.exhausted(proposal, f, prev) {
		out.Reason = fmt.Sprintf("%s %s suppressed: exhausted z=%.2f accel=%.4f rate=%.2f", branch, proposal, z, accel, f.TickRateRatio)
		return out
	}
	out.Action = proposal
	out.Reason = fmt.Sprintf("%s score=%.2f z=%.2f slope=%.4f rate=%.2f bias=%s", branch, out.Score, z, f.ShortSlope, f.TickRateRatio, in.Bias)
	return out
}

func (e *FlowEngine) score(f features.Snapshot, accel, fastSlope float64) float64 {
	burst := 0.0
	switch {
	case f.TickRateRatio > e.p.BurstHigh:
		burst = e.p.BurstWeight
	case f.TickRateRatio < e.p.BurstLow:
		burst = -e.p.BurstWeight
	}
	return sign(f.ShortSlope)*e.p.SlopeWeight + sign(accel)*e.p.AccelWeight + burst + sign(fastSlope)*e.p.TrendWeight
}

// exhausted reports whether an extreme reading is decelerating or losing participation
// in the direction of the proposal.
func (e *FlowEngine) exhausted(proposal signal.Action, f features.Snapshot, prev DecisionState) bool {
	if math.Abs(f.ZScore) < e.p.ExhaustionZ {
		return false
	}
	accel := f.ShortSlope - prev.LastSlope
	fading := f.TickRateRatio < math.Max(e.p.BurstFadeKeep*prev.LastTickRateRatio, 1.0)
	switch proposal {
	case signal.ActionLong:
		return accel < 0 || fading
	case signal.ActionShort:
		return accel > 0 || fading
	}
	return false
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
