// Package signal standardizes payloads shared between the feed, the decision pipeline and execution.
package signal

import "time"

// Tick is one observed mark price for the instrument, stamped on arrival.
type Tick struct {
	Symbol string
	Price  float64
	Ts     time.Time // local arrival time, carries the monotonic reading from time.Now
}

// Bias is the directional lean implied by the fast/slow EMA spread.
type Bias int

const (
	BiasNeutral Bias = iota
	BiasLong
	BiasShort
)

func (b Bias) String() string {
	switch b {
	case BiasLong:
		return "LONG"
	case BiasShort:
		return "SHORT"
	default:
		return "NEUTRAL"
	}
}

// Action is the output of the decision policy for a single tick.
type Action int

const (
	ActionNone Action = iota
	ActionLong
	ActionShort
)

func (a Action) String() string {
	switch a {
	case ActionLong:
		return "LONG"
	case ActionShort:
		return "SHORT"
	default:
		return "NONE"
	}
}

// Decision expresses the policy verdict for a tick. Reason is diagnostic only.
type Decision struct {
	Action Action
	Score  float64 // flow score, positive leans long
	Reason string
	Ts     time.Time
}
