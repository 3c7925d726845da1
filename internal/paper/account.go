// Package paper keeps the dry-run venue's view of the instrument so it can be compared with the model position.
package paper

import (
	"math"
	"sync"

	"perpbot-go/internal/execution"
)

const epsilon = 1e-9

// Account tracks the venue-side signed net quantity, average entry and realized PnL of one instrument.
// It implements execution.Recorder so the dry-run gateway can feed it fills directly.
type Account struct {
	mu          sync.Mutex
	symbol      string
	netQty      float64
	avgEntry    float64
	realizedPnL float64
	fills       int
}

// Snapshot is a read-only view of the account marked at a price.
type Snapshot struct {
	Symbol      string
	NetQty      float64
	AvgEntry    float64
	Unrealized  float64
	RealizedPnL float64
	Fills       int
}

// NewAccount creates an empty book for symbol.
func NewAccount(symbol string) *Account {
	return &Account{symbol: symbol}
}

// Record applies a fill. Fills for other symbols are ignored.
func (a *Account) Record(fill execution.Fill) {
	if fill.Qty <= 0 || fill.Price <= 0 {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.symbol != "" && fill.Symbol != a.symbol {
		return
	}
	a.fills++

	delta := fill.Side.Sign() * fill.Qty
	switch {
	case math.Abs(a.netQty) < epsilon || sameSign(a.netQty, delta):
		// opening or adding
		newQty := a.netQty + delta
		a.avgEntry = (a.avgEntry*math.Abs(a.netQty) + fill.Price*fill.Qty) / math.Abs(newQty)
		a.netQty = newQty
	default:
		closing := math.Min(math.Abs(delta), math.Abs(a.netQty))
		dir := 1.0
		if a.netQty < 0 {
			dir = -1
		}
		a.realizedPnL += dir * (fill.Price - a.avgEntry) * closing
		a.netQty += delta
		switch {
		case math.Abs(a.netQty) < epsilon:
			a.netQty, a.avgEntry = 0, 0
		case !sameSign(a.netQty, dir):
			// crossed through zero: the remainder opens at the fill price
			a.avgEntry = fill.Price
		}
	}
}

// Snapshot returns balances marked at mark; a zero mark leaves Unrealized at 0.
func (a *Account) Snapshot(mark float64) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	snap := Snapshot{
		Symbol:      a.symbol,
		NetQty:      a.netQty,
		AvgEntry:    a.avgEntry,
		RealizedPnL: a.realizedPnL,
		Fills:       a.fills,
	}
	if mark > 0 && a.netQty != 0 {
		snap.Unrealized = (mark - a.avgEntry) * a.netQty
	}
	return snap
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
