package paper

import (
	"sync"

	"perpbot-go/internal/buffer"
	"perpbot-go/internal/execution"
)

const defaultLedgerCapacity = 256

// Totals accumulate over every fill the ledger has seen, including those evicted from the window.
type Totals struct {
	Fills    int
	Entries  int
	Exits    int // reduce-only fills
	Notional float64
}

// Ledger keeps a bounded window of recent dry-run fills plus running totals.
type Ledger struct {
	mu     sync.Mutex
	recent *buffer.Ring[execution.Fill]
	totals Totals
}

// NewLedger creates an empty ledger holding the last capacity fills.
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = defaultLedgerCapacity
	}
	return &Ledger{recent: buffer.NewRing[execution.Fill](capacity)}
}

// Record appends a fill, evicting the oldest when the window is full.
func (l *Ledger) Record(fill execution.Fill) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recent.Push(fill)
	l.totals.Fills++
	if fill.ReduceOnly {
		l.totals.Exits++
	} else {
		l.totals.Entries++
	}
	l.totals.Notional += fill.Qty * fill.Price
}

// Totals returns the running totals.
func (l *Ledger) Totals() Totals {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totals
}

// Last returns the most recent fill.
func (l *Ledger) Last() (execution.Fill, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recent.Last()
}

// Snapshot returns the fills in the window, oldest first.
func (l *Ledger) Snapshot() []execution.Fill {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recent.AppendTo(make([]execution.Fill, 0, l.recent.Len()))
}
