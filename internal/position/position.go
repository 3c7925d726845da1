// Package position tracks the single logical position: FLAT, LONG or SHORT.
package position

import (
	"errors"
	"fmt"
	"time"

	"perpbot-go/internal/signal"
)

var (
	// ErrNotFlat is returned when an entry is attempted while a position is open.
	ErrNotFlat = errors.New("position: not flat")
	// ErrFlat is returned when an exit is evaluated with no open position.
	ErrFlat = errors.New("position: flat")
)

// Side is the state of the lifecycle.
type Side int

const (
	Flat Side = iota
	Long
	Short
)

func (s Side) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// Sign is +1 for LONG, -1 for SHORT and 0 when flat.
func (s Side) Sign() float64 {
	switch s {
	case Long:
		return 1
	case Short:
		return -1
	}
	return 0
}

// SideFor maps an entry action to the position side it opens.
func SideFor(a signal.Action) Side {
	switch a {
	case signal.ActionLong:
		return Long
	case signal.ActionShort:
		return Short
	}
	return Flat
}

// Position is fixed for its whole life; only the lifecycle creates or clears it.
type Position struct {
	Side       Side
	EntryPrice float64
	Qty        float64
	EntryAt    time.Time
}

// PnL is the unrealized profit in quote currency at mark.
func (p Position) PnL(mark float64) float64 {
	return p.Side.Sign() * (mark - p.EntryPrice) * p.Qty
}

// ExitReason says which threshold closed a position.
type ExitReason string

const (
	TakeProfit ExitReason = "take_profit"
	StopLoss   ExitReason = "stop_loss"
)

// Exit describes a closed position.
type Exit struct {
	Position Position
	Mark     float64
	PnL      float64
	Reason   ExitReason
	At       time.Time
}

// Lifecycle is the FLAT/LONG/SHORT state machine. It is not safe for concurrent use; the engine
// confines it to the tick pipeline.
type Lifecycle struct {
	pos      Position
	trades   int
	realized float64
}

// Current returns the open position, Side == Flat when none.
func (l *Lifecycle) Current() Position { return l.pos }

// IsFlat reports whether no position is open.
func (l *Lifecycle) IsFlat() bool { return l.pos.Side == Flat }

// Trades returns the number of completed round trips.
func (l *Lifecycle) Trades() int { return l.trades }

// Realized returns the cumulative PnL of completed round trips.
func (l *Lifecycle) Realized() float64 { return l.realized }

// Unrealized returns the open position's PnL at mark, 0 when flat.
func (l *Lifecycle) Unrealized(mark float64) float64 {
	if l.IsFlat() {
		return 0
	}
	return l.pos.PnL(mark)
}

// Open moves FLAT to LONG or SHORT at price. There is no flip: a non-flat lifecycle returns ErrNotFlat.
func (l *Lifecycle) Open(side Side, price, qty float64, at time.Time) (Position, error) {
	if !l.IsFlat() {
		return Position{}, fmt.Errorf("open %s while %s: %w", side, l.pos.Side, ErrNotFlat)
	}
	if side == Flat {
		return Position{}, fmt.Errorf("open requires LONG or SHORT")
	}
	if price <= 0 || qty <= 0 {
		return Position{}, fmt.Errorf("open %s with price=%v qty=%v", side, price, qty)
	}
	l.pos = Position{Side: side, EntryPrice: price, Qty: qty, EntryAt: at}
	return l.pos, nil
}

// Evaluate checks the open position against the take-profit and stop-loss distances at mark.
// It returns a non-nil Exit and resets to FLAT when either threshold is crossed.
func (l *Lifecycle) Evaluate(mark, tp, sl float64, at time.Time) (*Exit, error) {
	if l.IsFlat() {
		return nil, ErrFlat
	}
	pnl := l.pos.PnL(mark)
	var reason ExitReason
	switch {
	case pnl >= tp:
		reason = TakeProfit
	case pnl <= -sl:
		reason = StopLoss
	default:
		return nil, nil
	}
	exit := &Exit{Position: l.pos, Mark: mark, PnL: pnl, Reason: reason, At: at}
	l.trades++
	l.realized += pnl
	l.pos = Position{}
	return exit, nil
}
