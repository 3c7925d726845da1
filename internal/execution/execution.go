// Package execution is the boundary to the venue: orders go out through a Gateway and come back as
// transaction ids or errors.
package execution

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrRejected marks an order the gateway refused before or at the venue.
var ErrRejected = errors.New("execution: order rejected")

// Side enumerates order directions used by the gateways.
type Side string

const (
	// Buy opens a long or closes a short.
	Buy Side = "BUY"
	// Sell opens a short or closes a long.
	Sell Side = "SELL"
)

// Opposite returns the side that flattens a position opened with s.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Sign is +1 for Buy and -1 for Sell.
func (s Side) Sign() float64 {
	if s == Buy {
		return 1
	}
	return -1
}

// Order is a market order request with a slippage bound around the reference price.
type Order struct {
	Symbol      string
	MarketID    int
	Side        Side
	Qty         float64
	RefPrice    float64
	MaxSlippage float64 // fraction of RefPrice, 0.005 = 0.5%
	ReduceOnly  bool
}

// Validate rejects orders no venue would accept.
func (o Order) Validate() error {
	switch {
	case o.Side != Buy && o.Side != Sell:
		return fmt.Errorf("side %q: %w", o.Side, ErrRejected)
	case !(o.Qty > 0) || math.IsInf(o.Qty, 0):
		return fmt.Errorf("qty %v: %w", o.Qty, ErrRejected)
	case !(o.RefPrice > 0) || math.IsInf(o.RefPrice, 0):
		return fmt.Errorf("ref price %v: %w", o.RefPrice, ErrRejected)
	case o.MaxSlippage < 0 || o.MaxSlippage >= 1:
		return fmt.Errorf("max slippage %v: %w", o.MaxSlippage, ErrRejected)
	}
	return nil
}

// WorstPrice is the least favourable acceptable fill price.
func (o Order) WorstPrice() float64 {
	return o.RefPrice * (1 + o.Side.Sign()*o.MaxSlippage)
}

// Fill is what a gateway reports for an accepted order.
type Fill struct {
	TxID       string    `json:"tx_id"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Qty        float64   `json:"qty"`
	Price      float64   `json:"price"`
	ReduceOnly bool      `json:"reduce_only"`
	At         time.Time `json:"at"`
}

// Gateway submits market orders and returns the venue transaction id.
type Gateway interface {
	SubmitMarketOrder(ctx context.Context, order Order) (string, error)
}

// Recorder captures fills for later inspection.
type Recorder interface {
	Record(Fill)
}
