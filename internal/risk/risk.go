// Package risk sizes entries and derives the exit thresholds of an open position.
package risk

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrZeroQuantity is returned when the configured notional cannot buy a tradable size.
var ErrZeroQuantity = errors.New("risk: quantity resolves to zero")

// Limits caps the notional of a single order. A non-positive cap means unlimited.
type Limits struct {
	MaxNotionalPerTrade float64
}

// Allow reports whether an order of the given notional fits the cap.
func (l Limits) Allow(notional float64) bool {
	if l.MaxNotionalPerTrade <= 0 {
		return true
	}
	return notional <= l.MaxNotionalPerTrade
}

// Sizer turns the fixed notional target into an order quantity.
type Sizer struct {
	Margin   float64
	Leverage float64
	MinQty   float64 // smallest size the venue accepts
	QtyStep  float64 // lot step; zero disables rounding
}

// Notional is margin times leverage.
func (s Sizer) Notional() float64 {
	return s.Margin * s.Leverage
}

// Quantity divides the notional by price, floors it to the lot step and lifts it to MinQty.
func (s Sizer) Quantity(price float64) (float64, error) {
	if price <= 0 {
		return 0, fmt.Errorf("size at price %v: %w", price, ErrZeroQuantity)
	}
	notional := s.Notional()
	if notional <= 0 {
		return 0, fmt.Errorf("notional %v: %w", notional, ErrZeroQuantity)
	}
	qty := decimal.NewFromFloat(notional).Div(decimal.NewFromFloat(price))
	if s.QtyStep > 0 {
		step := decimal.NewFromFloat(s.QtyStep)
		qty = qty.Div(step).Floor().Mul(step)
	}
	if minQty := decimal.NewFromFloat(s.MinQty); qty.LessThan(minQty) {
		qty = minQty
	}
	if !qty.IsPositive() {
		return 0, fmt.Errorf("notional %v at price %v: %w", notional, price, ErrZeroQuantity)
	}
	return qty.InexactFloat64(), nil
}
