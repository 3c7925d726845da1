package risk

import "math"

// Exits holds the volatility-adaptive take-profit and stop-loss settings, in quote currency.
type Exits struct {
	MinTP  float64
	MinSL  float64
	TPMult float64
	SLMult float64
}

// DefaultExits returns the production exit settings.
func DefaultExits() Exits {
	return Exits{MinTP: 0.5, MinSL: 0.5, TPMult: 1.5, SLMult: 1.0}
}

// Thresholds returns the PnL distances that close a position of qty given volatility sigma.
// Take-profit fires at pnl >= tp and stop-loss at pnl <= -sl.
func (e Exits) Thresholds(sigma, qty float64) (tp, sl float64) {
	tp = math.Max(e.MinTP, e.TPMult*sigma*qty)
	sl = math.Max(e.MinSL, e.SLMult*sigma*qty)
	return tp, sl
}
