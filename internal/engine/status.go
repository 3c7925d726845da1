package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"perpbot-go/internal/features"
	"perpbot-go/internal/metrics"
	"perpbot-go/internal/position"
	"perpbot-go/internal/signal"
)

// Status is the telemetry snapshot published after every accepted tick.
type Status struct {
	Symbol     string
	Ticks      int
	Mark       float64
	Bias       signal.Bias
	Warm       bool
	Features   features.Snapshot
	Position   position.Position
	Unrealized float64
	TP         float64
	SL         float64
	Trades     int
	Realized   float64
	Decision   signal.Decision
	UpdatedAt  time.Time
}

// Status returns the latest snapshot.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

func (e *Engine) publish(tk signal.Tick, res Result) {
	pos := e.life.Current()
	st := Status{
		Symbol:    e.cfg.Symbol,
		Mark:      tk.Price,
		Bias:      res.Regime.Bias,
		Warm:      res.Regime.Warm,
		Features:  res.Features,
		Position:  pos,
		Trades:    e.life.Trades(),
		Realized:  e.life.Realized(),
		Decision:  res.Decision,
		UpdatedAt: tk.Ts,
	}
	if pos.Side != position.Flat {
		st.Unrealized = pos.PnL(tk.Price)
		st.TP, st.SL = e.cfg.Exits.Thresholds(res.Features.Volatility, pos.Qty)
	}

	e.mu.Lock()
	st.Ticks = e.status.Ticks + 1
	e.status = st
	e.mu.Unlock()

	sym := e.cfg.Symbol
	metrics.PositionSide.WithLabelValues(sym).Set(pos.Side.Sign())
	metrics.UnrealizedPnL.WithLabelValues(sym).Set(st.Unrealized)
	metrics.RealizedPnL.WithLabelValues(sym).Set(st.Realized)
}

// MarshalZerologObject renders the status as structured fields.
func (s Status) MarshalZerologObject(ev *zerolog.Event) {
	f := s.Features
	ev.Str("sym", s.Symbol).
		Float64("mark", s.Mark).
		Str("bias", s.Bias.String()).
		Float64("z", f.ZScore).
		Float64("slope", f.ShortSlope).
		Float64("rate", f.TickRateRatio).
		Float64("strength", f.RegimeStrength).
		Float64("sigma", f.Volatility).
		Str("pos", s.Position.Side.String()).
		Int("trades", s.Trades).
		Float64("realized", s.Realized)
	if s.Position.Side != position.Flat {
		ev.Float64("qty", s.Position.Qty).
			Float64("entry", s.Position.EntryPrice).
			Float64("upnl", s.Unrealized).
			Float64("tp", s.TP).
			Float64("sl", s.SL)
	}
}

// String is the one-line human-readable form.
func (s Status) String() string {
	var b strings.Builder
	f := s.Features
	fmt.Fprintf(&b, "[%s] mark=%.4f bias=%s z=%.2f slope=%.4f rate=%.2f strength=%.5f sigma=%.4f",
		s.Symbol, s.Mark, s.Bias, f.ZScore, f.ShortSlope, f.TickRateRatio, f.RegimeStrength, f.Volatility)
	if s.Position.Side == position.Flat {
		b.WriteString(" pos=FLAT")
	} else {
		fmt.Fprintf(&b, " pos=%s qty=%.4f entry=%.4f upnl=%.4f tp=%.4f sl=%.4f",
			s.Position.Side, s.Position.Qty, s.Position.EntryPrice, s.Unrealized, s.TP, s.SL)
	}
	fmt.Fprintf(&b, " trades=%d realized=%.4f", s.Trades, s.Realized)
	return b.String()
}
