// Package engine runs the per-tick pipeline for one instrument: buffer, regime, features, exits,
// decision, entries. All pipeline state lives in an Engine value; nothing is global.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"perpbot-go/internal/buffer"
	"perpbot-go/internal/execution"
	"perpbot-go/internal/features"
	"perpbot-go/internal/metrics"
	"perpbot-go/internal/position"
	"perpbot-go/internal/regime"
	"perpbot-go/internal/risk"
	"perpbot-go/internal/signal"
	"perpbot-go/internal/strategy"
)

// Config holds everything the pipeline treats as constant.
type Config struct {
	Symbol   string
	MarketID int

	FastPeriod float64 // minutes
	SlowPeriod float64 // minutes
	BiasBand   float64

	PriceCapacity   int
	ArrivalCapacity int
	Features        features.Params
	Strategy        strategy.Params

	Sizer       risk.Sizer
	Limits      risk.Limits
	Exits       risk.Exits
	MaxSlippage float64
}

// Policy decides an action from the tick's inputs and the carried decision memory.
type Policy interface {
	Evaluate(in strategy.Input, st *strategy.DecisionState) signal.Decision
}

// Option customizes an Engine.
type Option func(*Engine)

// WithPolicy replaces the flow policy.
func WithPolicy(p Policy) Option {
	return func(e *Engine) {
		if p != nil {
			e.policy = p
		}
	}
}

// Result reports what one tick did.
type Result struct {
	Accepted bool
	Regime   regime.State
	Features features.Snapshot
	Decision signal.Decision
	Exit     *position.Exit
	Entry    *position.Position
}

// Engine is the streaming session. OnTick must be called from a single goroutine; Status may be
// read from any goroutine.
type Engine struct {
	cfg     Config
	log     zerolog.Logger
	gateway execution.Gateway

	buf       *buffer.TickBuffer
	regime    *regime.Estimator
	extractor features.Extractor
	policy    Policy
	memory    strategy.DecisionState
	life      position.Lifecycle

	// submissions run in order, one after another, off the tick path
	inflight sync.WaitGroup
	lastSub  chan struct{}

	mu     sync.RWMutex
	status Status
}

// New wires a session. The gateway is required; use execution.DryRun for simulation.
func New(cfg Config, gateway execution.Gateway, log zerolog.Logger, opts ...Option) (*Engine, error) {
	if gateway == nil {
		return nil, errors.New("engine: nil gateway")
	}
	if cfg.Symbol == "" {
		return nil, errors.New("engine: empty symbol")
	}
	if cfg.Exits == (risk.Exits{}) {
		cfg.Exits = risk.DefaultExits()
	}
	log = log.With().Str("component", "engine").Str("sym", cfg.Symbol).Logger()
	e := &Engine{
		cfg:       cfg,
		log:       log,
		gateway:   gateway,
		buf:       buffer.NewTickBuffer(cfg.PriceCapacity, cfg.ArrivalCapacity, log),
		regime:    regime.NewEstimator(cfg.FastPeriod, cfg.SlowPeriod, cfg.BiasBand),
		extractor: features.NewExtractor(cfg.Features),
		policy:    strategy.NewFlowEngine(cfg.Strategy),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.status = Status{Symbol: cfg.Symbol}
	return e, nil
}

// OnTick runs the pipeline for one tick. Exit evaluation resolves before entry, so a position closed
// on this tick leaves the lifecycle FLAT for the decision that follows. Errors are contract
// violations (a size that resolves to zero, an impossible transition); state is left consistent.
func (e *Engine) OnTick(ctx context.Context, tk signal.Tick) (Result, error) {
	var res Result
	if !e.buf.Append(tk) {
		return res, nil
	}
	res.Accepted = true
	metrics.MarkPrice.WithLabelValues(e.cfg.Symbol).Set(tk.Price)

	res.Regime = e.regime.Update(tk.Price, tk.Ts)
	res.Features = e.extractor.Compute(e.buf.Prices(), e.buf.Arrivals(), res.Regime.Strength)
	defer func() { e.publish(tk, res) }()

	if !e.life.IsFlat() {
		pos := e.life.Current()
		tp, sl := e.cfg.Exits.Thresholds(res.Features.Volatility, pos.Qty)
		exit, err := e.life.Evaluate(tk.Price, tp, sl, tk.Ts)
		if err != nil {
			return res, fmt.Errorf("evaluate exit: %w", err)
		}
		if exit != nil {
			res.Exit = exit
			e.onExit(ctx, exit, tp, sl)
		}
	}

	res.Decision = e.policy.Evaluate(strategy.Input{
		Bias:      res.Regime.Bias,
		FastSlope: res.Regime.FastSlope,
		Features:  res.Features,
		Ts:        tk.Ts,
	}, &e.memory)
	if res.Decision.Action == signal.ActionNone {
		return res, nil
	}
	metrics.DecisionsTotal.WithLabelValues(e.cfg.Symbol, res.Decision.Action.String()).Inc()
	if !e.life.IsFlat() {
		e.log.Debug().Str("action", res.Decision.Action.String()).Str("held", e.life.Current().Side.String()).
			Msg("decision ignored while in position")
		return res, nil
	}

	qty, err := e.cfg.Sizer.Quantity(tk.Price)
	if err != nil {
		return res, fmt.Errorf("size entry: %w", err)
	}
	if notional := qty * tk.Price; !e.cfg.Limits.Allow(notional) {
		e.log.Warn().Float64("notional", notional).Float64("cap", e.cfg.Limits.MaxNotionalPerTrade).
			Msg("entry blocked by notional cap")
		return res, nil
	}
	pos, err := e.life.Open(position.SideFor(res.Decision.Action), tk.Price, qty, tk.Ts)
	if err != nil {
		return res, fmt.Errorf("open position: %w", err)
	}
	res.Entry = &pos
	e.onEntry(ctx, pos, res)
	return res, nil
}

func (e *Engine) onEntry(ctx context.Context, pos position.Position, res Result) {
	side := orderSide(pos.Side)
	e.log.Info().
		Str("side", pos.Side.String()).
		Float64("px", pos.EntryPrice).
		Float64("qty", pos.Qty).
		Float64("score", res.Decision.Score).
		Float64("z", res.Features.ZScore).
		Str("reason", res.Decision.Reason).
		Msg("entry")
	e.submit(ctx, execution.Order{
		Symbol:      e.cfg.Symbol,
		MarketID:    e.cfg.MarketID,
		Side:        side,
		Qty:         pos.Qty,
		RefPrice:    pos.EntryPrice,
		MaxSlippage: e.cfg.MaxSlippage,
	})
}

func (e *Engine) onExit(ctx context.Context, exit *position.Exit, tp, sl float64) {
	metrics.TradesTotal.WithLabelValues(e.cfg.Symbol, string(exit.Reason)).Inc()
	e.log.Info().
		Str("side", exit.Position.Side.String()).
		Str("reason", string(exit.Reason)).
		Float64("entry", exit.Position.EntryPrice).
		Float64("px", exit.Mark).
		Float64("qty", exit.Position.Qty).
		Float64("pnl", exit.PnL).
		Float64("tp", tp).
		Float64("sl", sl).
		Dur("held", exit.At.Sub(exit.Position.EntryAt)).
		Int("trades", e.life.Trades()).
		Float64("realized", e.life.Realized()).
		Msg("exit")
	e.submit(ctx, execution.Order{
		Symbol:      e.cfg.Symbol,
		MarketID:    e.cfg.MarketID,
		Side:        orderSide(exit.Position.Side).Opposite(),
		Qty:         exit.Position.Qty,
		RefPrice:    exit.Mark,
		MaxSlippage: e.cfg.MaxSlippage,
		ReduceOnly:  true,
	})
}

// submit hands the order to the gateway without blocking the tick path. Requests reach the gateway
// in the order they were made. A failure is logged and counted; the lifecycle is never rolled back.
func (e *Engine) submit(ctx context.Context, order execution.Order) {
	prev := e.lastSub
	done := make(chan struct{})
	e.lastSub = done

	e.inflight.Add(1)
	go func() {
		defer e.inflight.Done()
		defer close(done)
		if prev != nil {
			<-prev
		}

		side := string(order.Side)
		tx, err := e.gateway.SubmitMarketOrder(ctx, order)
		if err != nil {
			metrics.OrdersFailed.WithLabelValues(order.Symbol, side).Inc()
			ev := e.log.Warn().Err(err).Str("side", side).Float64("qty", order.Qty).
				Float64("px", order.RefPrice).Bool("reduce_only", order.ReduceOnly)
			if ctx.Err() != nil {
				ev.Msg("order outcome unknown: submission abandoned on shutdown")
				return
			}
			ev.Msg("order not confirmed")
			return
		}
		metrics.OrdersTotal.WithLabelValues(order.Symbol, side).Inc()
		e.log.Info().Str("side", side).Float64("qty", order.Qty).Bool("reduce_only", order.ReduceOnly).
			Str("tx", tx).Msg("order confirmed")
	}()
}

// Wait blocks until every submitted order has resolved or been abandoned.
func (e *Engine) Wait() {
	e.inflight.Wait()
}

// WaitTimeout is Wait bounded by d; it reports whether everything resolved.
// On timeout the waiter goroutine stays parked until the submissions resolve, so call it once at
// shutdown rather than in a polling loop.
func (e *Engine) WaitTimeout(d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		e.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

func orderSide(s position.Side) execution.Side {
	if s == position.Short {
		return execution.Sell
	}
	return execution.Buy
}
