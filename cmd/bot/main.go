package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"perpbot-go/internal/config"
	"perpbot-go/internal/engine"
	"perpbot-go/internal/exchange"
	"perpbot-go/internal/execution"
	"perpbot-go/internal/features"
	"perpbot-go/internal/metrics"
	"perpbot-go/internal/paper"
	"perpbot-go/internal/risk"
	sig "perpbot-go/internal/signal"
	"perpbot-go/internal/strategy"
	"perpbot-go/internal/util"
)

const shutdownGrace = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML config; defaults apply when empty")
	envFile := flag.String("env", ".env", "dotenv file loaded before PERPBOT_* overrides")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.ApplyEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	log, closer := util.NewWithCloser(util.Options{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
		File:   util.FileOptions{Path: cfg.App.LogFile},
	})
	if closer != nil {
		defer closer.Close()
	}

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("bot stopped")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	srv := metrics.Serve(cfg.App.MetricsAddr)
	defer srv.Close()
	if cfg.App.MetricsAddr != "" {
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	gw, book, cleanup, err := buildGateway(cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	ec := engineConfig(cfg)
	policy, err := strategy.Build(cfg.Strategy.Mode, ec.Strategy)
	if err != nil {
		return err
	}
	eng, err := engine.New(ec, gw, log, engine.WithPolicy(policy))
	if err != nil {
		return err
	}
	feed, err := exchange.NewFeed(cfg.Exchange.Provider, exchange.Target{
		Symbol:   cfg.Exchange.Symbol,
		MarketID: cfg.Exchange.MarketID,
		BaseURL:  cfg.Exchange.BaseURL,
		URL:      cfg.Exchange.StreamURL,
	}, log, feedOptions(cfg)...)
	if err != nil {
		return err
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().
		Str("provider", feed.Provider()).
		Str("strategy", policy.Name()).
		Str("sym", cfg.Exchange.Symbol).
		Int("market", cfg.Exchange.MarketID).
		Bool("dry_run", cfg.Execution.DryRun).
		Float64("notional", cfg.Risk.Margin*cfg.Risk.Leverage).
		Msg("perp engine started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return feed.Run(gctx, func(ctx context.Context, tk sig.Tick) {
			if _, err := eng.OnTick(ctx, tk); err != nil {
				log.Error().Err(err).Float64("px", tk.Price).Msg("tick failed")
			}
		})
	})
	g.Go(func() error {
		reportStatus(gctx, eng, book, cfg.App.StatusIntervalMs, log)
		return nil
	})

	err = g.Wait()
	log.Info().Msg("shutting down")
	if !eng.WaitTimeout(shutdownGrace) {
		log.Warn().Dur("grace", shutdownGrace).Msg("order submissions still pending at exit")
	}
	st := eng.Status()
	summary := log.Info().Int("trades", st.Trades).Float64("realized", st.Realized).Str("pos", st.Position.Side.String())
	if book != nil {
		for _, f := range book.ledger.Snapshot() {
			log.Debug().Str("tx", f.TxID).Str("side", string(f.Side)).Float64("qty", f.Qty).
				Float64("px", f.Price).Bool("reduce_only", f.ReduceOnly).Msg("fill")
		}
		tot := book.ledger.Totals()
		venue := book.account.Snapshot(st.Mark)
		summary = summary.Int("fills", tot.Fills).Int("exits", tot.Exits).Float64("volume", tot.Notional).
			Float64("venue_net", venue.NetQty).Float64("venue_realized", venue.RealizedPnL)
	}
	summary.Msg("session summary")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// paperBook is the dry-run venue's view of its own fills.
type paperBook struct {
	account *paper.Account
	ledger  *paper.Ledger
}

// fields adds the venue-side position and the latest fill, so model/venue divergence shows in the status line.
func (b *paperBook) fields(ev *zerolog.Event, mark float64) *zerolog.Event {
	venue := b.account.Snapshot(mark)
	ev = ev.Float64("venue_net", venue.NetQty).Float64("venue_upnl", venue.Unrealized)
	if last, ok := b.ledger.Last(); ok {
		ev = ev.Str("last_fill", string(last.Side)).Float64("last_fill_px", last.Price)
	}
	return ev
}

// buildGateway returns the execution boundary and, in dry-run mode, the book that mirrors its fills.
func buildGateway(cfg *config.Config, log zerolog.Logger) (execution.Gateway, *paperBook, func(), error) {
	cleanup := func() {}
	var (
		gw   execution.Gateway
		book *paperBook
	)
	if cfg.Execution.DryRun {
		book = &paperBook{account: paper.NewAccount(cfg.Exchange.Symbol), ledger: paper.NewLedger(0)}
		recorders := []execution.Recorder{book.account, book.ledger}
		if cfg.Paper.FillsPath != "" {
			rec, err := paper.NewJSONLRecorder(cfg.Paper.FillsPath, log)
			if err != nil {
				return nil, nil, nil, err
			}
			recorders = append(recorders, rec)
			cleanup = func() { _ = rec.Close() }
			log.Info().Str("path", rec.Path()).Msg("recording paper fills")
		}
		gw = execution.NewDryRun(log, recorders...)
	} else {
		gw = execution.NewHTTPGateway(cfg.Execution.GatewayURL, time.Duration(cfg.Execution.TimeoutMs)*time.Millisecond, log)
	}
	if cfg.Execution.MaxOrdersPerSec > 0 {
		gw = execution.NewThrottled(gw, cfg.Execution.MaxOrdersPerSec, cfg.Execution.Burst)
	}
	return gw, book, cleanup, nil
}

func engineConfig(cfg *config.Config) engine.Config {
	st, p, r := cfg.Strategy, cfg.Strategy.Params, cfg.Risk
	return engine.Config{
		Symbol:          cfg.Exchange.Symbol,
		MarketID:        cfg.Exchange.MarketID,
		FastPeriod:      st.FastPeriod,
		SlowPeriod:      st.SlowPeriod,
		BiasBand:        st.BiasBand,
		PriceCapacity:   st.PriceCapacity,
		ArrivalCapacity: st.ArrivalCapacity,
		Features: features.Params{
			ZWindow:   st.ZWindow,
			VolWindow: st.VolWindow,
		},
		Strategy: strategy.Params{
			ChopStrength:   p.ChopStrength,
			StrongStrength: p.StrongStrength,
			MomentumZ:      p.MomentumZ,
			ReversalZ:      p.ReversalZ,
			StrongZ:        p.StrongZ,
			ExhaustionZ:    p.ExhaustionZ,
			ReversalScore:  p.ReversalScore,
			MomentumScore:  p.MomentumScore,
			BurstHigh:      p.BurstHigh,
			BurstLow:       p.BurstLow,
			BurstStrong:    p.BurstStrong,
			BurstFadeKeep:  p.BurstFadeKeep,
			RunLength:      p.RunLength,
			SlopeWeight:    p.SlopeWeight,
			AccelWeight:    p.AccelWeight,
			BurstWeight:    p.BurstWeight,
			TrendWeight:    p.TrendWeight,
		},
		Sizer:       risk.Sizer{Margin: r.Margin, Leverage: r.Leverage, MinQty: r.MinQty, QtyStep: r.QtyStep},
		Limits:      risk.Limits{MaxNotionalPerTrade: r.MaxNotionalPerTrade},
		Exits:       risk.Exits{MinTP: r.MinTP, MinSL: r.MinSL, TPMult: r.TPMult, SLMult: r.SLMult},
		MaxSlippage: cfg.Execution.MaxSlippage,
	}
}

func feedOptions(cfg *config.Config) []exchange.Option {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }
	return []exchange.Option{
		exchange.WithHeartbeat(ms(cfg.Exchange.HeartbeatMs)),
		exchange.WithBackoff(0, ms(cfg.Exchange.BackoffMaxMs)),
		exchange.WithReadTimeout(ms(cfg.Exchange.ReadTimeoutMs)),
		exchange.WithStub(ms(cfg.Exchange.StubIntervalMs), 0, 0),
	}
}

// reportStatus logs the engine snapshot on a fixed cadence until ctx ends.
func reportStatus(ctx context.Context, eng *engine.Engine, book *paperBook, intervalMs int, log zerolog.Logger) {
	if intervalMs <= 0 {
		return
	}
	ticker := time.NewTicker(time.Duration(intervalMs) * time.Millisecond)
	defer ticker.Stop()
	var lastTicks int
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := eng.Status()
			if st.Ticks == lastTicks {
				log.Debug().Int("ticks", st.Ticks).Msg("no new ticks")
				continue
			}
			lastTicks = st.Ticks
			ev := log.Info().EmbedObject(st)
			if book != nil {
				ev = book.fields(ev, st.Mark)
			}
			ev.Msg("status")
		}
	}
}
