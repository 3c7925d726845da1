package integration

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"perpbot-go/internal/engine"
	"perpbot-go/internal/exchange"
	"perpbot-go/internal/execution"
	"perpbot-go/internal/paper"
	"perpbot-go/internal/position"
	"perpbot-go/internal/risk"
	"perpbot-go/internal/signal"
)

// syncBuffer lets the submission goroutines and the test share one log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestPaperFlowRoundTrips(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var logs syncBuffer
	logger := zerolog.New(&logs)

	ledger := paper.NewLedger(64)
	account := paper.NewAccount("ETH")
	gateway := execution.NewDryRun(logger, ledger, account)

	eng, err := engine.New(engine.Config{
		Symbol:      "ETH",
		Sizer:       risk.Sizer{Margin: 50, Leverage: 10, MinQty: 0.001, QtyStep: 0.001},
		Exits:       risk.DefaultExits(),
		MaxSlippage: 0.005,
	}, gateway, logger)
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}

	// one synthetic second per tick, emitted every couple of milliseconds
	feed, err := exchange.NewFeed(exchange.ProviderStub, exchange.Target{Symbol: "ETH"}, logger,
		exchange.WithStub(2*time.Millisecond, time.Second, 100))
	if err != nil {
		t.Fatalf("NewFeed: %v", err)
	}

	var tickErr error
	err = feed.Run(ctx, func(_ context.Context, tk signal.Tick) {
		// submissions must outlive the feed so the book settles after cancel
		if _, err := eng.OnTick(context.Background(), tk); err != nil && tickErr == nil {
			tickErr = err
		}
		if eng.Status().Trades >= 2 {
			cancel()
		}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected feed to stop on cancel, got %v", err)
	}
	if tickErr != nil {
		t.Fatalf("OnTick: %v", tickErr)
	}
	if !eng.WaitTimeout(2 * time.Second) {
		t.Fatalf("submissions did not settle")
	}

	st := eng.Status()
	if st.Trades < 2 {
		t.Fatalf("expected at least two round trips, got %d", st.Trades)
	}

	fills := ledger.Snapshot()
	if tot := ledger.Totals(); tot.Exits != st.Trades {
		t.Fatalf("expected one reduce-only fill per trade, got %+v for %d trades", tot, st.Trades)
	}
	if len(fills) < 2*st.Trades {
		t.Fatalf("expected an entry and an exit per trade, got %d fills for %d trades", len(fills), st.Trades)
	}
	if last, ok := ledger.Last(); !ok || last.TxID != fills[len(fills)-1].TxID {
		t.Fatalf("ledger last fill out of step with its window")
	}
	if fills[0].ReduceOnly || !fills[1].ReduceOnly || fills[1].Side != fills[0].Side.Opposite() || fills[1].Qty != fills[0].Qty {
		t.Fatalf("expected entry then reduce-only exit, got %+v %+v", fills[0], fills[1])
	}

	venue := account.Snapshot(st.Mark)
	model := st.Position.Side.Sign() * st.Position.Qty
	if math.Abs(venue.NetQty-model) > 1e-9 {
		t.Fatalf("venue net %.6f diverged from model %.6f (%s)", venue.NetQty, model, st.Position.Side)
	}
	if math.Abs(venue.RealizedPnL-st.Realized) > 1e-6 {
		t.Fatalf("venue realized %.6f vs model %.6f", venue.RealizedPnL, st.Realized)
	}
	if math.Abs(venue.Unrealized-st.Unrealized) > 1e-6 {
		t.Fatalf("venue unrealized %.6f vs model %.6f", venue.Unrealized, st.Unrealized)
	}
	if st.Realized <= 0 {
		t.Fatalf("expected take-profits on the rising walk, realized %.4f", st.Realized)
	}
	if st.Position.Side == position.Flat && venue.NetQty != 0 {
		t.Fatalf("flat model with open venue position")
	}
	if !strings.Contains(logs.String(), "submit order (dry run)") {
		t.Fatalf("expected dry-run submissions in the log")
	}
}
