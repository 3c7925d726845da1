package paper

import (
	"math"
	"testing"

	"perpbot-go/internal/execution"
)

func fill(side execution.Side, qty, price float64) execution.Fill {
	return execution.Fill{Symbol: "ETH", Side: side, Qty: qty, Price: price}
}

func TestLongRoundTrip(t *testing.T) {
	account := NewAccount("ETH")
	account.Record(fill(execution.Buy, 0.5, 1000))
	account.Record(fill(execution.Buy, 0.25, 1100))

	snap := account.Snapshot(1150)
	if math.Abs(snap.NetQty-0.75) > 1e-9 {
		t.Fatalf("expected qty 0.75, got %.4f", snap.NetQty)
	}
	if math.Abs(snap.AvgEntry-1000*2/3.0-1100/3.0) > 1e-6 {
		t.Fatalf("unexpected avg entry %.4f", snap.AvgEntry)
	}
	if snap.Unrealized <= 0 {
		t.Fatalf("expected positive unrealized, got %.2f", snap.Unrealized)
	}

	account.Record(fill(execution.Sell, 0.75, 1200))
	snap = account.Snapshot(0)
	if snap.NetQty != 0 {
		t.Fatalf("expected flat, got %v", snap.NetQty)
	}
	// (1200 - 1033.33) * 0.75
	if math.Abs(snap.RealizedPnL-125) > 1e-6 {
		t.Fatalf("expected realized 125, got %.4f", snap.RealizedPnL)
	}
	if account.Snapshot(0).Fills != 3 {
		t.Fatalf("expected three fills")
	}
}

func TestShortRoundTrip(t *testing.T) {
	account := NewAccount("ETH")
	account.Record(fill(execution.Sell, 2, 100))
	snap := account.Snapshot(98)
	if snap.NetQty != -2 || snap.Unrealized != 4 {
		t.Fatalf("unexpected short snapshot %+v", snap)
	}
	account.Record(fill(execution.Buy, 2, 97))
	if snap = account.Snapshot(0); snap.NetQty != 0 || snap.RealizedPnL != 6 {
		t.Fatalf("expected flat with realized 6, got %+v", snap)
	}
}

func TestCrossThroughZero(t *testing.T) {
	account := NewAccount("ETH")
	account.Record(fill(execution.Buy, 1, 100))
	account.Record(fill(execution.Sell, 3, 110))
	snap := account.Snapshot(0)
	if snap.NetQty != -2 || snap.AvgEntry != 110 || snap.RealizedPnL != 10 {
		t.Fatalf("unexpected snapshot after crossing %+v", snap)
	}
}

func TestIgnoresForeignAndInvalidFills(t *testing.T) {
	account := NewAccount("ETH")
	account.Record(execution.Fill{Symbol: "BTC", Side: execution.Buy, Qty: 1, Price: 1})
	account.Record(fill(execution.Buy, 0, 100))
	if snap := account.Snapshot(100); snap.Fills != 0 || snap.NetQty != 0 {
		t.Fatalf("expected untouched account, got %+v", snap)
	}
}
