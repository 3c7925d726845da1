package paper

import (
	"testing"

	"perpbot-go/internal/execution"
)

func TestLedgerRecordSnapshot(t *testing.T) {
	ledger := NewLedger(2)
	if _, ok := ledger.Last(); ok {
		t.Fatalf("expected empty ledger")
	}
	ledger.Record(execution.Fill{Symbol: "ETH", Side: execution.Buy, Qty: 1, Price: 100})
	ledger.Record(execution.Fill{Symbol: "ETH", Side: execution.Sell, Qty: 1, Price: 102, ReduceOnly: true})

	snapshot := ledger.Snapshot()
	if len(snapshot) != 2 || ledger.Totals().Fills != 2 {
		t.Fatalf("expected 2 fills, got %d", len(snapshot))
	}
	last, ok := ledger.Last()
	if !ok || last.Side != execution.Sell || !last.ReduceOnly {
		t.Fatalf("unexpected last fill %+v", last)
	}
}

func TestLedgerWindowKeepsTotals(t *testing.T) {
	ledger := NewLedger(2)
	ledger.Record(execution.Fill{Side: execution.Buy, Qty: 1, Price: 100})
	ledger.Record(execution.Fill{Side: execution.Sell, Qty: 1, Price: 101, ReduceOnly: true})
	ledger.Record(execution.Fill{Side: execution.Sell, Qty: 2, Price: 101})

	snapshot := ledger.Snapshot()
	if len(snapshot) != 2 || snapshot[0].Price != 101 || snapshot[1].Qty != 2 {
		t.Fatalf("expected the oldest fill evicted, got %+v", snapshot)
	}
	tot := ledger.Totals()
	if tot.Fills != 3 || tot.Entries != 2 || tot.Exits != 1 || tot.Notional != 403 {
		t.Fatalf("unexpected totals %+v", tot)
	}
}
