package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type memRecorder struct {
	mu    sync.Mutex
	fills []Fill
}

func (m *memRecorder) Record(f Fill) {
	m.mu.Lock()
	m.fills = append(m.fills, f)
	m.mu.Unlock()
}

func TestValidate(t *testing.T) {
	good := Order{Symbol: "ETH", Side: Buy, Qty: 0.1, RefPrice: 3000, MaxSlippage: 0.005}
	if err := good.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	bad := []Order{
		{Side: "HOLD", Qty: 1, RefPrice: 1},
		{Side: Buy, Qty: 0, RefPrice: 1},
		{Side: Sell, Qty: 1, RefPrice: -1},
		{Side: Sell, Qty: 1, RefPrice: 1, MaxSlippage: 1.5},
	}
	for i, o := range bad {
		if err := o.Validate(); !errors.Is(err, ErrRejected) {
			t.Fatalf("case %d: expected ErrRejected, got %v", i, err)
		}
	}
}

func TestWorstPrice(t *testing.T) {
	buy := Order{Side: Buy, RefPrice: 100, MaxSlippage: 0.01}
	if got := buy.WorstPrice(); got != 101 {
		t.Fatalf("expected 101, got %v", got)
	}
	sell := Order{Side: Sell, RefPrice: 100, MaxSlippage: 0.01}
	if got := sell.WorstPrice(); got != 99 {
		t.Fatalf("expected 99, got %v", got)
	}
	if Buy.Opposite() != Sell || Sell.Opposite() != Buy {
		t.Fatalf("opposite sides wrong")
	}
}

func TestDryRunLogsAndRecords(t *testing.T) {
	var buf bytes.Buffer
	rec := &memRecorder{}
	gw := NewDryRun(zerolog.New(&buf), rec)

	tx, err := gw.SubmitMarketOrder(context.Background(), Order{Symbol: "ETH", Side: Buy, Qty: 0.1, RefPrice: 3000})
	if err != nil {
		t.Fatalf("SubmitMarketOrder returned error: %v", err)
	}
	if !strings.HasPrefix(tx, "dry-") {
		t.Fatalf("unexpected tx id %q", tx)
	}
	if !strings.Contains(buf.String(), "ETH") {
		t.Fatalf("log does not contain symbol: %s", buf.String())
	}
	if len(rec.fills) != 1 || rec.fills[0].TxID != tx || rec.fills[0].Price != 3000 {
		t.Fatalf("unexpected fills %+v", rec.fills)
	}
}

func TestDryRunRejectsInvalid(t *testing.T) {
	rec := &memRecorder{}
	gw := NewDryRun(zerolog.Nop(), rec)
	if _, err := gw.SubmitMarketOrder(context.Background(), Order{Symbol: "ETH", Side: Buy}); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	if len(rec.fills) != 0 {
		t.Fatalf("rejected order must not be recorded")
	}
}

func TestHTTPGatewaySubmits(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tx_hash":"0xabc"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL+"/", time.Second, zerolog.Nop())
	tx, err := gw.SubmitMarketOrder(context.Background(), Order{
		Symbol: "ETH", MarketID: 0, Side: Sell, Qty: 0.166, RefPrice: 3000, MaxSlippage: 0.005, ReduceOnly: true,
	})
	if err != nil {
		t.Fatalf("SubmitMarketOrder: %v", err)
	}
	if tx != "0xabc" {
		t.Fatalf("unexpected tx %q", tx)
	}
	if got["qty"] != "0.166" || got["side"] != "SELL" || got["reduce_only"] != true {
		t.Fatalf("unexpected payload %+v", got)
	}
	if got["worst_price"] != "2985" {
		t.Fatalf("unexpected worst price %v", got["worst_price"])
	}
}

func TestHTTPGatewayErrors(t *testing.T) {
	status := http.StatusBadRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":"insufficient margin"}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, time.Second, zerolog.Nop())
	order := Order{Symbol: "ETH", Side: Buy, Qty: 1, RefPrice: 3000}

	_, err := gw.SubmitMarketOrder(context.Background(), order)
	if !errors.Is(err, ErrRejected) || !strings.Contains(err.Error(), "insufficient margin") {
		t.Fatalf("expected rejection with body, got %v", err)
	}

	status = http.StatusBadGateway
	_, err = gw.SubmitMarketOrder(context.Background(), order)
	if err == nil || errors.Is(err, ErrRejected) {
		t.Fatalf("expected non-rejection error for 5xx, got %v", err)
	}
}

func TestHTTPGatewayEmptyHash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	gw := NewHTTPGateway(srv.URL, time.Second, zerolog.Nop())
	if _, err := gw.SubmitMarketOrder(context.Background(), Order{Side: Buy, Qty: 1, RefPrice: 1}); err == nil {
		t.Fatalf("expected error for missing tx hash")
	}
}

type countingGateway struct {
	mu    sync.Mutex
	calls int
}

func (c *countingGateway) SubmitMarketOrder(context.Context, Order) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return "ok", nil
}

func TestThrottledDelegatesAndHonoursContext(t *testing.T) {
	next := &countingGateway{}
	gw := NewThrottled(next, 0.001, 1)

	if _, err := gw.SubmitMarketOrder(context.Background(), Order{}); err != nil {
		t.Fatalf("first call should use the burst token: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := gw.SubmitMarketOrder(ctx, Order{}); err == nil {
		t.Fatalf("expected throttle to give up on context deadline")
	}
	if next.calls != 1 {
		t.Fatalf("expected one delegated call, got %d", next.calls)
	}
}

func TestThrottledUnlimited(t *testing.T) {
	next := &countingGateway{}
	gw := NewThrottled(next, 0, 0)
	for i := 0; i < 50; i++ {
		if _, err := gw.SubmitMarketOrder(context.Background(), Order{}); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if next.calls != 50 {
		t.Fatalf("expected 50 calls, got %d", next.calls)
	}
}
