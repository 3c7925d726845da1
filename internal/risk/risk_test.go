package risk

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow(t *testing.T) {
	limits := Limits{MaxNotionalPerTrade: 50}
	if !limits.Allow(49.9) {
		t.Fatalf("expected notional under limit to pass")
	}
	if limits.Allow(50.1) {
		t.Fatalf("expected notional above limit to fail")
	}
	if !(Limits{}).Allow(1e9) {
		t.Fatalf("expected zero cap to mean unlimited")
	}
}

func TestQuantityFloorsToStep(t *testing.T) {
	s := Sizer{Margin: 50, Leverage: 10, MinQty: 0.001, QtyStep: 0.001}
	qty, err := s.Quantity(3000)
	require.NoError(t, err)
	// 500 / 3000 = 0.16666...
	assert.InDelta(t, 0.166, qty, 1e-12)
	assert.Equal(t, 500.0, s.Notional())
}

func TestQuantityLiftedToMinimum(t *testing.T) {
	s := Sizer{Margin: 1, Leverage: 1, MinQty: 0.01, QtyStep: 0.01}
	qty, err := s.Quantity(3000)
	require.NoError(t, err)
	assert.Equal(t, 0.01, qty)
}

func TestQuantityWithoutStep(t *testing.T) {
	s := Sizer{Margin: 10, Leverage: 5}
	qty, err := s.Quantity(100)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, qty, 1e-12)
}

func TestQuantityZero(t *testing.T) {
	cases := []struct {
		name  string
		sizer Sizer
		price float64
	}{
		{"no margin", Sizer{Leverage: 10, QtyStep: 0.001}, 100},
		{"below step without minimum", Sizer{Margin: 1, Leverage: 1, QtyStep: 1}, 3000},
		{"bad price", Sizer{Margin: 1, Leverage: 1, MinQty: 1}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.sizer.Quantity(tc.price)
			if !errors.Is(err, ErrZeroQuantity) {
				t.Fatalf("expected ErrZeroQuantity, got %v", err)
			}
		})
	}
}

func TestThresholds(t *testing.T) {
	e := Exits{MinTP: 0.5, MinSL: 0.4, TPMult: 1.5, SLMult: 1.0}

	tp, sl := e.Thresholds(0.25, 0.1)
	assert.Equal(t, 0.5, tp, "floor applies in cold start")
	assert.Equal(t, 0.4, sl)

	tp, sl = e.Thresholds(20, 0.5)
	assert.InDelta(t, 15.0, tp, 1e-12)
	assert.InDelta(t, 10.0, sl, 1e-12)
}
