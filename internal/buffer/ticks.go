package buffer

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"perpbot-go/internal/metrics"
	"perpbot-go/internal/signal"
)

const (
	// DefaultPriceCapacity bounds the price history used by every feature.
	DefaultPriceCapacity = 150
	// DefaultArrivalCapacity bounds the arrival timestamps used for tick-rate features.
	DefaultArrivalCapacity = 600
)

// TickBuffer keeps the most recent prices and their arrival times in two independent rings.
// It is owned by a single pipeline and is not safe for concurrent use.
type TickBuffer struct {
	prices   *Ring[float64]
	arrivals *Ring[time.Time]
	log      zerolog.Logger
}

// NewTickBuffer builds a buffer; non-positive capacities fall back to the defaults.
func NewTickBuffer(priceCapacity, arrivalCapacity int, log zerolog.Logger) *TickBuffer {
	if priceCapacity <= 0 {
		priceCapacity = DefaultPriceCapacity
	}
	if arrivalCapacity <= 0 {
		arrivalCapacity = DefaultArrivalCapacity
	}
	return &TickBuffer{
		prices:   NewRing[float64](priceCapacity),
		arrivals: NewRing[time.Time](arrivalCapacity),
		log:      log.With().Str("component", "tick_buffer").Logger(),
	}
}

// Append records the tick. Ticks with a non-positive or non-finite price are dropped and reported false.
func (b *TickBuffer) Append(tk signal.Tick) bool {
	if !(tk.Price > 0) || math.IsInf(tk.Price, 0) {
		metrics.TicksRejected.WithLabelValues(tk.Symbol).Inc()
		b.log.Warn().Str("sym", tk.Symbol).Float64("px", tk.Price).Msg("dropping tick with invalid price")
		return false
	}
	b.prices.Push(tk.Price)
	b.arrivals.Push(tk.Ts)
	return true
}

// Prices returns the buffered prices oldest-first in a fresh slice.
func (b *TickBuffer) Prices() []float64 {
	return b.prices.AppendTo(make([]float64, 0, b.prices.Len()))
}

// Arrivals returns the buffered arrival times oldest-first in a fresh slice.
func (b *TickBuffer) Arrivals() []time.Time {
	return b.arrivals.AppendTo(make([]time.Time, 0, b.arrivals.Len()))
}

// Len reports how many prices are buffered.
func (b *TickBuffer) Len() int { return b.prices.Len() }

