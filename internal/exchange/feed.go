// Package exchange hosts the market data stream: provider protocols and the supervisor that keeps one
// subscription alive across disconnects.
package exchange

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"perpbot-go/internal/metrics"
	"perpbot-go/internal/signal"
)

const (
	// ProviderStub emits a deterministic synthetic walk (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderLighter streams market_stats updates from a Lighter-style perp venue.
	ProviderLighter = "lighter"
	// ProviderBinance streams futures mark prices from Binance public websockets.
	ProviderBinance = "binance"
)

// Handler receives every relevant tick synchronously; the next message is not read until it returns.
type Handler func(ctx context.Context, tk signal.Tick)

// Target names the instrument and where to find it.
type Target struct {
	Symbol   string
	MarketID int
	BaseURL  string // venue REST base; the stream URL is derived from it
	URL      string // explicit stream URL, overrides the derived one
}

// Feed represents a pluggable market data stream implementation.
type Feed struct {
	provider string
	target   Target
	proto    Protocol
	log      zerolog.Logger

	backoffBase time.Duration
	backoffMax  time.Duration
	heartbeat   time.Duration
	readTimeout time.Duration

	stubInterval time.Duration
	stubStep     time.Duration
	stubStart    float64
}

// Option configures Feed construction parameters.
type Option func(*Feed)

const (
	defaultBackoffBase  = time.Second
	defaultBackoffMax   = 32 * time.Second
	defaultHeartbeat    = 6 * time.Second
	defaultReadTimeout  = 30 * time.Second
	defaultStubInterval = 500 * time.Millisecond
	defaultStubStart    = 100.0
)

// WithBackoff overrides the reconnect backoff bounds.
func WithBackoff(base, max time.Duration) Option {
	return func(f *Feed) {
		if base > 0 {
			f.backoffBase = base
		}
		if max > 0 {
			f.backoffMax = max
		}
	}
}

// WithHeartbeat overrides the liveness ping interval.
func WithHeartbeat(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.heartbeat = d
		}
	}
}

// WithReadTimeout sets how long the connection may stay silent before it is considered dead.
func WithReadTimeout(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.readTimeout = d
		}
	}
}

// WithStub configures the synthetic feed: wall-clock emit interval, the timestamp step stamped on
// consecutive ticks, and the starting price.
func WithStub(interval, step time.Duration, start float64) Option {
	return func(f *Feed) {
		if interval > 0 {
			f.stubInterval = interval
		}
		if step > 0 {
			f.stubStep = step
		}
		if start > 0 {
			f.stubStart = start
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider string, target Target, log zerolog.Logger, opts ...Option) (*Feed, error) {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:     strings.ToLower(provider),
		target:       target,
		backoffBase:  defaultBackoffBase,
		backoffMax:   defaultBackoffMax,
		heartbeat:    defaultHeartbeat,
		readTimeout:  defaultReadTimeout,
		stubInterval: defaultStubInterval,
		stubStart:    defaultStubStart,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.stubStep <= 0 {
		f.stubStep = f.stubInterval
	}
	if f.backoffMax < f.backoffBase {
		f.backoffMax = f.backoffBase
	}

	switch f.provider {
	case ProviderStub:
	case ProviderLighter:
		proto, err := newLighterProtocol(target)
		if err != nil {
			return nil, err
		}
		f.proto = proto
	case ProviderBinance:
		proto, err := newBinanceProtocol(target)
		if err != nil {
			return nil, err
		}
		f.proto = proto
	default:
		return nil, fmt.Errorf("unknown feed provider %q", provider)
	}
	f.log = log.With().Str("component", "feed").Str("provider", f.provider).Str("sym", target.Symbol).Logger()
	return f, nil
}

// Provider returns the normalized provider name.
func (f *Feed) Provider() string { return f.provider }

// Run delivers ticks to handler until the context is canceled. Transport failures are retried
// internally; the only error returned is the context's.
func (f *Feed) Run(ctx context.Context, handler Handler) error {
	if f.provider == ProviderStub {
		return f.runStub(ctx, handler)
	}
	return f.supervise(ctx, handler)
}

func (f *Feed) runStub(ctx context.Context, handler Handler) error {
	ticker := time.NewTicker(f.stubInterval)
	defer ticker.Stop()

	var (
		i     int
		clock time.Time
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			if clock.IsZero() {
				clock = ts
			} else {
				clock = clock.Add(f.stubStep)
			}
			tick := signal.Tick{Symbol: f.target.Symbol, Price: StubPrice(f.stubStart, i), Ts: clock}
			i++
			metrics.TicksTotal.WithLabelValues(tick.Symbol).Inc()
			handler(ctx, tick)
		}
	}
}

// StubPrice is the synthetic walk: thirty ticks up by 0.1, ten ticks back down, repeated.
func StubPrice(start float64, i int) float64 {
	cycle, phase := i/40, i%40
	px := start + float64(cycle)*2.0
	if phase < 30 {
		return px + 0.1*float64(phase)
	}
	return px + 2.9 - 0.1*float64(phase-29)
}
