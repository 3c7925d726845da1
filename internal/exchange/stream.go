package exchange

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"perpbot-go/internal/metrics"
	"perpbot-go/internal/signal"
)

const writeTimeout = 5 * time.Second

// supervise keeps one subscription alive: connect, subscribe, receive with a concurrent heartbeat,
// and on failure back off and do it all again. Pipeline state lives in the handler and survives.
func (f *Feed) supervise(ctx context.Context, handler Handler) error {
	backoff := f.backoffBase
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delivered, err := f.session(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if delivered > 0 {
			backoff = f.backoffBase
		}
		metrics.Reconnects.WithLabelValues(f.provider).Inc()
		f.log.Warn().Err(err).Int("ticks", delivered).Dur("backoff", backoff).Msg("feed disconnected, retrying")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, f.backoffMax)
	}
}

func nextBackoff(cur, max time.Duration) time.Duration {
	next := cur * 2
	if next > max {
		return max
	}
	return next
}

// session runs one connection until it fails or ctx is canceled and reports how many ticks it delivered.
func (f *Feed) session(ctx context.Context, handler Handler) (int, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.proto.URL(), nil)
	if err != nil {
		return 0, fmt.Errorf("dial: %w", err)
	}

	var writeMu sync.Mutex
	write := func(messageType int, data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		return conn.WriteMessage(messageType, data)
	}

	if err := write(websocket.TextMessage, f.proto.Subscribe()); err != nil {
		conn.Close()
		return 0, fmt.Errorf("subscribe: %w", err)
	}
	f.log.Info().Str("url", f.proto.URL()).Msg("connected market data feed")

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(f.readTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(f.readTimeout))
	})

	var delivered int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return f.receive(ctx, conn, handler, &delivered)
	})
	g.Go(func() error {
		return f.beat(gctx, write)
	})
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			_ = write(websocket.TextMessage, f.proto.Unsubscribe())
			_ = write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
			f.log.Info().Msg("unsubscribed, closing feed")
		}
		// unblocks the reader
		_ = conn.Close()
		return nil
	})
	err = g.Wait()
	return delivered, err
}

// receive reads until the transport fails. Irrelevant or malformed messages are skipped silently.
func (f *Feed) receive(ctx context.Context, conn *websocket.Conn, handler Handler, delivered *int) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(f.readTimeout))

		px, ok := f.proto.Parse(raw)
		if !ok {
			continue
		}
		tick := signal.Tick{Symbol: f.target.Symbol, Price: px, Ts: time.Now()}
		metrics.TicksTotal.WithLabelValues(tick.Symbol).Inc()
		*delivered++
		handler(ctx, tick)
	}
}

// beat sends the liveness ping on a fixed interval, independent of tick arrival.
func (f *Feed) beat(ctx context.Context, write func(int, []byte) error) error {
	ticker := time.NewTicker(f.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			payload, messageType := f.proto.Heartbeat(), websocket.TextMessage
			if payload == nil {
				messageType = websocket.PingMessage
			}
			if err := write(messageType, payload); err != nil {
				return fmt.Errorf("heartbeat: %w", err)
			}
		}
	}
}
