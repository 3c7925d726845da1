package exchange

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	defaultBinanceURL   = "wss://fstream.binance.com/ws"
	binanceMarkPriceEvt = "markPriceUpdate"
)

type binanceProtocol struct {
	url    string
	symbol string
	stream string
}

// binanceEnvelope wraps payloads on combined-stream endpoints.
type binanceEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type binanceMarkPrice struct {
	Event     string     `json:"e"`
	Symbol    string     `json:"s"`
	MarkPrice *flexFloat `json:"p"`
}

type binanceControl struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int      `json:"id"`
}

func newBinanceProtocol(t Target) (*binanceProtocol, error) {
	if strings.TrimSpace(t.Symbol) == "" {
		return nil, fmt.Errorf("binance feed requires a symbol")
	}
	url := t.URL
	if url == "" {
		url = defaultBinanceURL
	}
	sym := strings.ToUpper(strings.TrimSpace(t.Symbol))
	return &binanceProtocol{url: url, symbol: sym, stream: strings.ToLower(sym) + "@markPrice@1s"}, nil
}

func (p *binanceProtocol) Name() string { return ProviderBinance }
func (p *binanceProtocol) URL() string  { return p.url }

func (p *binanceProtocol) Subscribe() []byte {
	return mustJSON(binanceControl{Method: "SUBSCRIBE", Params: []string{p.stream}, ID: 1})
}

func (p *binanceProtocol) Unsubscribe() []byte {
	return mustJSON(binanceControl{Method: "UNSUBSCRIBE", Params: []string{p.stream}, ID: 2})
}

// Heartbeat is nil: Binance expects websocket ping frames.
func (p *binanceProtocol) Heartbeat() []byte { return nil }

func (p *binanceProtocol) Parse(raw []byte) (float64, bool) {
	var env binanceEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && len(env.Data) > 0 {
		raw = env.Data
	}
	var msg binanceMarkPrice
	if err := json.Unmarshal(raw, &msg); err != nil {
		return 0, false
	}
	sym := msg.Symbol
	if sym == "" && env.Stream != "" {
		sym = parseBinanceSymbol(env.Stream)
	}
	if msg.Event != binanceMarkPriceEvt || !strings.EqualFold(sym, p.symbol) || msg.MarkPrice == nil {
		return 0, false
	}
	return float64(*msg.MarkPrice), true
}

// parseBinanceSymbol extracts the upper-cased symbol from a stream name such as ethusdt@markPrice@1s.
func parseBinanceSymbol(stream string) string {
	parts := strings.Split(stream, "@")
	if len(parts) == 0 || parts[0] == "" {
		return strings.ToUpper(stream)
	}
	return strings.ToUpper(parts[0])
}
