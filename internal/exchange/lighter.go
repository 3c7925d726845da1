package exchange

import (
	"encoding/json"
	"fmt"
	"strings"
)

const lighterStatsType = "update/market_stats"

type lighterProtocol struct {
	url      string
	marketID int
}

type lighterMessage struct {
	Type  string        `json:"type"`
	Stats *lighterStats `json:"market_stats"`
}

type lighterStats struct {
	MarketID  *flexFloat `json:"market_id"`
	MarkPrice *flexFloat `json:"mark_price"`
}

type lighterControl struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
}

func newLighterProtocol(t Target) (*lighterProtocol, error) {
	url := t.URL
	if url == "" {
		if t.BaseURL == "" {
			return nil, fmt.Errorf("lighter feed requires a base url")
		}
		url = LighterStreamURL(t.BaseURL)
	}
	if t.MarketID < 0 {
		return nil, fmt.Errorf("lighter market id %d", t.MarketID)
	}
	return &lighterProtocol{url: url, marketID: t.MarketID}, nil
}

// LighterStreamURL maps a REST base such as https://host to its stream endpoint wss://host/stream.
func LighterStreamURL(base string) string {
	base = strings.TrimSuffix(strings.TrimSpace(base), "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/stream"
}

func (p *lighterProtocol) Name() string { return ProviderLighter }
func (p *lighterProtocol) URL() string  { return p.url }

func (p *lighterProtocol) channel() string {
	return fmt.Sprintf("market_stats/%d", p.marketID)
}

func (p *lighterProtocol) Subscribe() []byte {
	return mustJSON(lighterControl{Type: "subscribe", Channel: p.channel()})
}

func (p *lighterProtocol) Unsubscribe() []byte {
	return mustJSON(lighterControl{Type: "unsubscribe", Channel: p.channel()})
}

func (p *lighterProtocol) Heartbeat() []byte {
	return mustJSON(lighterControl{Type: "ping"})
}

func (p *lighterProtocol) Parse(raw []byte) (float64, bool) {
	var msg lighterMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return 0, false
	}
	if msg.Type != lighterStatsType || msg.Stats == nil || msg.Stats.MarkPrice == nil {
		return 0, false
	}
	// single-market channels may omit the id
	if msg.Stats.MarketID != nil && int(*msg.Stats.MarketID) != p.marketID {
		return 0, false
	}
	return float64(*msg.Stats.MarkPrice), true
}
