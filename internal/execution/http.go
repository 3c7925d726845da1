package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// HTTPGateway forwards orders to a signing sidecar that owns keys, nonces and venue submission.
type HTTPGateway struct {
	client *resty.Client
	log    zerolog.Logger
}

type orderRequest struct {
	ClientOrderID string          `json:"client_order_id"`
	Symbol        string          `json:"symbol"`
	MarketID      int             `json:"market_id"`
	Side          string          `json:"side"`
	Qty           decimal.Decimal `json:"qty"`
	RefPrice      decimal.Decimal `json:"ref_price"`
	WorstPrice    decimal.Decimal `json:"worst_price"`
	MaxSlippage   decimal.Decimal `json:"max_slippage"`
	ReduceOnly    bool            `json:"reduce_only"`
}

type orderResponse struct {
	TxHash string `json:"tx_hash"`
	Error  string `json:"error"`
}

// NewHTTPGateway builds a client rooted at baseURL. A zero timeout means 5s.
func NewHTTPGateway(baseURL string, timeout time.Duration, log zerolog.Logger) *HTTPGateway {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &HTTPGateway{
		client: client,
		log:    log.With().Str("component", "gateway").Str("mode", "http").Logger(),
	}
}

// SubmitMarketOrder POSTs the order to /orders and returns the tx hash from the response.
// There is no retry: an error means the outcome is not confirmed.
func (g *HTTPGateway) SubmitMarketOrder(ctx context.Context, order Order) (string, error) {
	if err := order.Validate(); err != nil {
		return "", err
	}
	body := orderRequest{
		ClientOrderID: uuid.NewString(),
		Symbol:        order.Symbol,
		MarketID:      order.MarketID,
		Side:          string(order.Side),
		Qty:           decimal.NewFromFloat(order.Qty),
		RefPrice:      decimal.NewFromFloat(order.RefPrice),
		WorstPrice:    decimal.NewFromFloat(order.WorstPrice()),
		MaxSlippage:   decimal.NewFromFloat(order.MaxSlippage),
		ReduceOnly:    order.ReduceOnly,
	}
	resp, err := g.client.R().SetContext(ctx).SetBody(body).Post("/orders")
	if err != nil {
		return "", fmt.Errorf("post order: %w", err)
	}

	var out orderResponse
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &out); err != nil && !resp.IsError() {
			return "", fmt.Errorf("decode order response: %w", err)
		}
	}
	if resp.IsError() {
		msg := out.Error
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		if resp.StatusCode() < 500 {
			return "", fmt.Errorf("gateway status %d: %s: %w", resp.StatusCode(), msg, ErrRejected)
		}
		return "", fmt.Errorf("gateway status %d: %s", resp.StatusCode(), msg)
	}
	if out.TxHash == "" {
		return "", fmt.Errorf("gateway returned no tx hash (client id %s)", body.ClientOrderID)
	}
	g.log.Debug().Str("client_id", body.ClientOrderID).Str("tx", out.TxHash).Msg("order accepted")
	return out.TxHash, nil
}
