package execution

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DryRun accepts every valid order without touching a venue. Fills happen at the reference price.
type DryRun struct {
	log       zerolog.Logger
	recorders []Recorder
	now       func() time.Time
}

// NewDryRun wraps a zerolog logger and optional fill recorders.
func NewDryRun(log zerolog.Logger, recorders ...Recorder) *DryRun {
	return &DryRun{
		log:       log.With().Str("component", "gateway").Str("mode", "dry-run").Logger(),
		recorders: recorders,
		now:       time.Now,
	}
}

// SubmitMarketOrder logs the order, records a fill and returns a synthetic id.
func (d *DryRun) SubmitMarketOrder(ctx context.Context, order Order) (string, error) {
	if err := order.Validate(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	txID := "dry-" + uuid.NewString()
	fill := Fill{
		TxID:       txID,
		Symbol:     order.Symbol,
		Side:       order.Side,
		Qty:        order.Qty,
		Price:      order.RefPrice,
		ReduceOnly: order.ReduceOnly,
		At:         d.now(),
	}
	for _, r := range d.recorders {
		r.Record(fill)
	}
	d.log.Info().
		Str("sym", order.Symbol).
		Str("side", string(order.Side)).
		Float64("qty", order.Qty).
		Float64("px", order.RefPrice).
		Float64("worst_px", order.WorstPrice()).
		Bool("reduce_only", order.ReduceOnly).
		Str("tx", txID).
		Msg("submit order (dry run)")
	return txID, nil
}
