package strategy

import (
	"fmt"
	"strings"

	"perpbot-go/internal/signal"
)

// Strategy defines behaviour shared by decision policies the engine can drive.
type Strategy interface {
	Evaluate(in Input, st *DecisionState) signal.Decision
	Name() string
}

// Build returns a strategy implementation matching the configured mode.
func Build(mode string, params Params) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "flow", "flow_momentum":
		return NewFlowEngine(params), nil
	default:
		return nil, fmt.Errorf("unknown strategy mode %q", mode)
	}
}
