// Package config exposes strongly typed application configuration structs loaded from YAML,
// with .env and PERPBOT_* environment overrides on top.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces the environment overrides, e.g. PERPBOT_DRY_RUN.
const EnvPrefix = "PERPBOT"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// App captures process-wide runtime settings such as name, metrics, logging and telemetry.
type App struct {
	Name             string `yaml:"name"`
	Env              string `yaml:"env"`
	MetricsAddr      string `yaml:"metrics_addr"`
	LogLevel         string `yaml:"log_level"`
	LogFormat        string `yaml:"log_format"`
	LogFile          string `yaml:"log_file"`
	StatusIntervalMs int    `yaml:"status_interval_ms"`
}

// Exchange describes the market data stream.
type Exchange struct {
	Provider      string `yaml:"provider"`
	Symbol        string `yaml:"symbol"`
	MarketID      int    `yaml:"market_id"`
	BaseURL       string `yaml:"base_url"`
	StreamURL     string `yaml:"stream_url"`
	HeartbeatMs   int    `yaml:"heartbeat_ms"`
	BackoffMaxMs  int    `yaml:"backoff_max_ms"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`

	// StubIntervalMs paces the synthetic stub provider.
	StubIntervalMs int `yaml:"stub_interval_ms"`
}

// StrategyParams groups the decision thresholds and score weights. Zero or omitted values take
// the engine defaults, so a threshold cannot be switched off by setting it to 0.
type StrategyParams struct {
	ChopStrength   float64 `yaml:"chop_strength"`
	StrongStrength float64 `yaml:"strong_strength"`
	MomentumZ      float64 `yaml:"momentum_z"`
	ReversalZ      float64 `yaml:"reversal_z"`
	StrongZ        float64 `yaml:"strong_z"`
	ExhaustionZ    float64 `yaml:"exhaustion_z"`
	ReversalScore  float64 `yaml:"reversal_score"`
	MomentumScore  float64 `yaml:"momentum_score"`
	BurstHigh      float64 `yaml:"burst_high"`
	BurstLow       float64 `yaml:"burst_low"`
	BurstStrong    float64 `yaml:"burst_strong"`
	BurstFadeKeep  float64 `yaml:"burst_fade_keep"`
	RunLength      int     `yaml:"run_length"`
	SlopeWeight    float64 `yaml:"slope_weight"`
	AccelWeight    float64 `yaml:"accel_weight"`
	BurstWeight    float64 `yaml:"burst_weight"`
	TrendWeight    float64 `yaml:"trend_weight"`
}

func (p StrategyParams) hasNegative() bool {
	for _, v := range []float64{
		p.ChopStrength, p.StrongStrength, p.MomentumZ, p.ReversalZ, p.StrongZ, p.ExhaustionZ,
		p.ReversalScore, p.MomentumScore, p.BurstHigh, p.BurstLow, p.BurstStrong, p.BurstFadeKeep,
		p.SlopeWeight, p.AccelWeight, p.BurstWeight, p.TrendWeight,
	} {
		if v < 0 {
			return true
		}
	}
	return p.RunLength < 0
}

// Strategy sizes the estimators and windows and carries the decision thresholds.
type Strategy struct {
	Mode            string         `yaml:"mode"`
	FastPeriod      float64        `yaml:"fast_period"` // minutes
	SlowPeriod      float64        `yaml:"slow_period"` // minutes
	BiasBand        float64        `yaml:"bias_band"`
	PriceCapacity   int            `yaml:"price_capacity"`
	ArrivalCapacity int            `yaml:"arrival_capacity"`
	ZWindow         int            `yaml:"z_window"`
	VolWindow       int            `yaml:"vol_window"`
	Params          StrategyParams `yaml:"params"`
}

// Risk encodes position sizing and exit thresholds.
type Risk struct {
	Margin              float64 `yaml:"margin"`
	Leverage            float64 `yaml:"leverage"`
	MinQty              float64 `yaml:"min_qty"`
	QtyStep             float64 `yaml:"qty_step"`
	MaxNotionalPerTrade float64 `yaml:"max_notional_per_trade"`
	MinTP               float64 `yaml:"min_tp"`
	MinSL               float64 `yaml:"min_sl"`
	TPMult              float64 `yaml:"tp_mult"`
	SLMult              float64 `yaml:"sl_mult"`
}

// Execution configures the gateway boundary.
type Execution struct {
	DryRun          bool    `yaml:"dry_run"`
	GatewayURL      string  `yaml:"gateway_url"`
	TimeoutMs       int     `yaml:"timeout_ms"`
	MaxSlippage     float64 `yaml:"max_slippage"`
	MaxOrdersPerSec float64 `yaml:"max_orders_per_sec"`
	Burst           int     `yaml:"burst"`
}

// Paper captures dry-run bookkeeping.
type Paper struct {
	FillsPath string `yaml:"fills_path"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App       App       `yaml:"app"`
	Exchange  Exchange  `yaml:"exchange"`
	Strategy  Strategy  `yaml:"strategy"`
	Risk      Risk      `yaml:"risk"`
	Execution Execution `yaml:"execution"`
	Paper     Paper     `yaml:"paper"`
}

// Default returns a configuration that runs as-is: ETH on the lighter stream, dry-run execution.
func Default() *Config {
	return &Config{
		App: App{
			Name:             "perpbot",
			Env:              "dev",
			MetricsAddr:      ":9102",
			LogLevel:         "info",
			LogFormat:        "console",
			StatusIntervalMs: 1000,
		},
		Exchange: Exchange{
			Provider:       "lighter",
			Symbol:         "ETH",
			MarketID:       0,
			BaseURL:        "https://mainnet.zklighter.elliot.ai",
			HeartbeatMs:    6000,
			BackoffMaxMs:   32000,
			ReadTimeoutMs:  30000,
			StubIntervalMs: 500,
		},
		Strategy: Strategy{
			Mode:            "flow",
			FastPeriod:      20,
			SlowPeriod:      50,
			BiasBand:        0.0002,
			PriceCapacity:   150,
			ArrivalCapacity: 600,
			ZWindow:         24,
			VolWindow:       50,
		},
		Risk: Risk{
			Margin:   50,
			Leverage: 10,
			MinQty:   0.001,
			QtyStep:  0.001,
			MinTP:    0.5,
			MinSL:    0.5,
			TPMult:   1.5,
			SLMult:   1.0,
		},
		Execution: Execution{
			DryRun:          true,
			TimeoutMs:       5000,
			MaxSlippage:     0.005,
			MaxOrdersPerSec: 2,
			Burst:           2,
		},
	}
}

// Load reads a YAML file on top of Default. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Env lists the settings that may be overridden from the environment. Unset variables leave the
// YAML value alone.
type Env struct {
	DryRun     *bool  `envconfig:"DRY_RUN"`
	GatewayURL string `envconfig:"GATEWAY_URL"`
	LogLevel   string `envconfig:"LOG_LEVEL"`
	Provider   string `envconfig:"PROVIDER"`
	BaseURL    string `envconfig:"BASE_URL"`
	MarketID   *int   `envconfig:"MARKET_ID"`
	Symbol     string `envconfig:"SYMBOL"`
}

// ApplyEnv loads .env files best-effort, then applies PERPBOT_* overrides.
func (c *Config) ApplyEnv(dotenvFiles ...string) error {
	_ = godotenv.Load(dotenvFiles...)

	var env Env
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	if env.DryRun != nil {
		c.Execution.DryRun = *env.DryRun
	}
	if env.GatewayURL != "" {
		c.Execution.GatewayURL = env.GatewayURL
	}
	if env.LogLevel != "" {
		c.App.LogLevel = env.LogLevel
	}
	if env.Provider != "" {
		c.Exchange.Provider = env.Provider
	}
	if env.BaseURL != "" {
		c.Exchange.BaseURL = env.BaseURL
	}
	if env.MarketID != nil {
		c.Exchange.MarketID = *env.MarketID
	}
	if env.Symbol != "" {
		c.Exchange.Symbol = env.Symbol
	}
	return nil
}

// Validate reports every setting the engine cannot run with.
func (c *Config) Validate() error {
	var problems []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Errorf(format, args...))
		}
	}

	check(strings.TrimSpace(c.Exchange.Symbol) != "", "exchange.symbol is empty")
	check(c.Exchange.MarketID >= 0, "exchange.market_id %d is negative", c.Exchange.MarketID)
	check(c.Risk.Margin > 0, "risk.margin must be positive, got %v", c.Risk.Margin)
	check(c.Risk.Leverage > 0, "risk.leverage must be positive, got %v", c.Risk.Leverage)
	check(c.Risk.MinQty >= 0 && c.Risk.QtyStep >= 0, "risk.min_qty and risk.qty_step must not be negative")
	check(c.Risk.MinTP >= 0 && c.Risk.MinSL >= 0, "risk.min_tp and risk.min_sl must not be negative")
	check(c.Risk.TPMult >= 0 && c.Risk.SLMult >= 0, "risk.tp_mult and risk.sl_mult must not be negative")
	check(c.Strategy.FastPeriod >= 1, "strategy.fast_period must be at least 1, got %v", c.Strategy.FastPeriod)
	check(c.Strategy.SlowPeriod >= 1, "strategy.slow_period must be at least 1, got %v", c.Strategy.SlowPeriod)
	check(c.Strategy.BiasBand >= 0, "strategy.bias_band must not be negative")
	check(c.Strategy.PriceCapacity >= 1, "strategy.price_capacity must be at least 1")
	check(c.Strategy.ArrivalCapacity >= 1, "strategy.arrival_capacity must be at least 1")
	check(c.Strategy.ZWindow >= 1, "strategy.z_window must be at least 1")
	check(c.Strategy.VolWindow >= 1, "strategy.vol_window must be at least 1")
	check(!c.Strategy.Params.hasNegative(), "strategy.params must not be negative")
	check(c.Execution.MaxSlippage >= 0 && c.Execution.MaxSlippage < 1, "execution.max_slippage must be in [0,1)")
	check(c.Execution.DryRun || strings.TrimSpace(c.Execution.GatewayURL) != "", "execution.gateway_url is required when dry_run is off")

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(problems...))
}
