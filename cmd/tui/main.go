package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"perpbot-go/internal/config"
)

const defaultConfigPath = "configs/perpbot.yaml"

func main() {
	path := flag.String("config", defaultConfigPath, "config file to edit")
	flag.Parse()
	configPath := filepath.Clean(*path)

	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== PerpBot Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit sizing and exits")
		fmt.Println("3) Edit market stream")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch bot")
		fmt.Println("6) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		choice := strings.TrimSpace(input)

		switch choice {
		case "1":
			printSummary(cfg)
		case "2":
			editRisk(reader, cfg)
		case "3":
			editStream(reader, cfg)
		case "4":
			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(os.Stderr, "not saved: %v\n", err)
			} else if err := config.Save(configPath, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			launchBot(reader, configPath)
		case "6":
			reloaded, err := loadConfig(configPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Stream: %s %s (market %d)\n", cfg.Exchange.Provider, cfg.Exchange.Symbol, cfg.Exchange.MarketID)
	fmt.Printf("Venue: %s\n", cfg.Exchange.BaseURL)
	fmt.Printf("Margin: $%.2f x%.0f = $%.2f notional\n", cfg.Risk.Margin, cfg.Risk.Leverage, cfg.Risk.Margin*cfg.Risk.Leverage)
	fmt.Printf("Lot: min %.4f step %.4f\n", cfg.Risk.MinQty, cfg.Risk.QtyStep)
	fmt.Printf("Take profit: max(%.2f, %.2f x sigma x qty)\n", cfg.Risk.MinTP, cfg.Risk.TPMult)
	fmt.Printf("Stop loss: max(%.2f, %.2f x sigma x qty)\n", cfg.Risk.MinSL, cfg.Risk.SLMult)
	fmt.Printf("EMA periods: fast %.0f / slow %.0f min, band %.4f%%\n", cfg.Strategy.FastPeriod, cfg.Strategy.SlowPeriod, cfg.Strategy.BiasBand*100)
	mode := "DRY RUN"
	if !cfg.Execution.DryRun {
		mode = "LIVE via " + cfg.Execution.GatewayURL
	}
	fmt.Printf("Execution: %s, slippage %.2f%%\n", mode, cfg.Execution.MaxSlippage*100)
}

func editRisk(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Sizing / Exits ---")
	cfg.Risk.Margin = promptFloat(reader, "Margin (USD)", cfg.Risk.Margin)
	cfg.Risk.Leverage = promptFloat(reader, "Leverage", cfg.Risk.Leverage)
	cfg.Risk.MaxNotionalPerTrade = promptFloat(reader, "Max notional per trade (USD, 0 = none)", cfg.Risk.MaxNotionalPerTrade)
	cfg.Risk.MinTP = promptFloat(reader, "Minimum take profit (USD)", cfg.Risk.MinTP)
	cfg.Risk.MinSL = promptFloat(reader, "Minimum stop loss (USD)", cfg.Risk.MinSL)
	cfg.Risk.TPMult = promptFloat(reader, "Take profit sigma multiple", cfg.Risk.TPMult)
	cfg.Risk.SLMult = promptFloat(reader, "Stop loss sigma multiple", cfg.Risk.SLMult)
	cfg.Execution.MaxSlippage = promptPercent(reader, "Max slippage (%)", cfg.Execution.MaxSlippage)
}

func editStream(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Market Stream ---")
	cfg.Exchange.Provider = promptString(reader, "Provider (stub/lighter/binance)", cfg.Exchange.Provider)
	cfg.Exchange.Symbol = promptString(reader, "Symbol", cfg.Exchange.Symbol)
	cfg.Exchange.MarketID = int(promptFloat(reader, "Market id", float64(cfg.Exchange.MarketID)))
	cfg.Exchange.BaseURL = promptString(reader, "Venue base URL", cfg.Exchange.BaseURL)
}

func launchBot(reader *bufio.Reader, configPath string) {
	fmt.Println("Launching bot (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/bot", "-config", configPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start bot: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop the bot and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptString(reader *bufio.Reader, label, current string) string {
	fmt.Printf("%s [%s]: ", label, current)
	line, _ := reader.ReadString('\n')
	if line = strings.TrimSpace(line); line == "" {
		return current
	}
	return line
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.4g]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.4g\n", current)
		return current
	}
	return val
}

func promptPercent(reader *bufio.Reader, label string, current float64) float64 {
	pct := promptFloat(reader, label, current*100)
	return pct / 100
}

// loadConfig falls back to the defaults when the file does not exist yet.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}
