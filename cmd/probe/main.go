package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"beatai-api/internal/cli"
	"beatai-api/internal/config"
	"beatai-api/pkg/market"
	_ "beatai-api/pkg/market/exchanges/binance"
	_ "beatai-api/pkg/market/exchanges/bybit"
	_ "beatai-api/pkg/market/exchanges/coingecko"
	_ "beatai-api/pkg/market/exchanges/cryptocompare"
	_ "beatai-api/pkg/market/exchanges/hyperliquid"
	_ "beatai-api/pkg/market/exchanges/mexc"
	_ "beatai-api/pkg/market/exchanges/yahoo"
	signalpkg "beatai-api/pkg/signal"
	"beatai-api/pkg/timeframe"
)

const apiTimeout = 15 * time.Second // Timeout for one probe call

var (
	configFile = flag.String("f", "etc/beatai.yaml", "the config file")
	symbols    = flag.String("symbols", "BTCUSDT,ETHUSDT,XAUUSD", "comma separated assets to probe")
	tf         = flag.String("tf", "1m", "signal timeframe")
	every      = flag.Duration("every", 0, "repeat interval; 0 probes once")
	each       = flag.Bool("each", false, "also probe every provider on its own")
)

func main() {
	flag.Parse()
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	if _, err := timeframe.Duration(*tf); err != nil {
		log.Fatalf("[probe] %v", err)
	}

	appCfg, err := config.Load(*configFile)
	if err != nil {
		log.Printf("[probe] Warning: failed to load app config: %v", err)
		log.Printf("[probe] Using built-in provider chain")
		appCfg = &config.Config{Env: "dev"}
		_ = appCfg.Validate()
	}
	for _, line := range cli.ConfigSummaryLines(appCfg) {
		log.Printf("  - %s", line)
	}

	marketCfg := appCfg.Market.Value
	if marketCfg == nil {
		marketCfg = market.DefaultConfig()
	}
	providers, err := marketCfg.BuildProviders()
	if err != nil {
		log.Fatalf("[probe] Failed to build market providers: %v", err)
	}
	gateway := market.NewGateway(providers, market.WithCallTimeout(marketCfg.CallTimeout))
	signals := signalpkg.NewCache(gateway, signalpkg.WithCandleLimit(appCfg.Signal.CandleLimit))
	assets := splitSymbols(*symbols)
	log.Printf("[probe] providers=%v assets=%v timeframe=%s", gateway.ProviderNames(), assets, *tf)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := func() {
		if *each {
			for _, p := range providers {
				probeProvider(ctx, p, assets)
			}
		}
		for _, asset := range assets {
			probeGateway(ctx, gateway, signals, asset, *tf)
		}
	}

	run()
	if *every <= 0 {
		return
	}
	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Println("[probe] Shutdown signal received")
			return
		case <-ticker.C:
			run()
		}
	}
}

func splitSymbols(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// probeGateway runs the same calls a game round makes: price, chart candles
// and a fresh signal.
func probeGateway(parent context.Context, gw *market.Gateway, signals *signalpkg.Cache, asset, tf string) {
	if parent.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(parent, apiTimeout)
	defer cancel()

	start := time.Now()
	price, err := gw.GetCurrentPrice(ctx, asset)
	if err != nil {
		log.Printf("[gateway.price.%s] [ERROR] %v, took %dms", asset, err, time.Since(start).Milliseconds())
		return
	}
	log.Printf("[gateway.price.%s] [OK] price=%.6f, took %dms", asset, price, time.Since(start).Milliseconds())

	interval, _ := timeframe.CandleInterval(tf)
	start = time.Now()
	candles, err := gw.GetKlines(ctx, asset, interval, 30)
	if err != nil {
		log.Printf("[gateway.klines.%s] [ERROR] %v, took %dms", asset, err, time.Since(start).Milliseconds())
	} else {
		log.Printf("[gateway.klines.%s] [OK] %d candles interval=%s, took %dms", asset, len(candles), interval, time.Since(start).Milliseconds())
	}

	start = time.Now()
	sig, err := signals.GetSignal(ctx, asset, tf, time.Now().UnixMilli())
	if err != nil {
		log.Printf("[signal.%s] [ERROR] %v, took %dms", asset, err, time.Since(start).Milliseconds())
		return
	}
	log.Printf("[signal.%s] [OK] %s confidence=%d, took %dms", asset, sig.Prediction, sig.Confidence, time.Since(start).Milliseconds())
	log.Printf("  - %s", sig.Frozen())
}

func probeProvider(parent context.Context, p market.Provider, assets []string) {
	for _, asset := range assets {
		if parent.Err() != nil {
			return
		}
		func() {
			ctx, cancel := context.WithTimeout(parent, apiTimeout)
			defer cancel()

			start := time.Now()
			price, err := p.CurrentPrice(ctx, asset)
			elapsed := time.Since(start)
			if err != nil {
				log.Printf("[%s.price.%s] [ERROR] %v, took %dms", p.Name(), asset, err, elapsed.Milliseconds())
				return
			}
			log.Printf("[%s.price.%s] [OK] price=%.6f, took %dms", p.Name(), asset, price, elapsed.Milliseconds())
		}()
	}
}
