package cli

import (
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"beatai-api/internal/config"
	"beatai-api/pkg/confkit"
	marketpkg "beatai-api/pkg/market"
)

// ConfigSummaryLines returns human readable lines describing the loaded app config.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	return []string{
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("Postgres: %s", presence(strings.TrimSpace(cfg.Postgres.DSN) != "", "in-memory store")),
		fmt.Sprintf("Redis: %s", presence(strings.TrimSpace(cfg.Redis.Host) != "", "process-local settlement lock")),
		fmt.Sprintf("TTL (short/long): %ds / %ds", cfg.TTL.Short, cfg.TTL.Long),
		fmt.Sprintf("Game: attempts=%d backoff=%s candles=%d lockWait=%s",
			cfg.Game.StartAttempts, cfg.Game.StartBackoff, cfg.Game.CandleLimit, cfg.Game.LockWait),
		fmt.Sprintf("Signal candles: %d", cfg.Signal.CandleLimit),
		sectionLine("Market config", cfg.Market),
		fmt.Sprintf("Market providers: %s", providerChain(cfg.Market.Value)),
	}
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Info("configuration summary")
	for _, line := range lines {
		logx.Infof("config • %s", line)
	}
}

func presence(ok bool, fallback string) string {
	if ok {
		return "configured"
	}
	return "not configured (" + fallback + ")"
}

func providerChain(cfg *marketpkg.Config) string {
	if cfg == nil {
		return "default"
	}
	names := make([]string, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		if p.Disabled {
			continue
		}
		names = append(names, p.Name)
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, " → ")
}

func sectionLine[T any](name string, section confkit.Section[T]) string {
	switch {
	case strings.TrimSpace(section.File) != "":
		return fmt.Sprintf("%s: %s", name, section.File)
	case section.Value != nil:
		return fmt.Sprintf("%s: built-in", name)
	default:
		return fmt.Sprintf("%s: not configured", name)
	}
}
