package cache

import (
	"strings"
	"time"

	"beatai-api/internal/config"
)

// Namespace is the Redis key prefix for the application.
const Namespace = "beatai"

// TTLClass represents a config-driven TTL bucket.
type TTLClass string

const (
	TTLShort TTLClass = "short"
	TTLLong  TTLClass = "long"
)

// TTLSet normalises cache TTLs from config into time.Duration values.
type TTLSet struct {
	Short time.Duration
	Long  time.Duration
}

// NewTTLSet converts config TTLs (in seconds) into durations.
func NewTTLSet(cfg config.CacheTTL) TTLSet {
	return TTLSet{
		Short: durationOrDefault(cfg.Short, 10*time.Second),
		Long:  durationOrDefault(cfg.Long, 5*time.Minute),
	}
}

func durationOrDefault(seconds int, fallback time.Duration) time.Duration {
	if seconds < 0 {
		return 0
	}
	if seconds == 0 {
		return fallback
	}
	return time.Duration(seconds) * time.Second
}

// Duration returns the configured duration for the given TTL class.
func (t TTLSet) Duration(class TTLClass) time.Duration {
	switch class {
	case TTLShort:
		return t.Short
	case TTLLong:
		return t.Long
	default:
		return 0
	}
}

// Seconds is Duration rounded up to whole seconds, as Redis expiries take.
func (t TTLSet) Seconds(class TTLClass) int {
	d := t.Duration(class)
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

func formatKey(parts ...string) string {
	values := make([]string, 0, len(parts)+1)
	values = append(values, Namespace)
	for _, part := range parts {
		clean := strings.TrimSpace(part)
		if clean == "" {
			continue
		}
		values = append(values, clean)
	}
	return strings.Join(values, ":")
}

// SettlementLockKey guards result evaluation for one game.
func SettlementLockKey(gameID string) string {
	return formatKey("lock", "settle", gameID)
}

// GameResultKey stores the snapshot of a completed game.
func GameResultKey(gameID string) string {
	return formatKey("game", "result", gameID)
}
