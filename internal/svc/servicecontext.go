package svc

import (
	"context"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/zeromicro/go-zero/core/stores/redis"

	"beatai-api/internal/cache"
	"beatai-api/internal/config"
	"beatai-api/internal/store/memory"
	"beatai-api/internal/store/postgres"
	"beatai-api/pkg/game"
	marketpkg "beatai-api/pkg/market"
	_ "beatai-api/pkg/market/exchanges/binance"
	_ "beatai-api/pkg/market/exchanges/bybit"
	_ "beatai-api/pkg/market/exchanges/coingecko"
	_ "beatai-api/pkg/market/exchanges/cryptocompare"
	_ "beatai-api/pkg/market/exchanges/hyperliquid"
	_ "beatai-api/pkg/market/exchanges/mexc"
	_ "beatai-api/pkg/market/exchanges/yahoo"
	"beatai-api/pkg/signal"
)

type ServiceContext struct {
	Config config.Config

	MarketConfig *marketpkg.Config
	Market       *marketpkg.Gateway
	Signals      *signal.Cache
	Store        game.Store
	// Redis is nil when no Redis host is configured.
	Redis        *redis.Redis

	Game      *game.Service
	Validator *validator.Validate
}

func NewServiceContext(c config.Config, mainConfigPath string) *ServiceContext {
	marketCfg := c.Market.Value
	if marketCfg == nil {
		marketCfg = marketpkg.DefaultConfig()
	}
	gateway, err := marketCfg.BuildGateway()
	if err != nil {
		log.Fatalf("failed to build market gateway: %v", err)
	}
	if len(gateway.ProviderNames()) == 0 {
		log.Fatalf("market config %s enables no providers", mainConfigPath)
	}

	svc := &ServiceContext{
		Config:       c,
		MarketConfig: marketCfg,
		Market:       gateway,
		Signals:      signal.NewCache(gateway, signal.WithCandleLimit(c.Signal.CandleLimit)),
		Validator:    validator.New(),
	}
	svc.Store = newStore(c.Postgres)

	opts := []game.ServiceOption{
		game.WithRetry(game.RetryConfig{
			Attempts:       c.Game.StartAttempts,
			InitialBackoff: c.Game.StartBackoff,
		}),
	}
	if strings.TrimSpace(c.Redis.Host) != "" {
		svc.Redis = redis.MustNewRedis(c.Redis)
		ttl := cache.NewTTLSet(c.TTL)
		opts = append(opts,
			game.WithLocker(cache.NewSettlementLocker(svc.Redis, ttl, c.Game.LockWait)),
			game.WithResultCache(cache.NewResultCache(svc.Redis, ttl)),
		)
	}

	engine := game.NewEngine(gateway, svc.Signals, game.WithChartCandles(c.Game.CandleLimit))
	svc.Game = game.NewService(engine, svc.Store, opts...)
	return svc
}

// newStore opens Postgres when a DSN is configured and falls back to the
// in-process store otherwise.
func newStore(c config.PostgresConf) game.Store {
	dsn := strings.TrimSpace(c.DSN)
	if dsn == "" {
		log.Printf("postgres not configured, games are kept in memory")
		return memory.New()
	}
	store, err := postgres.Open(dsn, c.MaxOpen, c.MaxIdle)
	if err != nil {
		log.Fatalf("failed to open postgres: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		log.Fatalf("failed to migrate postgres schema: %v", err)
	}
	return store
}
