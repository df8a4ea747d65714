package app

import (
	"log/slog"

	"trade_arena/internal/broadcast"
	"trade_arena/internal/engine"
	"trade_arena/internal/infra"
	"trade_arena/internal/infra/storage"
	"trade_arena/internal/ranking"
	"trade_arena/internal/service"
	"trade_arena/internal/throttle"
	"trade_arena/internal/valuation"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Store   *storage.Store
	Quotes  *service.QuoteBoard
	Hub     *broadcast.Hub
	Cache   *ranking.Cache
	Trading *service.TradingService
	Metrics *infra.Metrics
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads config, swaps in the rotating logger and wires the
// whole trade path: store, quotes, valuation, throttle, executor,
// ranking cache, hub and the trading service.
func (b *Bootstrap) Initialize(configPath string) error {
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	b.Metrics = &infra.Metrics{}

	store, err := storage.NewStore(cfg.Database.Path)
	if err != nil {
		return err
	}
	b.Store = store
	slog.Info("ledger store initialized", slog.String("path", cfg.Database.Path))

	b.Quotes = service.NewQuoteBoard()
	b.Hub = broadcast.NewHub(b.Metrics)

	valuer := valuation.NewService(store, b.Quotes, b.Metrics)
	builder := ranking.NewBuilder(store, valuer)
	b.Cache = ranking.NewCache(builder)

	evaluator := throttle.NewEvaluator(throttle.Config{
		Cooldown:           cfg.Cooldown(),
		FrequencyWindow:    cfg.FrequencyWindow(),
		MaxTradesPerWindow: cfg.Throttle.MaxTradesPerWindow,
		MaxConcentration:   cfg.Throttle.MaxConcentration,
		DailyLossFloor:     cfg.Throttle.DailyLossFloor,
	}, store, valuer, b.Quotes, b.Metrics)

	executor := engine.NewExecutor(store, engine.NewLockArena(), cfg.LockTimeout(), b.Metrics)

	trading, err := service.NewTradingService(store, evaluator, executor, b.Cache, b.Hub, b.Quotes, cfg.Arena.RebuildWorkers, b.Metrics)
	if err != nil {
		return err
	}
	b.Trading = trading

	slog.Info("trading engine ready",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version))
	return nil
}

// Shutdown releases pooled resources in reverse start order.
func (b *Bootstrap) Shutdown() {
	if b.Trading != nil {
		b.Trading.Close()
	}
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			slog.Error("store close failed", slog.Any("error", err))
		}
	}
}
