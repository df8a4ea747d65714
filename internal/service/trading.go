package service

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"trade_arena/internal/broadcast"
	"trade_arena/internal/domain"
	"trade_arena/internal/engine"
	"trade_arena/internal/infra"
	"trade_arena/internal/infra/storage"
	"trade_arena/internal/ranking"
	"trade_arena/internal/throttle"

	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"
)

// TradingService is the public face of the engine: order placement,
// snapshot reads and cache invalidation. A successful trade runs in two
// phases: phase 1 (admission, execution, trade record) completes and
// returns before phase 2 (ranking rebuild, diff, broadcast) starts on
// the worker pool. Phase 2 failures are logged and swallowed; they can
// never unwind a committed trade.
type TradingService struct {
	store    *storage.Store
	throttle *throttle.Evaluator
	executor *engine.Executor
	cache    *ranking.Cache
	hub      *broadcast.Hub
	prices   domain.PriceSource
	pool     *ants.Pool
	metrics  *infra.Metrics
}

// NewTradingService wires the trade path. poolSize bounds the number of
// concurrent rebuild jobs.
func NewTradingService(
	store *storage.Store,
	evaluator *throttle.Evaluator,
	executor *engine.Executor,
	cache *ranking.Cache,
	hub *broadcast.Hub,
	prices domain.PriceSource,
	poolSize int,
	metrics *infra.Metrics,
) (*TradingService, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}
	return &TradingService{
		store:    store,
		throttle: evaluator,
		executor: executor,
		cache:    cache,
		hub:      hub,
		prices:   prices,
		pool:     pool,
		metrics:  metrics,
	}, nil
}

// Close releases the rebuild pool.
func (s *TradingService) Close() {
	s.pool.Release()
}

// PlaceOrder validates, admits and executes one order against the
// ledger the selector resolves to, filling at the current quote.
func (s *TradingService) PlaceOrder(ctx context.Context, ownerID string, sel domain.LedgerSelector, symbol string, side domain.Side, quantity decimal.Decimal) (*domain.OrderResult, error) {
	switch {
	case ownerID == "":
		return nil, &domain.ValidationError{Field: "owner_id", Reason: "must not be empty"}
	case symbol == "":
		return nil, &domain.ValidationError{Field: "symbol", Reason: "must not be empty"}
	case !side.Valid():
		return nil, &domain.ValidationError{Field: "side", Reason: "must be BUY or SELL"}
	case !quantity.IsPositive():
		return nil, &domain.ValidationError{Field: "quantity", Reason: "must be positive"}
	case !sel.Valid():
		return nil, &domain.ValidationError{Field: "ledger_selector", Reason: "malformed selector"}
	}

	// Resolve the selector once; everything downstream works on the
	// concrete ledger handle.
	ledger, err := s.store.ResolveLedger(ownerID, sel)
	if err != nil {
		return nil, err
	}

	fillPrice, ok := s.prices.GetPrice(symbol)
	if !ok {
		return nil, domain.ErrPriceUnavailable
	}

	// Fast pre-filter, run without the ledger lock. The executor's own
	// sufficiency checks remain authoritative.
	if err := s.throttle.Evaluate(throttle.Request{
		OwnerID:   ownerID,
		Ledger:    ledger,
		Symbol:    symbol,
		Side:      side,
		Quantity:  quantity,
		FillPrice: fillPrice,
	}); err != nil {
		return nil, err
	}

	started := time.Now()
	result, err := s.executor.Execute(ctx, ledger.ID, symbol, side, quantity, fillPrice)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordExecutionLatency(time.Since(started).Nanoseconds())

	if ledger.Kind == domain.LedgerKindCompetition {
		s.enqueueRebuild(ledger.CompetitionID)
	}
	return result, nil
}

// GetSnapshot returns the competition's current ranking, building one
// when the cache is cold.
func (s *TradingService) GetSnapshot(competitionID string) (*domain.RankingSnapshot, error) {
	return s.cache.GetOrBuild(competitionID)
}

// Invalidate drops the competition's cached snapshots. Called on
// participant departure or competition end.
func (s *TradingService) Invalidate(competitionID string) {
	s.cache.Invalidate(competitionID)
}

// EndCompetition closes every participant ledger and drops the cached
// ranking.
func (s *TradingService) EndCompetition(competitionID string) error {
	if err := s.store.DeactivateCompetition(competitionID); err != nil {
		return err
	}
	s.cache.Invalidate(competitionID)
	return nil
}

// enqueueRebuild hands the competition to the worker pool. Rejection by
// a saturated pool is logged and dropped; the trade already committed.
func (s *TradingService) enqueueRebuild(competitionID string) {
	err := s.pool.Submit(func() {
		s.rebuild(competitionID)
	})
	if err != nil {
		slog.Error("rebuild submit failed",
			slog.String("competition_id", competitionID),
			slog.Any("error", err))
		s.metrics.RecordRebuildFailure()
	}
}

func (s *TradingService) rebuild(competitionID string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("rebuild panic",
				slog.String("competition_id", competitionID),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			s.metrics.RecordRebuildFailure()
		}
	}()

	snapshot, changes, err := s.cache.Rebuild(competitionID)
	if err != nil {
		// The previous cached snapshot stays in place.
		slog.Error("snapshot rebuild failed",
			slog.String("competition_id", competitionID),
			slog.Any("error", err))
		s.metrics.RecordRebuildFailure()
		return
	}
	s.metrics.RecordSnapshotRebuild()

	s.hub.Publish(competitionID, broadcast.Event{
		Type:          broadcast.EventSnapshot,
		CompetitionID: competitionID,
		Snapshot:      snapshot,
	})
	if !changes.Empty() {
		s.hub.Publish(competitionID, broadcast.Event{
			Type:          broadcast.EventMovement,
			CompetitionID: competitionID,
			Changes:       changes,
		})
	}
}
