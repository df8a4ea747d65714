package engine

import (
	"context"
	"log/slog"
	"time"

	"trade_arena/internal/domain"
	"trade_arena/internal/infra"
	"trade_arena/internal/infra/storage"

	"github.com/shopspring/decimal"
)

// DefaultLockTimeout bounds how long an execution waits for its ledger
// lock before failing with a retryable busy error.
const DefaultLockTimeout = 250 * time.Millisecond

// Executor applies validated orders against a single ledger as one
// isolated unit: read, validate sufficiency, mutate, append the trade
// record. The per-ledger lock is held for exactly that sequence; the
// sufficiency checks here are the authoritative gate regardless of
// what admission control concluded earlier.
type Executor struct {
	store       *storage.Store
	locks       *LockArena
	lockTimeout time.Duration
	metrics     *infra.Metrics
}

// NewExecutor creates an executor over the given store. A non-positive
// lockTimeout falls back to DefaultLockTimeout.
func NewExecutor(store *storage.Store, locks *LockArena, lockTimeout time.Duration, metrics *infra.Metrics) *Executor {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Executor{
		store:       store,
		locks:       locks,
		lockTimeout: lockTimeout,
		metrics:     metrics,
	}
}

// Execute fills an order at fillPrice against the ledger. Buys debit
// free capital and fold the fill into the weighted average cost; sells
// credit proceeds, never touch average cost, and delete the holding row
// when it empties. Any failure aborts with zero partial effect; on
// success the trade record is durable before Execute returns.
func (e *Executor) Execute(ctx context.Context, ledgerID uint64, symbol string, side domain.Side, quantity, fillPrice decimal.Decimal) (*domain.OrderResult, error) {
	release, ok := e.locks.Acquire(ctx, ledgerID, e.lockTimeout)
	if !ok {
		return nil, &domain.BusyError{LedgerID: ledgerID, Timeout: e.lockTimeout}
	}
	defer release()

	var result *domain.OrderResult
	err := e.store.ExecuteLedgerTx(ledgerID, func(tx *storage.LedgerTx) error {
		ledger := tx.Ledger()
		if !ledger.Active {
			return domain.ErrLedgerInactive
		}

		var err error
		switch side {
		case domain.SideBuy:
			err = e.applyBuy(tx, symbol, quantity, fillPrice)
		case domain.SideSell:
			err = e.applySell(tx, symbol, quantity, fillPrice)
		default:
			return &domain.ValidationError{Field: "side", Reason: "must be BUY or SELL"}
		}
		if err != nil {
			return err
		}

		now := time.Now()
		rec := &domain.TradeRecord{
			LedgerID:             ledger.ID,
			Symbol:               symbol,
			Side:                 side,
			Quantity:             quantity,
			FillPrice:            fillPrice,
			ExecutedAt:           now,
			ResultingFreeCapital: ledger.FreeCapital,
		}
		if err := tx.AppendTrade(rec); err != nil {
			return err
		}
		if err := tx.SaveLedger(); err != nil {
			return err
		}

		result = &domain.OrderResult{
			TradeID:     rec.ID,
			LedgerID:    ledger.ID,
			Symbol:      symbol,
			Side:        side,
			Quantity:    quantity,
			FillPrice:   fillPrice,
			FreeCapital: ledger.FreeCapital,
			ExecutedAt:  now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.metrics.RecordTradeExecuted()
	slog.Debug("trade executed",
		slog.Uint64("ledger_id", result.LedgerID),
		slog.Uint64("trade_id", result.TradeID),
		slog.String("symbol", symbol),
		slog.String("side", string(side)),
		slog.String("quantity", quantity.String()),
		slog.String("fill_price", fillPrice.String()))
	return result, nil
}

func (e *Executor) applyBuy(tx *storage.LedgerTx, symbol string, quantity, fillPrice decimal.Decimal) error {
	ledger := tx.Ledger()
	cost := quantity.Mul(fillPrice)
	if ledger.FreeCapital.LessThan(cost) {
		return domain.ErrInsufficientFunds
	}
	ledger.FreeCapital = ledger.FreeCapital.Sub(cost)

	holding, err := tx.Holding(symbol)
	if err != nil {
		return err
	}
	if holding == nil {
		holding = &domain.Holding{
			LedgerID:    ledger.ID,
			Symbol:      symbol,
			Quantity:    quantity,
			AverageCost: fillPrice,
		}
		return tx.SaveHolding(holding)
	}

	// New average = (old_qty*old_avg + qty*price) / (old_qty + qty)
	oldNotional := holding.Quantity.Mul(holding.AverageCost)
	newQty := holding.Quantity.Add(quantity)
	holding.AverageCost = oldNotional.Add(cost).Div(newQty)
	holding.Quantity = newQty
	return tx.SaveHolding(holding)
}

func (e *Executor) applySell(tx *storage.LedgerTx, symbol string, quantity, fillPrice decimal.Decimal) error {
	ledger := tx.Ledger()
	holding, err := tx.Holding(symbol)
	if err != nil {
		return err
	}
	if holding == nil || holding.Quantity.LessThan(quantity) {
		return domain.ErrInsufficientHoldings
	}

	ledger.FreeCapital = ledger.FreeCapital.Add(quantity.Mul(fillPrice))
	holding.Quantity = holding.Quantity.Sub(quantity)
	if holding.Quantity.IsZero() {
		// Position closed; the average cost basis goes with it.
		return tx.DeleteHolding(holding)
	}
	return tx.SaveHolding(holding)
}
