package engine

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"trade_arena/internal/domain"
	"trade_arena/internal/infra/storage"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupExecutor(t *testing.T) (*Executor, *storage.Store) {
	t.Helper()

	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return NewExecutor(store, NewLockArena(), DefaultLockTimeout, nil), store
}

func openLedger(t *testing.T, store *storage.Store, owner string, capital int64) *domain.Ledger {
	t.Helper()
	ledger, err := store.OpenIndividualLedger(owner, decimal.NewFromInt(capital))
	require.NoError(t, err)
	return ledger
}

func holdingFor(t *testing.T, store *storage.Store, ledgerID uint64, symbol string) *domain.Holding {
	t.Helper()
	holdings, err := store.Holdings(ledgerID)
	require.NoError(t, err)
	for i := range holdings {
		if holdings[i].Symbol == symbol {
			return &holdings[i]
		}
	}
	return nil
}

func TestExecute_BuySellRoundTrip(t *testing.T) {
	exec, store := setupExecutor(t)
	ctx := context.Background()
	ledger := openLedger(t, store, "alice", 10000)

	// Buy 10 @ 150: capital down by 1500, position opened at cost.
	res, err := exec.Execute(ctx, ledger.ID, "BTC", domain.SideBuy, decimal.NewFromInt(10), decimal.NewFromInt(150))
	require.NoError(t, err)
	assert.True(t, res.FreeCapital.Equal(decimal.NewFromInt(8500)), "free capital = %s", res.FreeCapital)

	h := holdingFor(t, store, ledger.ID, "BTC")
	require.NotNil(t, h)
	assert.True(t, h.Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, h.AverageCost.Equal(decimal.NewFromInt(150)))

	// Sell 4 @ 160: proceeds credited, average cost untouched.
	res, err = exec.Execute(ctx, ledger.ID, "BTC", domain.SideSell, decimal.NewFromInt(4), decimal.NewFromInt(160))
	require.NoError(t, err)
	assert.True(t, res.FreeCapital.Equal(decimal.NewFromInt(9140)), "free capital = %s", res.FreeCapital)

	h = holdingFor(t, store, ledger.ID, "BTC")
	require.NotNil(t, h)
	assert.True(t, h.Quantity.Equal(decimal.NewFromInt(6)))
	assert.True(t, h.AverageCost.Equal(decimal.NewFromInt(150)), "selling must not move average cost")

	// Sell the remaining 6 @ 140: position closes, row disappears.
	res, err = exec.Execute(ctx, ledger.ID, "BTC", domain.SideSell, decimal.NewFromInt(6), decimal.NewFromInt(140))
	require.NoError(t, err)
	assert.True(t, res.FreeCapital.Equal(decimal.NewFromInt(9980)), "free capital = %s", res.FreeCapital)
	assert.Nil(t, holdingFor(t, store, ledger.ID, "BTC"), "emptied holding row must be deleted")

	// Further selling the closed position fails clean.
	_, err = exec.Execute(ctx, ledger.ID, "BTC", domain.SideSell, decimal.NewFromInt(1), decimal.NewFromInt(140))
	assert.ErrorIs(t, err, domain.ErrInsufficientHoldings)
}

func TestExecute_WeightedAverageCost(t *testing.T) {
	exec, store := setupExecutor(t)
	ctx := context.Background()
	ledger := openLedger(t, store, "alice", 10000)

	_, err := exec.Execute(ctx, ledger.ID, "ETH", domain.SideBuy, decimal.NewFromInt(10), decimal.NewFromInt(100))
	require.NoError(t, err)
	_, err = exec.Execute(ctx, ledger.ID, "ETH", domain.SideBuy, decimal.NewFromInt(30), decimal.NewFromInt(200))
	require.NoError(t, err)

	// (10*100 + 30*200) / 40 = 175
	h := holdingFor(t, store, ledger.ID, "ETH")
	require.NotNil(t, h)
	assert.True(t, h.Quantity.Equal(decimal.NewFromInt(40)))
	assert.True(t, h.AverageCost.Equal(decimal.NewFromInt(175)), "average cost = %s, want 175", h.AverageCost)
}

func TestExecute_InsufficientFunds(t *testing.T) {
	exec, store := setupExecutor(t)
	ctx := context.Background()
	ledger := openLedger(t, store, "alice", 1000)

	_, err := exec.Execute(ctx, ledger.ID, "BTC", domain.SideBuy, decimal.NewFromInt(10), decimal.NewFromInt(150))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// Zero partial effect: capital untouched, no holding, no record.
	reread, err := store.LedgerByID(ledger.ID)
	require.NoError(t, err)
	assert.True(t, reread.FreeCapital.Equal(decimal.NewFromInt(1000)))
	assert.Nil(t, holdingFor(t, store, ledger.ID, "BTC"))

	count, err := store.CountTradesSince("alice", time.Time{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestExecute_ExactSpend(t *testing.T) {
	exec, store := setupExecutor(t)
	ctx := context.Background()
	ledger := openLedger(t, store, "alice", 1500)

	// Spending exactly the free capital is allowed; the floor is zero.
	res, err := exec.Execute(ctx, ledger.ID, "BTC", domain.SideBuy, decimal.NewFromInt(10), decimal.NewFromInt(150))
	require.NoError(t, err)
	assert.True(t, res.FreeCapital.IsZero())
}

func TestExecute_InactiveLedger(t *testing.T) {
	exec, store := setupExecutor(t)
	ctx := context.Background()
	ledger := openLedger(t, store, "alice", 10000)

	require.NoError(t, store.DeactivateLedger(ledger.ID))

	_, err := exec.Execute(ctx, ledger.ID, "BTC", domain.SideBuy, decimal.NewFromInt(1), decimal.NewFromInt(100))
	assert.ErrorIs(t, err, domain.ErrLedgerInactive)
}

func TestExecute_UnknownLedger(t *testing.T) {
	exec, _ := setupExecutor(t)

	_, err := exec.Execute(context.Background(), 999, "BTC", domain.SideBuy, decimal.NewFromInt(1), decimal.NewFromInt(100))
	assert.ErrorIs(t, err, domain.ErrLedgerNotFound)
}

func TestExecute_BusyLedger(t *testing.T) {
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	arena := NewLockArena()
	exec := NewExecutor(store, arena, 30*time.Millisecond, nil)
	ledger := openLedger(t, store, "alice", 10000)

	// Hold the ledger lock so the execution cannot get in.
	release, ok := arena.Acquire(context.Background(), ledger.ID, time.Second)
	require.True(t, ok)
	defer release()

	_, err = exec.Execute(context.Background(), ledger.ID, "BTC", domain.SideBuy, decimal.NewFromInt(1), decimal.NewFromInt(100))
	var busy *domain.BusyError
	require.ErrorAs(t, err, &busy)
	assert.Equal(t, ledger.ID, busy.LedgerID)
	assert.True(t, domain.IsRetriable(err), "busy must be retryable")
}

func TestExecute_ConcurrentBuysNeverOverspend(t *testing.T) {
	exec, store := setupExecutor(t)
	ledger := openLedger(t, store, "alice", 1000)

	price := decimal.NewFromInt(150)
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := exec.Execute(context.Background(), ledger.ID, "BTC", domain.SideBuy, decimal.NewFromInt(1), price)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !domain.IsRetriable(err) {
				assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
			}
		}()
	}
	wg.Wait()

	// 1000 / 150 affords at most 6 fills regardless of interleaving.
	assert.LessOrEqual(t, succeeded, 6)

	reread, err := store.LedgerByID(ledger.ID)
	require.NoError(t, err)
	spent := price.Mul(decimal.NewFromInt(int64(succeeded)))
	assert.True(t, reread.FreeCapital.Equal(decimal.NewFromInt(1000).Sub(spent)),
		"free capital = %s after %d fills", reread.FreeCapital, succeeded)
	assert.False(t, reread.FreeCapital.IsNegative(), "free capital must never go negative")

	if h := holdingFor(t, store, ledger.ID, "BTC"); h != nil {
		assert.True(t, h.Quantity.Equal(decimal.NewFromInt(int64(succeeded))))
	} else {
		assert.Zero(t, succeeded)
	}
}

func TestExecute_ConcurrentSellsNeverOversell(t *testing.T) {
	exec, store := setupExecutor(t)
	ledger := openLedger(t, store, "alice", 10000)

	_, err := exec.Execute(context.Background(), ledger.ID, "BTC", domain.SideBuy, decimal.NewFromInt(5), decimal.NewFromInt(100))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := exec.Execute(context.Background(), ledger.ID, "BTC", domain.SideSell, decimal.NewFromInt(1), decimal.NewFromInt(100))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, succeeded, 5, "cannot sell more than held")

	h := holdingFor(t, store, ledger.ID, "BTC")
	if succeeded == 5 {
		assert.Nil(t, h, "fully sold position must be gone")
	} else if h != nil {
		assert.True(t, h.Quantity.Equal(decimal.NewFromInt(int64(5-succeeded))))
	}
}

func TestExecute_RecordsAreAppendOnly(t *testing.T) {
	exec, store := setupExecutor(t)
	ctx := context.Background()
	ledger := openLedger(t, store, "alice", 10000)

	_, err := exec.Execute(ctx, ledger.ID, "BTC", domain.SideBuy, decimal.NewFromInt(2), decimal.NewFromInt(100))
	require.NoError(t, err)
	res, err := exec.Execute(ctx, ledger.ID, "BTC", domain.SideSell, decimal.NewFromInt(2), decimal.NewFromInt(110))
	require.NoError(t, err)

	trades, err := store.TradesSince("alice", time.Time{})
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Greater(t, trades[1].ID, trades[0].ID)
	assert.Equal(t, res.TradeID, trades[1].ID)
	assert.True(t, trades[1].ResultingFreeCapital.Equal(res.FreeCapital))
}
