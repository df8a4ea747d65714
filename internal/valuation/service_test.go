package valuation

import (
	"testing"

	"trade_arena/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	ledgers  map[uint64]*domain.Ledger
	holdings map[uint64][]domain.Holding
}

func (f *fakeReader) LedgerByID(id uint64) (*domain.Ledger, error) {
	l, ok := f.ledgers[id]
	if !ok {
		return nil, domain.ErrLedgerNotFound
	}
	return l, nil
}

func (f *fakeReader) Holdings(ledgerID uint64) ([]domain.Holding, error) {
	return f.holdings[ledgerID], nil
}

type fakePrices map[string]decimal.Decimal

func (f fakePrices) GetPrice(symbol string) (decimal.Decimal, bool) {
	p, ok := f[symbol]
	return p, ok
}

func TestValueOf_LivePrices(t *testing.T) {
	reader := &fakeReader{
		ledgers: map[uint64]*domain.Ledger{
			1: {ID: 1, FreeCapital: decimal.NewFromInt(5000)},
		},
		holdings: map[uint64][]domain.Holding{
			1: {
				{LedgerID: 1, Symbol: "BTC", Quantity: decimal.NewFromInt(2), AverageCost: decimal.NewFromInt(900)},
				{LedgerID: 1, Symbol: "ETH", Quantity: decimal.NewFromInt(10), AverageCost: decimal.NewFromInt(80)},
			},
		},
	}
	prices := fakePrices{
		"BTC": decimal.NewFromInt(1000),
		"ETH": decimal.NewFromInt(100),
	}

	svc := NewService(reader, prices, nil)
	v, err := svc.ValueOf(1)
	require.NoError(t, err)

	// 5000 + 2*1000 + 10*100 = 8000
	assert.True(t, v.TotalValue.Equal(decimal.NewFromInt(8000)), "total = %s", v.TotalValue)
	assert.True(t, v.HoldingsValue.Equal(decimal.NewFromInt(3000)))
	assert.True(t, v.Symbols["BTC"].Equal(decimal.NewFromInt(2000)))
	assert.Empty(t, v.Degraded)
}

func TestValueOf_CostBasisFallback(t *testing.T) {
	reader := &fakeReader{
		ledgers: map[uint64]*domain.Ledger{
			1: {ID: 1, FreeCapital: decimal.NewFromInt(1000)},
		},
		holdings: map[uint64][]domain.Holding{
			1: {
				{LedgerID: 1, Symbol: "BTC", Quantity: decimal.NewFromInt(2), AverageCost: decimal.NewFromInt(500)},
				{LedgerID: 1, Symbol: "XYZ", Quantity: decimal.NewFromInt(4), AverageCost: decimal.NewFromInt(25)},
			},
		},
	}
	// No quote for XYZ: it falls back to cost basis and is flagged.
	prices := fakePrices{"BTC": decimal.NewFromInt(600)}

	svc := NewService(reader, prices, nil)
	v, err := svc.ValueOf(1)
	require.NoError(t, err)

	// 1000 + 2*600 + 4*25 = 2300
	assert.True(t, v.TotalValue.Equal(decimal.NewFromInt(2300)), "total = %s", v.TotalValue)
	assert.Equal(t, []string{"XYZ"}, v.Degraded)
}

func TestValueOf_NoHoldings(t *testing.T) {
	reader := &fakeReader{
		ledgers: map[uint64]*domain.Ledger{
			1: {ID: 1, FreeCapital: decimal.NewFromInt(10000)},
		},
	}

	svc := NewService(reader, fakePrices{}, nil)
	v, err := svc.ValueOf(1)
	require.NoError(t, err)
	assert.True(t, v.TotalValue.Equal(decimal.NewFromInt(10000)))
	assert.True(t, v.HoldingsValue.IsZero())
}

func TestValueOf_UnknownLedger(t *testing.T) {
	svc := NewService(&fakeReader{}, fakePrices{}, nil)
	_, err := svc.ValueOf(42)
	assert.ErrorIs(t, err, domain.ErrLedgerNotFound)
}
