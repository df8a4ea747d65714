package valuation

import (
	"log/slog"

	"trade_arena/internal/domain"
	"trade_arena/internal/infra"

	"github.com/shopspring/decimal"
)

// Valuation is the mark-to-market value of one ledger at one instant.
type Valuation struct {
	LedgerID      uint64          `json:"ledger_id"`
	TotalValue    decimal.Decimal `json:"total_value"`
	FreeCapital   decimal.Decimal `json:"free_capital"`
	HoldingsValue decimal.Decimal `json:"holdings_value"`
	// Value per symbol, after fallback.
	Symbols map[string]decimal.Decimal `json:"symbols"`
	// Symbols valued at cost basis because no live price was available.
	Degraded []string `json:"degraded,omitempty"`
}

// Service computes ledger values from fresh store reads and live
// quotes. Every call re-reads the ledger, so concurrent executor writes
// are at worst one trade stale, never torn.
type Service struct {
	store   domain.LedgerReader
	prices  domain.PriceSource
	metrics *infra.Metrics
}

// NewService creates a valuation service.
func NewService(store domain.LedgerReader, prices domain.PriceSource, metrics *infra.Metrics) *Service {
	return &Service{store: store, prices: prices, metrics: metrics}
}

// ValueOf computes free capital plus the sum of holding values. A
// holding with no live quote falls back to quantity times average cost
// and is flagged as degraded; the fallback is non-fatal by design.
func (s *Service) ValueOf(ledgerID uint64) (*Valuation, error) {
	ledger, err := s.store.LedgerByID(ledgerID)
	if err != nil {
		return nil, err
	}
	holdings, err := s.store.Holdings(ledgerID)
	if err != nil {
		return nil, err
	}

	v := &Valuation{
		LedgerID:    ledger.ID,
		FreeCapital: ledger.FreeCapital,
		Symbols:     make(map[string]decimal.Decimal, len(holdings)),
	}

	for _, h := range holdings {
		price, ok := s.prices.GetPrice(h.Symbol)
		if !ok {
			price = h.AverageCost
			v.Degraded = append(v.Degraded, h.Symbol)
			s.metrics.RecordDegradedValuation()
		}
		value := h.Quantity.Mul(price)
		v.Symbols[h.Symbol] = value
		v.HoldingsValue = v.HoldingsValue.Add(value)
	}
	v.TotalValue = v.FreeCapital.Add(v.HoldingsValue)

	if len(v.Degraded) > 0 {
		slog.Warn("valuation degraded to cost basis",
			slog.Uint64("ledger_id", ledgerID),
			slog.Any("symbols", v.Degraded))
	}
	return v, nil
}
