package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side of an order or trade.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// TradeRecord is the immutable audit entry for one executed order.
// Rows are append-only: created exactly once per successful execution,
// never updated. The auto-incremented ID doubles as the monotonic trade
// id, and the record stream is the only input the throttle evaluator
// reads.
type TradeRecord struct {
	ID                   uint64          `gorm:"primaryKey" json:"trade_id"`
	LedgerID             uint64          `gorm:"index" json:"ledger_id"`
	Symbol               string          `gorm:"index" json:"symbol"`
	Side                 Side            `json:"side"`
	Quantity             decimal.Decimal `gorm:"type:decimal(32,8)" json:"quantity"`
	FillPrice            decimal.Decimal `gorm:"type:decimal(32,8)" json:"fill_price"`
	ExecutedAt           time.Time       `gorm:"index" json:"executed_at"`
	ResultingFreeCapital decimal.Decimal `gorm:"type:decimal(32,8)" json:"resulting_free_capital"`
}

// OrderResult reports a successfully executed order back to the caller.
type OrderResult struct {
	TradeID     uint64          `json:"trade_id"`
	LedgerID    uint64          `json:"ledger_id"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	Quantity    decimal.Decimal `json:"quantity"`
	FillPrice   decimal.Decimal `json:"fill_price"`
	FreeCapital decimal.Decimal `json:"free_capital"`
	ExecutedAt  time.Time       `json:"executed_at"`
}
