package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceSource supplies point-in-time quotes from the market-data
// collaborator. Implementations must be safe under concurrent calls;
// every returned price is treated as truth for the instant it was read.
type PriceSource interface {
	GetPrice(symbol string) (decimal.Decimal, bool)
}

// LedgerReader is the read side of the store needed for valuation.
type LedgerReader interface {
	LedgerByID(id uint64) (*Ledger, error)
	Holdings(ledgerID uint64) ([]Holding, error)
}

// ParticipantSource lists every participant ledger of a competition.
type ParticipantSource interface {
	Participants(competitionID string) ([]Ledger, error)
}

// TradeHistory is the read-only view of the trade record stream that
// the throttle evaluator derives its state from.
type TradeHistory interface {
	LastTradeAt(ownerID, symbol string) (time.Time, bool, error)
	CountTradesSince(ownerID string, since time.Time) (int64, error)
	TradesSince(ownerID string, since time.Time) ([]TradeRecord, error)
}
