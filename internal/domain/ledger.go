package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerKind discriminates the two account ledger variants.
type LedgerKind string

const (
	LedgerKindIndividual  LedgerKind = "INDIVIDUAL"
	LedgerKindCompetition LedgerKind = "COMPETITION"
)

// Ledger is an isolated account of free capital plus holdings. An owner
// has exactly one Individual ledger and at most one ledger per
// competition; the composite unique index enforces both (Individual
// ledgers carry an empty CompetitionID).
type Ledger struct {
	ID              uint64          `gorm:"primaryKey" json:"id"`
	OwnerID         string          `gorm:"index;uniqueIndex:idx_owner_competition" json:"owner_id"`
	Kind            LedgerKind      `gorm:"index" json:"kind"`
	CompetitionID   string          `gorm:"index;uniqueIndex:idx_owner_competition" json:"competition_id"`
	FreeCapital     decimal.Decimal `gorm:"type:decimal(32,8)" json:"free_capital"`
	StartingCapital decimal.Decimal `gorm:"type:decimal(32,8)" json:"starting_capital"`
	Active          bool            `json:"active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Holding is a position in one instrument within a ledger. Quantity is
// strictly positive; the row is deleted when a sell empties it.
// AverageCost is the weighted average buy price and is never changed by
// selling.
type Holding struct {
	ID          uint64          `gorm:"primaryKey" json:"id"`
	LedgerID    uint64          `gorm:"uniqueIndex:idx_ledger_symbol" json:"ledger_id"`
	Symbol      string          `gorm:"uniqueIndex:idx_ledger_symbol" json:"symbol"`
	Quantity    decimal.Decimal `gorm:"type:decimal(32,8)" json:"quantity"`
	AverageCost decimal.Decimal `gorm:"type:decimal(32,8)" json:"average_cost"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// LedgerSelector is a tagged variant naming which of an owner's ledgers
// an order targets. It is resolved once into a concrete ledger handle;
// downstream logic never re-branches on kind.
type LedgerSelector struct {
	Kind          LedgerKind
	CompetitionID string
}

// SelectIndividual targets the owner's Individual ledger.
func SelectIndividual() LedgerSelector {
	return LedgerSelector{Kind: LedgerKindIndividual}
}

// SelectCompetition targets the owner's ledger in the given competition.
func SelectCompetition(competitionID string) LedgerSelector {
	return LedgerSelector{Kind: LedgerKindCompetition, CompetitionID: competitionID}
}

// Valid reports whether the selector names a resolvable ledger.
func (s LedgerSelector) Valid() bool {
	switch s.Kind {
	case LedgerKindIndividual:
		return s.CompetitionID == ""
	case LedgerKindCompetition:
		return s.CompetitionID != ""
	default:
		return false
	}
}
