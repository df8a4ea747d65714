package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"trade_arena/internal/domain"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store is the durable ledger store: ledgers, holdings and the
// append-only trade record stream, backed by pure-Go SQLite.
type Store struct {
	db *gorm.DB
}

// NewStore opens (or creates) the database at path and migrates the
// schema.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Pure Go SQLite; no cgo
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&domain.Ledger{}, &domain.Holding{}, &domain.TradeRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Ledger lifecycle
// ======================================================================================

// OpenIndividualLedger creates the owner's Individual ledger seeded
// with the starting capital. Each owner gets exactly one.
func (s *Store) OpenIndividualLedger(ownerID string, capital decimal.Decimal) (*domain.Ledger, error) {
	return s.createLedger(ownerID, domain.LedgerKindIndividual, "", capital)
}

// JoinCompetition creates the owner's ledger inside a competition,
// seeded with the competition's starting capital. At most one per
// (owner, competition).
func (s *Store) JoinCompetition(ownerID, competitionID string, capital decimal.Decimal) (*domain.Ledger, error) {
	if competitionID == "" {
		return nil, &domain.ValidationError{Field: "competition_id", Reason: "must not be empty"}
	}
	return s.createLedger(ownerID, domain.LedgerKindCompetition, competitionID, capital)
}

func (s *Store) createLedger(ownerID string, kind domain.LedgerKind, competitionID string, capital decimal.Decimal) (*domain.Ledger, error) {
	var existing domain.Ledger
	err := s.db.Where("owner_id = ? AND competition_id = ?", ownerID, competitionID).
		First(&existing).Error
	if err == nil {
		return nil, domain.ErrLedgerExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	ledger := &domain.Ledger{
		OwnerID:         ownerID,
		Kind:            kind,
		CompetitionID:   competitionID,
		FreeCapital:     capital,
		StartingCapital: capital,
		Active:          true,
		CreatedAt:       time.Now(),
	}
	if err := s.db.Create(ledger).Error; err != nil {
		return nil, err
	}
	return ledger, nil
}

// LedgerByID fetches one ledger.
func (s *Store) LedgerByID(id uint64) (*domain.Ledger, error) {
	var ledger domain.Ledger
	err := s.db.First(&ledger, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrLedgerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

// ResolveLedger resolves a selector into the owner's concrete ledger.
func (s *Store) ResolveLedger(ownerID string, sel domain.LedgerSelector) (*domain.Ledger, error) {
	var ledger domain.Ledger
	err := s.db.Where("owner_id = ? AND competition_id = ?", ownerID, sel.CompetitionID).
		First(&ledger).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrLedgerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

// Participants returns every active participant ledger of a
// competition, oldest first so callers get a stable tie-break order.
func (s *Store) Participants(competitionID string) ([]domain.Ledger, error) {
	var ledgers []domain.Ledger
	err := s.db.Where("competition_id = ? AND active = ?", competitionID, true).
		Order("created_at ASC, id ASC").
		Find(&ledgers).Error
	return ledgers, err
}

// Holdings returns all holdings of a ledger.
func (s *Store) Holdings(ledgerID uint64) ([]domain.Holding, error) {
	var holdings []domain.Holding
	err := s.db.Where("ledger_id = ?", ledgerID).Find(&holdings).Error
	return holdings, err
}

// DeactivateLedger marks a ledger closed; the executor rejects orders
// against it afterwards.
func (s *Store) DeactivateLedger(ledgerID uint64) error {
	res := s.db.Model(&domain.Ledger{}).Where("id = ?", ledgerID).Update("active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrLedgerNotFound
	}
	return nil
}

// DeactivateCompetition marks every ledger of a competition closed.
// Called when the competition ends, together with cache invalidation.
func (s *Store) DeactivateCompetition(competitionID string) error {
	return s.db.Model(&domain.Ledger{}).
		Where("competition_id = ?", competitionID).
		Update("active", false).Error
}

// ======================================================================================
// Exclusive ledger transaction
// ======================================================================================

// LedgerTx is the executor's view inside one exclusive transaction:
// read ledger and holdings, write them back, append the trade record.
// Commit/rollback is driven by the error returned from the callback.
type LedgerTx struct {
	tx     *gorm.DB
	ledger *domain.Ledger
}

// Ledger returns the row loaded at transaction start. Mutations become
// durable via SaveLedger.
func (t *LedgerTx) Ledger() *domain.Ledger {
	return t.ledger
}

// Holding returns the ledger's holding for symbol, or nil when the
// ledger holds none.
func (t *LedgerTx) Holding(symbol string) (*domain.Holding, error) {
	var h domain.Holding
	err := t.tx.Where("ledger_id = ? AND symbol = ?", t.ledger.ID, symbol).First(&h).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// SaveLedger writes the mutated ledger row.
func (t *LedgerTx) SaveLedger() error {
	t.ledger.UpdatedAt = time.Now()
	return t.tx.Save(t.ledger).Error
}

// SaveHolding creates or updates a holding row.
func (t *LedgerTx) SaveHolding(h *domain.Holding) error {
	h.UpdatedAt = time.Now()
	return t.tx.Save(h).Error
}

// DeleteHolding removes an emptied holding row.
func (t *LedgerTx) DeleteHolding(h *domain.Holding) error {
	return t.tx.Delete(h).Error
}

// AppendTrade appends one immutable trade record. The assigned
// auto-increment ID is the monotonic trade id.
func (t *LedgerTx) AppendTrade(rec *domain.TradeRecord) error {
	return t.tx.Create(rec).Error
}

// ExecuteLedgerTx runs fn inside one transaction scoped to a single
// ledger. The row is re-read after the caller has taken the ledger
// lock, so fn sees committed state. Any error rolls the whole unit
// back with zero partial effect.
func (s *Store) ExecuteLedgerTx(ledgerID uint64, fn func(tx *LedgerTx) error) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var ledger domain.Ledger
		err := tx.First(&ledger, "id = ?", ledgerID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrLedgerNotFound
		}
		if err != nil {
			return err
		}
		return fn(&LedgerTx{tx: tx, ledger: &ledger})
	})
}

// ======================================================================================
// Throttle history queries (derived from the trade record stream)
// ======================================================================================

// LastTradeAt returns the timestamp of the owner's most recent trade in
// symbol across all of their ledgers.
func (s *Store) LastTradeAt(ownerID, symbol string) (time.Time, bool, error) {
	var rec domain.TradeRecord
	err := s.db.Model(&domain.TradeRecord{}).
		Joins("JOIN ledgers ON ledgers.id = trade_records.ledger_id").
		Where("ledgers.owner_id = ? AND trade_records.symbol = ?", ownerID, symbol).
		Order("trade_records.executed_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return rec.ExecutedAt, true, nil
}

// CountTradesSince counts the owner's trades across all ledgers since
// the given instant.
func (s *Store) CountTradesSince(ownerID string, since time.Time) (int64, error) {
	var count int64
	err := s.db.Model(&domain.TradeRecord{}).
		Joins("JOIN ledgers ON ledgers.id = trade_records.ledger_id").
		Where("ledgers.owner_id = ? AND trade_records.executed_at >= ?", ownerID, since).
		Count(&count).Error
	return count, err
}

// TradesSince returns the owner's trades across all ledgers since the
// given instant, oldest first.
func (s *Store) TradesSince(ownerID string, since time.Time) ([]domain.TradeRecord, error) {
	var recs []domain.TradeRecord
	err := s.db.Model(&domain.TradeRecord{}).
		Joins("JOIN ledgers ON ledgers.id = trade_records.ledger_id").
		Where("ledgers.owner_id = ? AND trade_records.executed_at >= ?", ownerID, since).
		Order("trade_records.executed_at ASC").
		Find(&recs).Error
	return recs, err
}
