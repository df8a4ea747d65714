package ranking

import (
	"fmt"
	"sort"
	"time"

	"trade_arena/internal/domain"
	"trade_arena/internal/valuation"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Builder computes ranking snapshots for a competition by valuing every
// participant ledger.
type Builder struct {
	store  domain.ParticipantSource
	valuer *valuation.Service
}

// NewBuilder creates a snapshot builder.
func NewBuilder(store domain.ParticipantSource, valuer *valuation.Service) *Builder {
	return &Builder{store: store, valuer: valuer}
}

// Build values every participant and orders them into a strict total
// order: value descending, ties broken by earliest ledger creation,
// then by ledger id so no two participants ever share a rank. Ranks run
// 1..N.
func (b *Builder) Build(competitionID string) (*domain.RankingSnapshot, error) {
	ledgers, err := b.store.Participants(competitionID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	type scored struct {
		entry     domain.RankingEntry
		createdAt time.Time
	}

	rows := make([]scored, 0, len(ledgers))
	for _, ledger := range ledgers {
		v, err := b.valuer.ValueOf(ledger.ID)
		if err != nil {
			return nil, fmt.Errorf("value ledger %d: %w", ledger.ID, err)
		}

		profitLoss := v.TotalValue.Sub(ledger.StartingCapital)
		returnPct := decimal.Zero
		if ledger.StartingCapital.IsPositive() {
			returnPct = profitLoss.Div(ledger.StartingCapital).Mul(hundred)
		}

		rows = append(rows, scored{
			entry: domain.RankingEntry{
				ParticipantID: ledger.OwnerID,
				LedgerID:      ledger.ID,
				Value:         v.TotalValue,
				ProfitLoss:    profitLoss,
				ReturnPct:     returnPct,
			},
			createdAt: ledger.CreatedAt,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		cmp := rows[i].entry.Value.Cmp(rows[j].entry.Value)
		if cmp != 0 {
			return cmp > 0
		}
		if !rows[i].createdAt.Equal(rows[j].createdAt) {
			return rows[i].createdAt.Before(rows[j].createdAt)
		}
		return rows[i].entry.LedgerID < rows[j].entry.LedgerID
	})

	snapshot := &domain.RankingSnapshot{
		CompetitionID: competitionID,
		GeneratedAt:   time.Now(),
		Entries:       make([]domain.RankingEntry, len(rows)),
	}
	for i, row := range rows {
		row.entry.Rank = i + 1
		snapshot.Entries[i] = row.entry
	}
	return snapshot, nil
}
