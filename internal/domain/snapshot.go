package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RankingEntry is one participant's row in a competition ranking.
type RankingEntry struct {
	ParticipantID string          `json:"participant_id"`
	LedgerID      uint64          `json:"ledger_id"`
	Rank          int             `json:"rank"`
	Value         decimal.Decimal `json:"value"`
	ProfitLoss    decimal.Decimal `json:"profit_loss"`
	ReturnPct     decimal.Decimal `json:"return_pct"`
}

// RankingSnapshot is a point-in-time ranking of all participants in a
// competition, ordered by value with ranks 1..N. It is ephemeral and
// fully rebuildable from ledgers plus live prices; never a source of
// truth.
type RankingSnapshot struct {
	CompetitionID string         `json:"competition_id"`
	GeneratedAt   time.Time      `json:"generated_at"`
	Entries       []RankingEntry `json:"entries"`
}

// Entry looks up a participant's row by id.
func (s *RankingSnapshot) Entry(participantID string) (RankingEntry, bool) {
	for _, e := range s.Entries {
		if e.ParticipantID == participantID {
			return e, true
		}
	}
	return RankingEntry{}, false
}

// RankMove records one participant's rank change between two snapshots.
// Delta is old minus new, so positive means the participant climbed.
type RankMove struct {
	ParticipantID string `json:"participant_id"`
	From          int    `json:"from"`
	To            int    `json:"to"`
	Delta         int    `json:"delta"`
}

// ValueMove records one participant's value change between snapshots.
type ValueMove struct {
	ParticipantID string          `json:"participant_id"`
	Delta         decimal.Decimal `json:"delta"`
}

// ChangeSet is the diff between two consecutive snapshots of one
// competition. Transient; consumed once by the dispatcher.
type ChangeSet struct {
	CompetitionID string      `json:"competition_id"`
	RankMoves     []RankMove  `json:"rank_moves"`
	ValueMoves    []ValueMove `json:"value_moves"`
	Joined        []string    `json:"joined"`
}

// Empty reports whether the diff carries no movement at all.
func (c *ChangeSet) Empty() bool {
	return len(c.RankMoves) == 0 && len(c.ValueMoves) == 0 && len(c.Joined) == 0
}
