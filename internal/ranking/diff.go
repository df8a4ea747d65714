package ranking

import (
	"trade_arena/internal/domain"
)

// Diff compares two consecutive snapshots of one competition. Lookups
// are keyed by participant id, so joins and departures between builds
// never corrupt the deltas: a participant present only in current is a
// joiner, one present only in previous simply drops out. A nil previous
// (first build) makes every participant a joiner.
func Diff(previous, current *domain.RankingSnapshot) *domain.ChangeSet {
	changes := &domain.ChangeSet{CompetitionID: current.CompetitionID}

	prevByID := make(map[string]domain.RankingEntry)
	if previous != nil {
		for _, e := range previous.Entries {
			prevByID[e.ParticipantID] = e
		}
	}

	for _, curr := range current.Entries {
		prev, ok := prevByID[curr.ParticipantID]
		if !ok {
			changes.Joined = append(changes.Joined, curr.ParticipantID)
			continue
		}

		if prev.Rank != curr.Rank {
			changes.RankMoves = append(changes.RankMoves, domain.RankMove{
				ParticipantID: curr.ParticipantID,
				From:          prev.Rank,
				To:            curr.Rank,
				// Positive delta means the participant climbed.
				Delta: prev.Rank - curr.Rank,
			})
		}
		if delta := curr.Value.Sub(prev.Value); !delta.IsZero() {
			changes.ValueMoves = append(changes.ValueMoves, domain.ValueMove{
				ParticipantID: curr.ParticipantID,
				Delta:         delta,
			})
		}
	}
	return changes
}
