package domain

import (
	"testing"
)

func TestLedgerSelector_Valid(t *testing.T) {
	tests := []struct {
		name string
		sel  LedgerSelector
		want bool
	}{
		{"individual", SelectIndividual(), true},
		{"competition", SelectCompetition("summer-2026"), true},
		{"individual with competition id", LedgerSelector{Kind: LedgerKindIndividual, CompetitionID: "x"}, false},
		{"competition without id", LedgerSelector{Kind: LedgerKindCompetition}, false},
		{"unknown kind", LedgerSelector{Kind: "PAPER"}, false},
		{"zero value", LedgerSelector{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sel.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSide_Valid(t *testing.T) {
	if !SideBuy.Valid() || !SideSell.Valid() {
		t.Error("BUY and SELL must be valid sides")
	}
	if Side("HOLD").Valid() {
		t.Error("unknown side must be invalid")
	}
	if Side("").Valid() {
		t.Error("empty side must be invalid")
	}
}
