package domain

import (
	"encoding/json"
	"fmt"
)

// OutcomeType tags the shape of a battle's outcome payload.
type OutcomeType string

const (
	OutcomeScored      OutcomeType = "scored"
	OutcomeWinDrawLoss OutcomeType = "win_draw_loss"
	OutcomeTiebreak    OutcomeType = "tiebreak"
	OutcomeWinLoss     OutcomeType = "win_loss"
)

// Outcome is a tagged union keyed by Type. Exactly one of the payload
// pointers is non-nil for a populated outcome.
type Outcome struct {
	Type        OutcomeType         `json:"type"`
	Scored      *ScoredOutcome      `json:"scored,omitempty"`
	WinDrawLoss *WinDrawLossOutcome `json:"win_draw_loss,omitempty"`
	Tiebreak    *TiebreakOutcome    `json:"tiebreak,omitempty"`
	WinLoss     *WinLossOutcome     `json:"win_loss,omitempty"`
}

// ScoredOutcome holds one 0-10 score per performer in the battle.
type ScoredOutcome struct {
	Scores map[string]float64 `json:"scores"`
}

// WinDrawLossOutcome records a pool battle result: a winner or a draw,
// never both.
type WinDrawLossOutcome struct {
	WinnerID *string `json:"winner_id,omitempty"`
	Draw     bool    `json:"draw"`
}

// TiebreakOutcome tracks a tiebreak battle across voting rounds.
type TiebreakOutcome struct {
	WinnersNeeded   int             `json:"winners_needed"`
	TotalPerformers int             `json:"total_performers"`
	CurrentRound    int             `json:"current_round"`
	Rounds          []TiebreakRound `json:"rounds,omitempty"`
	Eliminated      []string        `json:"eliminated,omitempty"`
	Winners         []string        `json:"winners,omitempty"`
}

// TiebreakRound records the votes cast in one voting round and the
// performer removed from contention by it.
type TiebreakRound struct {
	Round      int            `json:"round"`
	Votes      map[string]int `json:"votes"`
	Eliminated string         `json:"eliminated"`
}

type WinLossOutcome struct {
	WinnerID string `json:"winner_id"`
}

// MarshalOutcome serializes an outcome for storage. A nil outcome maps to
// the empty string.
func MarshalOutcome(o *Outcome) (string, error) {
	if o == nil {
		return "", nil
	}
	raw, err := json.Marshal(o)
	if err != nil {
		return "", fmt.Errorf("failed to marshal outcome: %w", err)
	}
	return string(raw), nil
}

// UnmarshalOutcome is the inverse of MarshalOutcome.
func UnmarshalOutcome(raw string) (*Outcome, error) {
	if raw == "" {
		return nil, nil
	}
	var o Outcome
	if err := json.Unmarshal([]byte(raw), &o); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outcome: %w", err)
	}
	return &o, nil
}
