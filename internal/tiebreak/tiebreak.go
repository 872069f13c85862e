// Package tiebreak detects score ties at qualification boundaries and
// processes judge votes across elimination rounds. Battle creation and the
// idempotency guards live in the services package.
package tiebreak

import (
	"fmt"

	"battleflow/internal/domain"
)

// BoundaryTie is the outcome of tie detection at a qualification cutoff.
type BoundaryTie struct {
	// Tied holds every performer sharing the boundary score, in ranked
	// order. Empty when the cutoff is clean.
	Tied []domain.Performer
	// WinnersNeeded is how many of the tied performers still fit into the
	// qualification capacity.
	WinnersNeeded int
}

// DetectBoundaryTie inspects a ranked field against a qualification
// capacity. If the score at the boundary rank is shared by more performers
// than there are slots left at that score level, every performer sharing
// that score is tied.
func DetectBoundaryTie(ranked []domain.Performer, qualifying int) BoundaryTie {
	if qualifying <= 0 || len(ranked) <= qualifying {
		return BoundaryTie{}
	}

	boundary := ranked[qualifying-1]
	if boundary.PreselectionScore == nil {
		return BoundaryTie{}
	}
	boundaryScore := *boundary.PreselectionScore

	var above int
	var tied []domain.Performer
	for _, p := range ranked {
		if p.PreselectionScore == nil {
			continue
		}
		switch {
		case *p.PreselectionScore > boundaryScore:
			above++
		case *p.PreselectionScore == boundaryScore:
			tied = append(tied, p)
		}
	}

	slots := qualifying - above
	if len(tied) <= slots {
		return BoundaryTie{}
	}
	return BoundaryTie{Tied: tied, WinnersNeeded: slots}
}

// VoteResult is the outcome of one voting round.
type VoteResult struct {
	// Counts holds the tallied votes per performer ID.
	Counts map[string]int
	// EliminatedID is the performer removed from contention this round.
	EliminatedID string
	// Remaining holds the performers still in contention, in their
	// original order.
	Remaining []domain.Performer
	// WinnerIDs is populated only when Complete is true.
	WinnerIDs []string
	// Complete reports whether the tiebreak is fully resolved.
	Complete bool
}

// ProcessVotes applies one round of judge votes to the tied performers.
//
// With exactly two performers the judges vote for who to KEEP: the
// plurality holder wins outright and the round is always terminal. With
// more than two the judges vote for who to ELIMINATE: the plurality holder
// is removed, and the round is terminal once the remainder matches
// winnersNeeded.
//
// A plurality tie between performers resolves in favor of the performer
// listed first in the tied slice (the battle's stored performer order);
// this is a deliberate, documented policy rather than map iteration luck.
func ProcessVotes(tied []domain.Performer, votes []string, winnersNeeded int) (VoteResult, error) {
	if len(tied) < 2 {
		return VoteResult{}, domain.NewValidationError(
			fmt.Sprintf("a tiebreak needs at least 2 tied performers, has %d", len(tied)))
	}
	if len(votes) == 0 {
		return VoteResult{}, domain.NewValidationError("at least one vote is required")
	}

	counts := make(map[string]int, len(tied))
	for _, p := range tied {
		counts[p.ID] = 0
	}
	for _, vote := range votes {
		if _, ok := counts[vote]; !ok {
			return VoteResult{}, domain.NewValidationError(
				fmt.Sprintf("vote references performer %s who is not part of the tiebreak", vote))
		}
		counts[vote]++
	}

	// First-listed wins plurality ties.
	plurality := tied[0]
	for _, p := range tied[1:] {
		if counts[p.ID] > counts[plurality.ID] {
			plurality = p
		}
	}

	result := VoteResult{Counts: counts}

	if len(tied) == 2 {
		// Keep mode: the plurality holder is the sole winner.
		loser := tied[0]
		if loser.ID == plurality.ID {
			loser = tied[1]
		}
		result.EliminatedID = loser.ID
		result.Remaining = []domain.Performer{plurality}
		result.WinnerIDs = []string{plurality.ID}
		result.Complete = true
		return result, nil
	}

	// Eliminate mode: the plurality holder is removed.
	result.EliminatedID = plurality.ID
	for _, p := range tied {
		if p.ID != plurality.ID {
			result.Remaining = append(result.Remaining, p)
		}
	}
	if len(result.Remaining) == winnersNeeded {
		result.Complete = true
		for _, p := range result.Remaining {
			result.WinnerIDs = append(result.WinnerIDs, p.ID)
		}
	}
	return result, nil
}
