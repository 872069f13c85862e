// Package pooling converts ranked preselection results into pool
// assignments and determines pool winners. Ranking and assignment are pure;
// the services package persists the results.
package pooling

import (
	"cmp"
	"fmt"
	"slices"

	"battleflow/internal/domain"
)

// Rank orders performers for qualification, best first: higher preselection
// score wins; among equal scores guests rank above non-guests, then
// performers who won a preselection tiebreak, then earlier registration.
// The final ID comparison keeps the order deterministic.
//
// Guests always score the maximum, so the guest rule is what guarantees
// them qualification ahead of tied regular performers.
func Rank(performers []domain.Performer, tiebreakWinners map[string]bool) []domain.Performer {
	ranked := make([]domain.Performer, len(performers))
	copy(ranked, performers)

	slices.SortFunc(ranked, func(a, b domain.Performer) int {
		if c := cmp.Compare(score(b), score(a)); c != 0 {
			return c
		}
		if c := cmp.Compare(boolRank(b.IsGuest), boolRank(a.IsGuest)); c != 0 {
			return c
		}
		if c := cmp.Compare(boolRank(tiebreakWinners[b.ID]), boolRank(tiebreakWinners[a.ID])); c != 0 {
			return c
		}
		if c := a.RegisteredAt.Compare(b.RegisteredAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return ranked
}

func score(p domain.Performer) float64 {
	if p.PreselectionScore == nil {
		return -1
	}
	return *p.PreselectionScore
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Assign splits ranked performers into contiguous blocks matching sizes:
// the largest (first) pool receives the highest-ranked block.
func Assign(ranked []domain.Performer, sizes []int) [][]domain.Performer {
	blocks := make([][]domain.Performer, len(sizes))
	offset := 0
	for i, size := range sizes {
		blocks[i] = ranked[offset : offset+size]
		offset += size
	}
	return blocks
}

// PoolName yields "Pool A", "Pool B", ... for a zero-based pool position.
func PoolName(position int) string {
	return fmt.Sprintf("Pool %c", rune('A'+position))
}

// TopScorers returns the performer(s) holding the maximum pool points in
// the pool. A single entry is the pool winner; multiple entries signal a
// tie that needs a tiebreak battle.
func TopScorers(pool domain.Pool) []domain.Performer {
	if len(pool.Performers) == 0 {
		return nil
	}
	maxPoints := pool.Performers[0].PoolPoints()
	for _, p := range pool.Performers[1:] {
		if pts := p.PoolPoints(); pts > maxPoints {
			maxPoints = pts
		}
	}
	var top []domain.Performer
	for _, p := range pool.Performers {
		if p.PoolPoints() == maxPoints {
			top = append(top, p)
		}
	}
	return top
}
