// Package generator produces battle records for every phase: preselection
// pairings, pool round-robins, finals and the cross-category interleaved
// queue. It builds records only; persistence belongs to the services.
package generator

import (
	"fmt"
	"math/rand/v2"

	"battleflow/internal/domain"
)

// PreselectionBattles shuffles the field uniformly at random and pairs it
// into 1-on-1 battles. An odd field folds its last three performers into a
// single 3-way battle so nobody is left without an opponent; a field of
// exactly three produces one 3-way battle. Every performer appears in
// exactly one battle.
func PreselectionBattles(categoryID string, performers []domain.Performer) ([]domain.Battle, error) {
	if len(performers) < 2 {
		return nil, domain.NewValidationError(
			fmt.Sprintf("category %s needs at least 2 performers for preselection, has %d", categoryID, len(performers)))
	}

	shuffled := make([]domain.Performer, len(performers))
	copy(shuffled, performers)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	var battles []domain.Battle
	i := 0
	for remaining := len(shuffled) - i; remaining > 0; remaining = len(shuffled) - i {
		take := 2
		if remaining == 3 {
			take = 3
		}
		battles = append(battles, domain.Battle{
			CategoryID:  categoryID,
			Phase:       domain.BattlePreselection,
			Status:      domain.BattlePending,
			OutcomeType: domain.OutcomeScored,
			Performers:  shuffled[i : i+take],
		})
		i += take
	}
	return battles, nil
}

// PoolBattles emits one battle per unique unordered pair of performers in
// the pool: n*(n-1)/2 battles for n performers.
func PoolBattles(pool domain.Pool) []domain.Battle {
	var battles []domain.Battle
	poolID := pool.ID
	for i := 0; i < len(pool.Performers); i++ {
		for j := i + 1; j < len(pool.Performers); j++ {
			battles = append(battles, domain.Battle{
				CategoryID:  pool.CategoryID,
				PoolID:      &poolID,
				Phase:       domain.BattlePools,
				Status:      domain.BattlePending,
				OutcomeType: domain.OutcomeWinDrawLoss,
				Performers:  []domain.Performer{pool.Performers[i], pool.Performers[j]},
			})
		}
	}
	return battles
}

// FinalsBattle builds the single all-pool-winners battle for a category.
func FinalsBattle(categoryID string, poolWinners []domain.Performer) (domain.Battle, error) {
	if len(poolWinners) < 2 {
		return domain.Battle{}, domain.NewValidationError(
			fmt.Sprintf("category %s needs at least 2 pool winners for a finals battle, has %d", categoryID, len(poolWinners)))
	}
	return domain.Battle{
		CategoryID:  categoryID,
		Phase:       domain.BattleFinals,
		Status:      domain.BattlePending,
		OutcomeType: domain.OutcomeWinLoss,
		Performers:  poolWinners,
	}, nil
}

// Interleave merges per-category battle lists round-robin, in the given
// category order, and assigns a dense 1-based sequence across the merged
// queue. This keeps any single category from dominating a long run of the
// queue.
func Interleave(queues [][]domain.Battle) []domain.Battle {
	var merged []domain.Battle
	for round := 0; ; round++ {
		took := false
		for _, queue := range queues {
			if round < len(queue) {
				merged = append(merged, queue[round])
				took = true
			}
		}
		if !took {
			break
		}
	}
	for i := range merged {
		seq := i + 1
		merged[i].SequenceOrder = &seq
	}
	return merged
}

// ReorderQueue moves the battle with the given ID to targetPos within an
// ordered pending queue and reindexes the result to a dense 1..N sequence.
// The first battle ("on deck") may not be moved and position 1 may not be
// taken; a target past the end of the queue is clamped to the end.
func ReorderQueue(pending []domain.Battle, battleID string, targetPos int) ([]domain.Battle, error) {
	idx := -1
	for i, b := range pending {
		if b.ID == battleID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return nil, domain.NewValidationError(fmt.Sprintf("battle %s is not in the pending queue", battleID))
	}
	if idx == 0 {
		return nil, domain.NewValidationError("the on-deck battle is locked and cannot be moved")
	}
	if targetPos <= 1 {
		return nil, domain.NewValidationError("position 1 is locked; battles cannot be moved there")
	}
	if targetPos > len(pending) {
		targetPos = len(pending)
	}

	reordered := make([]domain.Battle, 0, len(pending))
	reordered = append(reordered, pending[:idx]...)
	reordered = append(reordered, pending[idx+1:]...)

	moved := pending[idx]
	insert := targetPos - 1
	reordered = append(reordered[:insert], append([]domain.Battle{moved}, reordered[insert:]...)...)

	for i := range reordered {
		seq := i + 1
		reordered[i].SequenceOrder = &seq
	}
	return reordered, nil
}
