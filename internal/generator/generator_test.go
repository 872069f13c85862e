package generator

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battleflow/internal/domain"
)

func makePerformers(n int) []domain.Performer {
	performers := make([]domain.Performer, n)
	for i := range performers {
		performers[i] = domain.Performer{
			ID:         fmt.Sprintf("performer-%d", i+1),
			CategoryID: "cat-1",
			DancerName: fmt.Sprintf("Dancer %d", i+1),
		}
	}
	return performers
}

func TestPreselectionBattlesCoversEveryPerformerOnce(t *testing.T) {
	for n := 2; n <= 20; n++ {
		t.Run(fmt.Sprintf("%d performers", n), func(t *testing.T) {
			battles, err := PreselectionBattles("cat-1", makePerformers(n))
			require.NoError(t, err)

			seen := make(map[string]int)
			for _, b := range battles {
				assert.Equal(t, domain.BattlePreselection, b.Phase)
				assert.Equal(t, domain.BattlePending, b.Status)
				assert.Equal(t, domain.OutcomeScored, b.OutcomeType)
				for _, p := range b.Performers {
					seen[p.ID]++
				}
			}
			require.Len(t, seen, n)
			for id, count := range seen {
				assert.Equal(t, 1, count, "performer %s appears %d times", id, count)
			}
		})
	}
}

func TestPreselectionBattlesGroupShapes(t *testing.T) {
	tests := []struct {
		n          int
		wantGroups []int
	}{
		{n: 2, wantGroups: []int{2}},
		{n: 3, wantGroups: []int{3}},
		{n: 4, wantGroups: []int{2, 2}},
		{n: 5, wantGroups: []int{2, 3}},
		{n: 9, wantGroups: []int{2, 2, 2, 3}},
		{n: 10, wantGroups: []int{2, 2, 2, 2, 2}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d performers", tt.n), func(t *testing.T) {
			battles, err := PreselectionBattles("cat-1", makePerformers(tt.n))
			require.NoError(t, err)
			require.Len(t, battles, len(tt.wantGroups))
			for i, b := range battles {
				assert.Len(t, b.Performers, tt.wantGroups[i])
			}
		})
	}
}

func TestPreselectionBattlesRejectsTinyField(t *testing.T) {
	_, err := PreselectionBattles("cat-1", makePerformers(1))
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestPoolBattlesRoundRobin(t *testing.T) {
	for n := 2; n <= 8; n++ {
		t.Run(fmt.Sprintf("pool of %d", n), func(t *testing.T) {
			pool := domain.Pool{ID: "pool-1", CategoryID: "cat-1", Performers: makePerformers(n)}
			battles := PoolBattles(pool)
			require.Len(t, battles, n*(n-1)/2)

			pairs := make(map[string]bool)
			for _, b := range battles {
				require.Len(t, b.Performers, 2)
				assert.Equal(t, domain.BattlePools, b.Phase)
				assert.Equal(t, domain.OutcomeWinDrawLoss, b.OutcomeType)
				require.NotNil(t, b.PoolID)
				assert.Equal(t, "pool-1", *b.PoolID)

				a, c := b.Performers[0].ID, b.Performers[1].ID
				if a > c {
					a, c = c, a
				}
				key := a + "|" + c
				assert.False(t, pairs[key], "duplicate pair %s", key)
				pairs[key] = true
			}
		})
	}
}

func TestFinalsBattle(t *testing.T) {
	battle, err := FinalsBattle("cat-1", makePerformers(3))
	require.NoError(t, err)
	assert.Equal(t, domain.BattleFinals, battle.Phase)
	assert.Equal(t, domain.OutcomeWinLoss, battle.OutcomeType)
	assert.Len(t, battle.Performers, 3)

	_, err = FinalsBattle("cat-1", makePerformers(1))
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
}

func categoryQueue(categoryID string, n int) []domain.Battle {
	battles := make([]domain.Battle, n)
	for i := range battles {
		battles[i] = domain.Battle{
			ID:         fmt.Sprintf("%s-battle-%d", categoryID, i+1),
			CategoryID: categoryID,
		}
	}
	return battles
}

func TestInterleaveDenseSequenceAndRoundRobinOrder(t *testing.T) {
	merged := Interleave([][]domain.Battle{
		categoryQueue("breaking", 4),
		categoryQueue("popping", 2),
		categoryQueue("hiphop", 3),
	})
	require.Len(t, merged, 9)

	for i, b := range merged {
		require.NotNil(t, b.SequenceOrder)
		assert.Equal(t, i+1, *b.SequenceOrder, "sequence must be dense and 1-based")
	}

	gotCategories := make([]string, len(merged))
	for i, b := range merged {
		gotCategories[i] = b.CategoryID
	}
	assert.Equal(t, []string{
		"breaking", "popping", "hiphop",
		"breaking", "popping", "hiphop",
		"breaking", "hiphop",
		"breaking",
	}, gotCategories)
}

func TestInterleaveEmpty(t *testing.T) {
	assert.Empty(t, Interleave(nil))
	assert.Empty(t, Interleave([][]domain.Battle{{}, {}}))
}

func TestReorderQueue(t *testing.T) {
	queue := func() []domain.Battle { return categoryQueue("breaking", 5) }

	t.Run("moves battle and reindexes densely", func(t *testing.T) {
		reordered, err := ReorderQueue(queue(), "breaking-battle-5", 2)
		require.NoError(t, err)
		ids := make([]string, len(reordered))
		for i, b := range reordered {
			ids[i] = b.ID
			require.NotNil(t, b.SequenceOrder)
			assert.Equal(t, i+1, *b.SequenceOrder)
		}
		assert.Equal(t, []string{
			"breaking-battle-1", "breaking-battle-5", "breaking-battle-2",
			"breaking-battle-3", "breaking-battle-4",
		}, ids)
	})

	t.Run("clamps target past the end", func(t *testing.T) {
		reordered, err := ReorderQueue(queue(), "breaking-battle-2", 99)
		require.NoError(t, err)
		assert.Equal(t, "breaking-battle-2", reordered[len(reordered)-1].ID)
	})

	t.Run("on-deck battle is locked", func(t *testing.T) {
		_, err := ReorderQueue(queue(), "breaking-battle-1", 3)
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("position 1 is locked", func(t *testing.T) {
		_, err := ReorderQueue(queue(), "breaking-battle-3", 1)
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("unknown battle", func(t *testing.T) {
		_, err := ReorderQueue(queue(), "nope", 2)
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
	})
}
