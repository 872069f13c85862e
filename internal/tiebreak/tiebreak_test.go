package tiebreak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battleflow/internal/domain"
)

func scored(id string, score float64) domain.Performer {
	return domain.Performer{
		ID:                id,
		DancerName:        id,
		PreselectionScore: &score,
		RegisteredAt:      time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestDetectBoundaryTie(t *testing.T) {
	t.Run("three performers tied at the cutoff", func(t *testing.T) {
		ranked := []domain.Performer{
			scored("p1", 10.0), scored("p2", 9.0), scored("p3", 8.0),
			scored("p4", 7.8), scored("p5", 7.5), scored("p6", 7.5),
			scored("p7", 7.5), scored("p8", 6.0), scored("p9", 5.0),
		}
		tie := DetectBoundaryTie(ranked, 6)
		require.Len(t, tie.Tied, 3)
		assert.Equal(t, "p5", tie.Tied[0].ID)
		assert.Equal(t, "p6", tie.Tied[1].ID)
		assert.Equal(t, "p7", tie.Tied[2].ID)
		assert.Equal(t, 2, tie.WinnersNeeded)
	})

	t.Run("clean cutoff", func(t *testing.T) {
		ranked := []domain.Performer{
			scored("p1", 9.0), scored("p2", 8.0), scored("p3", 7.0),
			scored("p4", 6.0), scored("p5", 5.0),
		}
		tie := DetectBoundaryTie(ranked, 4)
		assert.Empty(t, tie.Tied)
	})

	t.Run("tie entirely above the cutoff is no tie", func(t *testing.T) {
		ranked := []domain.Performer{
			scored("p1", 9.0), scored("p2", 9.0), scored("p3", 7.0),
			scored("p4", 6.0),
		}
		tie := DetectBoundaryTie(ranked, 3)
		assert.Empty(t, tie.Tied)
	})

	t.Run("everyone qualifies", func(t *testing.T) {
		ranked := []domain.Performer{scored("p1", 9.0), scored("p2", 9.0)}
		assert.Empty(t, DetectBoundaryTie(ranked, 4).Tied)
	})

	t.Run("boundary score shared across the cutoff", func(t *testing.T) {
		ranked := []domain.Performer{
			scored("p1", 9.0), scored("p2", 8.0), scored("p3", 8.0),
			scored("p4", 8.0), scored("p5", 7.0),
		}
		tie := DetectBoundaryTie(ranked, 2)
		require.Len(t, tie.Tied, 3)
		assert.Equal(t, 1, tie.WinnersNeeded)
	})
}

func TestProcessVotesKeepMode(t *testing.T) {
	tied := []domain.Performer{scored("a", 7.5), scored("b", 7.5)}

	t.Run("plurality holder is kept", func(t *testing.T) {
		result, err := ProcessVotes(tied, []string{"b", "b", "a"}, 1)
		require.NoError(t, err)
		assert.True(t, result.Complete)
		assert.Equal(t, []string{"b"}, result.WinnerIDs)
		assert.Equal(t, "a", result.EliminatedID)
		assert.Equal(t, map[string]int{"a": 1, "b": 2}, result.Counts)
	})

	t.Run("vote tie keeps the first-listed performer", func(t *testing.T) {
		result, err := ProcessVotes(tied, []string{"a", "b"}, 1)
		require.NoError(t, err)
		assert.True(t, result.Complete)
		assert.Equal(t, []string{"a"}, result.WinnerIDs)
	})
}

func TestProcessVotesEliminateMode(t *testing.T) {
	tied := []domain.Performer{scored("a", 7.5), scored("b", 7.5), scored("c", 7.5)}

	t.Run("plurality holder is eliminated, resolution completes", func(t *testing.T) {
		result, err := ProcessVotes(tied, []string{"c", "c", "a"}, 2)
		require.NoError(t, err)
		assert.True(t, result.Complete)
		assert.Equal(t, "c", result.EliminatedID)
		assert.Equal(t, []string{"a", "b"}, result.WinnerIDs)
	})

	t.Run("advances to another round when too many remain", func(t *testing.T) {
		result, err := ProcessVotes(tied, []string{"b", "b", "a"}, 1)
		require.NoError(t, err)
		assert.False(t, result.Complete)
		assert.Equal(t, "b", result.EliminatedID)
		require.Len(t, result.Remaining, 2)
		assert.Empty(t, result.WinnerIDs)
	})

	t.Run("vote tie eliminates the first-listed performer", func(t *testing.T) {
		result, err := ProcessVotes(tied, []string{"a", "b", "c"}, 2)
		require.NoError(t, err)
		assert.Equal(t, "a", result.EliminatedID)
	})
}

func TestProcessVotesValidation(t *testing.T) {
	tied := []domain.Performer{scored("a", 7.5), scored("b", 7.5)}

	t.Run("vote for an outsider", func(t *testing.T) {
		_, err := ProcessVotes(tied, []string{"a", "intruder"}, 1)
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("no votes", func(t *testing.T) {
		_, err := ProcessVotes(tied, nil, 1)
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("too few performers", func(t *testing.T) {
		_, err := ProcessVotes(tied[:1], []string{"a"}, 1)
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
	})
}
