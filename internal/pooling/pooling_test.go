package pooling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"battleflow/internal/domain"
)

func scored(id string, score float64, opts ...func(*domain.Performer)) domain.Performer {
	p := domain.Performer{
		ID:                id,
		CategoryID:        "cat-1",
		DancerName:        id,
		PreselectionScore: &score,
		RegisteredAt:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

func guest(p *domain.Performer) { p.IsGuest = true }

func registeredAt(t time.Time) func(*domain.Performer) {
	return func(p *domain.Performer) { p.RegisteredAt = t }
}

func TestRankOrdersByScoreDescending(t *testing.T) {
	ranked := Rank([]domain.Performer{
		scored("low", 6.5),
		scored("high", 9.2),
		scored("mid", 7.8),
	}, nil)

	assert.Equal(t, []string{"high", "mid", "low"}, ids(ranked))
}

func TestRankGuestsBeatTiedRegulars(t *testing.T) {
	ranked := Rank([]domain.Performer{
		scored("regular", 10.0, registeredAt(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))),
		scored("invited", 10.0, guest),
	}, nil)

	assert.Equal(t, []string{"invited", "regular"}, ids(ranked))
}

func TestRankTiebreakWinnersBeatTiedLosers(t *testing.T) {
	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	ranked := Rank([]domain.Performer{
		scored("loser", 7.5, registeredAt(early)),
		scored("winner", 7.5, registeredAt(late)),
	}, map[string]bool{"winner": true})

	assert.Equal(t, []string{"winner", "loser"}, ids(ranked))
}

func TestRankEarlierRegistrationBreaksTies(t *testing.T) {
	ranked := Rank([]domain.Performer{
		scored("late", 8.0, registeredAt(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))),
		scored("early", 8.0, registeredAt(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))),
	}, nil)

	assert.Equal(t, []string{"early", "late"}, ids(ranked))
}

func TestRankUnscoredSinkToBottom(t *testing.T) {
	unscored := domain.Performer{ID: "unscored", RegisteredAt: time.Now()}
	ranked := Rank([]domain.Performer{unscored, scored("scored", 0.0)}, nil)
	assert.Equal(t, []string{"scored", "unscored"}, ids(ranked))
}

func TestAssignContiguousBlocks(t *testing.T) {
	ranked := []domain.Performer{
		scored("1st", 10), scored("2nd", 9), scored("3rd", 8),
		scored("4th", 7), scored("5th", 6), scored("6th", 5), scored("7th", 4),
	}
	blocks := Assign(ranked, []int{4, 3})
	require.Len(t, blocks, 2)
	assert.Equal(t, []string{"1st", "2nd", "3rd", "4th"}, ids(blocks[0]))
	assert.Equal(t, []string{"5th", "6th", "7th"}, ids(blocks[1]))
}

func TestPoolName(t *testing.T) {
	assert.Equal(t, "Pool A", PoolName(0))
	assert.Equal(t, "Pool B", PoolName(1))
	assert.Equal(t, "Pool D", PoolName(3))
}

func TestTopScorers(t *testing.T) {
	withRecord := func(id string, wins, draws, losses int) domain.Performer {
		return domain.Performer{ID: id, Wins: wins, Draws: draws, Losses: losses}
	}

	t.Run("unique winner", func(t *testing.T) {
		top := TopScorers(domain.Pool{Performers: []domain.Performer{
			withRecord("a", 2, 0, 1),
			withRecord("b", 1, 1, 1),
			withRecord("c", 0, 1, 2),
		}})
		require.Len(t, top, 1)
		assert.Equal(t, "a", top[0].ID)
	})

	t.Run("tie on points", func(t *testing.T) {
		// 2 wins = 6 points, 1 win + 3 draws = 6 points
		top := TopScorers(domain.Pool{Performers: []domain.Performer{
			withRecord("a", 2, 0, 2),
			withRecord("b", 1, 3, 0),
			withRecord("c", 0, 2, 2),
		}})
		assert.Equal(t, []string{"a", "b"}, ids(top))
	})

	t.Run("empty pool", func(t *testing.T) {
		assert.Nil(t, TopScorers(domain.Pool{}))
	})
}

func ids(performers []domain.Performer) []string {
	out := make([]string, len(performers))
	for i, p := range performers {
		out[i] = p.ID
	}
	return out
}
