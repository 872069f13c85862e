package service

import (
	"context"

	"github.com/rs/zerolog"

	"battleflow/internal/calc"
	"battleflow/internal/domain"
	"battleflow/internal/pooling"
	"battleflow/internal/tiebreak"
)

// TiebreakService detects qualification ties and materializes Tiebreak
// battles for them. Its methods take an explicit repository set so callers
// can run them inside their own transaction.
type TiebreakService struct {
	logger zerolog.Logger
}

func NewTiebreakService(logger zerolog.Logger) *TiebreakService {
	return &TiebreakService{
		logger: logger.With().Str("service", "tiebreak").Logger(),
	}
}

// DetectPreselectionTiebreak checks the category's qualification boundary
// after preselection scoring and creates a single category-level Tiebreak
// battle when the cut falls inside a group of equal scores. At most one
// such battle ever exists per category.
func (s *TiebreakService) DetectPreselectionTiebreak(ctx context.Context, repos *Repos, category *domain.Category) (*domain.Battle, error) {
	existing, err := repos.Battles.ListByCategoryAndPhase(ctx, category.ID, domain.BattleTiebreak)
	if err != nil {
		return nil, err
	}
	for _, b := range existing {
		if b.PoolID == nil {
			return nil, nil
		}
	}

	performers, err := repos.Performers.ListByCategory(ctx, category.ID)
	if err != nil {
		return nil, err
	}

	qualifying, _, err := calc.PoolCapacity(len(performers), category.GroupsIdeal)
	if err != nil {
		return nil, err
	}

	ranked := pooling.Rank(performers, nil)
	boundary := tiebreak.DetectBoundaryTie(ranked, qualifying)
	if len(boundary.Tied) == 0 {
		return nil, nil
	}

	battle := &domain.Battle{
		CategoryID:  category.ID,
		Phase:       domain.BattleTiebreak,
		Status:      domain.BattlePending,
		OutcomeType: domain.OutcomeTiebreak,
		Outcome: &domain.Outcome{
			Type: domain.OutcomeTiebreak,
			Tiebreak: &domain.TiebreakOutcome{
				WinnersNeeded:   boundary.WinnersNeeded,
				TotalPerformers: len(boundary.Tied),
			},
		},
		Performers: boundary.Tied,
	}
	if err := repos.Battles.Create(ctx, battle); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("category_id", category.ID).
		Str("battle_id", battle.ID).
		Int("tied", len(boundary.Tied)).
		Int("winners_needed", boundary.WinnersNeeded).
		Msg("preselection tiebreak created")
	return battle, nil
}

// EnsurePoolWinners walks the category's pools and, for each pool whose
// round-robin is fully played, either records the unique points leader as
// winner or creates a one-winner Tiebreak battle between the tied leaders.
func (s *TiebreakService) EnsurePoolWinners(ctx context.Context, repos *Repos, category *domain.Category) error {
	pools, err := repos.Pools.ListByCategory(ctx, category.ID)
	if err != nil {
		return err
	}

	for i := range pools {
		pool := &pools[i]
		if pool.WinnerID != nil {
			continue
		}

		battles, err := repos.Battles.ListByPool(ctx, pool.ID)
		if err != nil {
			return err
		}

		played := 0
		done := true
		hasTiebreak := false
		for _, b := range battles {
			switch b.Phase {
			case domain.BattleTiebreak:
				hasTiebreak = true
			default:
				played++
				if b.Status != domain.BattleCompleted {
					done = false
				}
			}
		}
		if played == 0 || !done || hasTiebreak {
			continue
		}

		leaders := pooling.TopScorers(*pool)
		if len(leaders) == 1 {
			if err := repos.Pools.SetWinner(ctx, pool.ID, leaders[0].ID); err != nil {
				return err
			}
			s.logger.Info().
				Str("pool_id", pool.ID).
				Str("winner_id", leaders[0].ID).
				Msg("pool winner decided on points")
			continue
		}

		poolID := pool.ID
		battle := &domain.Battle{
			CategoryID:  category.ID,
			PoolID:      &poolID,
			Phase:       domain.BattleTiebreak,
			Status:      domain.BattlePending,
			OutcomeType: domain.OutcomeTiebreak,
			Outcome: &domain.Outcome{
				Type: domain.OutcomeTiebreak,
				Tiebreak: &domain.TiebreakOutcome{
					WinnersNeeded:   1,
					TotalPerformers: len(leaders),
				},
			},
			Performers: leaders,
		}
		if err := repos.Battles.Create(ctx, battle); err != nil {
			return err
		}
		s.logger.Info().
			Str("pool_id", pool.ID).
			Str("battle_id", battle.ID).
			Int("tied", len(leaders)).
			Msg("pool winner tiebreak created")
	}
	return nil
}
