package service

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"battleflow/internal/constants"
	"battleflow/internal/domain"
	"battleflow/internal/tiebreak"
)

// ResultPayload carries the judges' input for one battle. Which fields are
// read depends on the battle's outcome type.
type ResultPayload struct {
	Scores   map[string]float64 `json:"scores,omitempty"`
	WinnerID *string            `json:"winner_id,omitempty"`
	Draw     bool               `json:"draw,omitempty"`
	Votes    []string           `json:"votes,omitempty"`
}

// ResultService starts battles and encodes their results, including the
// follow-on effects: preselection scores land on performers, pool results
// update win/draw/loss records, and completed rounds can spawn or resolve
// tiebreak battles.
type ResultService struct {
	db        *sql.DB
	repos     *Repos
	tiebreaks *TiebreakService
	lock      *WriteLock
	logger    zerolog.Logger
}

func NewResultService(db *sql.DB, repos *Repos, tiebreaks *TiebreakService, lock *WriteLock, logger zerolog.Logger) *ResultService {
	return &ResultService{
		db:        db,
		repos:     repos,
		tiebreaks: tiebreaks,
		lock:      lock,
		logger:    logger.With().Str("service", "result").Logger(),
	}
}

func (s *ResultService) GetBattle(ctx context.Context, id string) (*domain.Battle, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.repos.Battles.Get(ctx, id)
}

// Start moves a pending battle to active. Only one battle may be active
// across the whole system at any time.
func (s *ResultService) Start(ctx context.Context, battleID string) (*domain.Battle, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	s.lock.Lock()
	defer s.lock.Unlock()

	battle, err := s.repos.Battles.Get(ctx, battleID)
	if err != nil {
		return nil, err
	}
	if battle.Status != domain.BattlePending {
		return nil, &domain.ConflictError{Message: fmt.Sprintf("battle %s is %s, only pending battles can start", battleID, battle.Status)}
	}

	active, err := s.repos.Battles.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, &domain.ConflictError{Message: fmt.Sprintf("battle %s is already active", active.ID)}
	}

	if err := s.repos.Battles.UpdateStatus(ctx, battleID, domain.BattleActive); err != nil {
		return nil, err
	}
	battle.Status = domain.BattleActive

	s.logger.Info().Str("battle_id", battleID).Msg("battle started")
	return battle, nil
}

// Encode records a battle result. The payload is interpreted according to
// the battle's outcome type; the battle, its performers and any follow-on
// tiebreak battles are updated in one transaction.
func (s *ResultService) Encode(ctx context.Context, battleID string, payload ResultPayload) (*domain.Battle, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	s.lock.Lock()
	defer s.lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	repos := s.repos.WithTx(tx)

	battle, err := repos.Battles.Get(ctx, battleID)
	if err != nil {
		return nil, err
	}
	if battle.Status == domain.BattleCompleted {
		return nil, &domain.ConflictError{Message: fmt.Sprintf("battle %s is already completed", battleID)}
	}

	switch battle.OutcomeType {
	case domain.OutcomeScored:
		err = s.encodeScored(ctx, repos, battle, payload)
	case domain.OutcomeWinDrawLoss:
		err = s.encodeWinDrawLoss(ctx, repos, battle, payload)
	case domain.OutcomeTiebreak:
		err = s.encodeTiebreak(ctx, repos, battle, payload)
	case domain.OutcomeWinLoss:
		err = s.encodeWinLoss(ctx, repos, battle, payload)
	default:
		err = fmt.Errorf("%w: unknown outcome type %q", domain.ErrInvalidArgument, battle.OutcomeType)
	}
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info().
		Str("battle_id", battleID).
		Str("outcome_type", string(battle.OutcomeType)).
		Str("status", string(battle.Status)).
		Msg("battle result encoded")
	return battle, nil
}

func (s *ResultService) encodeScored(ctx context.Context, repos *Repos, battle *domain.Battle, payload ResultPayload) error {
	scores, err := normalizeScores(battle.Performers, payload.Scores)
	if err != nil {
		return err
	}

	for id, score := range scores {
		if err := repos.Performers.UpdateScore(ctx, id, score); err != nil {
			return err
		}
	}

	battle.Outcome = &domain.Outcome{
		Type:   domain.OutcomeScored,
		Scored: &domain.ScoredOutcome{Scores: scores},
	}
	battle.Status = domain.BattleCompleted
	if err := repos.Battles.UpdateOutcome(ctx, battle.ID, battle.Outcome, nil, battle.Status); err != nil {
		return err
	}

	return s.afterPreselectionResult(ctx, repos, battle.CategoryID)
}

// afterPreselectionResult runs boundary-tie detection once the category's
// preselection round is fully scored.
func (s *ResultService) afterPreselectionResult(ctx context.Context, repos *Repos, categoryID string) error {
	battles, err := repos.Battles.ListByCategoryAndPhase(ctx, categoryID, domain.BattlePreselection)
	if err != nil {
		return err
	}
	for _, b := range battles {
		if b.Status != domain.BattleCompleted {
			return nil
		}
	}

	category, err := repos.Categories.Get(ctx, categoryID)
	if err != nil {
		return err
	}
	_, err = s.tiebreaks.DetectPreselectionTiebreak(ctx, repos, category)
	return err
}

func (s *ResultService) encodeWinDrawLoss(ctx context.Context, repos *Repos, battle *domain.Battle, payload ResultPayload) error {
	if len(battle.Performers) != 2 {
		return fmt.Errorf("%w: pool battle %s has %d performers, want 2", domain.ErrInvalidArgument, battle.ID, len(battle.Performers))
	}
	if payload.Draw == (payload.WinnerID != nil) {
		return domain.NewValidationError("exactly one of winner_id or draw must be set")
	}

	if payload.Draw {
		for _, p := range battle.Performers {
			if err := repos.Performers.AddPoolResult(ctx, p.ID, 0, 1, 0); err != nil {
				return err
			}
		}
	} else {
		winner, loser, err := splitWinner(battle.Performers, *payload.WinnerID)
		if err != nil {
			return err
		}
		if err := repos.Performers.AddPoolResult(ctx, winner.ID, 1, 0, 0); err != nil {
			return err
		}
		if err := repos.Performers.AddPoolResult(ctx, loser.ID, 0, 0, 1); err != nil {
			return err
		}
	}

	battle.Outcome = &domain.Outcome{
		Type:        domain.OutcomeWinDrawLoss,
		WinDrawLoss: &domain.WinDrawLossOutcome{WinnerID: payload.WinnerID, Draw: payload.Draw},
	}
	battle.WinnerID = payload.WinnerID
	battle.Status = domain.BattleCompleted
	if err := repos.Battles.UpdateOutcome(ctx, battle.ID, battle.Outcome, battle.WinnerID, battle.Status); err != nil {
		return err
	}

	category, err := repos.Categories.Get(ctx, battle.CategoryID)
	if err != nil {
		return err
	}
	return s.tiebreaks.EnsurePoolWinners(ctx, repos, category)
}

func (s *ResultService) encodeWinLoss(ctx context.Context, repos *Repos, battle *domain.Battle, payload ResultPayload) error {
	if payload.WinnerID == nil {
		return domain.NewValidationError("winner_id is required")
	}
	winner, _, err := splitWinner(battle.Performers, *payload.WinnerID)
	if err != nil {
		return err
	}

	battle.Outcome = &domain.Outcome{
		Type:    domain.OutcomeWinLoss,
		WinLoss: &domain.WinLossOutcome{WinnerID: winner.ID},
	}
	battle.WinnerID = &winner.ID
	battle.Status = domain.BattleCompleted
	return repos.Battles.UpdateOutcome(ctx, battle.ID, battle.Outcome, battle.WinnerID, battle.Status)
}

func (s *ResultService) encodeTiebreak(ctx context.Context, repos *Repos, battle *domain.Battle, payload ResultPayload) error {
	if battle.Outcome == nil || battle.Outcome.Tiebreak == nil {
		return fmt.Errorf("%w: tiebreak battle %s has no tiebreak state", domain.ErrInvalidArgument, battle.ID)
	}
	state := battle.Outcome.Tiebreak

	eliminated := make(map[string]bool, len(state.Eliminated))
	for _, id := range state.Eliminated {
		eliminated[id] = true
	}
	var remaining []domain.Performer
	for _, p := range battle.Performers {
		if !eliminated[p.ID] {
			remaining = append(remaining, p)
		}
	}

	result, err := tiebreak.ProcessVotes(remaining, payload.Votes, state.WinnersNeeded)
	if err != nil {
		return err
	}

	state.CurrentRound++
	state.Rounds = append(state.Rounds, domain.TiebreakRound{
		Round:      state.CurrentRound,
		Votes:      result.Counts,
		Eliminated: result.EliminatedID,
	})
	state.Eliminated = append(state.Eliminated, result.EliminatedID)

	if !result.Complete {
		// More rounds to come; the battle stays open at its current status.
		return repos.Battles.UpdateOutcome(ctx, battle.ID, battle.Outcome, nil, battle.Status)
	}

	state.Winners = result.WinnerIDs
	battle.Status = domain.BattleCompleted
	if len(result.WinnerIDs) == 1 {
		battle.WinnerID = &result.WinnerIDs[0]
	}
	if err := repos.Battles.UpdateOutcome(ctx, battle.ID, battle.Outcome, battle.WinnerID, battle.Status); err != nil {
		return err
	}

	// A pool-winner tiebreak always resolves to a single winner, who takes
	// the pool.
	if battle.PoolID != nil {
		if err := repos.Pools.SetWinner(ctx, *battle.PoolID, result.WinnerIDs[0]); err != nil {
			return err
		}
	}
	return nil
}

// normalizeScores validates that every battle performer is scored exactly
// once, within 0 to 10 at no more than two decimals, and returns the
// rounded map.
func normalizeScores(performers []domain.Performer, scores map[string]float64) (map[string]float64, error) {
	if len(scores) == 0 {
		return nil, domain.NewValidationError("scores are required")
	}

	members := make(map[string]bool, len(performers))
	for _, p := range performers {
		members[p.ID] = true
	}
	for id := range scores {
		if !members[id] {
			return nil, domain.NewValidationError(fmt.Sprintf("score references performer %s who is not in this battle", id))
		}
	}

	out := make(map[string]float64, len(performers))
	for _, p := range performers {
		score, ok := scores[p.ID]
		if !ok {
			return nil, domain.NewValidationError(fmt.Sprintf("performer %s is missing a score", p.ID))
		}
		if score < 0 || score > domain.MaxScore {
			return nil, domain.NewValidationError(fmt.Sprintf("score %.4g for performer %s is outside 0-%.0f", score, p.ID, domain.MaxScore))
		}
		cents := score * 100
		if math.Abs(cents-math.Round(cents)) > 1e-6 {
			return nil, domain.NewValidationError(fmt.Sprintf("score %v for performer %s has more than two decimals", score, p.ID))
		}
		out[p.ID] = math.Round(cents) / 100
	}
	return out, nil
}

func splitWinner(performers []domain.Performer, winnerID string) (winner, loser domain.Performer, err error) {
	found := false
	for _, p := range performers {
		if p.ID == winnerID {
			winner = p
			found = true
		} else {
			loser = p
		}
	}
	if !found {
		return winner, loser, domain.NewValidationError(fmt.Sprintf("winner %s is not a performer in this battle", winnerID))
	}
	return winner, loser, nil
}
