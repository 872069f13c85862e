package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"battleflow/internal/calc"
	"battleflow/internal/constants"
	"battleflow/internal/domain"
	"battleflow/internal/generator"
	"battleflow/internal/pooling"
)

// PhaseService drives the tournament state machine:
// Registration -> Preselection -> Pools -> Finals -> Completed. Every
// transition validates the current phase first, then runs the generation
// hook for the next one inside a single transaction.
type PhaseService struct {
	db        *sql.DB
	repos     *Repos
	tiebreaks *TiebreakService
	lock      *WriteLock
	logger    zerolog.Logger
}

func NewPhaseService(db *sql.DB, repos *Repos, tiebreaks *TiebreakService, lock *WriteLock, logger zerolog.Logger) *PhaseService {
	return &PhaseService{
		db:        db,
		repos:     repos,
		tiebreaks: tiebreaks,
		lock:      lock,
		logger:    logger.With().Str("service", "phase").Logger(),
	}
}

// Validate reports whether the tournament may leave its current phase,
// without changing anything. Warnings are advisory and never block.
func (s *PhaseService) Validate(ctx context.Context, tournamentID string) (*domain.ValidationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	t, err := s.repos.Tournaments.Get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return s.validate(ctx, t)
}

func (s *PhaseService) validate(ctx context.Context, t *domain.Tournament) (*domain.ValidationResult, error) {
	if t.Phase == domain.PhaseCompleted || t.Status == domain.TournamentCancelled {
		return nil, domain.ErrTerminalState
	}

	categories, err := s.repos.Categories.ListByTournament(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	result := &domain.ValidationResult{}
	if len(categories) == 0 {
		result.AddError("tournament has no categories")
		return result, nil
	}

	// Per-category checks are independent reads, so they fan out.
	results := make([]*domain.ValidationResult, len(categories))
	g, gctx := errgroup.WithContext(ctx)
	for i, c := range categories {
		g.Go(func() error {
			r, err := s.validateCategory(gctx, t.Phase, &c)
			results[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, r := range results {
		result.Merge(r)
	}
	return result, nil
}

func (s *PhaseService) validateCategory(ctx context.Context, phase domain.Phase, c *domain.Category) (*domain.ValidationResult, error) {
	switch phase {
	case domain.PhaseRegistration:
		return s.validateRegistration(ctx, c)
	case domain.PhasePreselection:
		return s.validatePreselection(ctx, c)
	case domain.PhasePools:
		return s.validatePools(ctx, c)
	case domain.PhaseFinals:
		return s.validateFinals(ctx, c)
	default:
		return nil, domain.ErrTerminalState
	}
}

func (s *PhaseService) validateRegistration(ctx context.Context, c *domain.Category) (*domain.ValidationResult, error) {
	result := &domain.ValidationResult{}

	performers, err := s.repos.Performers.ListByCategory(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	minimum, err := calc.MinimumPerformers(c.GroupsIdeal)
	if err != nil {
		return nil, err
	}

	switch {
	case len(performers) < minimum:
		result.AddError(fmt.Sprintf("category %q has %d performers, needs at least %d for %d pools",
			c.Name, len(performers), minimum, c.GroupsIdeal))
	case len(performers) == minimum:
		result.AddWarning(fmt.Sprintf("category %q has exactly the minimum %d performers; preselection will eliminate only one",
			c.Name, minimum))
	}

	regulars := 0
	for _, p := range performers {
		if !p.IsGuest {
			regulars++
		}
	}
	if regulars < 2 {
		result.AddError(fmt.Sprintf("category %q needs at least 2 non-guest performers for preselection, has %d",
			c.Name, regulars))
	}
	return result, nil
}

func (s *PhaseService) validatePreselection(ctx context.Context, c *domain.Category) (*domain.ValidationResult, error) {
	result := &domain.ValidationResult{}

	battles, err := s.repos.Battles.ListByCategoryAndPhase(ctx, c.ID, domain.BattlePreselection)
	if err != nil {
		return nil, err
	}
	open := 0
	for _, b := range battles {
		if b.Status != domain.BattleCompleted {
			open++
		}
	}
	if open > 0 {
		result.AddError(fmt.Sprintf("category %q has %d unplayed preselection battles", c.Name, open))
	}

	performers, err := s.repos.Performers.ListByCategory(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	for _, p := range performers {
		if p.PreselectionScore == nil {
			result.AddError(fmt.Sprintf("performer %q in category %q has no preselection score", p.DancerName, c.Name))
		}
	}

	if err := s.addUnresolvedTiebreaks(ctx, c, result, false); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PhaseService) validatePools(ctx context.Context, c *domain.Category) (*domain.ValidationResult, error) {
	result := &domain.ValidationResult{}

	battles, err := s.repos.Battles.ListByCategoryAndPhase(ctx, c.ID, domain.BattlePools)
	if err != nil {
		return nil, err
	}
	open := 0
	for _, b := range battles {
		if b.Status != domain.BattleCompleted {
			open++
		}
	}
	if open > 0 {
		result.AddError(fmt.Sprintf("category %q has %d unplayed pool battles", c.Name, open))
	}

	if err := s.addUnresolvedTiebreaks(ctx, c, result, true); err != nil {
		return nil, err
	}

	pools, err := s.repos.Pools.ListByCategory(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if len(pools) != c.GroupsIdeal {
		result.AddError(fmt.Sprintf("category %q has %d pools, expected %d", c.Name, len(pools), c.GroupsIdeal))
	}
	for _, pool := range pools {
		if pool.WinnerID == nil {
			result.AddError(fmt.Sprintf("%s in category %q has no winner yet", pool.Name, c.Name))
		}
	}
	return result, nil
}

func (s *PhaseService) validateFinals(ctx context.Context, c *domain.Category) (*domain.ValidationResult, error) {
	result := &domain.ValidationResult{}

	battles, err := s.repos.Battles.ListByCategoryAndPhase(ctx, c.ID, domain.BattleFinals)
	if err != nil {
		return nil, err
	}
	if len(battles) == 0 {
		result.AddError(fmt.Sprintf("category %q has no finals battle", c.Name))
	}
	for _, b := range battles {
		if b.Status != domain.BattleCompleted || b.WinnerID == nil {
			result.AddError(fmt.Sprintf("finals battle in category %q is not decided", c.Name))
		}
	}
	return result, nil
}

// addUnresolvedTiebreaks flags open tiebreak battles. poolLevel selects
// between pool-winner tiebreaks and category-level preselection ones.
func (s *PhaseService) addUnresolvedTiebreaks(ctx context.Context, c *domain.Category, result *domain.ValidationResult, poolLevel bool) error {
	battles, err := s.repos.Battles.ListByCategoryAndPhase(ctx, c.ID, domain.BattleTiebreak)
	if err != nil {
		return err
	}
	for _, b := range battles {
		if (b.PoolID != nil) != poolLevel {
			continue
		}
		if b.Status != domain.BattleCompleted {
			result.AddError(fmt.Sprintf("category %q has an unresolved tiebreak battle", c.Name))
		}
	}
	return nil
}

// Advance validates the current phase and, when clean, transitions the
// tournament and generates the next phase's battles in one transaction.
func (s *PhaseService) Advance(ctx context.Context, tournamentID string) (*domain.Tournament, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	s.lock.Lock()
	defer s.lock.Unlock()

	t, err := s.repos.Tournaments.Get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	result, err := s.validate(ctx, t)
	if err != nil {
		return nil, err
	}
	if err := result.AsError(); err != nil {
		return nil, err
	}

	// Leaving registration activates the tournament, and only one
	// tournament may be active at a time.
	if t.Phase == domain.PhaseRegistration && t.Status != domain.TournamentActive {
		active, err := s.repos.Tournaments.FindActive(ctx)
		if err != nil {
			return nil, err
		}
		if active != nil && active.ID != t.ID {
			return nil, domain.NewValidationError(fmt.Sprintf("tournament %q is already active; complete or cancel it first", active.Name))
		}
	}

	categories, err := s.repos.Categories.ListByTournament(ctx, t.ID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	repos := s.repos.WithTx(tx)

	switch t.Phase {
	case domain.PhaseRegistration:
		err = s.startPreselection(ctx, repos, categories)
	case domain.PhasePreselection:
		err = s.startPools(ctx, repos, categories)
	case domain.PhasePools:
		err = s.startFinals(ctx, repos, categories)
	case domain.PhaseFinals:
		// Nothing to generate past finals.
	}
	if err != nil {
		return nil, err
	}

	next := t.Phase.Next()
	status := domain.TournamentActive
	if next == domain.PhaseCompleted {
		status = domain.TournamentCompleted
	}
	if err := repos.Tournaments.UpdatePhaseStatus(ctx, t.ID, next, status); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info().
		Str("tournament_id", t.ID).
		Str("from", string(t.Phase)).
		Str("to", string(next)).
		Strs("warnings", result.Warnings).
		Msg("phase advanced")

	t.Phase = next
	t.Status = status
	return t, nil
}

// startPreselection scores guests at the maximum, pairs the remaining
// performers into judged battles and interleaves the per-category queues.
func (s *PhaseService) startPreselection(ctx context.Context, repos *Repos, categories []domain.Category) error {
	queues := make([][]domain.Battle, 0, len(categories))
	for _, c := range categories {
		performers, err := repos.Performers.ListByCategory(ctx, c.ID)
		if err != nil {
			return err
		}

		var regulars []domain.Performer
		for _, p := range performers {
			if p.IsGuest {
				if err := repos.Performers.UpdateScore(ctx, p.ID, domain.GuestScore); err != nil {
					return err
				}
				continue
			}
			regulars = append(regulars, p)
		}

		battles, err := generator.PreselectionBattles(c.ID, regulars)
		if err != nil {
			return err
		}
		queues = append(queues, battles)
	}

	merged := generator.Interleave(queues)
	for i := range merged {
		if err := repos.Battles.Create(ctx, &merged[i]); err != nil {
			return err
		}
	}
	return nil
}

// startPools ranks each category's field, cuts it to capacity, persists the
// pools and generates the interleaved round-robin queue.
func (s *PhaseService) startPools(ctx context.Context, repos *Repos, categories []domain.Category) error {
	queues := make([][]domain.Battle, 0, len(categories))
	for _, c := range categories {
		performers, err := repos.Performers.ListByCategory(ctx, c.ID)
		if err != nil {
			return err
		}
		winners, err := s.tiebreakWinners(ctx, repos, c.ID)
		if err != nil {
			return err
		}

		qualifying, eliminated, err := calc.PoolCapacity(len(performers), c.GroupsIdeal)
		if err != nil {
			return err
		}
		sizes, err := calc.DistributePoolSizes(qualifying, c.GroupsIdeal)
		if err != nil {
			return err
		}

		ranked := pooling.Rank(performers, winners)
		blocks := pooling.Assign(ranked[:qualifying], sizes)

		var queue []domain.Battle
		for i, block := range blocks {
			pool := &domain.Pool{
				ID:         uuid.New().String(),
				CategoryID: c.ID,
				Name:       pooling.PoolName(i),
				Position:   i,
				Performers: block,
			}
			if err := repos.Pools.Create(ctx, pool); err != nil {
				return err
			}
			queue = append(queue, generator.PoolBattles(*pool)...)
		}
		queues = append(queues, queue)

		s.logger.Debug().
			Str("category_id", c.ID).
			Int("qualifying", qualifying).
			Int("eliminated", eliminated).
			Ints("pool_sizes", sizes).
			Msg("pools generated")
	}

	merged := generator.Interleave(queues)
	for i := range merged {
		if err := repos.Battles.Create(ctx, &merged[i]); err != nil {
			return err
		}
	}
	return nil
}

// tiebreakWinners collects the winner IDs of the category's resolved
// preselection tiebreak, if one was fought.
func (s *PhaseService) tiebreakWinners(ctx context.Context, repos *Repos, categoryID string) (map[string]bool, error) {
	battles, err := repos.Battles.ListByCategoryAndPhase(ctx, categoryID, domain.BattleTiebreak)
	if err != nil {
		return nil, err
	}
	winners := make(map[string]bool)
	for _, b := range battles {
		if b.PoolID != nil || b.Outcome == nil || b.Outcome.Tiebreak == nil {
			continue
		}
		for _, id := range b.Outcome.Tiebreak.Winners {
			winners[id] = true
		}
	}
	return winners, nil
}

// startFinals pits each category's pool winners against each other in a
// single battle.
func (s *PhaseService) startFinals(ctx context.Context, repos *Repos, categories []domain.Category) error {
	seq := 0
	for _, c := range categories {
		pools, err := repos.Pools.ListByCategory(ctx, c.ID)
		if err != nil {
			return err
		}

		winners := make([]domain.Performer, 0, len(pools))
		for _, pool := range pools {
			if pool.WinnerID == nil {
				return fmt.Errorf("%s in category %s has no winner", pool.Name, c.ID)
			}
			winner, err := repos.Performers.Get(ctx, *pool.WinnerID)
			if err != nil {
				return err
			}
			winners = append(winners, *winner)
		}

		battle, err := generator.FinalsBattle(c.ID, winners)
		if err != nil {
			return err
		}
		seq++
		order := seq
		battle.SequenceOrder = &order
		if err := repos.Battles.Create(ctx, &battle); err != nil {
			return err
		}
	}
	return nil
}
