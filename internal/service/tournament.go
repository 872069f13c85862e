package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"battleflow/internal/constants"
	"battleflow/internal/domain"
)

// TournamentService manages the tournament aggregate: creation, category
// setup, performer registration and deletion.
type TournamentService struct {
	db     *sql.DB
	repos  *Repos
	lock   *WriteLock
	logger zerolog.Logger
}

func NewTournamentService(db *sql.DB, repos *Repos, lock *WriteLock, logger zerolog.Logger) *TournamentService {
	return &TournamentService{
		db:     db,
		repos:  repos,
		lock:   lock,
		logger: logger.With().Str("service", "tournament").Logger(),
	}
}

func (s *TournamentService) Create(ctx context.Context, name string) (*domain.Tournament, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("tournament name is required")
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	t := &domain.Tournament{
		ID:     uuid.New().String(),
		Name:   name,
		Phase:  domain.PhaseRegistration,
		Status: domain.TournamentCreated,
	}
	if err := s.repos.Tournaments.Create(ctx, t); err != nil {
		return nil, err
	}

	s.logger.Info().Str("tournament_id", t.ID).Str("name", t.Name).Msg("tournament created")
	return t, nil
}

func (s *TournamentService) Get(ctx context.Context, id string) (*domain.Tournament, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.repos.Tournaments.Get(ctx, id)
}

func (s *TournamentService) List(ctx context.Context) ([]domain.Tournament, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	return s.repos.Tournaments.List(ctx)
}

// AddCategory attaches a category to a tournament. Categories can only be
// added while the tournament is still in registration.
func (s *TournamentService) AddCategory(ctx context.Context, tournamentID, name string, groupsIdeal, performersIdeal int) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("category name is required")
	}
	if groupsIdeal < 1 {
		return nil, domain.NewValidationError("groups ideal must be at least 1")
	}
	if performersIdeal < 2 {
		return nil, domain.NewValidationError("performers ideal must be at least 2")
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	s.lock.Lock()
	defer s.lock.Unlock()

	t, err := s.repos.Tournaments.Get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if t.Phase != domain.PhaseRegistration {
		return nil, domain.NewValidationError("categories can only be added during registration")
	}

	c := &domain.Category{
		ID:              uuid.New().String(),
		TournamentID:    tournamentID,
		Name:            name,
		GroupsIdeal:     groupsIdeal,
		PerformersIdeal: performersIdeal,
	}
	if err := s.repos.Categories.Create(ctx, c); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("tournament_id", tournamentID).
		Str("category_id", c.ID).
		Str("name", c.Name).
		Msg("category added")
	return c, nil
}

func (s *TournamentService) ListCategories(ctx context.Context, tournamentID string) ([]domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := s.repos.Tournaments.Get(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.repos.Categories.ListByTournament(ctx, tournamentID)
}

// RegisterPerformer enrolls a dancer into a category. A dancer name is
// unique across the whole tournament, so one dancer competes in exactly
// one category.
func (s *TournamentService) RegisterPerformer(ctx context.Context, categoryID, dancerName string, isGuest bool) (*domain.Performer, error) {
	dancerName = strings.TrimSpace(dancerName)
	if dancerName == "" {
		return nil, domain.NewValidationError("dancer name is required")
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	s.lock.Lock()
	defer s.lock.Unlock()

	c, err := s.repos.Categories.Get(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	t, err := s.repos.Tournaments.Get(ctx, c.TournamentID)
	if err != nil {
		return nil, err
	}
	if t.Phase != domain.PhaseRegistration {
		return nil, domain.NewValidationError("registration is closed for this tournament")
	}

	exists, err := s.repos.Performers.ExistsInTournament(ctx, t.ID, dancerName)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.NewValidationError(fmt.Sprintf("dancer %q is already registered in this tournament", dancerName))
	}

	p := &domain.Performer{
		ID:           uuid.New().String(),
		CategoryID:   categoryID,
		TournamentID: t.ID,
		DancerName:   dancerName,
		IsGuest:      isGuest,
	}
	if err := s.repos.Performers.Create(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("category_id", categoryID).
		Str("performer_id", p.ID).
		Str("dancer", dancerName).
		Bool("guest", isGuest).
		Msg("performer registered")
	return p, nil
}

func (s *TournamentService) ListPerformers(ctx context.Context, categoryID string) ([]domain.Performer, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := s.repos.Categories.Get(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.repos.Performers.ListByCategory(ctx, categoryID)
}

func (s *TournamentService) ListPools(ctx context.Context, categoryID string) ([]domain.Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := s.repos.Categories.Get(ctx, categoryID); err != nil {
		return nil, err
	}
	return s.repos.Pools.ListByCategory(ctx, categoryID)
}

// Cancel marks a tournament cancelled. Completed tournaments are frozen
// and cannot be cancelled.
func (s *TournamentService) Cancel(ctx context.Context, id string) (*domain.Tournament, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	s.lock.Lock()
	defer s.lock.Unlock()

	t, err := s.repos.Tournaments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status == domain.TournamentCompleted || t.Status == domain.TournamentCancelled {
		return nil, domain.ErrTerminalState
	}

	t.Status = domain.TournamentCancelled
	if err := s.repos.Tournaments.UpdatePhaseStatus(ctx, t.ID, t.Phase, t.Status); err != nil {
		return nil, err
	}

	s.logger.Info().Str("tournament_id", id).Msg("tournament cancelled")
	return t, nil
}

// Delete removes a tournament and everything under it in one transaction,
// child tables first so foreign keys hold at every step.
func (s *TournamentService) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, err := s.repos.Tournaments.Get(ctx, id); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	repos := s.repos.WithTx(tx)
	if err := repos.Battles.DeleteByTournament(ctx, id); err != nil {
		return err
	}
	if err := repos.Pools.DeleteByTournament(ctx, id); err != nil {
		return err
	}
	if err := repos.Performers.DeleteByTournament(ctx, id); err != nil {
		return err
	}
	if err := repos.Categories.DeleteByTournament(ctx, id); err != nil {
		return err
	}
	if err := repos.Tournaments.Delete(ctx, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info().Str("tournament_id", id).Msg("tournament deleted")
	return nil
}
