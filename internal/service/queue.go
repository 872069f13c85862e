package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"battleflow/internal/constants"
	"battleflow/internal/domain"
	"battleflow/internal/generator"
)

// QueueService exposes the tournament-wide battle queue: upcoming battles
// in play order, manual reordering and progress reporting.
type QueueService struct {
	db     *sql.DB
	repos  *Repos
	lock   *WriteLock
	logger zerolog.Logger
}

func NewQueueService(db *sql.DB, repos *Repos, lock *WriteLock, logger zerolog.Logger) *QueueService {
	return &QueueService{
		db:     db,
		repos:  repos,
		lock:   lock,
		logger: logger.With().Str("service", "queue").Logger(),
	}
}

// List returns the tournament's unplayed battles in play order. Tiebreak
// battles carry no sequence number and sort to the front: they block the
// phase, so they are always up next.
func (s *QueueService) List(ctx context.Context, tournamentID string) ([]domain.Battle, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if _, err := s.repos.Tournaments.Get(ctx, tournamentID); err != nil {
		return nil, err
	}

	battles, err := s.repos.Battles.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	var queue []domain.Battle
	for _, b := range battles {
		if b.Status != domain.BattleCompleted {
			queue = append(queue, b)
		}
	}
	return queue, nil
}

// Reorder moves a pending battle to targetPos within the tournament's
// sequenced queue and persists the renumbered order in one transaction.
// The on-deck battle and position 1 are locked; tiebreak battles are not
// part of the sequenced queue and cannot be moved.
func (s *QueueService) Reorder(ctx context.Context, tournamentID, battleID string, targetPos int) ([]domain.Battle, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	s.lock.Lock()
	defer s.lock.Unlock()

	if _, err := s.repos.Tournaments.Get(ctx, tournamentID); err != nil {
		return nil, err
	}

	battles, err := s.repos.Battles.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	var pending []domain.Battle
	for _, b := range battles {
		if b.Status == domain.BattlePending && b.SequenceOrder != nil {
			pending = append(pending, b)
		}
	}

	reordered, err := generator.ReorderQueue(pending, battleID, targetPos)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	repos := s.repos.WithTx(tx)
	for _, b := range reordered {
		if err := repos.Battles.UpdateSequence(ctx, b.ID, *b.SequenceOrder); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Info().
		Str("tournament_id", tournamentID).
		Str("battle_id", battleID).
		Int("target_pos", targetPos).
		Msg("queue reordered")
	return reordered, nil
}

// BattleTally counts battles of one phase within a category.
type BattleTally struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

// CategoryProgress summarizes one category's standing.
type CategoryProgress struct {
	CategoryID string                             `json:"category_id"`
	Name       string                             `json:"name"`
	Performers int                                `json:"performers"`
	Battles    map[domain.BattlePhase]BattleTally `json:"battles"`
}

// Progress summarizes a whole tournament.
type Progress struct {
	TournamentID string                  `json:"tournament_id"`
	Phase        domain.Phase            `json:"phase"`
	Status       domain.TournamentStatus `json:"status"`
	Categories   []CategoryProgress      `json:"categories"`
}

// Summarize reports per-category battle completion for the tournament.
func (s *QueueService) Summarize(ctx context.Context, tournamentID string) (*Progress, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	t, err := s.repos.Tournaments.Get(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	categories, err := s.repos.Categories.ListByTournament(ctx, tournamentID)
	if err != nil {
		return nil, err
	}

	progress := &Progress{
		TournamentID: t.ID,
		Phase:        t.Phase,
		Status:       t.Status,
		Categories:   make([]CategoryProgress, len(categories)),
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range categories {
		g.Go(func() error {
			cp, err := s.summarizeCategory(gctx, &c)
			if err != nil {
				return err
			}
			progress.Categories[i] = *cp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return progress, nil
}

func (s *QueueService) summarizeCategory(ctx context.Context, c *domain.Category) (*CategoryProgress, error) {
	count, err := s.repos.Performers.CountByCategory(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	cp := &CategoryProgress{
		CategoryID: c.ID,
		Name:       c.Name,
		Performers: count,
		Battles:    make(map[domain.BattlePhase]BattleTally),
	}
	for _, phase := range []domain.BattlePhase{
		domain.BattlePreselection,
		domain.BattlePools,
		domain.BattleTiebreak,
		domain.BattleFinals,
	} {
		battles, err := s.repos.Battles.ListByCategoryAndPhase(ctx, c.ID, phase)
		if err != nil {
			return nil, err
		}
		if len(battles) == 0 {
			continue
		}
		tally := BattleTally{Total: len(battles)}
		for _, b := range battles {
			if b.Status == domain.BattleCompleted {
				tally.Completed++
			}
		}
		cp.Battles[phase] = tally
	}
	return cp, nil
}
