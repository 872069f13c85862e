package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"battleflow/internal/domain"

	"github.com/rs/zerolog"
)

type PerformerRepository struct {
	db     DBTX
	logger zerolog.Logger
}

func NewPerformerRepository(sqlDB *sql.DB, logger zerolog.Logger) *PerformerRepository {
	return &PerformerRepository{db: sqlDB, logger: logger}
}

func (r *PerformerRepository) WithTx(tx *sql.Tx) *PerformerRepository {
	return &PerformerRepository{db: tx, logger: r.logger}
}

const performerColumns = `id, category_id, tournament_id, dancer_name, is_guest,
	preselection_score, wins, draws, losses, registered_at, created_at, updated_at`

func (r *PerformerRepository) Create(ctx context.Context, p *domain.Performer) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.RegisteredAt.IsZero() {
		p.RegisteredAt = now
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO performers (`+performerColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.CategoryID, p.TournamentID, p.DancerName, p.IsGuest,
		nullFloat(p.PreselectionScore), p.Wins, p.Draws, p.Losses,
		p.RegisteredAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert performer: %w", err)
	}
	return nil
}

func (r *PerformerRepository) Get(ctx context.Context, id string) (*domain.Performer, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+performerColumns+` FROM performers WHERE id = ?`, id)

	p, err := scanPerformerRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("performer: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PerformerRepository) ListByCategory(ctx context.Context, categoryID string) ([]domain.Performer, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+performerColumns+` FROM performers
		WHERE category_id = ? ORDER BY registered_at, id`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list performers: %w", err)
	}
	defer rows.Close()
	return collectPerformers(rows)
}

func (r *PerformerRepository) CountByCategory(ctx context.Context, categoryID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM performers WHERE category_id = ?`, categoryID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count performers: %w", err)
	}
	return count, nil
}

// ExistsInTournament reports whether the dancer already registered in any
// category of the tournament.
func (r *PerformerRepository) ExistsInTournament(ctx context.Context, tournamentID, dancerName string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM performers WHERE tournament_id = ? AND dancer_name = ?`,
		tournamentID, dancerName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check performer registration: %w", err)
	}
	return count > 0, nil
}

func (r *PerformerRepository) UpdateScore(ctx context.Context, id string, score float64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE performers SET preselection_score = ?, updated_at = ? WHERE id = ?`,
		score, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update performer score: %w", err)
	}
	return requireRow(result, "performer", id)
}

// AddPoolResult increments the performer's win/draw/loss record.
func (r *PerformerRepository) AddPoolResult(ctx context.Context, id string, wins, draws, losses int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE performers SET wins = wins + ?, draws = draws + ?, losses = losses + ?, updated_at = ?
		WHERE id = ?`,
		wins, draws, losses, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update performer record: %w", err)
	}
	return requireRow(result, "performer", id)
}

func (r *PerformerRepository) DeleteByTournament(ctx context.Context, tournamentID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM performers WHERE tournament_id = ?`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete performers: %w", err)
	}
	return nil
}

type performerScanner interface {
	Scan(dest ...any) error
}

func scanPerformerRow(row performerScanner) (*domain.Performer, error) {
	var p domain.Performer
	var score sql.NullFloat64
	err := row.Scan(&p.ID, &p.CategoryID, &p.TournamentID, &p.DancerName, &p.IsGuest,
		&score, &p.Wins, &p.Draws, &p.Losses, &p.RegisteredAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.PreselectionScore = floatPtr(score)
	return &p, nil
}

func collectPerformers(rows *sql.Rows) ([]domain.Performer, error) {
	var performers []domain.Performer
	for rows.Next() {
		p, err := scanPerformerRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan performer: %w", err)
		}
		performers = append(performers, *p)
	}
	return performers, rows.Err()
}
