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

type TournamentRepository struct {
	db     DBTX
	logger zerolog.Logger
}

func NewTournamentRepository(sqlDB *sql.DB, logger zerolog.Logger) *TournamentRepository {
	return &TournamentRepository{db: sqlDB, logger: logger}
}

func (r *TournamentRepository) WithTx(tx *sql.Tx) *TournamentRepository {
	return &TournamentRepository{db: tx, logger: r.logger}
}

func (r *TournamentRepository) Create(ctx context.Context, t *domain.Tournament) error {
	now := time.Now()
	t.CreatedAt = now
	t.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tournaments (id, name, status, phase, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.Name, t.Status, t.Phase, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert tournament: %w", err)
	}
	return nil
}

func (r *TournamentRepository) Get(ctx context.Context, id string) (*domain.Tournament, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, status, phase, created_at, updated_at
		FROM tournaments WHERE id = ?`, id)
	return scanTournament(row)
}

func (r *TournamentRepository) List(ctx context.Context) ([]domain.Tournament, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, status, phase, created_at, updated_at
		FROM tournaments ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	var tournaments []domain.Tournament
	for rows.Next() {
		var t domain.Tournament
		if err := rows.Scan(&t.ID, &t.Name, &t.Status, &t.Phase, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tournament: %w", err)
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}

// FindActive returns the tournament currently holding status=active, or
// nil when none does.
func (r *TournamentRepository) FindActive(ctx context.Context) (*domain.Tournament, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, status, phase, created_at, updated_at
		FROM tournaments WHERE status = ? LIMIT 1`, domain.TournamentActive)
	t, err := scanTournament(row)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return t, err
}

func (r *TournamentRepository) UpdatePhaseStatus(ctx context.Context, id string, phase domain.Phase, status domain.TournamentStatus) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE tournaments SET phase = ?, status = ?, updated_at = ? WHERE id = ?`,
		phase, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update tournament phase: %w", err)
	}
	return requireRow(result, "tournament", id)
}

func (r *TournamentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tournaments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete tournament: %w", err)
	}
	return requireRow(result, "tournament", id)
}

func scanTournament(row *sql.Row) (*domain.Tournament, error) {
	var t domain.Tournament
	err := row.Scan(&t.ID, &t.Name, &t.Status, &t.Phase, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tournament: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan tournament: %w", err)
	}
	return &t, nil
}

func requireRow(result sql.Result, entity, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
	}
	return nil
}
