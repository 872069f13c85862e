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

type PoolRepository struct {
	db     DBTX
	logger zerolog.Logger
}

func NewPoolRepository(sqlDB *sql.DB, logger zerolog.Logger) *PoolRepository {
	return &PoolRepository{db: sqlDB, logger: logger}
}

func (r *PoolRepository) WithTx(tx *sql.Tx) *PoolRepository {
	return &PoolRepository{db: tx, logger: r.logger}
}

// Create inserts the pool and its performer memberships in ranked order.
func (r *PoolRepository) Create(ctx context.Context, p *domain.Pool) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pools (id, category_id, name, position, winner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.CategoryID, p.Name, p.Position, nullString(p.WinnerID), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert pool: %w", err)
	}
	for i, performer := range p.Performers {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO pool_performers (pool_id, performer_id, position) VALUES (?, ?, ?)`,
			p.ID, performer.ID, i+1)
		if err != nil {
			return fmt.Errorf("failed to attach performer %s to pool: %w", performer.ID, err)
		}
	}
	return nil
}

func (r *PoolRepository) Get(ctx context.Context, id string) (*domain.Pool, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, category_id, name, position, winner_id, created_at, updated_at
		FROM pools WHERE id = ?`, id)

	pool, err := scanPool(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadPerformers(ctx, pool); err != nil {
		return nil, err
	}
	return pool, nil
}

func (r *PoolRepository) ListByCategory(ctx context.Context, categoryID string) ([]domain.Pool, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category_id, name, position, winner_id, created_at, updated_at
		FROM pools WHERE category_id = ? ORDER BY position`, categoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}
	defer rows.Close()

	var pools []domain.Pool
	for rows.Next() {
		var p domain.Pool
		var winnerID sql.NullString
		if err := rows.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Position, &winnerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pool: %w", err)
		}
		p.WinnerID = stringPtr(winnerID)
		pools = append(pools, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range pools {
		if err := r.loadPerformers(ctx, &pools[i]); err != nil {
			return nil, err
		}
	}
	return pools, nil
}

func (r *PoolRepository) SetWinner(ctx context.Context, poolID, performerID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE pools SET winner_id = ?, updated_at = ? WHERE id = ?`,
		performerID, time.Now(), poolID)
	if err != nil {
		return fmt.Errorf("failed to set pool winner: %w", err)
	}
	return requireRow(result, "pool", poolID)
}

func (r *PoolRepository) DeleteByTournament(ctx context.Context, tournamentID string) error {
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM pool_performers WHERE pool_id IN (
			SELECT p.id FROM pools p
			JOIN categories c ON c.id = p.category_id
			WHERE c.tournament_id = ?)`, tournamentID); err != nil {
		return fmt.Errorf("failed to delete pool memberships: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM pools WHERE category_id IN (
			SELECT id FROM categories WHERE tournament_id = ?)`, tournamentID); err != nil {
		return fmt.Errorf("failed to delete pools: %w", err)
	}
	return nil
}

func (r *PoolRepository) loadPerformers(ctx context.Context, pool *domain.Pool) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+prefixedPerformerColumns+`
		FROM performers pf
		JOIN pool_performers pp ON pp.performer_id = pf.id
		WHERE pp.pool_id = ?
		ORDER BY pp.position`, pool.ID)
	if err != nil {
		return fmt.Errorf("failed to load pool performers: %w", err)
	}
	defer rows.Close()

	performers, err := collectPerformers(rows)
	if err != nil {
		return err
	}
	pool.Performers = performers
	return nil
}

const prefixedPerformerColumns = `pf.id, pf.category_id, pf.tournament_id, pf.dancer_name, pf.is_guest,
	pf.preselection_score, pf.wins, pf.draws, pf.losses, pf.registered_at, pf.created_at, pf.updated_at`

func scanPool(row *sql.Row) (*domain.Pool, error) {
	var p domain.Pool
	var winnerID sql.NullString
	err := row.Scan(&p.ID, &p.CategoryID, &p.Name, &p.Position, &winnerID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pool: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan pool: %w", err)
	}
	p.WinnerID = stringPtr(winnerID)
	return &p, nil
}
