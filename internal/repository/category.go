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

type CategoryRepository struct {
	db     DBTX
	logger zerolog.Logger
}

func NewCategoryRepository(sqlDB *sql.DB, logger zerolog.Logger) *CategoryRepository {
	return &CategoryRepository{db: sqlDB, logger: logger}
}

func (r *CategoryRepository) WithTx(tx *sql.Tx) *CategoryRepository {
	return &CategoryRepository{db: tx, logger: r.logger}
}

func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (id, tournament_id, name, groups_ideal, performers_ideal, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.TournamentID, c.Name, c.GroupsIdeal, c.PerformersIdeal, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) Get(ctx context.Context, id string) (*domain.Category, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, tournament_id, name, groups_ideal, performers_ideal, created_at, updated_at
		FROM categories WHERE id = ?`, id)

	var c domain.Category
	err := row.Scan(&c.ID, &c.TournamentID, &c.Name, &c.GroupsIdeal, &c.PerformersIdeal, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}
	return &c, nil
}

// ListByTournament returns categories in creation order; this order fixes
// the interleaving rotation of the battle queue.
func (r *CategoryRepository) ListByTournament(ctx context.Context, tournamentID string) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tournament_id, name, groups_ideal, performers_ideal, created_at, updated_at
		FROM categories WHERE tournament_id = ? ORDER BY created_at, id`, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.TournamentID, &c.Name, &c.GroupsIdeal, &c.PerformersIdeal, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *CategoryRepository) DeleteByTournament(ctx context.Context, tournamentID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE tournament_id = ?`, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to delete categories: %w", err)
	}
	return nil
}
