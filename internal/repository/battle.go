package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"battleflow/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type BattleRepository struct {
	db     DBTX
	logger zerolog.Logger
}

func NewBattleRepository(sqlDB *sql.DB, logger zerolog.Logger) *BattleRepository {
	return &BattleRepository{db: sqlDB, logger: logger}
}

func (r *BattleRepository) WithTx(tx *sql.Tx) *BattleRepository {
	return &BattleRepository{db: tx, logger: r.logger}
}

const battleColumns = `id, category_id, pool_id, phase, status, outcome_type,
	outcome, winner_id, sequence_order, created_at, updated_at`

// Create inserts the battle and its performer attachments. Battles without
// an ID get a fresh nanoid.
func (r *BattleRepository) Create(ctx context.Context, b *domain.Battle) error {
	if b.ID == "" {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		b.ID = id
	}
	now := time.Now()
	b.CreatedAt = now
	b.UpdatedAt = now

	outcome, err := domain.MarshalOutcome(b.Outcome)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO battles (`+battleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.CategoryID, nullString(b.PoolID), b.Phase, b.Status, b.OutcomeType,
		outcome, nullString(b.WinnerID), nullInt(b.SequenceOrder), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert battle: %w", err)
	}

	for i, performer := range b.Performers {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO battle_performers (battle_id, performer_id, position) VALUES (?, ?, ?)`,
			b.ID, performer.ID, i+1)
		if err != nil {
			return fmt.Errorf("failed to attach performer %s to battle: %w", performer.ID, err)
		}
	}
	return nil
}

func (r *BattleRepository) Get(ctx context.Context, id string) (*domain.Battle, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+battleColumns+` FROM battles WHERE id = ?`, id)

	battle, err := scanBattleRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("battle: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadPerformers(ctx, battle); err != nil {
		return nil, err
	}
	return battle, nil
}

// FindActive returns the single battle with status=active, or nil.
func (r *BattleRepository) FindActive(ctx context.Context) (*domain.Battle, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+battleColumns+` FROM battles WHERE status = ? LIMIT 1`, domain.BattleActive)

	battle, err := scanBattleRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadPerformers(ctx, battle); err != nil {
		return nil, err
	}
	return battle, nil
}

func (r *BattleRepository) ListByCategoryAndPhase(ctx context.Context, categoryID string, phase domain.BattlePhase) ([]domain.Battle, error) {
	return r.list(ctx, `
		SELECT `+battleColumns+` FROM battles
		WHERE category_id = ? AND phase = ?
		ORDER BY sequence_order, created_at, id`, categoryID, phase)
}

// ListPendingByCategory returns the category's pending queue in sequence
// order.
func (r *BattleRepository) ListPendingByCategory(ctx context.Context, categoryID string) ([]domain.Battle, error) {
	return r.list(ctx, `
		SELECT `+battleColumns+` FROM battles
		WHERE category_id = ? AND status = ?
		ORDER BY sequence_order, created_at, id`, categoryID, domain.BattlePending)
}

func (r *BattleRepository) ListByPool(ctx context.Context, poolID string) ([]domain.Battle, error) {
	return r.list(ctx, `
		SELECT `+battleColumns+` FROM battles
		WHERE pool_id = ?
		ORDER BY created_at, id`, poolID)
}

// ListByTournament returns every battle of the tournament ordered as the
// global queue.
func (r *BattleRepository) ListByTournament(ctx context.Context, tournamentID string) ([]domain.Battle, error) {
	return r.list(ctx, `
		SELECT b.id, b.category_id, b.pool_id, b.phase, b.status, b.outcome_type,
			b.outcome, b.winner_id, b.sequence_order, b.created_at, b.updated_at
		FROM battles b
		JOIN categories c ON c.id = b.category_id
		WHERE c.tournament_id = ?
		ORDER BY b.sequence_order, b.created_at, b.id`, tournamentID)
}

// HasPendingTiebreak reports whether a pending tiebreak battle exists for
// the category scope: poolID nil matches the category-level (preselection)
// tiebreak, non-nil matches the pool's own tiebreak.
func (r *BattleRepository) HasPendingTiebreak(ctx context.Context, categoryID string, poolID *string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM battles
		WHERE category_id = ? AND phase = ? AND status != ?`
	args := []any{categoryID, domain.BattleTiebreak, domain.BattleCompleted}
	if poolID == nil {
		query += ` AND pool_id IS NULL`
	} else {
		query += ` AND pool_id = ?`
		args = append(args, *poolID)
	}

	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check for pending tiebreak: %w", err)
	}
	return count > 0, nil
}

func (r *BattleRepository) UpdateStatus(ctx context.Context, id string, status domain.BattleStatus) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE battles SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update battle status: %w", err)
	}
	return requireRow(result, "battle", id)
}

// UpdateOutcome writes the outcome payload, winner and status in one
// statement.
func (r *BattleRepository) UpdateOutcome(ctx context.Context, id string, outcome *domain.Outcome, winnerID *string, status domain.BattleStatus) error {
	raw, err := domain.MarshalOutcome(outcome)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE battles SET outcome = ?, winner_id = ?, status = ?, updated_at = ? WHERE id = ?`,
		raw, nullString(winnerID), status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update battle outcome: %w", err)
	}
	return requireRow(result, "battle", id)
}

func (r *BattleRepository) UpdateSequence(ctx context.Context, id string, sequenceOrder int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE battles SET sequence_order = ?, updated_at = ? WHERE id = ?`,
		sequenceOrder, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update battle sequence: %w", err)
	}
	return requireRow(result, "battle", id)
}

func (r *BattleRepository) DeleteByTournament(ctx context.Context, tournamentID string) error {
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM battle_performers WHERE battle_id IN (
			SELECT b.id FROM battles b
			JOIN categories c ON c.id = b.category_id
			WHERE c.tournament_id = ?)`, tournamentID); err != nil {
		return fmt.Errorf("failed to delete battle attachments: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `
		DELETE FROM battles WHERE category_id IN (
			SELECT id FROM categories WHERE tournament_id = ?)`, tournamentID); err != nil {
		return fmt.Errorf("failed to delete battles: %w", err)
	}
	return nil
}

func (r *BattleRepository) list(ctx context.Context, query string, args ...any) ([]domain.Battle, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list battles: %w", err)
	}
	defer rows.Close()

	var battles []domain.Battle
	for rows.Next() {
		battle, err := scanBattleRow(rows)
		if err != nil {
			return nil, err
		}
		battles = append(battles, *battle)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range battles {
		if err := r.loadPerformers(ctx, &battles[i]); err != nil {
			return nil, err
		}
	}
	return battles, nil
}

func (r *BattleRepository) loadPerformers(ctx context.Context, battle *domain.Battle) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+prefixedPerformerColumns+`
		FROM performers pf
		JOIN battle_performers bp ON bp.performer_id = pf.id
		WHERE bp.battle_id = ?
		ORDER BY bp.position`, battle.ID)
	if err != nil {
		return fmt.Errorf("failed to load battle performers: %w", err)
	}
	defer rows.Close()

	performers, err := collectPerformers(rows)
	if err != nil {
		return err
	}
	battle.Performers = performers
	return nil
}

type battleScanner interface {
	Scan(dest ...any) error
}

func scanBattleRow(row battleScanner) (*domain.Battle, error) {
	var b domain.Battle
	var poolID, winnerID sql.NullString
	var sequence sql.NullInt64
	var outcome string

	err := row.Scan(&b.ID, &b.CategoryID, &poolID, &b.Phase, &b.Status, &b.OutcomeType,
		&outcome, &winnerID, &sequence, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}

	b.PoolID = stringPtr(poolID)
	b.WinnerID = stringPtr(winnerID)
	b.SequenceOrder = intPtr(sequence)
	b.Outcome, err = domain.UnmarshalOutcome(outcome)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
