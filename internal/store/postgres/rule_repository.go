package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pugnascotia/fleetwatch/internal/domain"
)

// SuppressionRuleRepository implements store.SuppressionRuleRepository
// using PostgreSQL.
type SuppressionRuleRepository struct {
	db *DB
}

// NewSuppressionRuleRepository creates a new PostgreSQL-backed rule repository.
func NewSuppressionRuleRepository(db *DB) *SuppressionRuleRepository {
	return &SuppressionRuleRepository{db: db}
}

// Create stores a new suppression rule.
func (r *SuppressionRuleRepository) Create(ctx context.Context, rule *domain.SuppressionRule) error {
	query := `
		INSERT INTO suppression_rules (
			id, name, index_pattern, group_by_fields, time_window_minutes,
			max_signals, filter, severity, summary, enabled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.pool.Exec(ctx, query,
		rule.ID,
		rule.Name,
		rule.Index,
		rule.GroupByFields,
		rule.TimeWindowMinutes,
		rule.MaxSignals,
		rule.Filter,
		rule.Severity,
		rule.Summary,
		rule.Enabled,
		rule.CreatedAt,
		rule.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create suppression rule: %w", err)
	}

	return nil
}

// Update modifies an existing suppression rule.
func (r *SuppressionRuleRepository) Update(ctx context.Context, rule *domain.SuppressionRule) error {
	query := `
		UPDATE suppression_rules SET
			name = $2,
			index_pattern = $3,
			group_by_fields = $4,
			time_window_minutes = $5,
			max_signals = $6,
			filter = $7,
			severity = $8,
			summary = $9,
			enabled = $10,
			updated_at = $11
		WHERE id = $1
	`

	result, err := r.db.pool.Exec(ctx, query,
		rule.ID,
		rule.Name,
		rule.Index,
		rule.GroupByFields,
		rule.TimeWindowMinutes,
		rule.MaxSignals,
		rule.Filter,
		rule.Severity,
		rule.Summary,
		rule.Enabled,
		rule.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update suppression rule: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrRuleNotFound
	}

	return nil
}

// Delete removes a suppression rule by ID.
func (r *SuppressionRuleRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM suppression_rules WHERE id = $1`

	result, err := r.db.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete suppression rule: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrRuleNotFound
	}

	return nil
}

// GetByID retrieves a suppression rule by its ID.
func (r *SuppressionRuleRepository) GetByID(ctx context.Context, id string) (*domain.SuppressionRule, error) {
	query := `
		SELECT id, name, index_pattern, group_by_fields, time_window_minutes,
			max_signals, filter, severity, summary, enabled, created_at, updated_at
		FROM suppression_rules
		WHERE id = $1
	`

	rule := &domain.SuppressionRule{}
	err := r.db.pool.QueryRow(ctx, query, id).Scan(
		&rule.ID,
		&rule.Name,
		&rule.Index,
		&rule.GroupByFields,
		&rule.TimeWindowMinutes,
		&rule.MaxSignals,
		&rule.Filter,
		&rule.Severity,
		&rule.Summary,
		&rule.Enabled,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRuleNotFound
		}
		return nil, fmt.Errorf("failed to get suppression rule: %w", err)
	}

	return rule, nil
}

// List retrieves all suppression rules.
func (r *SuppressionRuleRepository) List(ctx context.Context) ([]*domain.SuppressionRule, error) {
	query := `
		SELECT id, name, index_pattern, group_by_fields, time_window_minutes,
			max_signals, filter, severity, summary, enabled, created_at, updated_at
		FROM suppression_rules
		ORDER BY created_at
	`

	rows, err := r.db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list suppression rules: %w", err)
	}
	defer rows.Close()

	var rules []*domain.SuppressionRule
	for rows.Next() {
		rule := &domain.SuppressionRule{}
		if err := rows.Scan(
			&rule.ID,
			&rule.Name,
			&rule.Index,
			&rule.GroupByFields,
			&rule.TimeWindowMinutes,
			&rule.MaxSignals,
			&rule.Filter,
			&rule.Severity,
			&rule.Summary,
			&rule.Enabled,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan suppression rule: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate suppression rules: %w", err)
	}

	return rules, nil
}
