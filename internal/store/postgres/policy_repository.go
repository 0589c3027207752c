package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pugnascotia/fleetwatch/internal/domain"
)

// AgentPolicyRepository implements store.AgentPolicyRepository using PostgreSQL.
type AgentPolicyRepository struct {
	db *DB
}

// NewAgentPolicyRepository creates a new PostgreSQL-backed policy repository.
func NewAgentPolicyRepository(db *DB) *AgentPolicyRepository {
	return &AgentPolicyRepository{db: db}
}

// Create stores a new agent policy.
func (r *AgentPolicyRepository) Create(ctx context.Context, policy *domain.AgentPolicy) error {
	query := `
		INSERT INTO agent_policies (id, name, is_managed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.pool.Exec(ctx, query,
		policy.ID,
		policy.Name,
		policy.IsManaged,
		policy.CreatedAt,
		policy.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create agent policy: %w", err)
	}

	return nil
}

// GetByID retrieves a policy by its ID.
func (r *AgentPolicyRepository) GetByID(ctx context.Context, id string) (*domain.AgentPolicy, error) {
	query := `
		SELECT id, name, is_managed, created_at, updated_at
		FROM agent_policies
		WHERE id = $1
	`

	policy := &domain.AgentPolicy{}
	err := r.db.pool.QueryRow(ctx, query, id).Scan(
		&policy.ID,
		&policy.Name,
		&policy.IsManaged,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPolicyNotFound
		}
		return nil, fmt.Errorf("failed to get agent policy: %w", err)
	}

	return policy, nil
}

// List retrieves all policies.
func (r *AgentPolicyRepository) List(ctx context.Context) ([]*domain.AgentPolicy, error) {
	query := `
		SELECT id, name, is_managed, created_at, updated_at
		FROM agent_policies
		ORDER BY created_at
	`

	rows, err := r.db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list agent policies: %w", err)
	}
	defer rows.Close()

	var policies []*domain.AgentPolicy
	for rows.Next() {
		policy := &domain.AgentPolicy{}
		if err := rows.Scan(
			&policy.ID,
			&policy.Name,
			&policy.IsManaged,
			&policy.CreatedAt,
			&policy.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan agent policy: %w", err)
		}
		policies = append(policies, policy)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate agent policies: %w", err)
	}

	return policies, nil
}

// ListManagedIDs returns the IDs of all managed (locked) policies.
func (r *AgentPolicyRepository) ListManagedIDs(ctx context.Context) ([]string, error) {
	query := `SELECT id FROM agent_policies WHERE is_managed`

	rows, err := r.db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list managed policies: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan policy id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate managed policies: %w", err)
	}

	return ids, nil
}
