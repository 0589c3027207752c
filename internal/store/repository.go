package store

import (
	"context"

	"github.com/pugnascotia/fleetwatch/internal/domain"
)

// SuppressionRuleRepository defines the interface for suppression rule
// persistence. This is typically backed by PostgreSQL for production use.
type SuppressionRuleRepository interface {
	// Create stores a new suppression rule.
	Create(ctx context.Context, rule *domain.SuppressionRule) error

	// Update modifies an existing suppression rule.
	Update(ctx context.Context, rule *domain.SuppressionRule) error

	// Delete removes a suppression rule by ID.
	Delete(ctx context.Context, id string) error

	// GetByID retrieves a suppression rule by its ID.
	GetByID(ctx context.Context, id string) (*domain.SuppressionRule, error)

	// List retrieves all suppression rules.
	List(ctx context.Context) ([]*domain.SuppressionRule, error)
}

// AgentPolicyRepository defines the interface for agent policy persistence.
// The tag-update controller uses it to resolve which policies are
// administratively locked.
type AgentPolicyRepository interface {
	// Create stores a new agent policy.
	Create(ctx context.Context, policy *domain.AgentPolicy) error

	// GetByID retrieves a policy by its ID.
	GetByID(ctx context.Context, id string) (*domain.AgentPolicy, error)

	// List retrieves all policies.
	List(ctx context.Context) ([]*domain.AgentPolicy, error)

	// ListManagedIDs returns the IDs of all managed (locked) policies.
	ListManagedIDs(ctx context.Context) ([]string, error)
}
