package memory

import (
	"context"
	"sync"

	"github.com/pugnascotia/fleetwatch/internal/domain"
)

// AgentPolicyRepository is an in-memory implementation of the
// store.AgentPolicyRepository interface.
type AgentPolicyRepository struct {
	mu       sync.RWMutex
	policies map[string]*domain.AgentPolicy
}

// NewAgentPolicyRepository creates a new in-memory policy repository.
func NewAgentPolicyRepository() *AgentPolicyRepository {
	return &AgentPolicyRepository{
		policies: make(map[string]*domain.AgentPolicy),
	}
}

// Create stores a new agent policy.
func (r *AgentPolicyRepository) Create(ctx context.Context, policy *domain.AgentPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *policy
	r.policies[policy.ID] = &stored
	return nil
}

// GetByID retrieves a policy by its ID.
func (r *AgentPolicyRepository) GetByID(ctx context.Context, id string) (*domain.AgentPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	policy, exists := r.policies[id]
	if !exists {
		return nil, domain.ErrPolicyNotFound
	}
	result := *policy
	return &result, nil
}

// List retrieves all policies.
func (r *AgentPolicyRepository) List(ctx context.Context) ([]*domain.AgentPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.AgentPolicy, 0, len(r.policies))
	for _, policy := range r.policies {
		copied := *policy
		result = append(result, &copied)
	}
	return result, nil
}

// ListManagedIDs returns the IDs of all managed (locked) policies.
func (r *AgentPolicyRepository) ListManagedIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for _, policy := range r.policies {
		if policy.IsManaged {
			ids = append(ids, policy.ID)
		}
	}
	return ids, nil
}
