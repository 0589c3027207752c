package memory

import (
	"context"
	"sync"

	"github.com/pugnascotia/fleetwatch/internal/domain"
)

// SuppressionRuleRepository is an in-memory implementation of the
// store.SuppressionRuleRepository interface.
type SuppressionRuleRepository struct {
	mu    sync.RWMutex
	rules map[string]*domain.SuppressionRule
}

// NewSuppressionRuleRepository creates a new in-memory rule repository.
func NewSuppressionRuleRepository() *SuppressionRuleRepository {
	return &SuppressionRuleRepository{
		rules: make(map[string]*domain.SuppressionRule),
	}
}

// Create stores a new suppression rule.
func (r *SuppressionRuleRepository) Create(ctx context.Context, rule *domain.SuppressionRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *rule
	r.rules[rule.ID] = &stored
	return nil
}

// Update modifies an existing suppression rule.
func (r *SuppressionRuleRepository) Update(ctx context.Context, rule *domain.SuppressionRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[rule.ID]; !exists {
		return domain.ErrRuleNotFound
	}
	stored := *rule
	r.rules[rule.ID] = &stored
	return nil
}

// Delete removes a suppression rule by ID.
func (r *SuppressionRuleRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.rules[id]; !exists {
		return domain.ErrRuleNotFound
	}
	delete(r.rules, id)
	return nil
}

// GetByID retrieves a suppression rule by its ID.
func (r *SuppressionRuleRepository) GetByID(ctx context.Context, id string) (*domain.SuppressionRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, exists := r.rules[id]
	if !exists {
		return nil, domain.ErrRuleNotFound
	}
	result := *rule
	return &result, nil
}

// List retrieves all suppression rules.
func (r *SuppressionRuleRepository) List(ctx context.Context) ([]*domain.SuppressionRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.SuppressionRule, 0, len(r.rules))
	for _, rule := range r.rules {
		copied := *rule
		result = append(result, &copied)
	}
	return result, nil
}
