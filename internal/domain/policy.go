package domain

import (
	"errors"
	"time"
)

// ErrPolicyNotFound is returned when an agent policy cannot be found.
var ErrPolicyNotFound = errors.New("agent policy not found")

// AgentPolicy represents a policy agents are enrolled into. Agents on a
// managed policy are administratively locked: bulk actions must exclude
// them from their effective target set.
type AgentPolicy struct {
	// ID is the unique identifier for this policy.
	ID string `json:"id"`

	// Name is a human-readable name for the policy.
	Name string `json:"name"`

	// IsManaged marks the policy as administratively locked.
	IsManaged bool `json:"is_managed"`

	// CreatedAt is when the policy was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the policy was last modified.
	UpdatedAt time.Time `json:"updated_at"`
}
