package domain

import (
	"errors"
	"testing"
)

func validRule() *SuppressionRule {
	return &SuppressionRule{
		ID:                "rule-1",
		Name:              "Repeated failed logins",
		Index:             "security-events",
		GroupByFields:     []string{"host.name", "user.name"},
		TimeWindowMinutes: 30,
	}
}

func TestSuppressionRule_Validate(t *testing.T) {
	if err := validRule().Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	rule := validRule()
	rule.Name = ""
	if err := rule.Validate(); !errors.Is(err, ErrEmptyRuleName) {
		t.Errorf("Validate() = %v, want ErrEmptyRuleName", err)
	}

	rule = validRule()
	rule.Index = ""
	if err := rule.Validate(); !errors.Is(err, ErrEmptyRuleIndex) {
		t.Errorf("Validate() = %v, want ErrEmptyRuleIndex", err)
	}

	rule = validRule()
	rule.GroupByFields = nil
	if err := rule.Validate(); !errors.Is(err, ErrEmptyGroupByFields) {
		t.Errorf("Validate() = %v, want ErrEmptyGroupByFields", err)
	}

	rule = validRule()
	rule.TimeWindowMinutes = 0
	if err := rule.Validate(); !errors.Is(err, ErrInvalidTimeWindow) {
		t.Errorf("Validate() = %v, want ErrInvalidTimeWindow", err)
	}
}

func TestCreateSuppressionRuleRequest_ToSuppressionRule(t *testing.T) {
	req := &CreateSuppressionRuleRequest{
		Name:              "Noisy host",
		Index:             "security-events",
		GroupByFields:     []string{"host.name"},
		TimeWindowMinutes: 15,
		MaxSignals:        50,
		Severity:          "high",
	}

	rule := req.ToSuppressionRule("rule-42")

	if rule.ID != "rule-42" {
		t.Errorf("ID = %v, want rule-42", rule.ID)
	}
	if !rule.Enabled {
		t.Error("new rules should be enabled")
	}
	if rule.CreatedAt.IsZero() || rule.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}
	if err := rule.Validate(); err != nil {
		t.Errorf("converted rule should be valid, got %v", err)
	}
}
