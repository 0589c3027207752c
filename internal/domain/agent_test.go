package domain

import (
	"errors"
	"testing"
)

func TestTagUpdateRequest_Normalize(t *testing.T) {
	req := &TagUpdateRequest{
		AgentIDs:     []string{"agent1"},
		TagsToAdd:    []string{"one", "one"},
		TagsToRemove: []string{"two"},
	}

	req.Normalize()

	if len(req.TagsToAdd) != 1 || req.TagsToAdd[0] != "one" {
		t.Errorf("TagsToAdd = %v, want [one]", req.TagsToAdd)
	}
	if len(req.TagsToRemove) != 1 || req.TagsToRemove[0] != "two" {
		t.Errorf("TagsToRemove = %v, want [two]", req.TagsToRemove)
	}
}

func TestTagUpdateRequest_Normalize_PreservesOrder(t *testing.T) {
	req := &TagUpdateRequest{
		TagsToAdd: []string{"b", "a", "b", "c", "a"},
	}

	req.Normalize()

	want := []string{"b", "a", "c"}
	if len(req.TagsToAdd) != len(want) {
		t.Fatalf("TagsToAdd = %v, want %v", req.TagsToAdd, want)
	}
	for i, tag := range want {
		if req.TagsToAdd[i] != tag {
			t.Errorf("TagsToAdd[%d] = %v, want %v", i, req.TagsToAdd[i], tag)
		}
	}
}

func TestTagUpdateRequest_Validate(t *testing.T) {
	req := &TagUpdateRequest{TagsToAdd: []string{"one"}}
	if err := req.Validate(); !errors.Is(err, ErrNoSelection) {
		t.Errorf("Validate() = %v, want ErrNoSelection", err)
	}

	req = &TagUpdateRequest{
		AgentIDs:  []string{"agent1"},
		Kuery:     "status:online",
		TagsToAdd: []string{"one"},
	}
	if err := req.Validate(); !errors.Is(err, ErrBothSelection) {
		t.Errorf("Validate() = %v, want ErrBothSelection", err)
	}

	req = &TagUpdateRequest{AgentIDs: []string{"agent1"}}
	if err := req.Validate(); !errors.Is(err, ErrNoTagChanges) {
		t.Errorf("Validate() = %v, want ErrNoTagChanges", err)
	}

	req = &TagUpdateRequest{AgentIDs: []string{"agent1"}, TagsToAdd: []string{"one"}}
	if err := req.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestTagUpdateRequest_ByQuery(t *testing.T) {
	byIDs := &TagUpdateRequest{AgentIDs: []string{"agent1"}}
	byKuery := &TagUpdateRequest{Kuery: "status:online"}

	if byIDs.ByQuery() {
		t.Error("ByQuery() should be false for explicit IDs")
	}
	if !byKuery.ByQuery() {
		t.Error("ByQuery() should be true for a kuery selection")
	}
}
