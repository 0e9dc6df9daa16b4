package store

import (
	"testing"

	"whiteboard-backend/internal/model"
)

func TestChangeKindForCreateIsAdded(t *testing.T) {
	if got := changeKindFor(ModeCreate); got != model.ChangeAdded {
		t.Fatalf("expected ChangeAdded for ModeCreate, got %v", got)
	}
}

func TestChangeKindForMergeIsModified(t *testing.T) {
	if got := changeKindFor(ModeMerge); got != model.ChangeModified {
		t.Fatalf("expected ChangeModified for ModeMerge, got %v", got)
	}
}
