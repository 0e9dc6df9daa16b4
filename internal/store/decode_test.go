package store

import "testing"

func TestMapToObjectDecodesKnownFields(t *testing.T) {
	fields := map[string]any{
		"id":      "obj1",
		"boardId": "board1",
		"type":    "sticky",
		"x":       100.0,
		"y":       200.0,
		"color":   "#ff0000",
	}
	obj, err := mapToObject(fields)
	if err != nil {
		t.Fatalf("mapToObject: %v", err)
	}
	if obj.ID != "obj1" || obj.BoardID != "board1" {
		t.Fatalf("unexpected id/board: %+v", obj)
	}
	if obj.X != 100 || obj.Y != 200 {
		t.Fatalf("unexpected coords: %+v", obj)
	}
}

func TestUpdatableColumnsOnlyIncludesSuppliedFields(t *testing.T) {
	cols := updatableColumns(map[string]any{"color": "#000000", "updatedAt": "ignored-value-shape"})
	if len(cols) != 2 {
		t.Fatalf("expected 2 columns, got %v", cols)
	}
	seen := map[string]bool{}
	for _, c := range cols {
		seen[c] = true
	}
	if !seen["color"] || !seen["updated_at"] {
		t.Fatalf("expected color and updated_at columns, got %v", cols)
	}
}

func TestUpdatableColumnsIgnoresUnknownKeys(t *testing.T) {
	cols := updatableColumns(map[string]any{"id": "x", "boardId": "y", "bogus": 1})
	if len(cols) != 0 {
		t.Fatalf("expected no updatable columns for key-only fields, got %v", cols)
	}
}
