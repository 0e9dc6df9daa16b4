package board

import (
	"testing"

	"whiteboard-backend/internal/model"
)

func newTestBoard(objects map[string]model.Object) *Board {
	return &Board{
		ID:          "board1",
		objects:     objects,
		subscribers: make(map[string]*Subscriber),
	}
}

func TestListObjectsHidesDanglingConnector(t *testing.T) {
	from := "a"
	to := "missing"
	b := newTestBoard(map[string]model.Object{
		"a": {ID: "a", BoardID: "board1", Type: model.ObjectTypeSticky},
		"c": {ID: "c", BoardID: "board1", Type: model.ObjectTypeConnector, ConnectedFrom: &from, ConnectedTo: &to},
	})

	got := b.ListObjects()
	for _, o := range got {
		if o.ID == "c" {
			t.Fatalf("expected dangling connector to be hidden, got %+v", got)
		}
	}
}

func TestListObjectsKeepsValidConnector(t *testing.T) {
	from := "a"
	to := "b"
	b := newTestBoard(map[string]model.Object{
		"a": {ID: "a", BoardID: "board1", Type: model.ObjectTypeSticky},
		"b": {ID: "b", BoardID: "board1", Type: model.ObjectTypeSticky},
		"c": {ID: "c", BoardID: "board1", Type: model.ObjectTypeConnector, ConnectedFrom: &from, ConnectedTo: &to},
	})

	found := false
	for _, o := range b.ListObjects() {
		if o.ID == "c" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected valid connector to survive filtering")
	}
}

func TestSnapshotIsDefensiveCopy(t *testing.T) {
	b := newTestBoard(map[string]model.Object{
		"a": {ID: "a", BoardID: "board1", Type: model.ObjectTypeSticky, X: 1},
	})
	snap := b.Snapshot()
	snap["a"] = model.Object{ID: "a", X: 999}

	if b.objects["a"].X != 1 {
		t.Fatalf("expected board's internal map to be unaffected by mutation of snapshot copy")
	}
}
