package agent

import (
	"encoding/json"
	"strings"
	"testing"

	"whiteboard-backend/internal/model"
)

func newTestExecutor() *Executor {
	return &Executor{pad: Padding{Side: 30, Top: 70, Bottom: 30}}
}

func TestCreateStickyNoteAssignsIDAndTracksKnown(t *testing.T) {
	e := newTestExecutor()
	state := newRunState(nil)

	result, id := e.create(state, "user1", "createStickyNote", map[string]any{"x": 10.0, "y": 20.0, "text": "hi"})
	if id == "" {
		t.Fatalf("expected an assigned id, got result %q", result)
	}
	if !state.known[id] {
		t.Fatalf("expected new id to be tracked in the known-id set")
	}
	if len(state.writes) != 1 {
		t.Fatalf("expected one pending write, got %d", len(state.writes))
	}
	if state.objects[id].Type != model.ObjectTypeSticky {
		t.Fatalf("expected sticky object type, got %s", state.objects[id].Type)
	}
}

func TestCreateRejectsIncompatibleField(t *testing.T) {
	e := newTestExecutor()
	state := newRunState(nil)

	result, id := e.create(state, "user1", "createShape", map[string]any{"type": "rectangle", "x": 0.0, "y": 0.0, "radius": 5.0})
	if id != "" {
		t.Fatalf("expected no id assigned for a validation failure")
	}
	if !strings.HasPrefix(result, "error:") {
		t.Fatalf("expected an error result, got %q", result)
	}
}

func TestUpdateObjectRejectsUnknownID(t *testing.T) {
	e := newTestExecutor()
	state := newRunState(nil)

	result, id := e.update(state, "user1", map[string]any{"id": "ghost", "x": 1.0, "y": 1.0}, "id", []string{"x", "y"})
	if id != "" {
		t.Fatalf("expected no committed id for an unknown reference")
	}
	if !strings.Contains(result, "unknown id") {
		t.Fatalf("expected unknown-id error text, got %q", result)
	}
	if len(state.writes) != 0 {
		t.Fatalf("unknown-id update must not be committed, got %d writes", len(state.writes))
	}
}

func TestUpdateObjectAppliesKnownReference(t *testing.T) {
	e := newTestExecutor()
	state := newRunState([]model.Object{{ID: "obj1", Type: model.ObjectTypeRectangle, X: 0, Y: 0}})

	result, id := e.update(state, "user1", map[string]any{"id": "obj1", "x": 5.0, "y": 6.0}, "id", []string{"x", "y"})
	if id != "obj1" {
		t.Fatalf("expected committed id obj1, got %q (%s)", id, result)
	}
	if state.objects["obj1"].X != 5 || state.objects["obj1"].Y != 6 {
		t.Fatalf("expected position to update, got %+v", state.objects["obj1"])
	}
}

func TestCreateConnectorRequiresBothEndpointsKnown(t *testing.T) {
	e := newTestExecutor()
	state := newRunState([]model.Object{{ID: "a", Type: model.ObjectTypeRectangle}})

	result, id := e.createConnector(state, "user1", map[string]any{"fromId": "a", "toId": "ghost"})
	if id != "" {
		t.Fatalf("expected no committed connector when an endpoint is unknown, got %q", result)
	}
}

func TestDeleteObjectRemovesFromKnownSet(t *testing.T) {
	e := newTestExecutor()
	state := newRunState([]model.Object{{ID: "obj1", Type: model.ObjectTypeRectangle}})

	_, id := e.deleteObject(state, map[string]any{"id": "obj1"})
	if id != "obj1" {
		t.Fatalf("expected obj1 to be deleted")
	}
	if state.known["obj1"] {
		t.Fatalf("expected obj1 to be removed from the known-id set")
	}
	if _, exists := state.objects["obj1"]; exists {
		t.Fatalf("expected obj1 to be removed from the in-memory object map")
	}
}

func TestProcessToolCallRejectsUnknownTool(t *testing.T) {
	e := newTestExecutor()
	state := newRunState(nil)

	input, _ := json.Marshal(map[string]any{})
	result, id := e.processToolCall(state, "user1", "flyToTheMoon", input)
	if id != "" || !strings.Contains(result, "unknown tool") {
		t.Fatalf("expected unknown-tool error, got %q", result)
	}
}
