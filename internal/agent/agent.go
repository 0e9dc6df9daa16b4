// Package agent implements the LLM tool-calling loop that turns a
// natural-language board command into an atomic batch of writes (C7).
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"whiteboard-backend/internal/clock"
	"whiteboard-backend/internal/llm"
	"whiteboard-backend/internal/model"
	"whiteboard-backend/internal/mutation"
	"whiteboard-backend/internal/observability"
	"whiteboard-backend/internal/store"
)

const systemPrompt = `You are a diagramming assistant for a collaborative whiteboard. You act on a
single board by calling the tools available to you; you never respond with
free text describing what you would do instead of doing it. Object ids you
did not create or were not told about do not exist — calling a tool with an
unknown id fails harmlessly and the failure is reported back to you so you
can try something else. Prefer a small number of tool calls per turn only
when there is genuinely little to do; otherwise batch as many tool calls
into one response as the command requires.`

// Action is one committed (or attempted) tool call, returned to the
// caller as the agent's action log.
type Action struct {
	Tool     string          `json:"tool"`
	Input    json.RawMessage `json:"input"`
	ObjectID string          `json:"objectId,omitempty"`
}

// Result is the outcome of one agent invocation.
type Result struct {
	Actions []Action `json:"actions"`
	Summary string   `json:"summary"`
}

// Executor runs the bounded turn loop and commits the resulting batch.
type Executor struct {
	llm            *llm.Client
	store          *store.Store
	tracer         *observability.Provider
	maxTurns       int
	perTurnTimeout time.Duration
	pad            Padding
}

func NewExecutor(llmClient *llm.Client, s *store.Store, tracer *observability.Provider, maxTurns int, perTurnTimeout time.Duration, pad Padding) *Executor {
	return &Executor{
		llm:            llmClient,
		store:          s,
		tracer:         tracer,
		maxTurns:       maxTurns,
		perTurnTimeout: perTurnTimeout,
		pad:            pad,
	}
}

type runState struct {
	objects map[string]model.Object
	known   map[string]bool
	writes  []store.Write
	actions []Action
}

func newRunState(boardState []model.Object) *runState {
	s := &runState{
		objects: make(map[string]model.Object, len(boardState)),
		known:   make(map[string]bool, len(boardState)),
	}
	for _, o := range boardState {
		s.objects[o.ID] = o
		s.known[o.ID] = true
	}
	return s
}

// Run executes the turn loop for a single command against boardState,
// the snapshot the caller read at request time, and commits the
// resulting plan as one atomic batch.
func (e *Executor) Run(ctx context.Context, boardID, userID, command string, boardState []model.Object) (*Result, error) {
	state := newRunState(boardState)
	tools := toolDefs()

	messages := []llm.Message{
		{Role: "user", Content: []llm.ContentBlock{{Type: "text", Text: boardSnapshotSummary(boardState) + "\n\nCommand: " + command}}},
	}

	partial := false

turnLoop:
	for turn := 0; turn < e.maxTurns; turn++ {
		turnCtx, cancel := context.WithTimeout(ctx, e.perTurnTimeout)
		spanCtx, span := e.tracer.StartAgentTurn(turnCtx, boardID, turn)

		resp, err := e.llm.CreateMessage(spanCtx, systemPrompt, messages, tools)
		if err != nil {
			span.End()
			cancel()
			if len(state.writes) > 0 {
				partial = true
				break turnLoop
			}
			return nil, fmt.Errorf("agent: turn %d: %w", turn, err)
		}
		observability.RecordTokenUsage(span, resp.Usage.InputTokens, resp.Usage.OutputTokens)
		span.End()
		cancel()

		toolCalls := filterToolUse(resp.Content)

		if len(toolCalls) == 0 {
			if turn == 0 {
				messages = append(messages,
					assistantMessage(resp.Content),
					nudgeMessage("You must call at least one tool to make progress on the command."),
				)
				continue
			}
			break turnLoop
		}

		toolResults := make([]llm.ContentBlock, 0, len(toolCalls))
		for _, tc := range toolCalls {
			resultText, objectID := e.processToolCall(state, userID, tc.Name, tc.Input)
			state.actions = append(state.actions, Action{Tool: tc.Name, Input: tc.Input, ObjectID: objectID})
			toolResults = append(toolResults, llm.ContentBlock{
				Type:      "tool_result",
				ToolUseID: tc.ID,
				Content:   resultText,
			})
		}

		messages = append(messages, assistantMessage(resp.Content), llm.Message{Role: "user", Content: toolResults})

		if resp.StopReason != llm.StopReasonToolUse {
			break turnLoop
		}
		if len(toolCalls) == 1 {
			messages = append(messages, nudgeMessage("If there is more to do, issue all remaining tool calls in your next response."))
		}
	}

	for _, id := range AutoFit(state.objects, e.pad) {
		f := state.objects[id]
		state.writes = append(state.writes, store.Write{
			Mode:     store.ModeMerge,
			ObjectID: id,
			Fields: map[string]any{
				"x": f.X, "y": f.Y, "width": f.Width, "height": f.Height,
				"lastEditedBy": userID,
			},
		})
	}

	if len(state.writes) == 0 {
		return &Result{Actions: state.actions, Summary: "no changes were made"}, nil
	}

	if _, err := e.store.Batch(ctx, boardID, state.writes); err != nil {
		return nil, fmt.Errorf("agent: commit: %w", err)
	}

	summary := fmt.Sprintf("completed %d action(s)", len(state.actions))
	if partial {
		summary = fmt.Sprintf("partially completed: %d action(s) attempted before a turn failed or timed out", len(state.actions))
	}
	return &Result{Actions: state.actions, Summary: summary}, nil
}

// processToolCall applies one tool call to the in-memory plan,
// enforcing the known-id guard for every tool that references an
// existing object. It returns the tool_result text and, for creates,
// the newly assigned id.
func (e *Executor) processToolCall(state *runState, userID, tool string, rawInput json.RawMessage) (string, string) {
	var input map[string]any
	if err := decodeInput(rawInput, &input); err != nil {
		return fmt.Sprintf("error: malformed input: %v", err), ""
	}

	switch tool {
	case "createStickyNote", "createText", "createShape", "createFrame":
		return e.create(state, userID, tool, input)
	case "createConnector":
		return e.createConnector(state, userID, input)
	case "moveObject":
		return e.update(state, userID, input, "id", []string{"x", "y"})
	case "resizeObject":
		return e.update(state, userID, input, "id", []string{"width", "height"})
	case "updateText":
		return e.update(state, userID, input, "id", []string{"text"})
	case "changeColor":
		return e.update(state, userID, input, "id", []string{"color"})
	case "updateConnectorStyle":
		return e.update(state, userID, input, "objectId", []string{"lineStyle", "arrowHead"})
	case "deleteObject":
		return e.deleteObject(state, input)
	case "getBoardState":
		return boardSnapshotSummary(snapshotSlice(state.objects)), ""
	default:
		return fmt.Sprintf("error: unknown tool %q", tool), ""
	}
}

func (e *Executor) create(state *runState, userID, tool string, input map[string]any) (string, string) {
	ot := objectTypeOfTool(tool, input)
	if !ot.Valid() {
		return "error: unknown or missing object type", ""
	}
	fields := make(map[string]any, len(input)+2)
	for k, v := range input {
		fields[k] = v
	}
	fields["type"] = string(ot)

	if err := mutation.ValidateCreate(fields); err != nil {
		return fmt.Sprintf("error: %v", err), ""
	}

	id := clock.NewObjectID()
	fields["id"] = id
	fields["lastEditedBy"] = userID
	fields["updatedAt"] = clock.Now()

	obj, err := mutation.DecodeObject(state.objects, id, fields)
	if err != nil {
		return fmt.Sprintf("error: %v", err), ""
	}
	state.objects[id] = *obj
	state.known[id] = true
	state.writes = append(state.writes, store.Write{Mode: store.ModeCreate, ObjectID: id, Fields: fields})
	return fmt.Sprintf("created %s with id %s", ot, id), id
}

func (e *Executor) createConnector(state *runState, userID string, input map[string]any) (string, string) {
	fromID, _ := stringField(input, "fromId")
	toID, _ := stringField(input, "toId")
	if fromID == "" || toID == "" {
		return "error: fromId and toId are required", ""
	}
	if !state.known[fromID] {
		return fmt.Sprintf("error: unknown id: %s", fromID), ""
	}
	if !state.known[toID] {
		return fmt.Sprintf("error: unknown id: %s", toID), ""
	}

	fields := map[string]any{
		"type":          string(model.ObjectTypeConnector),
		"connectedFrom": fromID,
		"connectedTo":   toID,
	}
	if v, ok := input["lineStyle"]; ok {
		fields["lineStyle"] = v
	}
	if v, ok := input["arrowHead"]; ok {
		fields["arrowHead"] = v
	}

	id := clock.NewObjectID()
	fields["id"] = id
	fields["lastEditedBy"] = userID
	fields["updatedAt"] = clock.Now()

	obj, err := mutation.DecodeObject(state.objects, id, fields)
	if err != nil {
		return fmt.Sprintf("error: %v", err), ""
	}
	state.objects[id] = *obj
	state.known[id] = true
	state.writes = append(state.writes, store.Write{Mode: store.ModeCreate, ObjectID: id, Fields: fields})
	return fmt.Sprintf("created connector with id %s", id), id
}

// update applies a partial merge to an existing, known object. idKey
// names the input field carrying the target id; allowedFields lists
// which input keys are copied into the write.
func (e *Executor) update(state *runState, userID string, input map[string]any, idKey string, allowedFields []string) (string, string) {
	id, _ := stringField(input, idKey)
	if id == "" {
		return fmt.Sprintf("error: %s is required", idKey), ""
	}
	if !state.known[id] {
		return fmt.Sprintf("error: unknown id: %s", id), ""
	}

	fields := map[string]any{}
	for _, f := range allowedFields {
		if v, ok := input[f]; ok {
			fields[f] = v
		}
	}
	if len(fields) == 0 {
		return "error: no recognized fields to update", ""
	}
	if err := mutation.ValidatePartial(fields); err != nil {
		return fmt.Sprintf("error: %v", err), ""
	}

	fields["lastEditedBy"] = userID
	fields["updatedAt"] = clock.Now()

	merged, err := mutation.DecodeObject(state.objects, id, fields)
	if err != nil {
		return fmt.Sprintf("error: %v", err), ""
	}
	state.objects[id] = *merged
	state.writes = append(state.writes, store.Write{Mode: store.ModeMerge, ObjectID: id, Fields: fields})
	return fmt.Sprintf("updated %s", id), id
}

func (e *Executor) deleteObject(state *runState, input map[string]any) (string, string) {
	id, _ := stringField(input, "id")
	if id == "" {
		return "error: id is required", ""
	}
	if !state.known[id] {
		return fmt.Sprintf("error: unknown id: %s", id), ""
	}
	delete(state.objects, id)
	delete(state.known, id)
	state.writes = append(state.writes, store.Write{Delete: true, ObjectID: id})
	return fmt.Sprintf("deleted %s", id), id
}

func filterToolUse(blocks []llm.ContentBlock) []llm.ContentBlock {
	var calls []llm.ContentBlock
	for _, b := range blocks {
		if b.Type == "tool_use" {
			calls = append(calls, b)
		}
	}
	return calls
}

func assistantMessage(content []llm.ContentBlock) llm.Message {
	return llm.Message{Role: "assistant", Content: content}
}

func nudgeMessage(text string) llm.Message {
	return llm.Message{Role: "user", Content: []llm.ContentBlock{{Type: "text", Text: text}}}
}

func boardSnapshotSummary(objects []model.Object) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Board has %d object(s):\n", len(objects))
	for _, o := range objects {
		fmt.Fprintf(&b, "- id=%s type=%s x=%.0f y=%.0f w=%.0f h=%.0f", o.ID, o.Type, o.X, o.Y, o.Width, o.Height)
		if o.Text != nil {
			fmt.Fprintf(&b, " text=%q", *o.Text)
		}
		if o.ConnectedFrom != nil && o.ConnectedTo != nil {
			fmt.Fprintf(&b, " from=%s to=%s", *o.ConnectedFrom, *o.ConnectedTo)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func snapshotSlice(objects map[string]model.Object) []model.Object {
	out := make([]model.Object, 0, len(objects))
	for _, o := range objects {
		out = append(out, o)
	}
	return out
}
