package board

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"whiteboard-backend/internal/model"
	"whiteboard-backend/internal/presence"
	"whiteboard-backend/internal/store"
)

// Subscriber is one client session's outbound queue. The board never
// writes to Conn directly; the handler layer owns the connection and
// drains Send.
type Subscriber struct {
	ID   string
	Send chan []byte
}

// ChangeMessage is the wire shape delivered to a board subscriber: the
// hub's per-object in-order delivery guarantee applies to the sequence of
// these messages for a given ObjectID.
type ChangeMessage struct {
	Kind   model.ChangeKind `json:"kind"`
	Object model.Object     `json:"object"`
}

type mutationRequest struct {
	boardID  string
	objectID string
	fields   map[string]any
	mode     store.PutMode
	del      bool
	result   chan mutationResult
}

type mutationResult struct {
	obj model.Object
	err error
}

// Board is the per-boardId actor: writes submitted through its
// CreateObject/UpdateObject/DeleteObject and change fan-out both happen
// on its run loop, so those writes are applied in arrival order within
// this process even under load. The REST and WebSocket handlers write
// through internal/mutation directly and are not serialized here.
type Board struct {
	ID    string
	hub   *Hub
	store *store.Store

	mu      sync.RWMutex
	objects map[string]model.Object

	subMu       sync.RWMutex
	subscribers map[string]*Subscriber

	mutate      chan mutationRequest
	storeEvents <-chan store.ChangeEvent
	cancelSub   func()

	reaper *presence.Reaper

	ctx    context.Context
	cancel context.CancelFunc

	evictTimer *time.Timer
	evictMu    sync.Mutex
}

func (b *Board) run() {
	log.Printf("[Board %s] run loop started", b.ID)
	defer log.Printf("[Board %s] run loop stopped", b.ID)

	for {
		select {
		case <-b.ctx.Done():
			return
		case req := <-b.mutate:
			b.applyMutation(req)
		case ev, ok := <-b.storeEvents:
			if !ok {
				return
			}
			b.handleChangeEvent(ev)
		}
	}
}

func (b *Board) applyMutation(req mutationRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if req.del {
		err := b.store.Delete(ctx, b.ID, req.objectID)
		req.result <- mutationResult{err: err}
		return
	}
	obj, err := b.store.Put(ctx, b.ID, req.objectID, req.fields, req.mode)
	if err != nil {
		req.result <- mutationResult{err: err}
		return
	}
	req.result <- mutationResult{obj: *obj}
}

func (b *Board) handleChangeEvent(ev store.ChangeEvent) {
	b.mu.Lock()
	var deletedID, deletedBy string
	deleted := false
	switch ev.Kind {
	case model.ChangeRemoved:
		if old, ok := b.objects[ev.Object.ID]; ok {
			deletedID, deletedBy = old.ID, old.LastEditedBy
			deleted = true
		}
		delete(b.objects, ev.Object.ID)
	default:
		b.objects[ev.Object.ID] = ev.Object
	}
	b.mu.Unlock()

	b.broadcast(ChangeMessage{Kind: ev.Kind, Object: ev.Object})

	if deleted {
		go b.cascadeDelete(deletedID, deletedBy)
	}
}

// cascadeDelete removes connectors whose endpoint is the just-deleted
// object id. Best-effort: a failure here is logged and left to the
// read-time hide (ListObjects filters dangling connectors regardless).
func (b *Board) cascadeDelete(deletedID, userID string) {
	b.mu.RLock()
	var toDelete []string
	for _, o := range b.objects {
		if o.Type != model.ObjectTypeConnector {
			continue
		}
		if (o.ConnectedFrom != nil && *o.ConnectedFrom == deletedID) ||
			(o.ConnectedTo != nil && *o.ConnectedTo == deletedID) {
			toDelete = append(toDelete, o.ID)
		}
	}
	b.mu.RUnlock()

	for _, id := range toDelete {
		if _, err := b.DeleteObject(context.Background(), userID, id); err != nil {
			log.Printf("[Board %s] cascade delete of connector %s failed: %v", b.ID, id, err)
		}
	}
}

func (b *Board) broadcast(msg ChangeMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[Board %s] failed to marshal change message: %v", b.ID, err)
		return
	}

	b.subMu.RLock()
	defer b.subMu.RUnlock()
	for _, sub := range b.subscribers {
		select {
		case sub.Send <- data:
		default:
			log.Printf("[Board %s] subscriber %s outbound queue full, dropping", b.ID, sub.ID)
		}
	}
}

// Subscribe registers a new subscriber and returns its queue plus the
// current object set (dangling connectors hidden, as in ListObjects) as
// the caller's "added" burst, exactly as a new subscription must observe
// the full snapshot before any deltas.
func (b *Board) Subscribe(id string) (*Subscriber, []model.Object) {
	b.cancelEviction()

	sub := &Subscriber{ID: id, Send: make(chan []byte, 256)}
	b.subMu.Lock()
	b.subscribers[id] = sub
	b.subMu.Unlock()

	b.mu.RLock()
	snapshot := make([]model.Object, 0, len(b.objects))
	for _, o := range b.objects {
		if o.Type == model.ObjectTypeConnector && b.hasDanglingEndpoint(o) {
			continue
		}
		snapshot = append(snapshot, o)
	}
	b.mu.RUnlock()

	return sub, snapshot
}

// Unsubscribe removes a subscriber. If it was the last one, the board is
// scheduled for eviction after IdleGrace rather than torn down
// immediately.
func (b *Board) Unsubscribe(id string) {
	b.subMu.Lock()
	if sub, ok := b.subscribers[id]; ok {
		close(sub.Send)
		delete(b.subscribers, id)
	}
	remaining := len(b.subscribers)
	b.subMu.Unlock()

	if remaining == 0 {
		b.scheduleEviction()
	}
}

func (b *Board) scheduleEviction() {
	b.evictMu.Lock()
	defer b.evictMu.Unlock()
	b.evictTimer = time.AfterFunc(IdleGrace, func() {
		b.hub.evict(b.ID)
	})
}

func (b *Board) cancelEviction() {
	b.evictMu.Lock()
	defer b.evictMu.Unlock()
	if b.evictTimer != nil {
		b.evictTimer.Stop()
		b.evictTimer = nil
	}
}

func (b *Board) shutdown() {
	b.cancel()
	b.cancelSub()

	b.subMu.Lock()
	for id, sub := range b.subscribers {
		close(sub.Send)
		delete(b.subscribers, id)
	}
	b.subMu.Unlock()
}

// ListObjects returns the board's current object set with dangling
// connectors hidden, per the invariant that a connector referring to a
// missing endpoint is never rendered.
func (b *Board) ListObjects() []model.Object {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]model.Object, 0, len(b.objects))
	for _, o := range b.objects {
		if o.Type == model.ObjectTypeConnector && b.hasDanglingEndpoint(o) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func (b *Board) hasDanglingEndpoint(o model.Object) bool {
	if o.ConnectedFrom != nil {
		if _, ok := b.objects[*o.ConnectedFrom]; !ok {
			return true
		}
	}
	if o.ConnectedTo != nil {
		if _, ok := b.objects[*o.ConnectedTo]; !ok {
			return true
		}
	}
	return false
}

// Snapshot returns a defensive copy of the in-memory object map. The
// agent executor does not use it; it works from the boardState the
// caller sends with the request.
func (b *Board) Snapshot() map[string]model.Object {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]model.Object, len(b.objects))
	for k, v := range b.objects {
		out[k] = v
	}
	return out
}

// CreateObject enqueues a create write and blocks for its result,
// serialized through this board's run loop.
func (b *Board) CreateObject(ctx context.Context, objectID string, fields map[string]any) (model.Object, error) {
	return b.enqueue(ctx, mutationRequest{boardID: b.ID, objectID: objectID, fields: fields, mode: store.ModeCreate})
}

// UpdateObject enqueues a merge write. Per §4.6, this must succeed even
// if the object is missing (it creates a skeleton).
func (b *Board) UpdateObject(ctx context.Context, objectID string, fields map[string]any) (model.Object, error) {
	return b.enqueue(ctx, mutationRequest{boardID: b.ID, objectID: objectID, fields: fields, mode: store.ModeMerge})
}

// DeleteObject enqueues an idempotent delete.
func (b *Board) DeleteObject(ctx context.Context, userID, objectID string) (model.Object, error) {
	return b.enqueue(ctx, mutationRequest{boardID: b.ID, objectID: objectID, del: true})
}

func (b *Board) enqueue(ctx context.Context, req mutationRequest) (model.Object, error) {
	req.result = make(chan mutationResult, 1)
	select {
	case b.mutate <- req:
	case <-ctx.Done():
		return model.Object{}, ctx.Err()
	case <-b.ctx.Done():
		return model.Object{}, fmt.Errorf("board %s: shut down", b.ID)
	}

	select {
	case res := <-req.result:
		return res.obj, res.err
	case <-ctx.Done():
		return model.Object{}, ctx.Err()
	}
}
