// Package store is the durable key/value layer for boards, their objects,
// and batched atomic writes, backed by Postgres via GORM. It also runs the
// in-process change bus that board hubs subscribe to.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"whiteboard-backend/internal/clock"
	"whiteboard-backend/internal/model"
)

// ErrNotFound is returned by reads that find nothing.
var ErrNotFound = errors.New("store: not found")

// PutMode selects create-or-fail vs. merge (upsert) semantics.
type PutMode int

const (
	// ModeCreate writes a brand-new object; it fails if one with the
	// same id already exists on the board.
	ModeCreate PutMode = iota
	// ModeMerge upserts: it succeeds whether or not the document
	// previously existed. This is the mechanism that makes the agent
	// robust to fabricated ids landing in a merge write.
	ModeMerge
)

// Write is one entry of a Batch: a put in the given Mode, or a delete
// when Delete is set.
type Write struct {
	Mode     PutMode
	Delete   bool
	ObjectID string
	Fields   map[string]any
}

// ChangeEvent is delivered to board-hub subscribers for every applied
// write, including the synthetic "added" burst sent to a brand-new
// subscriber as its first delivery.
type ChangeEvent struct {
	Kind   model.ChangeKind
	Object model.Object
}

// Store is the process-wide store client; like the observability client
// it is a singleton over the lifetime of the server.
type Store struct {
	db *gorm.DB

	mu   sync.Mutex
	subs map[string][]chan ChangeEvent
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, subs: make(map[string][]chan ChangeEvent)}
}

// Subscribe registers a channel that receives every change event for the
// given board from this point forward. The returned snapshot is the
// caller's "added" burst for documents that already exist; callers
// typically synthesize ChangeAdded events from it before reading off the
// channel. Callers must invoke the returned cancel func when done.
func (s *Store) Subscribe(boardID string) (ch <-chan ChangeEvent, snapshot []model.Object, cancel func(), err error) {
	snapshot, err = s.ReadServer(context.Background(), boardID)
	if err != nil {
		return nil, nil, nil, err
	}

	c := make(chan ChangeEvent, 256)
	s.mu.Lock()
	s.subs[boardID] = append(s.subs[boardID], c)
	s.mu.Unlock()

	cancel = func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		list := s.subs[boardID]
		for i, existing := range list {
			if existing == c {
				s.subs[boardID] = append(list[:i], list[i+1:]...)
				close(c)
				break
			}
		}
	}
	return c, snapshot, cancel, nil
}

func (s *Store) publish(boardID string, ev ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.subs[boardID] {
		select {
		case c <- ev:
		default:
			// Slow subscriber; the hub re-derives state from the next
			// ReadServer on reconnect. We never block a writer on a
			// stalled fan-out.
		}
	}
}

// ReadServer bypasses any local cache and returns the authoritative
// object set for a board.
func (s *Store) ReadServer(ctx context.Context, boardID string) ([]model.Object, error) {
	var objects []model.Object
	if err := s.db.WithContext(ctx).Where("board_id = ?", boardID).Find(&objects).Error; err != nil {
		return nil, fmt.Errorf("store: read board %s: %w", boardID, err)
	}
	return objects, nil
}

// Put writes a single object. In ModeMerge it succeeds whether or not the
// object previously existed, stamping UpdatedAt = clock.Now() on every
// write regardless of mode.
func (s *Store) Put(ctx context.Context, boardID, objectID string, fields map[string]any, mode PutMode) (*model.Object, error) {
	obj, err := s.applyPut(s.db.WithContext(ctx), boardID, objectID, fields, mode)
	if err != nil {
		return nil, err
	}
	s.publish(boardID, ChangeEvent{Kind: changeKindFor(mode), Object: *obj})
	return obj, nil
}

// changeKindFor reports the change kind a write's fan-out event should
// carry: a brand-new object is "added", a merge is "modified".
func changeKindFor(mode PutMode) model.ChangeKind {
	if mode == ModeCreate {
		return model.ChangeAdded
	}
	return model.ChangeModified
}

func (s *Store) applyPut(tx *gorm.DB, boardID, objectID string, fields map[string]any, mode PutMode) (*model.Object, error) {
	fields = cloneFields(fields)
	fields["id"] = objectID
	fields["boardId"] = boardID
	fields["updatedAt"] = clock.Now()

	obj, err := mapToObject(fields)
	if err != nil {
		return nil, fmt.Errorf("store: decode write for %s: %w", objectID, err)
	}

	switch mode {
	case ModeCreate:
		if err := tx.Create(obj).Error; err != nil {
			return nil, retryableWriteError(err)
		}
	case ModeMerge:
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}, {Name: "board_id"}},
			DoUpdates: clause.AssignmentColumns(updatableColumns(fields)),
		}).Create(obj).Error; err != nil {
			return nil, retryableWriteError(err)
		}
	}
	return obj, nil
}

// Delete idempotently removes an object. Deleting an already-absent
// object is not an error.
func (s *Store) Delete(ctx context.Context, boardID, objectID string) error {
	if err := s.db.WithContext(ctx).
		Where("board_id = ? AND id = ?", boardID, objectID).
		Delete(&model.Object{}).Error; err != nil {
		return retryableWriteError(err)
	}
	s.publish(boardID, ChangeEvent{Kind: model.ChangeRemoved, Object: model.Object{ID: objectID, BoardID: boardID}})
	return nil
}

// Batch applies every write atomically: either all land or none do. A
// single delivery burst carries all contained changes.
func (s *Store) Batch(ctx context.Context, boardID string, writes []Write) ([]ChangeEvent, error) {
	var events []ChangeEvent
	err := withRetry(func() error {
		events = nil
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			for _, w := range writes {
				if w.Delete {
					if err := tx.Where("board_id = ? AND id = ?", boardID, w.ObjectID).
						Delete(&model.Object{}).Error; err != nil {
						return err
					}
					events = append(events, ChangeEvent{Kind: model.ChangeRemoved, Object: model.Object{ID: w.ObjectID, BoardID: boardID}})
					continue
				}
				obj, err := s.applyPutTx(tx, boardID, w.ObjectID, w.Fields, w.Mode)
				if err != nil {
					return err
				}
				events = append(events, ChangeEvent{Kind: changeKindFor(w.Mode), Object: *obj})
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: batch on board %s: %w", boardID, err)
	}
	for _, ev := range events {
		s.publish(boardID, ev)
	}
	return events, nil
}

func (s *Store) applyPutTx(tx *gorm.DB, boardID, objectID string, fields map[string]any, mode PutMode) (*model.Object, error) {
	return s.applyPut(tx, boardID, objectID, fields, mode)
}

// CreateBoard creates a new board. Board ids are server-minted by the
// caller (clock.NewBoardID).
func (s *Store) CreateBoard(ctx context.Context, id, name, createdBy string) (*model.Board, error) {
	b := &model.Board{ID: id, Name: name, CreatedBy: createdBy, CreatedAt: clock.Now()}
	if err := s.db.WithContext(ctx).Create(b).Error; err != nil {
		return nil, fmt.Errorf("store: create board: %w", err)
	}
	return b, nil
}

// GetBoard returns a board's metadata.
func (s *Store) GetBoard(ctx context.Context, id string) (*model.Board, error) {
	var b model.Board
	if err := s.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get board %s: %w", id, err)
	}
	return &b, nil
}

// DeleteBoard destroys a board, cascading its objects. Presence is
// ephemeral and lives in Redis, not here; internal/presence.Manager
// handles its own teardown.
func (s *Store) DeleteBoard(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("board_id = ?", id).Delete(&model.Object{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Board{}, "id = ?", id).Error
	})
}

func cloneFields(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}

// fieldColumn maps the mutation layer's camelCase field names (matching
// model.Object's json tags) to their DB column names, so a partial merge
// only touches the columns the caller actually supplied — an upsert must
// never zero out fields it wasn't asked to change.
var fieldColumn = map[string]string{
	"type":          "type",
	"x":             "x",
	"y":             "y",
	"width":         "width",
	"height":        "height",
	"rotation":      "rotation",
	"color":         "color",
	"zIndex":        "z_index",
	"text":          "text",
	"fontSize":      "font_size",
	"radius":        "radius",
	"points":        "points",
	"connectedFrom": "connected_from",
	"connectedTo":   "connected_to",
	"lineStyle":     "line_style",
	"arrowHead":     "arrow_head",
	"lastEditedBy":  "last_edited_by",
	"updatedAt":     "updated_at",
}

func updatableColumns(fields map[string]any) []string {
	cols := make([]string, 0, len(fields))
	for k := range fields {
		if col, ok := fieldColumn[k]; ok {
			cols = append(cols, col)
		}
	}
	return cols
}

// retryableWriteError is a placeholder classification point: today every
// GORM error surfaces as-is, but store callers use errors.Is/As against
// sentinels here rather than driver-specific codes, so a future retry
// policy change has one place to live.
func retryableWriteError(err error) error {
	return err
}

// withRetry applies a small bounded exponential backoff for transient
// Postgres faults (connection resets, serialization failures under
// concurrent batches). Only Batch runs its transaction through it; Put
// and Delete make a single attempt and return any error to the caller.
func withRetry(fn func() error) error {
	const attempts = 3
	var err error
	backoff := 20 * time.Millisecond
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if !isTransient(err) {
			return err
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	return err
}

func isTransient(err error) bool {
	// GORM wraps driver errors; without a live Postgres connection to
	// classify by SQLSTATE we retry everything that isn't a known
	// permanent condition. Record-not-found and validation errors are
	// returned before withRetry is ever consulted.
	return !errors.Is(err, gorm.ErrRecordNotFound)
}
