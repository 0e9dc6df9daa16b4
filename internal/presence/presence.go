// Package presence tracks ephemeral per-board-per-user cursor and
// online state in Redis, with throttled write admission and a staleness
// reaper distinct from the physical Redis TTL.
package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"whiteboard-backend/internal/clock"
)

const (
	// StoreTTL is how long Redis physically keeps an entry with no
	// refresh — the spec's STALE_STORE bound.
	StoreTTL = 60 * time.Second
	// Stale is the UI-facing staleness bound; the reaper announces an
	// entry as gone at this age even though Redis won't expire it for
	// another StoreTTL-Stale seconds.
	Stale = 30 * time.Second
	// ThrottleWindow admits at most one write per (boardId, userId)
	// pair within this window.
	ThrottleWindow = 60 * time.Millisecond
	// KeepaliveInterval is the cadence a client-side keepalive tick
	// refreshes LastSeen at, independent of cursor movement.
	KeepaliveInterval = 20 * time.Second
	// ReapInterval bounds how often the per-board reaper scans.
	ReapInterval = 10 * time.Second
)

// Cursor is a world-space pointer position.
type Cursor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Entry is one user's presence on one board.
type Entry struct {
	BoardID     string    `json:"boardId"`
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Cursor      Cursor    `json:"cursor"`
	CursorColor string    `json:"cursorColor"`
	LastSeen    time.Time `json:"lastSeen"`
}

func (e Entry) stale(now time.Time) bool {
	return now.Sub(e.LastSeen) > Stale
}

// Manager is the process-wide presence client.
type Manager struct {
	client *redis.Client

	throttleMu sync.Mutex
	lastWrite  map[string]time.Time
}

func NewManager(client *redis.Client) *Manager {
	return &Manager{client: client, lastWrite: make(map[string]time.Time)}
}

func key(boardID, userID string) string {
	return fmt.Sprintf("presence:board:%s:user:%s", boardID, userID)
}

func channel(boardID string) string {
	return "presence:board:" + boardID + ":changes"
}

// Write admits a cursor update, throttled to one write per ThrottleWindow
// per (boardId, userId). An update that arrives inside the window of an
// already-admitted write is dropped without being stored or published;
// Write reports the drop by returning false with a nil error.
func (m *Manager) Write(ctx context.Context, boardID, userID, displayName string, cursor Cursor) (bool, error) {
	k := boardID + ":" + userID
	now := clock.Now()

	m.throttleMu.Lock()
	if last, ok := m.lastWrite[k]; ok && now.Sub(last) < ThrottleWindow {
		m.throttleMu.Unlock()
		return false, nil
	}
	m.lastWrite[k] = now
	m.throttleMu.Unlock()

	entry := Entry{
		BoardID:     boardID,
		UserID:      userID,
		DisplayName: displayName,
		Cursor:      cursor,
		CursorColor: CursorColorFor(userID),
		LastSeen:    now,
	}
	if err := m.set(ctx, entry); err != nil {
		return false, err
	}
	m.publish(ctx, entry)
	return true, nil
}

// Keepalive refreshes LastSeen and TTL without requiring a cursor value,
// independent of any throttling — a client heartbeat every ≤20s must
// always land.
func (m *Manager) Keepalive(ctx context.Context, boardID, userID string) error {
	existing, err := m.Get(ctx, boardID, userID)
	if err != nil {
		return err
	}
	existing.LastSeen = clock.Now()
	if err := m.set(ctx, *existing); err != nil {
		return err
	}
	m.publish(ctx, *existing)
	return nil
}

func (m *Manager) set(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("presence: marshal entry: %w", err)
	}
	if err := m.client.Set(ctx, key(e.BoardID, e.UserID), data, StoreTTL).Err(); err != nil {
		return fmt.Errorf("presence: write %s/%s: %w", e.BoardID, e.UserID, err)
	}
	return nil
}

// Get returns a user's presence entry.
func (m *Manager) Get(ctx context.Context, boardID, userID string) (*Entry, error) {
	data, err := m.client.Get(ctx, key(boardID, userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("presence: %s/%s not found", boardID, userID)
		}
		return nil, fmt.Errorf("presence: get %s/%s: %w", boardID, userID, err)
	}
	var e Entry
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return nil, fmt.Errorf("presence: decode %s/%s: %w", boardID, userID, err)
	}
	return &e, nil
}

// Remove explicitly deletes a presence entry on session teardown. If this
// fails (network blip on page unload), the reaper still announces the
// entry as removed once it is stale and Redis expires it after StoreTTL.
func (m *Manager) Remove(ctx context.Context, boardID, userID string) error {
	if err := m.client.Del(ctx, key(boardID, userID)).Err(); err != nil {
		return fmt.Errorf("presence: remove %s/%s: %w", boardID, userID, err)
	}
	m.publishRemoved(ctx, boardID, userID)
	return nil
}

// List returns every non-stale presence entry for a board, scanning
// Redis keys under the board's prefix.
func (m *Manager) List(ctx context.Context, boardID string) ([]Entry, error) {
	pattern := fmt.Sprintf("presence:board:%s:user:*", boardID)
	var entries []Entry
	iter := m.client.Scan(ctx, 0, pattern, 100).Iterator()
	now := clock.Now()
	for iter.Next(ctx) {
		data, err := m.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			continue
		}
		if e.stale(now) {
			continue
		}
		entries = append(entries, e)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("presence: list %s: %w", boardID, err)
	}
	return entries, nil
}

// PresenceChange is published on cursor/keepalive writes and removals so
// board subscribers can render live presence without polling.
type PresenceChange struct {
	Removed bool   `json:"removed"`
	BoardID string `json:"boardId"`
	UserID  string `json:"userId"`
	Entry   *Entry `json:"entry,omitempty"`
}

func (m *Manager) publish(ctx context.Context, e Entry) {
	m.publishChange(ctx, PresenceChange{BoardID: e.BoardID, UserID: e.UserID, Entry: &e})
}

func (m *Manager) publishRemoved(ctx context.Context, boardID, userID string) {
	m.publishChange(ctx, PresenceChange{Removed: true, BoardID: boardID, UserID: userID})
}

func (m *Manager) publishChange(ctx context.Context, c PresenceChange) {
	data, err := json.Marshal(c)
	if err != nil {
		log.Printf("[Presence] failed to marshal change: %v", err)
		return
	}
	if err := m.client.Publish(ctx, channel(c.BoardID), data).Err(); err != nil {
		log.Printf("[Presence] publish failed for board %s: %v", c.BoardID, err)
	}
}

// Subscribe returns a channel of decoded presence changes for a board.
// Callers must eventually call the returned close func.
func (m *Manager) Subscribe(ctx context.Context, boardID string) (<-chan PresenceChange, func()) {
	sub := m.client.Subscribe(ctx, channel(boardID))
	out := make(chan PresenceChange, 32)

	go func() {
		defer close(out)
		ch := sub.Channel()
		for msg := range ch {
			var c PresenceChange
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				continue
			}
			select {
			case out <- c:
			default:
			}
		}
	}()

	return out, func() { _ = sub.Close() }
}
