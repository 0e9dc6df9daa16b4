package presence

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestManager(t *testing.T) (*Manager, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewManager(client), mr
}

func TestWriteThenGetRoundTrips(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	admitted, err := m.Write(ctx, "board1", "user1", "Ada", Cursor{X: 10, Y: 20})
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if !admitted {
		t.Fatalf("expected first write to be admitted")
	}

	got, err := m.Get(ctx, "board1", "user1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Cursor.X != 10 || got.Cursor.Y != 20 {
		t.Fatalf("unexpected cursor: %+v", got.Cursor)
	}
	if got.CursorColor == "" {
		t.Fatalf("expected a non-empty cursor color")
	}
}

func TestWriteThrottlesRapidUpdates(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	admitted1, _ := m.Write(ctx, "board1", "user1", "Ada", Cursor{X: 1, Y: 1})
	admitted2, _ := m.Write(ctx, "board1", "user1", "Ada", Cursor{X: 2, Y: 2})

	if !admitted1 {
		t.Fatalf("expected first write to be admitted")
	}
	if admitted2 {
		t.Fatalf("expected immediately-following write to be throttled")
	}

	got, _ := m.Get(ctx, "board1", "user1")
	if got.Cursor.X != 1 {
		t.Fatalf("expected throttled write to be dropped, cursor stayed at first value, got %+v", got.Cursor)
	}
}

func TestCursorColorIsStable(t *testing.T) {
	a := CursorColorFor("user1")
	b := CursorColorFor("user1")
	if a != b {
		t.Fatalf("expected deterministic cursor color, got %s then %s", a, b)
	}
}

func TestListExcludesStaleEntries(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()


	stale := Entry{
		BoardID:  "board1",
		UserID:   "user1",
		LastSeen: time.Now().UTC().Add(-Stale - time.Second),
	}
	if err := m.set(ctx, stale); err != nil {
		t.Fatalf("set: %v", err)
	}

	entries, err := m.List(ctx, "board1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected stale entry to be excluded from List, got %+v", entries)
	}
}
