package presence

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"whiteboard-backend/internal/clock"
)

// Reaper periodically scans one board's presence entries and announces
// staleness to subscribers at the UI-facing Stale bound, ahead of the
// physical StoreTTL expiry Redis enforces on its own. It only publishes
// removal events; it never deletes or rewrites an entry.
type Reaper struct {
	manager *Manager
	boardID string

	cancel context.CancelFunc
}

// StartReaper launches a reaper for a board; call Stop when the board's
// hub is evicted.
func StartReaper(m *Manager, boardID string) *Reaper {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Reaper{manager: m, boardID: boardID, cancel: cancel}
	go r.run(ctx)
	return r
}

func (r *Reaper) Stop() {
	r.cancel()
}

func (r *Reaper) run(ctx context.Context) {
	ticker := time.NewTicker(ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	pattern := "presence:board:" + r.boardID + ":user:*"
	iter := r.manager.client.Scan(ctx, 0, pattern, 100).Iterator()
	now := clock.Now()

	for iter.Next(ctx) {
		data, err := r.manager.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			continue
		}
		if e.stale(now) {
			r.manager.publishRemoved(ctx, e.BoardID, e.UserID)
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("[Presence] reaper sweep failed for board %s: %v", r.boardID, err)
	}
}
