// Package board implements the per-board in-memory actor that
// multiplexes subscribers, serializes mutation application, and fans out
// change events with per-object in-order delivery.
package board

import (
	"context"
	"log"
	"sync"
	"time"

	"whiteboard-backend/internal/model"
	"whiteboard-backend/internal/presence"
	"whiteboard-backend/internal/store"
)

// IdleGrace is how long a board is kept alive after its last subscriber
// leaves before the hub evicts it. A whiteboard tab going briefly
// unattended (reload, network blip) shouldn't force a full store re-read.
const IdleGrace = 30 * time.Second

// Hub owns the map of live boards, keyed by boardId, with lazy creation
// and idle eviction — the only process-wide piece of board state besides
// the store and observability clients.
type Hub struct {
	store    *store.Store
	presence *presence.Manager

	mu     sync.Mutex
	boards map[string]*Board
}

func NewHub(s *store.Store, p *presence.Manager) *Hub {
	return &Hub{store: s, presence: p, boards: make(map[string]*Board)}
}

// GetOrCreate returns the board actor for boardId, starting it if this is
// the first subscriber to touch it.
func (h *Hub) GetOrCreate(boardID string) (*Board, error) {
	h.mu.Lock()
	if b, ok := h.boards[boardID]; ok {
		b.cancelEviction()
		h.mu.Unlock()
		return b, nil
	}
	h.mu.Unlock()

	ch, snapshot, cancelSub, err := h.store.Subscribe(boardID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Board{
		ID:          boardID,
		hub:         h,
		store:       h.store,
		objects:     make(map[string]model.Object, len(snapshot)),
		subscribers: make(map[string]*Subscriber),
		mutate:      make(chan mutationRequest, 64),
		storeEvents: ch,
		cancelSub:   cancelSub,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, o := range snapshot {
		b.objects[o.ID] = o
	}

	h.mu.Lock()
	if existing, ok := h.boards[boardID]; ok {
		// Lost the race to create; discard our subscription.
		h.mu.Unlock()
		cancelSub()
		cancel()
		return existing, nil
	}
	h.boards[boardID] = b
	h.mu.Unlock()

	go b.run()
	b.reaper = presence.StartReaper(h.presence, boardID)
	log.Printf("[Board %s] hub started", boardID)
	return b, nil
}

// evict tears a board down after its idle grace window elapses with no
// new subscriber cancelling the timer.
func (h *Hub) evict(boardID string) {
	h.mu.Lock()
	b, ok := h.boards[boardID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.boards, boardID)
	h.mu.Unlock()

	if b.reaper != nil {
		b.reaper.Stop()
	}
	b.shutdown()
	log.Printf("[Board %s] evicted after idle grace", boardID)
}

// Active reports how many boards currently have a running hub.
func (h *Hub) Active() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.boards)
}
