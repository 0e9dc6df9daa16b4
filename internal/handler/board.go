package handler

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/board"
	"whiteboard-backend/internal/clock"
	"whiteboard-backend/internal/model"
	"whiteboard-backend/internal/mutation"
	"whiteboard-backend/internal/presence"
	"whiteboard-backend/internal/store"
)

// BoardHandler serves the board read model, the object mutation API,
// and the combined subscribe/mutate WebSocket connection.
type BoardHandler struct {
	hub      *board.Hub
	store    *store.Store
	presence *presence.Manager
}

func NewBoardHandler(hub *board.Hub, s *store.Store, p *presence.Manager) *BoardHandler {
	return &BoardHandler{hub: hub, store: s, presence: p}
}

// CreateBoard creates a new board owned by the authenticated user.
func (h *BoardHandler) CreateBoard(c *fiber.Ctx) error {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&body); err != nil || body.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}
	b, err := h.store.CreateBoard(c.Context(), clock.NewBoardID(), body.Name, auth.UserID(c))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(b)
}

// GetBoard is the read-model endpoint for a board's metadata.
func (h *BoardHandler) GetBoard(c *fiber.Ctx) error {
	b, err := h.store.GetBoard(c.Context(), c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "board not found"})
	}
	return c.JSON(b)
}

// ListObjects is the read-model endpoint for a board's current object
// set, hiding dangling connectors exactly like the WebSocket snapshot.
func (h *BoardHandler) ListObjects(c *fiber.Ctx) error {
	b, err := h.hub.GetOrCreate(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(b.ListObjects())
}

// CreateObject validates and writes a new object via the mutation API.
func (h *BoardHandler) CreateObject(c *fiber.Ctx) error {
	var fields map[string]any
	if err := c.BodyParser(&fields); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}
	id, err := mutation.CreateObject(c.Context(), h.store, c.Params("id"), auth.UserID(c), fields)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

// UpdateObject applies a partial merge via the mutation API.
func (h *BoardHandler) UpdateObject(c *fiber.Ctx) error {
	var fields map[string]any
	if err := c.BodyParser(&fields); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}
	if err := mutation.UpdateObject(c.Context(), h.store, c.Params("id"), auth.UserID(c), c.Params("objectId"), fields); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteObject issues an idempotent delete via the mutation API.
func (h *BoardHandler) DeleteObject(c *fiber.Ctx) error {
	if err := mutation.DeleteObject(c.Context(), h.store, c.Params("id"), c.Params("objectId")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// WritePresence merges a cursor update, server-stamping lastSeen.
func (h *BoardHandler) WritePresence(c *fiber.Ctx) error {
	var body struct {
		DisplayName string           `json:"displayName"`
		Cursor      presence.Cursor  `json:"cursor"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}
	admitted, err := h.presence.Write(c.Context(), c.Params("id"), auth.UserID(c), body.DisplayName, body.Cursor)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"admitted": admitted})
}

// inboundFrame is the envelope for mutation frames sent over an
// already-open subscribe connection, letting a client mutate without a
// second HTTP round trip.
type inboundFrame struct {
	Type     string          `json:"type"`
	ObjectID string          `json:"objectId,omitempty"`
	Fields   map[string]any  `json:"fields,omitempty"`
	Presence *presencePayload `json:"presence,omitempty"`
}

type presencePayload struct {
	DisplayName string          `json:"displayName"`
	Cursor      presence.Cursor `json:"cursor"`
}

// presenceMessage is the wire shape for a presence change relayed to a
// board subscriber, distinguished from board.ChangeMessage by its Type
// discriminator.
type presenceMessage struct {
	Type    string          `json:"type"`
	Removed bool            `json:"removed"`
	UserID  string          `json:"userId"`
	Entry   *presence.Entry `json:"entry,omitempty"`
}

// Subscribe upgrades to a WebSocket connection that delivers the
// board's change stream and accepts inbound mutation frames, matching
// the §4.6 note that an already-subscribed client shouldn't need a
// second round trip to mutate. It also relays presence changes for the
// board so clients see cursor/online updates without polling.
func (h *BoardHandler) Subscribe(c *websocket.Conn) {
	boardID := c.Params("id")
	userID, _ := c.Locals("userId").(string)
	sessionID := clock.NewObjectID()

	b, err := h.hub.GetOrCreate(boardID)
	if err != nil {
		log.Printf("[WS %s] failed to attach to board: %v", boardID, err)
		c.Close()
		return
	}

	sub, snapshot := b.Subscribe(sessionID)
	defer b.Unsubscribe(sessionID)

	presenceCh, presenceCancel := h.presence.Subscribe(context.Background(), boardID)
	stopPresence := make(chan struct{})
	presenceDone := make(chan struct{})
	go func() {
		defer close(presenceDone)
		for {
			select {
			case change, ok := <-presenceCh:
				if !ok {
					return
				}
				data, err := json.Marshal(presenceMessage{Type: "presence", Removed: change.Removed, UserID: change.UserID, Entry: change.Entry})
				if err != nil {
					continue
				}
				select {
				case sub.Send <- data:
				case <-stopPresence:
					return
				}
			case <-stopPresence:
				return
			}
		}
	}()
	// Stop the relay and wait for it to exit before the deferred
	// Unsubscribe above closes sub.Send, or the relay could send on a
	// closed channel.
	defer func() {
		close(stopPresence)
		presenceCancel()
		<-presenceDone
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for data := range sub.Send {
			if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}()

	for _, o := range snapshot {
		data, err := json.Marshal(board.ChangeMessage{Kind: model.ChangeAdded, Object: o})
		if err == nil {
			sub.Send <- data
		}
	}

	if entries, err := h.presence.List(context.Background(), boardID); err != nil {
		log.Printf("[WS %s] initial presence list failed: %v", boardID, err)
	} else {
		for _, e := range entries {
			entry := e
			data, err := json.Marshal(presenceMessage{Type: "presence", UserID: entry.UserID, Entry: &entry})
			if err == nil {
				sub.Send <- data
			}
		}
	}

	for {
		_, data, err := c.ReadMessage()
		if err != nil {
			break
		}
		h.handleInboundFrame(boardID, userID, data)
	}

	<-done
}

func (h *BoardHandler) handleInboundFrame(boardID, userID string, data []byte) {
	var frame inboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		log.Printf("[WS %s] malformed inbound frame: %v", boardID, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch frame.Type {
	case "createObject":
		if _, err := mutation.CreateObject(ctx, h.store, boardID, userID, frame.Fields); err != nil {
			log.Printf("[WS %s] createObject rejected: %v", boardID, err)
		}
	case "updateObject":
		if err := mutation.UpdateObject(ctx, h.store, boardID, userID, frame.ObjectID, frame.Fields); err != nil {
			log.Printf("[WS %s] updateObject rejected: %v", boardID, err)
		}
	case "deleteObject":
		if err := mutation.DeleteObject(ctx, h.store, boardID, frame.ObjectID); err != nil {
			log.Printf("[WS %s] deleteObject rejected: %v", boardID, err)
		}
	case "presence":
		if frame.Presence != nil {
			if _, err := h.presence.Write(ctx, boardID, userID, frame.Presence.DisplayName, frame.Presence.Cursor); err != nil {
				log.Printf("[WS %s] presence write failed: %v", boardID, err)
			}
		}
	default:
		log.Printf("[WS %s] unknown inbound frame type %q", boardID, frame.Type)
	}
}
