package handler

import (
	"github.com/gofiber/fiber/v2"

	"whiteboard-backend/internal/agent"
	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/model"
)

// AgentHandler serves the natural-language board-command RPC (C7).
type AgentHandler struct {
	executor *agent.Executor
}

func NewAgentHandler(executor *agent.Executor) *AgentHandler {
	return &AgentHandler{executor: executor}
}

type agentRequest struct {
	BoardID    string         `json:"boardId"`
	Command    string         `json:"command"`
	BoardState []model.Object `json:"boardState"`
}

// Invoke handles POST /boardAgent: runs the bounded tool-calling turn
// loop against the board snapshot the caller supplied and commits the
// resulting plan as one atomic batch.
func (h *AgentHandler) Invoke(c *fiber.Ctx) error {
	var req agentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "malformed body"})
	}
	if req.BoardID == "" || req.Command == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "boardId and command are required"})
	}

	result, err := h.executor.Run(c.Context(), req.BoardID, auth.UserID(c), req.Command, req.BoardState)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(result)
}
