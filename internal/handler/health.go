package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"whiteboard-backend/internal/observability"
)

// HealthHandler reports liveness/readiness and the observability
// provider's reachability.
type HealthHandler struct {
	db       *gorm.DB
	tracer   *observability.Provider
}

func NewHealthHandler(db *gorm.DB, tracer *observability.Provider) *HealthHandler {
	return &HealthHandler{db: db, tracer: tracer}
}

type ComponentCheck struct {
	Status  string `json:"status"`
	Latency string `json:"latency,omitempty"`
	Error   string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status    string                    `json:"status"`
	Timestamp string                    `json:"timestamp"`
	Checks    map[string]ComponentCheck `json:"checks"`
}

// Check reports combined database and observability-provider health.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Checks:    make(map[string]ComponentCheck),
	}

	dbStart := time.Now()
	sqlDB, err := h.db.DB()
	if err != nil {
		response.Status = "unhealthy"
		response.Checks["database"] = ComponentCheck{Status: "unhealthy", Error: "failed to get database connection"}
	} else if err := sqlDB.Ping(); err != nil {
		response.Status = "unhealthy"
		response.Checks["database"] = ComponentCheck{Status: "unhealthy", Error: "database ping failed"}
	} else {
		response.Checks["database"] = ComponentCheck{Status: "healthy", Latency: time.Since(dbStart).String()}
	}

	if h.tracer != nil && h.tracer.Configured() {
		response.Checks["observability"] = ComponentCheck{Status: "healthy"}
	} else {
		response.Checks["observability"] = ComponentCheck{Status: "not_configured"}
	}

	statusCode := fiber.StatusOK
	if response.Status == "unhealthy" {
		statusCode = fiber.StatusServiceUnavailable
	}
	return c.Status(statusCode).JSON(response)
}

// Liveness is the k8s liveness probe — process is up.
func (h *HealthHandler) Liveness(c *fiber.Ctx) error {
	return c.SendString("OK")
}

// Readiness is the k8s readiness probe — database is reachable.
func (h *HealthHandler) Readiness(c *fiber.Ctx) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("NOT READY")
	}
	if err := sqlDB.Ping(); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).SendString("NOT READY")
	}
	return c.SendString("READY")
}

// ObservabilityCheck is the spec's dedicated provider-reachability probe:
// POST /observabilityCheck -> 200 {status:"ok"} or 500 {status:"error", message}.
func (h *HealthHandler) ObservabilityCheck(c *fiber.Ctx) error {
	if err := h.tracer.Ping(c.Context()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"status":  "error",
			"message": err.Error(),
		})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
