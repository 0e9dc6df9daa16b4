package server

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/config"
	"whiteboard-backend/internal/handler"
)

// Server wraps the Fiber app and the handlers wired into its routes.
type Server struct {
	app          *fiber.App
	cfg          *config.Config
	db           *gorm.DB
	boardHandler *handler.BoardHandler
	agentHandler *handler.AgentHandler
	health       *handler.HealthHandler
	verifier     *auth.Verifier
}

// New builds a Server from its already-constructed handlers.
func New(cfg *config.Config, db *gorm.DB, boardHandler *handler.BoardHandler, agentHandler *handler.AgentHandler, health *handler.HealthHandler, verifier *auth.Verifier) *Server {
	app := fiber.New(fiber.Config{
		AppName:               "Whiteboard Collaboration Backend",
		ServerHeader:          "Fiber",
		StrictRouting:         true,
		CaseSensitive:         true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		IdleTimeout:           cfg.Server.IdleTimeout,
		Prefork:               false, // incompatible with in-process WebSocket fan-out
		ReadBufferSize:        16384,
		WriteBufferSize:       16384,
		BodyLimit:             10 * 1024 * 1024,
		DisableStartupMessage: false,
	})

	return &Server{
		app:          app,
		cfg:          cfg,
		db:           db,
		boardHandler: boardHandler,
		agentHandler: agentHandler,
		health:       health,
		verifier:     verifier,
	}
}

// SetupMiddleware installs the global middleware stack.
func (s *Server) SetupMiddleware() {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "UTC",
	}))

	// Allowed origins come from CORS_ALLOW_ORIGINS, which defaults to
	// "*" so the agent RPC and board endpoints are reachable from any
	// whiteboard frontend origin.
	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowHeaders:     s.cfg.CORS.AllowHeaders,
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: false,
	}))
}

// SetupRoutes registers the full route table.
func (s *Server) SetupRoutes() {
	s.app.Get("/health", s.health.Check)
	s.app.Get("/live", s.health.Liveness)
	s.app.Get("/ready", s.health.Readiness)
	s.app.Post("/observabilityCheck", s.health.ObservabilityCheck)

	requireAuth := auth.RequireBearer(s.verifier)

	boards := s.app.Group("/boards")
	boards.Post("/", requireAuth, s.boardHandler.CreateBoard)
	boards.Get("/:id", s.boardHandler.GetBoard)
	boards.Get("/:id/objects", s.boardHandler.ListObjects)
	boards.Post("/:id/objects", requireAuth, s.boardHandler.CreateObject)
	boards.Put("/:id/objects/:objectId", requireAuth, s.boardHandler.UpdateObject)
	boards.Delete("/:id/objects/:objectId", requireAuth, s.boardHandler.DeleteObject)
	boards.Post("/:id/presence", requireAuth, s.boardHandler.WritePresence)

	// boardAgent is the natural-language command RPC (§6): POST only,
	// bearer-gated like every other mutation path.
	s.app.Post("/boardAgent", requireAuth, s.agentHandler.Invoke)
	s.app.All("/boardAgent", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusMethodNotAllowed).JSON(fiber.Map{"error": "method not allowed"})
	})

	// The subscribe/mutate WebSocket carries its own bearer token as a
	// query parameter, since the browser WebSocket API can't set an
	// Authorization header on the handshake request.
	s.app.Use("/boards/:id/subscribe", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		token := c.Query("token")
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).SendString("missing token")
		}
		claims, err := s.verifier.Verify(token)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).SendString("invalid token")
		}
		c.Locals("userId", claims.UserID)
		c.Locals("allowed", true)
		return c.Next()
	})
	s.app.Get("/boards/:id/subscribe", websocket.New(s.boardHandler.Subscribe, websocket.Config{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}))
}

// Start runs the server with graceful shutdown on SIGINT/SIGTERM.
func (s *Server) Start() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("shutting down server")
		if err := s.app.ShutdownWithTimeout(30 * time.Second); err != nil {
			log.Fatalf("server shutdown error: %v", err)
		}
	}()

	log.Printf("whiteboard backend starting on %s", s.cfg.Server.Port)
	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown tears the app down with a bounded grace period.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(30 * time.Second)
}
