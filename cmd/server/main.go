package main

import (
	"context"
	"log"

	"github.com/redis/go-redis/v9"

	"whiteboard-backend/internal/agent"
	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/board"
	"whiteboard-backend/internal/config"
	"whiteboard-backend/internal/database"
	"whiteboard-backend/internal/handler"
	"whiteboard-backend/internal/llm"
	"whiteboard-backend/internal/observability"
	"whiteboard-backend/internal/presence"
	"whiteboard-backend/internal/server"
	"whiteboard-backend/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := database.Connect(cfg.DB)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	if err := database.Ping(); err != nil {
		log.Fatalf("database ping failed: %v", err)
	}
	log.Println("database connected successfully")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	log.Println("redis connected successfully")

	tracer, err := observability.NewProvider(ctx, cfg.Tracing)
	if err != nil {
		log.Fatalf("observability provider failed to initialize: %v", err)
	}
	defer tracer.Shutdown(ctx)

	s := store.New(db)
	presenceManager := presence.NewManager(redisClient)
	hub := board.NewHub(s, presenceManager)
	verifier := auth.NewVerifier(cfg.Auth.JWTSecret)

	llmClient := llm.NewClient(cfg.Agent.AnthropicAPIKey, cfg.Agent.AnthropicModel, cfg.Agent.AnthropicBaseURL)
	executor := agent.NewExecutor(llmClient, s, tracer, cfg.Tunables.MaxTurns, cfg.Tunables.PerTurnTimeout, agent.Padding{
		Side:   cfg.Tunables.PadSide,
		Top:    cfg.Tunables.PadTop,
		Bottom: cfg.Tunables.PadBottom,
	})

	boardHandler := handler.NewBoardHandler(hub, s, presenceManager)
	agentHandler := handler.NewAgentHandler(executor)
	healthHandler := handler.NewHealthHandler(db, tracer)

	srv := server.New(cfg, db, boardHandler, agentHandler, healthHandler, verifier)
	srv.SetupMiddleware()
	srv.SetupRoutes()

	if err := srv.Start(); err != nil {
		log.Fatalf("server failed to start: %v", err)
	}
}
