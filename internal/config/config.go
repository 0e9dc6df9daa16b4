// Package config loads typed application configuration from the
// environment (and an optional .env file in development).
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the application's full configuration.
type Config struct {
	Server  ServerConfig
	CORS    CORSConfig
	Auth    AuthConfig
	Agent   AgentConfig
	Tunables TunablesConfig
	DB      DBConfig
	Redis   RedisConfig
	Tracing TracingConfig
}

// ServerConfig HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// CORSConfig CORS settings — the agent RPC is deliberately wide open
// (Access-Control-Allow-Origin: *) per §6.
type CORSConfig struct {
	AllowOrigins string
	AllowHeaders string
}

// AuthConfig bearer-token verification settings.
type AuthConfig struct {
	JWTSecret string
}

// AgentConfig settings for the LLM agent executor (C7).
type AgentConfig struct {
	AnthropicAPIKey string
	AnthropicModel  string
	AnthropicBaseURL string
}

// TunablesConfig is the set of named tunables enumerated in §6/§9 of the
// specification, each with the default value used elsewhere.
type TunablesConfig struct {
	ThrottleMS      time.Duration
	Stale           time.Duration
	StaleStore      time.Duration
	PerTurnTimeout  time.Duration
	MaxTurns        int
	PadSide         float64
	PadTop          float64
	PadBottom       float64
	BoardIdleGrace  time.Duration
}

// DBConfig Postgres connection settings.
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	TimeZone string
}

// RedisConfig Redis connection settings (presence tracker).
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// TracingConfig observability provider settings.
type TracingConfig struct {
	LangfuseSecretKey string
	LangfusePublicKey string
	LangfuseHost      string
}

// Load reads configuration from the environment, falling back to a
// local .env file when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	jwtSecret := getRequiredEnv("JWT_SECRET")
	if jwtSecret == "change-this-secret-in-production" {
		log.Fatal("JWT_SECRET must be changed from its default value")
	}
	anthropicKey := getRequiredEnv("ANTHROPIC_API_KEY")

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			ReadTimeout:  getDuration("READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("IDLE_TIMEOUT", 120*time.Second),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
			AllowHeaders: getEnv("CORS_ALLOW_HEADERS", "Origin, Content-Type, Accept, Authorization"),
		},
		Auth: AuthConfig{
			JWTSecret: jwtSecret,
		},
		Agent: AgentConfig{
			AnthropicAPIKey:  anthropicKey,
			AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
			AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		},
		Tunables: TunablesConfig{
			ThrottleMS:     getDuration("THROTTLE_MS", 60*time.Millisecond),
			Stale:          getDuration("STALE", 30*time.Second),
			StaleStore:     getDuration("STALE_STORE", 60*time.Second),
			PerTurnTimeout: getDuration("PER_TURN_TIMEOUT", 60*time.Second),
			MaxTurns:       getInt("MAX_TURNS", 8),
			PadSide:        getFloat("PAD_SIDE", 30),
			PadTop:         getFloat("PAD_TOP", 70),
			PadBottom:      getFloat("PAD_BOTTOM", 30),
			BoardIdleGrace: getDuration("BOARD_IDLE_GRACE", 30*time.Second),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "postgres"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			TimeZone: getEnv("DB_TIMEZONE", "UTC"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		Tracing: TracingConfig{
			LangfuseSecretKey: getEnv("LANGFUSE_SECRET_KEY", ""),
			LangfusePublicKey: getEnv("LANGFUSE_PUBLIC_KEY", ""),
			LangfuseHost:      getEnv("LANGFUSE_HOST", ""),
		},
	}
}

func getRequiredEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("required environment variable %s is not set", key)
	}
	return value
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if !strings.ContainsAny(value, "smh") {
			if n, err := strconv.Atoi(value); err == nil {
				return time.Duration(n) * time.Millisecond
			}
		}
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
