package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Chat provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Addr     string
	DBPath   string
	LogLevel string

	ChatProvider string
	APIKey       string
	APIKeyFile   string

	Model          string
	MaxTokens      int
	Temperature    float64
	Instructions   string
	RequestTimeout int // seconds
	MaxRetries     int // silent retries on transient failures
	RateLimitRPS   float64
	RateLimitBurst int

	MaintenanceWorkerCount int
	MaintenanceQueueSize   int
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid. The chat API key
// is resolved from the provider env var first, then from API_KEY_FILE; an absent
// key is not fatal here so review can continue without chat.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	cfg := Config{
		Addr:     envOr("ADDR", "127.0.0.1:8765"),
		DBPath:   envOr("DB_PATH", "file:cardchat.db"),
		LogLevel: envOr("LOG_LEVEL", "INFO"),

		ChatProvider: strings.ToLower(envOr("CHAT_PROVIDER", ProviderOpenAI)),
		APIKeyFile:   envOr("API_KEY_FILE", ""),

		Model:          envOr("CHAT_MODEL", ""),
		MaxTokens:      envIntOr("CHAT_MAX_TOKENS", 300),
		Temperature:    envFloatOr("CHAT_TEMPERATURE", 0.7),
		Instructions:   envOr("CHAT_INSTRUCTIONS", defaultInstructions),
		RequestTimeout: envIntOr("CHAT_REQUEST_TIMEOUT", 60),
		MaxRetries:     envIntOr("CHAT_MAX_RETRIES", 1),
		RateLimitRPS:   envFloatOr("CHAT_RATE_LIMIT_RPS", 1),
		RateLimitBurst: envIntOr("CHAT_RATE_LIMIT_BURST", 2),

		MaintenanceWorkerCount: envIntOr("MAINTENANCE_WORKER_COUNT", 1),
		MaintenanceQueueSize:   envIntOr("MAINTENANCE_QUEUE_SIZE", 8),
	}

	if cfg.Model == "" {
		cfg.Model = defaultModel(cfg.ChatProvider)
	}
	cfg.APIKey = resolveAPIKey(cfg.ChatProvider, cfg.APIKeyFile)

	return cfg
}

const defaultInstructions = "You are a helpful AI assistant helping a student study flashcards. " +
	"Please provide helpful, concise responses related to the flashcard content."

func defaultModel(provider string) string {
	if provider == ProviderGemini {
		return "gemini-2.0-flash"
	}
	return "gpt-4o-mini"
}

// ChatReady reports whether a chat credential is available.
func (c Config) ChatReady() bool {
	return c.APIKey != ""
}

func resolveAPIKey(provider, keyFile string) string {
	envVar := "OPENAI_API_KEY"
	if provider == ProviderGemini {
		envVar = "GEMINI_API_KEY"
	}
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	if keyFile == "" {
		return ""
	}
	data, err := os.ReadFile(keyFile)
	if err != nil {
		log.Printf("could not read API key file %s: %v", keyFile, err)
		return ""
	}
	// First non-empty line; key files often end with a newline.
	for _, line := range strings.Split(string(data), "\n") {
		if key := strings.TrimSpace(line); key != "" {
			return key
		}
	}
	return ""
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envFloatOr(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("invalid value for %s=%q, using default %g", key, v, def)
	}
	return def
}
