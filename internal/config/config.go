package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider identifies an LLM/embedding backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderOllama Provider = "ollama"
)

// Config holds all configuration values.
type Config struct {
	// Discord
	DiscordToken string
	GuildID      string
	AdminIDs     []string

	// SurrealDB connection
	SurrealDBURL       string
	SurrealDBNamespace string
	SurrealDBDatabase  string
	SurrealDBUser      string
	SurrealDBPass      string
	SurrealDBAuthLevel string

	// LLM oracle
	LLMProvider    Provider
	LLMModel       string
	OpenAIAPIKey   string
	OllamaHost     string
	EmbedModel     string
	EmbedDimension int

	// Ingestion
	MaterialGap   time.Duration // silence that starts a new material
	PageLimit     int           // messages fetched per page
	EnrichWorkers int           // concurrent oracle calls
	TermsFile     string        // optional YAML glossary/stop-list

	// Logging
	LogFile  string
	LogLevel slog.Level
}

// Load reads configuration from environment variables.
// A .env file in the working directory is honoured when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		DiscordToken: os.Getenv("DISCORD_BOT_TOKEN"),
		GuildID:      os.Getenv("DISCORD_GUILD_ID"),
		AdminIDs:     splitList(os.Getenv("DISCORD_ADMIN_IDS")),

		SurrealDBURL:       getEnv("SURREALDB_URL", "ws://localhost:8000/rpc"),
		SurrealDBNamespace: getEnv("SURREALDB_NAMESPACE", "paragon"),
		SurrealDBDatabase:  getEnv("SURREALDB_DATABASE", "materials"),
		SurrealDBUser:      getEnv("SURREALDB_USER", "root"),
		SurrealDBPass:      getEnv("SURREALDB_PASS", "root"),
		SurrealDBAuthLevel: getEnv("SURREALDB_AUTH_LEVEL", "root"),

		LLMProvider:    Provider(getEnv("LLM_PROVIDER", string(ProviderOpenAI))),
		LLMModel:       getEnv("LLM_MODEL", "gpt-4o"),
		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OllamaHost:     getEnv("OLLAMA_HOST", "http://localhost:11434"),
		EmbedModel:     getEnv("EMBED_MODEL", "text-embedding-ada-002"),
		EmbedDimension: getEnvInt("EMBED_DIMENSION", 1536),

		MaterialGap:   getEnvDuration("MATERIAL_GAP", 5*time.Minute),
		PageLimit:     getEnvInt("PAGE_LIMIT", 100),
		EnrichWorkers: getEnvInt("ENRICH_WORKERS", 5),
		TermsFile:     os.Getenv("TERMS_FILE"),

		LogFile:  getEnv("LOG_FILE", "/tmp/paragonbot.log"),
		LogLevel: parseLogLevel(getEnv("LOG_LEVEL", "INFO")),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
