// Package config provides immutable application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds runtime configuration. It is constructed once at startup and
// passed explicitly to each component; nothing reads the environment after
// Load returns. Secrets (API keys) come from the environment, never from
// files committed to the repo.
type Config struct {
	// Addr is the HTTP listen address (e.g. ":8080").
	Addr string

	// DBPath is the SQLite database file backing the structured data source,
	// policy chunks, and the transcript log.
	DBPath string

	// OpenRouterAPIKey authenticates against the language capability.
	OpenRouterAPIKey string
	// Model is the chat model id (e.g. openai/gpt-4o-mini).
	Model string
	// EmbeddingModel is the embeddings model id. Empty disables vector
	// retrieval; the knowledge backend then falls back to keyword scoring.
	EmbeddingModel string

	// PolicyRulesPath optionally points at a YAML file overriding the
	// built-in entity allow-lists.
	PolicyRulesPath string
	// PolicyDocsPath points at the policy document (markdown/plain text)
	// seeded into the knowledge backend when its collection is empty.
	PolicyDocsPath string
	// SeedDemoData loads a small demo dataset into empty tables on startup.
	SeedDemoData bool

	// MaxToolCycles bounds tool-dispatch cycles per utterance.
	MaxToolCycles int
	// ToolTimeout bounds a single backend invocation.
	ToolTimeout time.Duration
	// LLMTimeout bounds a single language-capability call.
	LLMTimeout time.Duration
	// RetrieveK is the passage count requested from the knowledge backend.
	RetrieveK int

	// SessionMaxEntries bounds the in-memory session store (LRU).
	SessionMaxEntries int
	// SessionIdleTTL evicts sessions idle longer than this. 0 disables.
	SessionIdleTTL time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:              getEnv("CARESBOT_ADDR", ":8080"),
		DBPath:            getEnv("CARESBOT_DB_PATH", "./data/caresbot.db"),
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		Model:             getEnv("CARESBOT_MODEL", "openai/gpt-4o-mini"),
		EmbeddingModel:    os.Getenv("CARESBOT_EMBEDDING_MODEL"),
		PolicyRulesPath:   os.Getenv("CARESBOT_POLICY_RULES"),
		PolicyDocsPath:    getEnv("CARESBOT_POLICY_DOCS", "./data/policies.md"),
		SeedDemoData:      getEnvBool("CARESBOT_SEED_DEMO_DATA", false),
		MaxToolCycles:     getEnvInt("CARESBOT_MAX_TOOL_CYCLES", 6),
		ToolTimeout:       getEnvDuration("CARESBOT_TOOL_TIMEOUT", 15*time.Second),
		LLMTimeout:        getEnvDuration("CARESBOT_LLM_TIMEOUT", 60*time.Second),
		RetrieveK:         getEnvInt("CARESBOT_RETRIEVE_K", 8),
		SessionMaxEntries: getEnvInt("CARESBOT_SESSION_MAX_ENTRIES", 1024),
		SessionIdleTTL:    getEnvDuration("CARESBOT_SESSION_IDLE_TTL", 2*time.Hour),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that all required configuration fields are sane.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("CARESBOT_ADDR cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("CARESBOT_DB_PATH cannot be empty")
	}
	if c.MaxToolCycles <= 0 {
		return fmt.Errorf("CARESBOT_MAX_TOOL_CYCLES must be > 0")
	}
	if c.ToolTimeout <= 0 || c.LLMTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0")
	}
	if c.RetrieveK <= 0 {
		return fmt.Errorf("CARESBOT_RETRIEVE_K must be > 0")
	}
	if c.SessionMaxEntries <= 0 {
		return fmt.Errorf("CARESBOT_SESSION_MAX_ENTRIES must be > 0")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
