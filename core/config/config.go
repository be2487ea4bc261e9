// Package config loads process configuration from environment variables,
// following the teacher's getEnv/getEnvInt + IsProduction/IsDevelopment
// convention (basegraph's core/config), generalized to semquery's sections.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration.
type Config struct {
	// Env is the environment name (development, staging, production).
	Env string

	// Port is the HTTP/CLI-server port, when a server surface is running.
	Port string

	Registry  RegistryConfig
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Retrieval RetrievalConfig
	Storage   StorageConfig
	Evidence  EvidenceConfig
	OTel      OTelConfig
	Graph     GraphConfig
}

// RegistryConfig points at the on-disk semantic registry document.
type RegistryConfig struct {
	Path string
}

// LLMConfig selects the structured-output provider used for intent
// generation (spec.md §4).
type LLMConfig struct {
	Provider string // "openai" | "anthropic"
	Model    string
	APIKey   string
	BaseURL  string
}

// EmbeddingConfig selects the embedding model used for schema retrieval
// (spec.md §5).
type EmbeddingConfig struct {
	Provider  string
	Model     string
	Dimension int
}

// RetrievalConfig configures the Typesense-backed schema retriever.
type RetrievalConfig struct {
	TypesenseURL    string
	TypesenseAPIKey string
	SimilarityFloor float64
	TopK            int
}

// StorageConfig configures the query-execution backends (spec.md §5).
type StorageConfig struct {
	CSVRoot        string
	ParquetCacheDir string
	PostgresDSN    string
}

// EvidenceConfig configures the trust layer's evidence store (spec.md §6).
type EvidenceConfig struct {
	Root string // filesystem root; empty disables evidence capture
}

// GraphConfig optionally mirrors the in-memory hypergraph catalog into a
// persisted ArangoDB instance.
type GraphConfig struct {
	URL      string
	Username string
	Password string
	Database string
}

// Enabled reports whether graph persistence is configured.
func (c GraphConfig) Enabled() bool {
	return c.URL != ""
}

// OTelConfig configures OpenTelemetry trace/log export.
type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
}

// Enabled reports whether an OTel collector endpoint is configured.
func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

// Load loads configuration from environment variables, with sensible
// defaults for local development.
func Load() Config {
	return Config{
		Env:  getEnv("SEMQUERY_ENV", "development"),
		Port: getEnv("PORT", "8080"),
		Registry: RegistryConfig{
			Path: getEnv("REGISTRY_PATH", "registry.json"),
		},
		LLM: LLMConfig{
			Provider: getEnv("LLM_PROVIDER", "openai"),
			Model:    getEnv("LLM_MODEL", "gpt-4o"),
			APIKey:   getEnv("LLM_API_KEY", ""),
			BaseURL:  getEnv("LLM_BASE_URL", ""),
		},
		Embedding: EmbeddingConfig{
			Provider:  getEnv("EMBEDDING_PROVIDER", "openai"),
			Model:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			Dimension: getEnvInt("EMBEDDING_DIMENSION", 1536),
		},
		Retrieval: RetrievalConfig{
			TypesenseURL:    getEnv("TYPESENSE_URL", "http://localhost:8108"),
			TypesenseAPIKey: getEnv("TYPESENSE_API_KEY", ""),
			SimilarityFloor: getEnvFloat("RETRIEVAL_SIMILARITY_FLOOR", 0.5),
			TopK:            getEnvInt("RETRIEVAL_TOP_K", 8),
		},
		Storage: StorageConfig{
			CSVRoot:         getEnv("STORAGE_CSV_ROOT", "./data"),
			ParquetCacheDir: getEnv("STORAGE_PARQUET_CACHE_DIR", "./data/.parquet-cache"),
			PostgresDSN:     getEnv("STORAGE_POSTGRES_DSN", buildPostgresDSN()),
		},
		Evidence: EvidenceConfig{
			Root: getEnv("EVIDENCE_STORE_ROOT", "./evidence"),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "semquery"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
		},
		Graph: GraphConfig{
			URL:      getEnv("ARANGO_URL", ""),
			Username: getEnv("ARANGO_USERNAME", "root"),
			Password: getEnv("ARANGO_PASSWORD", ""),
			Database: getEnv("ARANGO_DATABASE", "semquery"),
		},
	}
}

// buildPostgresDSN constructs a DSN from individual env vars when
// STORAGE_POSTGRES_DSN itself is not set.
func buildPostgresDSN() string {
	host := getEnv("DATABASE_HOST", "localhost")
	port := getEnv("DATABASE_PORT", "5432")
	user := getEnv("DATABASE_USER", "postgres")
	password := getEnv("DATABASE_PASSWORD", "postgres")
	name := getEnv("DATABASE_NAME", "semquery")
	sslMode := getEnv("DATABASE_SSLMODE", "disable")

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, name, sslMode,
	)
}

// IsProduction returns true if running in production environment.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// IsDevelopment returns true if running in development environment.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
