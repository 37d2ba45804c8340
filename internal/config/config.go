package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Retrieval RetrievalConfig
	Clarify   ClarifyConfig
	Ai        AIConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type RateLimitConfig struct {
	Backend   string // "redis" or "local"
	Window    time.Duration
	Max       int
	Exempt    string // comma-separated identifiers that always admit
	ProMult   float64
	AdminMult float64
}

type CacheConfig struct {
	Backend  string // "redis" or "memory"
	TTL      time.Duration
	Capacity int // memory backend only; entries beyond this are LRU-evicted
}

type RetrievalConfig struct {
	SemanticWeight    float64
	LexicalWeight     float64
	FactualSemWeight  float64 // semantic weight used for factual lookups
	SemanticFloor     float64
	LexicalFloor      float64
	TopK              int
	SearchTimeout     time.Duration
	GenerationTimeout time.Duration
}

type ClarifyConfig struct {
	LowConfidence  float64
	ZeroConfidence float64
	ShortQueryLen  int
}

type AIConfig struct {
	EmbeddingProvider string // "openai" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama", "openai"
	LLMModel          string // e.g. "llama3", "gpt-4o-mini"
	OpenAIKey         string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		RateLimit: RateLimitConfig{
			Backend:   getEnv("RATE_LIMIT_BACKEND", "redis"),
			Window:    getEnvAsDuration("RATE_LIMIT_WINDOW", 5*time.Minute),
			Max:       getEnvAsInt("RATE_LIMIT_MAX", 30),
			Exempt:    getEnv("RATE_LIMIT_EXEMPT", ""),
			ProMult:   getEnvAsFloat("RATE_LIMIT_PRO_MULTIPLIER", 2.0),
			AdminMult: getEnvAsFloat("RATE_LIMIT_ADMIN_MULTIPLIER", 5.0),
		},
		Cache: CacheConfig{
			Backend:  getEnv("CACHE_BACKEND", "redis"),
			TTL:      getEnvAsDuration("CACHE_TTL", 1*time.Hour),
			Capacity: getEnvAsInt("CACHE_CAPACITY", 1000),
		},
		Retrieval: RetrievalConfig{
			SemanticWeight:    getEnvAsFloat("RETRIEVAL_SEM_WEIGHT", 0.7),
			LexicalWeight:     getEnvAsFloat("RETRIEVAL_LEX_WEIGHT", 0.3),
			FactualSemWeight:  getEnvAsFloat("RETRIEVAL_FACTUAL_SEM_WEIGHT", 0.85),
			SemanticFloor:     getEnvAsFloat("RETRIEVAL_SEM_FLOOR", 0.3),
			LexicalFloor:      getEnvAsFloat("RETRIEVAL_LEX_FLOOR", 0.1),
			TopK:              getEnvAsInt("RETRIEVAL_TOP_K", 10),
			SearchTimeout:     getEnvAsDuration("RETRIEVAL_SEARCH_TIMEOUT", 10*time.Second),
			GenerationTimeout: getEnvAsDuration("GENERATION_TIMEOUT", 120*time.Second),
		},
		Clarify: ClarifyConfig{
			LowConfidence:  getEnvAsFloat("CLARIFY_LOW_CONFIDENCE", 0.35),
			ZeroConfidence: getEnvAsFloat("CLARIFY_ZERO_CONFIDENCE", 0.1),
			ShortQueryLen:  getEnvAsInt("CLARIFY_SHORT_QUERY_LEN", 4),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			OpenAIKey:         getEnv("OPENAI_API_KEY", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
