package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Chat     ChatConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	StreamLogFilePath  string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	EmbeddingProvider string // "gemini" or "ollama"
	OllamaBaseURL     string
	OllamaModel       string
	LLMProvider       string // "ollama" or "gemini"
	LLMModel          string // e.g. "llama3", "qwen2.5"
	GeminiAPIKey      string
	IndexTopic        string // HS code embedding topic
}

type ChatConfig struct {
	StreamTokenTTL   time.Duration
	JobTimeout       time.Duration
	ClassifyTimeout  time.Duration
	RetrieveTimeout  time.Duration
	DetailTimeout    time.Duration
	WorkerPoolSize   int
	MaxCandidates    int
	MinScore         float64
	BookmarkMinScore float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			StreamLogFilePath:  getEnv("STREAM_LOG_FILE_PATH", "logs/chat_stream.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gemini"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			OllamaModel:       getEnv("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text"),
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			GeminiAPIKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
			IndexTopic:        getEnv("INDEX_HS_CODE_TOPIC_NAME", "INDEX_HS_CODE"),
		},
		Chat: ChatConfig{
			StreamTokenTTL:   getEnvAsDuration("CHAT_STREAM_TOKEN_TTL", 10*time.Minute),
			JobTimeout:       getEnvAsDuration("CHAT_JOB_TIMEOUT", 5*time.Minute),
			ClassifyTimeout:  getEnvAsDuration("CHAT_CLASSIFY_TIMEOUT", 30*time.Second),
			RetrieveTimeout:  getEnvAsDuration("CHAT_RETRIEVE_TIMEOUT", 5*time.Second),
			DetailTimeout:    getEnvAsDuration("CHAT_DETAIL_TIMEOUT", 10*time.Second),
			WorkerPoolSize:   getEnvAsInt("CHAT_WORKER_POOL_SIZE", 48),
			MaxCandidates:    getEnvAsInt("CHAT_MAX_CANDIDATES", 5),
			MinScore:         getEnvAsFloat("CHAT_MIN_SCORE", 0.35),
			BookmarkMinScore: getEnvAsFloat("CHAT_BOOKMARK_MIN_SCORE", 0.6),
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
