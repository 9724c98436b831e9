package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Env        string
	Port       string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	OllamaURL        string
	GenerationModel  string
	EmbeddingModel   string
	EmbeddingTimeout int

	// Pipeline tuning. Zero values fall back to the usecase defaults.
	MaxRetries       int
	GenTemperature   float64
	EvalTemperature  float64
	MaxContextLength int
	EvalTopK         int
	CorrectThreshold float64
	CallTimeoutSec   int

	// LLMRateLimit caps model calls per second across both pipelines.
	LLMRateLimit float64

	WorkerEnabled      bool
	WorkerPollInterval int

	OTelEnabled bool
}

func Load() *Config {
	return &Config{
		Env:        getEnv("ENV", "development"),
		Port:       getEnv("PORT", "9020"),
		DBHost:     getEnv("DB_HOST", "quiz-db"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "quiz_user"),
		DBPassword: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "quiz_password"),
		DBName:     getEnv("DB_NAME", "quiz_db"),

		OllamaURL:        getEnv("OLLAMA_URL", "http://ollama:11434"),
		GenerationModel:  getEnv("GENERATION_MODEL", "qwen3:8b"),
		EmbeddingModel:   getEnv("EMBEDDING_MODEL", "mxbai-embed-large"),
		EmbeddingTimeout: getEnvInt("EMBEDDING_TIMEOUT_SECONDS", 30),

		MaxRetries:       getEnvInt("QUIZ_MAX_RETRIES", 3),
		GenTemperature:   getEnvFloat("QUIZ_GEN_TEMPERATURE", 0.7),
		EvalTemperature:  getEnvFloat("QUIZ_EVAL_TEMPERATURE", 0.3),
		MaxContextLength: getEnvInt("QUIZ_MAX_CONTEXT_LENGTH", 4000),
		EvalTopK:         getEnvInt("QUIZ_EVAL_TOP_K", 5),
		CorrectThreshold: getEnvFloat("QUIZ_CORRECT_THRESHOLD", 6.0),
		CallTimeoutSec:   getEnvInt("QUIZ_CALL_TIMEOUT_SECONDS", 60),

		LLMRateLimit: getEnvFloat("QUIZ_LLM_RATE_LIMIT", 2.0),

		WorkerEnabled:      getEnvBool("ENRICHMENT_WORKER_ENABLED", true),
		WorkerPollInterval: getEnvInt("ENRICHMENT_POLL_INTERVAL_SECONDS", 10),

		OTelEnabled: getEnvBool("OTEL_ENABLED", false),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
