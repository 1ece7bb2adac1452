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
	Keys      APIKeys
	Ai        AIConfig
	Retrieval RetrievalConfig
	Session   SessionConfig
	Queue     QueueConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	UploadDir          string
}

type DatabaseConfig struct {
	Connection string
}

type APIKeys struct {
	Ark    string
	Gemini string
	Jina   string
}

type AIConfig struct {
	VisionProvider    string // "ark" or "gemini"
	VisionModel       string
	LanguageProvider  string // "ark" or "gemini"
	LanguageModel     string
	EmbeddingProvider string // "ark" (multimodal) or "ollama" (text only)
	EmbeddingModel    string
	RerankProvider    string // "jina" or "lexical"
	RerankModel       string
	ArkBaseURL        string
	OllamaBaseURL     string
	CallTimeout       time.Duration
}

type RetrievalConfig struct {
	TopK             int
	OversampleFactor int
	TextWeight       float64
	ImageWeight      float64
	EvidenceCount    int
	TextCollection   string
	ImageCollection  string
}

type SessionConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
	Backend       string // "memory" or "redis"
}

type QueueConfig struct {
	Workers     int
	RetryBudget int
	ResultTTL   time.Duration
	WaitTimeout time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "5000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:5000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			UploadDir:          getEnv("UPLOAD_DIR", "uploads"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Keys: APIKeys{
			Ark:    getEnv("ARK_API_KEY", ""),
			Gemini: getEnv("GEMINI_API_KEY", ""),
			Jina:   getEnv("JINA_API_KEY", ""),
		},
		Ai: AIConfig{
			VisionProvider:    getEnv("VISION_PROVIDER", "ark"),
			VisionModel:       getEnv("VISION_MODEL", "doubao-1-5-thinking-vision-pro-250428"),
			LanguageProvider:  getEnv("LANGUAGE_PROVIDER", "gemini"),
			LanguageModel:     getEnv("LANGUAGE_MODEL", "gemini-2.5-pro"),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ark"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "doubao-embedding-vision-241215"),
			RerankProvider:    getEnv("RERANK_PROVIDER", "jina"),
			RerankModel:       getEnv("RERANK_MODEL", "jina-reranker-v2-base-multilingual"),
			ArkBaseURL:        getEnv("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			CallTimeout:       getEnvAsDuration("MODEL_CALL_TIMEOUT", 120*time.Second),
		},
		Retrieval: RetrievalConfig{
			TopK:             getEnvAsInt("RETRIEVAL_TOP_K", 5),
			OversampleFactor: getEnvAsInt("RETRIEVAL_OVERSAMPLE", 2),
			// Equal weights by default. The legacy deployment ran 0.6/0.4
			// in favor of the text path.
			TextWeight:      getEnvAsFloat("FUSION_TEXT_WEIGHT", 0.5),
			ImageWeight:     getEnvAsFloat("FUSION_IMAGE_WEIGHT", 0.5),
			EvidenceCount:   getEnvAsInt("RERANK_EVIDENCE_COUNT", 3),
			TextCollection:  getEnv("TEXT_COLLECTION", "handbook_chunks"),
			ImageCollection: getEnv("IMAGE_COLLECTION", "case_images"),
		},
		Session: SessionConfig{
			TTL:           getEnvAsDuration("SESSION_TTL", 1*time.Hour),
			SweepInterval: getEnvAsDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),
			Backend:       getEnv("SESSION_BACKEND", "memory"),
		},
		Queue: QueueConfig{
			Workers:     getEnvAsInt("QUEUE_WORKERS", 4),
			RetryBudget: getEnvAsInt("TASK_RETRY_BUDGET", 3),
			ResultTTL:   getEnvAsDuration("TASK_RESULT_TTL", 1*time.Hour),
			WaitTimeout: getEnvAsDuration("TASK_WAIT_TIMEOUT", 5*time.Minute),
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
