package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server          ServerConfig
	LogLevel        string
	CORS            CORSConfig
	Redis           RedisConfig
	Recommendations RecommendationsConfig
	Kafka           KafkaConfig
	RateLimit       RateLimitConfig
	Sentry          SentryConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// RecommendationsConfig holds the hybrid ranker's weights and decay parameters
type RecommendationsConfig struct {
	// Hybrid scorer weights (sum to 1.0)
	CollaborativeWeight float64
	ContentWeight       float64
	PopularityWeight    float64
	TemporalWeight      float64
	EngagementWeight    float64

	// Affinity decay
	DecayLambdaPerDay float64 // decay rate applied to category/tag affinities, default 1/30

	// Trending window used by the temporal scorer
	TrendingWindowHours int // default 24

	// Diversity cap divisor: max results per channel = ceil(N / DiversityDivisor)
	DiversityDivisor int // default 3

	// Cache TTL for /api/recommendations responses
	CacheTTLSeconds int

	// Quality evaluation scheduler: periodically runs the engine's offline
	// Evaluate against a scenario set built from the live matrix and feeds
	// the rolling NDCG@K mean /api/stats reports.
	QualityEvalIntervalMinutes int // default 15
	QualityEvalK               int // default 10 (NDCG@10)
}

// KafkaConfig holds the interaction-event-stream consumer configuration
type KafkaConfig struct {
	Enabled bool
	Brokers string // comma-separated
	Topic   string
	GroupID string
}

// RateLimitConfig holds ingestion endpoint rate limiting configuration
type RateLimitConfig struct {
	IngestRequestsPerSecond float64
	IngestBurst             int
}

// SentryConfig holds Sentry error tracking configuration
type SentryConfig struct {
	DSN              string
	Environment      string
	Release          string
	TracesSampleRate float64
	Enabled          bool
}

// Load loads configuration from environment variables, falling back to a
// local .env file if one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		redisDB = 0
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Recommendations: RecommendationsConfig{
			CollaborativeWeight: getEnvFloat("REC_COLLABORATIVE_WEIGHT", 0.35),
			ContentWeight:       getEnvFloat("REC_CONTENT_WEIGHT", 0.25),
			PopularityWeight:    getEnvFloat("REC_POPULARITY_WEIGHT", 0.15),
			TemporalWeight:      getEnvFloat("REC_TEMPORAL_WEIGHT", 0.10),
			EngagementWeight:    getEnvFloat("REC_ENGAGEMENT_WEIGHT", 0.15),
			DecayLambdaPerDay:   getEnvFloat("REC_DECAY_LAMBDA_PER_DAY", 1.0/30.0),
			TrendingWindowHours: getEnvInt("REC_TRENDING_WINDOW_HOURS", 24),
			DiversityDivisor:    getEnvInt("REC_DIVERSITY_DIVISOR", 3),
			CacheTTLSeconds:     getEnvInt("REC_CACHE_TTL_SECONDS", 60),

			QualityEvalIntervalMinutes: getEnvInt("REC_QUALITY_EVAL_INTERVAL_MINUTES", 15),
			QualityEvalK:               getEnvInt("REC_QUALITY_EVAL_K", 10),
		},
		Kafka: KafkaConfig{
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Brokers: getEnv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getEnv("KAFKA_INTERACTIONS_TOPIC", "video-interactions"),
			GroupID: getEnv("KAFKA_CONSUMER_GROUP", "recaster-engine"),
		},
		RateLimit: RateLimitConfig{
			IngestRequestsPerSecond: getEnvFloat("RATE_LIMIT_INGEST_RPS", 50),
			IngestBurst:             getEnvInt("RATE_LIMIT_INGEST_BURST", 100),
		},
		Sentry: SentryConfig{
			DSN:              getEnv("SENTRY_DSN", ""),
			Environment:      getEnv("SENTRY_ENVIRONMENT", "development"),
			Release:          getEnv("SENTRY_RELEASE", ""),
			TracesSampleRate: getEnvFloat("SENTRY_TRACES_SAMPLE_RATE", 1.0),
			Enabled:          getEnvBool("SENTRY_ENABLED", false),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
