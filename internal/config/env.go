package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kart-io/logger"
)

type Config struct {
	DatabaseURL  string
	SslCertPath  string
	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string
	BucketName   string
	S3Endpoint   string

	AIAPIKey      string
	GenModel      string
	EmbedProvider string
	EmbedModel    string
	EmbedDim      int
	VoyageAPIKey  string
	VoyageBaseURL string

	RedisURL      string
	JWTSecret     string
	Port          string
	CORSOrigins   []string
	IngestWorkers int
	MaxToolRounds int
	OrgName       string
	EnableTagging bool

	LogLevel  string
	LogFormat string
}

// LoadConfig loads the environment variables and return config
func LoadConfig() *Config {

	_ = godotenv.Load()

	provider := strings.ToLower(getEnv("EMBED_PROVIDER", "voyage"))

	return &Config{
		DatabaseURL:  getEnv("DATABASE_URL", ""),
		SslCertPath:  getEnv("SSL_CERT_PATH", ""),
		AwsAccessKey: getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey: getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:    getEnv("AWS_REGION", "us-east-2"),
		BucketName:   getEnv("BUCKET_NAME", "salesbrain-docs"),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),

		AIAPIKey:      getEnv("GEMINI_API_KEY", ""),
		GenModel:      getEnv("GEN_MODEL", "gemini-1.5-flash"),
		EmbedProvider: provider,
		EmbedModel:    getEnv("EMBED_MODEL", ""),
		EmbedDim:      getEnvInt("EMBED_DIM", defaultEmbedDim(provider)),
		VoyageAPIKey:  getEnv("VOYAGE_API_KEY", ""),
		VoyageBaseURL: getEnv("VOYAGE_BASE_URL", ""),

		RedisURL:      getEnv("REDIS_URL", ""),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		Port:          getEnv("PORT", "8080"),
		CORSOrigins:   getEnvList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		IngestWorkers: getEnvInt("INGEST_WORKERS", 4),
		MaxToolRounds: getEnvInt("MAX_TOOL_ROUNDS", 5),
		OrgName:       getEnv("ORG_NAME", ""),
		EnableTagging: getEnvBool("ENABLE_TAGGING", false),

		LogLevel:  getEnv("LOG_LEVEL", "INFO"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

// Validate reports the first setting that prevents the service from starting.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL not set")
	}
	switch c.EmbedProvider {
	case "voyage", "gemini":
	default:
		return fmt.Errorf("EMBED_PROVIDER must be voyage or gemini, got %q", c.EmbedProvider)
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("EMBED_DIM must be positive, got %d", c.EmbedDim)
	}
	if c.IngestWorkers <= 0 {
		return fmt.Errorf("INGEST_WORKERS must be positive, got %d", c.IngestWorkers)
	}
	if c.MaxToolRounds <= 0 {
		return fmt.Errorf("MAX_TOOL_ROUNDS must be positive, got %d", c.MaxToolRounds)
	}
	return nil
}

// defaultEmbedDim is the vector size of the provider's default embedding model.
func defaultEmbedDim(provider string) int {
	if provider == "gemini" {
		return 768
	}
	return 1024
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warnw("env value is not an int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warnw("env value is not a bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string, def []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
