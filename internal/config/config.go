package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string
	Env  string

	Provider Provider
	Retry    Retry
	Breaker  Breaker
	Pipeline Pipeline

	StorePath string
	DocStore  DocStoreConfig
}

// Provider selects and tunes the generation backend.
type Provider struct {
	Name     string // "gemini" | "groq" | "fake"
	Model    string
	APIKey   string
	TokenCap int
	RPS      float64
	Burst    int
}

// Retry is the scheduler's per-section retry schedule.
type Retry struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// Breaker tunes the provider circuit breaker.
type Breaker struct {
	FailureThreshold int
	Cooldown         time.Duration
}

// Pipeline carries run-wide deadlines and the heartbeat interval.
type Pipeline struct {
	SectionTimeout time.Duration
	OverallTimeout time.Duration
	Heartbeat      time.Duration
}

type DocStoreConfig struct {
	Enabled   bool
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	port := flag.String("port", ":8080", "server port")
	flag.Parse()

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	return &Config{
		Port: *port,
		Env:  env,
		Provider: Provider{
			Name:     firstNonEmpty(os.Getenv("LLM_PROVIDER"), "gemini"),
			Model:    firstNonEmpty(os.Getenv("LLM_MODEL"), "gemini-2.5-flash"),
			APIKey:   firstNonEmpty(os.Getenv("LLM_API_KEY"), os.Getenv("GEMINI_API_KEY")),
			TokenCap: envInt("LLM_TOKEN_CAP", 12000),
			RPS:      envFloat("LLM_RPS", 1),
			Burst:    envInt("LLM_BURST", 2),
		},
		Retry: Retry{
			MaxAttempts: envInt("RETRY_MAX_ATTEMPTS", 3),
			BaseDelay:   envDuration("RETRY_BASE_DELAY", 500*time.Millisecond),
		},
		Breaker: Breaker{
			FailureThreshold: envInt("BREAKER_FAILURE_THRESHOLD", 5),
			Cooldown:         envDuration("BREAKER_COOLDOWN", 30*time.Second),
		},
		Pipeline: Pipeline{
			SectionTimeout: envDuration("SECTION_TIMEOUT", 90*time.Second),
			OverallTimeout: envDuration("PIPELINE_TIMEOUT", 8*time.Minute),
			Heartbeat:      envDuration("HEARTBEAT_INTERVAL", 3*time.Second),
		},
		StorePath: firstNonEmpty(os.Getenv("ARTIFACT_STORE_PATH"), "data/artifacts.json"),
		DocStore:  loadDocStore(env),
	}, nil
}

func loadDocStore(env string) DocStoreConfig {
	endpoint := resolveDocStoreEndpoint(env)
	return DocStoreConfig{
		Enabled:   endpoint != "",
		Endpoint:  endpoint,
		Region:    firstNonEmpty(strings.TrimSpace(os.Getenv("DOCSTORE_S3_REGION")), "us-east-1"),
		AccessKey: firstNonEmpty(strings.TrimSpace(os.Getenv("DOCSTORE_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey: firstNonEmpty(strings.TrimSpace(os.Getenv("DOCSTORE_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:    firstNonEmpty(strings.TrimSpace(os.Getenv("DOCSTORE_S3_BUCKET")), "stratify-documents"),
		UseSSL:    resolveDocStoreUseSSL(env),
	}
}

func resolveDocStoreEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return firstNonEmpty(strings.TrimSpace(os.Getenv("DOCSTORE_MINIO_ENDPOINT")), "minio:9000")
	}
	return strings.TrimSpace(os.Getenv("DOCSTORE_S3_ENDPOINT"))
}

func resolveDocStoreUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	raw := strings.TrimSpace(os.Getenv("DOCSTORE_S3_USE_SSL"))
	if raw == "" {
		return true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return true
	}
	return v
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
