package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/event-faces/internal/constants"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	AWS       AWSConfig
	Storage   StorageConfig
	Oracle    OracleConfig
	Embedding EmbeddingConfig
	Events    EventsConfig
	Matching  MatchingConfig
	Log       LogConfig
	Web       WebConfig
}

type AWSConfig struct {
	Region string // defaults to us-east-1
}

type StorageConfig struct {
	Backend       string // s3, minio or local
	Bucket        string // defaults to ps-pics
	PublicBaseURL string // overrides the URL prefix of listed images (e.g., a CDN)
	LocalDir      string // root directory for the local backend
	Minio         MinioConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

type OracleConfig struct {
	Provider  string  // rekognition or insightface
	RateLimit float64 // max oracle requests per second, 0 = unlimited
}

type EmbeddingConfig struct {
	URL string // defaults to http://localhost:8000
}

type EventsConfig struct {
	Table string // DynamoDB events table, empty disables event lookup
}

type MatchingConfig struct {
	MatchThreshold float64 `yaml:"match_threshold"`
	GroupThreshold float64 `yaml:"group_threshold"`
	BatchSize      int     `yaml:"batch_size"`
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or console
}

type WebConfig struct {
	Port           int    // defaults to 8080
	Host           string // defaults to 0.0.0.0
	AllowedOrigins []string
}

type defaultsFile struct {
	Matching MatchingConfig `yaml:"matching"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a non-negative float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

func envBool(key string) bool {
	b, _ := strconv.ParseBool(os.Getenv(key))
	return b
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList reads a comma-separated environment variable, dropping empty items.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func Load() *Config {
	defaults := defaultsFile{Matching: MatchingConfig{
		MatchThreshold: constants.DefaultMatchThreshold,
		GroupThreshold: constants.DefaultGroupThreshold,
		BatchSize:      constants.DefaultBatchSize,
	}}
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	return &Config{
		AWS: AWSConfig{
			Region: envString("AWS_REGION", "us-east-1"),
		},
		Storage: StorageConfig{
			Backend:       strings.ToLower(envString("STORAGE_BACKEND", constants.StorageS3)),
			Bucket:        envString("S3_BUCKET_NAME", "ps-pics"),
			PublicBaseURL: strings.TrimSuffix(os.Getenv("PUBLIC_BASE_URL"), "/"),
			LocalDir:      os.Getenv("LOCAL_IMAGE_DIR"),
			Minio: MinioConfig{
				Endpoint:  os.Getenv("MINIO_ENDPOINT"),
				AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
				SecretKey: os.Getenv("MINIO_SECRET_KEY"),
				UseSSL:    envBool("MINIO_USE_SSL"),
			},
		},
		Oracle: OracleConfig{
			Provider:  strings.ToLower(envString("ORACLE", constants.OracleRekognition)),
			RateLimit: envFloat("ORACLE_RATE_LIMIT", 0),
		},
		Embedding: EmbeddingConfig{
			URL: os.Getenv("EMBEDDING_URL"),
		},
		Events: EventsConfig{
			Table: os.Getenv("EVENTS_TABLE"),
		},
		Matching: MatchingConfig{
			MatchThreshold: envFloat("MATCH_THRESHOLD", defaults.Matching.MatchThreshold),
			GroupThreshold: envFloat("GROUP_THRESHOLD", defaults.Matching.GroupThreshold),
			BatchSize:      envInt("BATCH_SIZE", defaults.Matching.BatchSize),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", "info"),
			Format: envString("LOG_FORMAT", "json"),
		},
		Web: WebConfig{
			Port:           envInt("WEB_PORT", 8080),
			Host:           envString("WEB_HOST", "0.0.0.0"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
	}
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case constants.StorageS3:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("S3_BUCKET_NAME is required for the %s backend", c.Storage.Backend)
		}
	case constants.StorageMinio:
		if c.Storage.Minio.Endpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required for the %s backend", c.Storage.Backend)
		}
	case constants.StorageLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("LOCAL_IMAGE_DIR is required for the %s backend", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("unknown storage backend: %s", c.Storage.Backend)
	}

	switch c.Oracle.Provider {
	case constants.OracleRekognition:
		if c.Storage.Backend != constants.StorageS3 {
			return fmt.Errorf("the %s oracle reads images from S3 and needs STORAGE_BACKEND=s3", c.Oracle.Provider)
		}
	case constants.OracleInsightFace:
	default:
		return fmt.Errorf("unknown oracle: %s", c.Oracle.Provider)
	}

	if c.Matching.MatchThreshold > 100 {
		return fmt.Errorf("MATCH_THRESHOLD %.2f must be within [0,100]", c.Matching.MatchThreshold)
	}
	if c.Matching.GroupThreshold > 100 {
		return fmt.Errorf("GROUP_THRESHOLD %.2f must be within [0,100]", c.Matching.GroupThreshold)
	}
	return nil
}
