package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	Database  DatabaseConfig
	OpenAI    OpenAIConfig
	Embedding EmbeddingConfig
	Graph     GraphConfig
	Session   SessionConfig
	Log       LogConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey             string
	EmbeddingModel     string
	EmbeddingDimension int
}

// EmbeddingConfig はバッチ処理と Embedding プロバイダーの設定
type EmbeddingConfig struct {
	Provider         string // "openai", "compatible" or "ollama"
	BaseURL          string // compatible / ollama のエンドポイント
	Model            string // compatible / ollama のモデル名
	BatchSize        int
	ProgressInterval int
	Timeout          time.Duration
	RateLimit        int // 1分あたりのリクエスト数（0 は無制限）
	TokenLimit       int // 0 は検査しない
}

// GraphConfig はノードの取得元グラフの設定
type GraphConfig struct {
	Source string // "age" or "neo4j"
	Name   string // AGE のグラフ名

	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string
}

// SessionConfig はセッション再開の指定
type SessionConfig struct {
	ForceResume bool
	ForceNew    bool
}

// LogConfig はロガー設定
type LogConfig struct {
	Level  string
	Format string
	File   string
}

const (
	ProviderOpenAI     = "openai"
	ProviderCompatible = "compatible"
	ProviderOllama     = "ollama"

	GraphSourceAGE   = "age"
	GraphSourceNeo4j = "neo4j"
)

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", getEnv("PGUSER", "postgres")),
			Password: getEnv("DB_PASSWORD", getEnv("PGPASSWORD", "")),
			DBName:   getEnv("DB_NAME", "postgres"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
		},
		Embedding: EmbeddingConfig{
			Provider:         strings.ToLower(getEnv("EMBEDDING_PROVIDER", ProviderOpenAI)),
			BaseURL:          getEnv("EMBEDDING_BASE_URL", ""),
			Model:            getEnv("EMBEDDING_MODEL", getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small")),
			BatchSize:        getEnvAsInt("EMBEDDING_BATCH_SIZE", 100),
			ProgressInterval: getEnvAsInt("PROGRESS_INTERVAL", 50),
			Timeout:          getEnvAsDuration("EMBEDDING_TIMEOUT", 30*time.Second),
			RateLimit:        getEnvAsInt("EMBEDDING_RATE_LIMIT", 0),
			TokenLimit:       getEnvAsInt("EMBEDDING_TOKEN_LIMIT", 0),
		},
		Graph: GraphConfig{
			Source:        strings.ToLower(getEnv("GRAPH_SOURCE", GraphSourceAGE)),
			Name:          getEnv("GRAPH_NAME", "from_csv"),
			Neo4jURI:      getEnv("NEO4J_URI", ""),
			Neo4jUser:     getEnv("NEO4J_USER", "neo4j"),
			Neo4jPassword: getEnv("NEO4J_PASSWORD", ""),
			Neo4jDatabase: getEnv("NEO4J_DATABASE", ""),
		},
		Session: SessionConfig{
			ForceResume: getEnvAsBool("RESUME_SESSION"),
			ForceNew:    getEnvAsBool("NEW_SESSION"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
			File:   getEnv("LOG_FILE", ""),
		},
	}

	return cfg, nil
}

// Validate は設定値の整合性を検証します
func (c *Config) Validate() error {
	var errs []error

	if c.Embedding.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("EMBEDDING_BATCH_SIZE must be positive: %d", c.Embedding.BatchSize))
	}
	if c.Embedding.ProgressInterval <= 0 {
		errs = append(errs, fmt.Errorf("PROGRESS_INTERVAL must be positive: %d", c.Embedding.ProgressInterval))
	}
	if c.OpenAI.EmbeddingDimension <= 0 {
		errs = append(errs, fmt.Errorf("OPENAI_EMBEDDING_DIMENSION must be positive: %d", c.OpenAI.EmbeddingDimension))
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI:
	case ProviderCompatible:
		if c.Embedding.BaseURL == "" {
			errs = append(errs, errors.New("EMBEDDING_BASE_URL is required for the compatible provider"))
		}
	case ProviderOllama:
	default:
		errs = append(errs, fmt.Errorf("unknown EMBEDDING_PROVIDER: %s", c.Embedding.Provider))
	}

	switch c.Graph.Source {
	case GraphSourceAGE:
	case GraphSourceNeo4j:
		if c.Graph.Neo4jURI == "" {
			errs = append(errs, errors.New("NEO4J_URI is required when GRAPH_SOURCE=neo4j"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown GRAPH_SOURCE: %s", c.Graph.Source))
	}

	return errors.Join(errs...)
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool は true/1/yes/y（大文字小文字を区別しない）を真として扱います
func getEnvAsBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "true", "1", "yes", "y":
		return true
	}
	return false
}

// getEnvAsDuration は "30s" 形式または秒数として解釈します
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
