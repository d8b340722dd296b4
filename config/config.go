package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string `env:"APP_PORT" envDefault:"8080"`
	AppMode string `env:"APP_MODE" envDefault:"debug"`
	AppEnv  string `env:"APP_ENV" envDefault:"development"`

	DBHost     string `env:"DB_HOST" envDefault:"localhost"`
	DBUser     string `env:"DB_USER" envDefault:"postgres"`
	DBPassword string `env:"DB_PASSWORD" envDefault:"postgres"`
	DBName     string `env:"DB_NAME" envDefault:"storefront_support"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`

	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     string `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret string `env:"JWT_SECRET" envDefault:"change-me"`

	S3Region     string `env:"S3_REGION"`
	S3Bucket     string `env:"S3_BUCKET"`
	S3AccessKey  string `env:"S3_ACCESS_KEY"`
	S3SecretKey  string `env:"S3_SECRET_KEY"`
	S3Endpoint   string `env:"S3_ENDPOINT"`
	S3PublicBase string `env:"S3_PUBLIC_BASE"`
	UploadMaxMB  int64  `env:"UPLOAD_MAX_MB" envDefault:"10"`

	OpenAIAPIKey  string `env:"OPENAI_API_KEY"`
	OpenAIModel   string `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	OrderServiceURL   string `env:"ORDER_SERVICE_URL" envDefault:"http://localhost:9001"`
	CatalogServiceURL string `env:"CATALOG_SERVICE_URL" envDefault:"http://localhost:9002"`
	StorefrontURL     string `env:"STOREFRONT_URL" envDefault:"http://localhost:3000"`

	UpstreamTimeout time.Duration `env:"UPSTREAM_TIMEOUT" envDefault:"5s"`
	LLMTimeout      time.Duration `env:"LLM_TIMEOUT" envDefault:"20s"`
	LookupCacheTTL  time.Duration `env:"LOOKUP_CACHE_TTL" envDefault:"30s"`

	WorkingHoursFile string `env:"WORKING_HOURS_FILE"`
	MaxQueueLength   int    `env:"MAX_QUEUE_LENGTH" envDefault:"0"`
	AutoAssign       bool   `env:"AUTO_ASSIGN" envDefault:"true"`
	AgentCapacity    int    `env:"AGENT_CAPACITY" envDefault:"3"`
	HistoryWindow    int    `env:"HISTORY_WINDOW" envDefault:"5"`
	DefaultLanguage  string `env:"DEFAULT_LANGUAGE" envDefault:"en"`

	MessageRateLimit  int           `env:"MESSAGE_RATE_LIMIT" envDefault:"30"`
	MessageRateWindow time.Duration `env:"MESSAGE_RATE_WINDOW" envDefault:"1m"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HistoryWindow <= 0 || c.HistoryWindow > 5 {
		return errors.New("HISTORY_WINDOW must be between 1 and 5")
	}
	if c.MaxQueueLength < 0 {
		return errors.New("MAX_QUEUE_LENGTH cannot be negative")
	}
	if c.S3Bucket != "" && strings.TrimSpace(c.S3Region) == "" {
		return errors.New("S3_REGION is required when S3_BUCKET is set")
	}
	if c.AppEnv == "production" && c.JWTSecret == "change-me" {
		return errors.New("JWT_SECRET must be set in production")
	}
	return nil
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.RedisHost, c.RedisPort)
}

func (c *Config) UploadMaxBytes() int64 {
	return c.UploadMaxMB << 20
}
