package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr  string `env:"EUREKA_HTTP_ADDR"  envDefault:":8080"`
	RPCSocket string `env:"EUREKA_RPC_SOCKET" envDefault:"/tmp/eurekastreams.sock"`
	DBPath    string `env:"EUREKA_DB_PATH"    envDefault:"eurekastreams.db"`

	BootstrapAccountID string        `env:"EUREKA_BOOTSTRAP_ACCOUNT_ID" envDefault:"admin"`
	BootstrapEmail     string        `env:"EUREKA_BOOTSTRAP_EMAIL"      envDefault:"admin@localhost"`
	BootstrapPassword  string        `env:"EUREKA_BOOTSTRAP_PASSWORD"`
	RootOrgShortName   string        `env:"EUREKA_ROOT_ORG"             envDefault:"root"`
	SessionTTL         time.Duration `env:"EUREKA_SESSION_TTL"          envDefault:"24h"`

	LogLevel  string `env:"EUREKA_LOG_LEVEL"  envDefault:"info"`
	LogFormat string `env:"EUREKA_LOG_FORMAT" envDefault:"text"`

	CacheDriver      string `env:"EUREKA_CACHE_DRIVER"        envDefault:"memory"`
	CacheSize        int    `env:"EUREKA_CACHE_SIZE"          envDefault:"10000"`
	MaxCacheListSize int    `env:"EUREKA_CACHE_MAX_LIST_SIZE" envDefault:"10000"`
	RedisAddr        string `env:"EUREKA_REDIS_ADDR"          envDefault:"localhost:6379"`
	RedisDB          int    `env:"EUREKA_REDIS_DB"            envDefault:"0"`
	RedisPassword    string `env:"EUREKA_REDIS_PASSWORD"`
	RedisPrefix      string `env:"EUREKA_REDIS_PREFIX"        envDefault:"eureka:"`

	BlobDriver    string `env:"EUREKA_BLOB_DRIVER"               envDefault:"fs"`
	BlobDir       string `env:"EUREKA_BLOB_DIR"                  envDefault:"./blobdata"`
	S3Bucket      string `env:"EUREKA_BLOB_S3_BUCKET"`
	S3Region      string `env:"EUREKA_BLOB_S3_REGION"            envDefault:"us-east-1"`
	S3Endpoint    string `env:"EUREKA_BLOB_S3_ENDPOINT"`
	S3PathStyle   bool   `env:"EUREKA_BLOB_S3_PATH_STYLE"        envDefault:"false"`
	S3AccessKeyID string `env:"EUREKA_BLOB_S3_ACCESS_KEY_ID"`
	S3SecretKey   string `env:"EUREKA_BLOB_S3_SECRET_ACCESS_KEY"`

	Workers   int `env:"EUREKA_WORKERS"    envDefault:"4"`
	QueueSize int `env:"EUREKA_QUEUE_SIZE" envDefault:"1024"`

	EmailTokenSecret   string `env:"EUREKA_EMAIL_TOKEN_SECRET"`
	InboundEmailUser   string `env:"EUREKA_INBOUND_EMAIL_USER"   envDefault:"system"`
	InboundEmailDomain string `env:"EUREKA_INBOUND_EMAIL_DOMAIN" envDefault:"eurekastreams.local"`

	RateLimitRPS   float64 `env:"EUREKA_RATE_LIMIT_RPS"   envDefault:"20"`
	RateLimitBurst int     `env:"EUREKA_RATE_LIMIT_BURST" envDefault:"40"`

	DailySummaryCron   string `env:"EUREKA_DAILY_SUMMARY_CRON"   envDefault:"15 0 * * *"`
	ExpirationCron     string `env:"EUREKA_EXPIRATION_CRON"      envDefault:"30 1 * * *"`
	UsageRetentionDays int    `env:"EUREKA_USAGE_RETENTION_DAYS" envDefault:"14"`
}

// Load reads an optional .env file and then the process environment.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load dotenv: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.CacheDriver {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache driver %q", c.CacheDriver)
	}
	switch c.BlobDriver {
	case "fs":
	case "s3":
		if c.S3Bucket == "" {
			return errors.New("EUREKA_BLOB_S3_BUCKET required for s3 blob driver")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.BlobDriver)
	}
	if c.Workers < 1 {
		return errors.New("at least one worker is required")
	}
	if c.QueueSize < 1 {
		return errors.New("queue size must be positive")
	}
	return nil
}
