package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port    string `mapstructure:"port"`
	GinMode string `mapstructure:"gin_mode"`

	DBDriver   string `mapstructure:"db_driver"`
	DBHost     string `mapstructure:"db_host"`
	DBPort     string `mapstructure:"db_port"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBName     string `mapstructure:"db_name"`
	DBPath     string `mapstructure:"db_path"`
	DBLogMode  bool   `mapstructure:"db_log_mode"`

	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`

	RedisHost     string `mapstructure:"redis_host"`
	RedisPort     string `mapstructure:"redis_port"`
	RedisPassword string `mapstructure:"redis_password"`

	SessionSecret string        `mapstructure:"session_secret"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	JWTExpiresIn  time.Duration `mapstructure:"jwt_expires_in"`
	JWTIssuer     string        `mapstructure:"jwt_issuer"`

	OpenAIAPIKey string `mapstructure:"openai_api_key"`

	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"`

	StorageDriver     string `mapstructure:"storage_driver"`
	UploadDir         string `mapstructure:"upload_dir"`
	UploadMaxFileSize int64  `mapstructure:"upload_max_file_size"`
	UploadMaxFiles    int    `mapstructure:"upload_max_files"`
	S3Bucket          string `mapstructure:"s3_bucket"`
	S3Region          string `mapstructure:"s3_region"`
	S3Endpoint        string `mapstructure:"s3_endpoint"`
	S3AccessKey       string `mapstructure:"s3_access_key"`
	S3SecretKey       string `mapstructure:"s3_secret_key"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

var defaults = map[string]any{
	"port":     "8080",
	"gin_mode": "debug",

	"db_driver":   "sqlite",
	"db_host":     "localhost",
	"db_port":     "3306",
	"db_user":     "taskuser",
	"db_password": "taskpassword",
	"db_name":     "task_management",
	"db_path":     "data/taskboard.db",
	"db_log_mode": false,

	"mongo_uri":      "mongodb://localhost:27017",
	"mongo_database": "task_management",

	"redis_host":     "",
	"redis_port":     "6379",
	"redis_password": "",

	"session_secret": "default-secret-key-change-me",
	"jwt_secret":     "",
	"jwt_expires_in": "168h",
	"jwt_issuer":     "taskboard-api",

	"openai_api_key": "",

	"rate_limit_requests": 100,
	"rate_limit_window":   "15m",
	"max_body_bytes":      10 << 20,

	"storage_driver":       "local",
	"upload_dir":           "uploads",
	"upload_max_file_size": 10 << 20,
	"upload_max_files":     5,
	"s3_bucket":            "",
	"s3_region":            "us-east-1",
	"s3_endpoint":          "",
	"s3_access_key":        "",
	"s3_secret_key":        "",

	"log_level":  "info",
	"log_format": "text",
}

// Load builds the configuration from defaults, an optional config file at path,
// and environment variables (DB_HOST overrides db_host, and so on).
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction reports whether the server runs in gin release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// RedisAddr returns host:port, or "" when Redis is not configured.
func (c *Config) RedisAddr() string {
	if c.RedisHost == "" {
		return ""
	}
	return c.RedisHost + ":" + c.RedisPort
}

// TokenSecret returns the JWT signing secret, falling back to the session
// secret outside production.
func (c *Config) TokenSecret() string {
	if c.JWTSecret != "" {
		return c.JWTSecret
	}
	return c.SessionSecret
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite", "postgres", "mysql", "mongodb":
	default:
		return fmt.Errorf("unsupported db_driver %q", c.DBDriver)
	}
	switch c.StorageDriver {
	case "local", "s3":
	default:
		return fmt.Errorf("unsupported storage_driver %q", c.StorageDriver)
	}
	if c.StorageDriver == "s3" && c.S3Bucket == "" {
		return errors.New("s3_bucket is required when storage_driver is s3")
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return errors.New("jwt_secret is required in release mode")
	}
	if c.JWTExpiresIn <= 0 {
		return errors.New("jwt_expires_in must be positive")
	}
	if c.RateLimitRequests <= 0 || c.RateLimitWindow <= 0 {
		return errors.New("rate limit requests and window must be positive")
	}
	return nil
}
