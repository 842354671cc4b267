package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  StorageConfig  `yaml:"storage"`
	Workers  WorkersConfig  `yaml:"workers"`
	Import   ImportConfig   `yaml:"import"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name" env:"APP_NAME" validate:"required"`
	Version string `yaml:"version" env:"APP_VERSION"`
	Env     string `yaml:"env" env:"APP_ENV" validate:"omitempty,oneof=development staging production"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" env:"SERVER_PORT" validate:"gt=0,lt=65536"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver             string        `yaml:"driver" env:"DATABASE_DRIVER" validate:"required,oneof=postgres mysql"`
	Host               string        `yaml:"host" env:"DATABASE_HOST" validate:"required"`
	Port               int           `yaml:"port" env:"DATABASE_PORT" validate:"gt=0"`
	User               string        `yaml:"user" env:"DATABASE_USER" validate:"required"`
	Password           string        `yaml:"password" env:"DATABASE_PASSWORD"`
	Name               string        `yaml:"name" env:"DATABASE_NAME" validate:"required"`
	SSLMode            string        `yaml:"ssl_mode" env:"DATABASE_SSL_MODE"`
	Charset            string        `yaml:"charset"`
	Loc                string        `yaml:"loc"`
	MaxConnections     int           `yaml:"max_connections"`
	MaxIdleConnections int           `yaml:"max_idle_connections"`
	ConnectionLifetime time.Duration `yaml:"connection_lifetime"`
}

type RedisConfig struct {
	Host         string `yaml:"host" env:"REDIS_HOST" validate:"required"`
	Port         int    `yaml:"port" env:"REDIS_PORT" validate:"gt=0"`
	Password     string `yaml:"password" env:"REDIS_PASSWORD"`
	DB           int    `yaml:"db" env:"REDIS_DB"`
	PoolSize     int    `yaml:"pool_size"`
	ImportQueue  string `yaml:"import_queue" validate:"required"`
	DLQSuffix    string `yaml:"dlq_suffix"`
	MirrorPrefix string `yaml:"mirror_prefix" validate:"required"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Endpoint  string `yaml:"endpoint" env:"S3_ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"S3_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"S3_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"S3_BUCKET"`
	Region    string `yaml:"region" env:"S3_REGION"`
	UseSSL    bool   `yaml:"use_ssl"`
	KeyPrefix string `yaml:"key_prefix"`
}

type WorkersConfig struct {
	Ingestion IngestionWorkerConfig `yaml:"ingestion"`
	Resync    ResyncWorkerConfig    `yaml:"resync"`
}

type IngestionWorkerConfig struct {
	Count int `yaml:"count" validate:"gte=0"`
}

type ResyncWorkerConfig struct {
	Interval   time.Duration `yaml:"interval"`
	RunOnStart bool          `yaml:"run_on_start"`
}

type ImportConfig struct {
	Students       RosterImportConfig `yaml:"students"`
	Teachers       RosterImportConfig `yaml:"teachers"`
	MaxUploadBytes int64              `yaml:"max_upload_bytes" env:"IMPORT_MAX_UPLOAD_BYTES"`
}

type RosterImportConfig struct {
	// OnDuplicate selects which in-file occurrence of an identifier survives: "first" or "last".
	OnDuplicate string `yaml:"on_duplicate" validate:"omitempty,oneof=first last"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" env:"LOG_FORMAT" validate:"omitempty,oneof=json console"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	return LoadFile(configPath)
}

// LoadFile reads the YAML file at path, overlays environment variables,
// fills defaults and validates the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "student-affairs"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 120 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.Port == 0 {
		if c.Database.Driver == "mysql" {
			c.Database.Port = 3306
		} else {
			c.Database.Port = 5432
		}
	}
	if c.Database.Charset == "" {
		c.Database.Charset = "utf8mb4"
	}
	if c.Database.Loc == "" {
		c.Database.Loc = "UTC"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Redis.ImportQueue == "" {
		c.Redis.ImportQueue = "roster:imports"
	}
	if c.Redis.DLQSuffix == "" {
		c.Redis.DLQSuffix = ":dlq"
	}
	if c.Redis.MirrorPrefix == "" {
		c.Redis.MirrorPrefix = "mirror"
	}
	if c.Storage.S3.KeyPrefix == "" {
		c.Storage.S3.KeyPrefix = "imports"
	}
	if c.Workers.Ingestion.Count == 0 {
		c.Workers.Ingestion.Count = 2
	}
	if c.Workers.Resync.Interval == 0 {
		c.Workers.Resync.Interval = 15 * time.Minute
	}
	if c.Import.Students.OnDuplicate == "" {
		c.Import.Students.OnDuplicate = "first"
	}
	if c.Import.Teachers.OnDuplicate == "" {
		c.Import.Teachers.OnDuplicate = "last"
	}
	if c.Import.MaxUploadBytes == 0 {
		c.Import.MaxUploadBytes = 10 << 20
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DatabaseDSN returns a DSN for the configured driver.
func (c *Config) DatabaseDSN() string {
	if c.Database.Driver == "mysql" {
		// The repository scans DATETIME into time.Time and reads matched rows
		// from UPDATE results.
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=true&clientFoundRows=true&loc=%s",
			c.Database.User, c.Database.Password, c.Database.Host, c.Database.Port,
			c.Database.Name, c.Database.Charset, url.QueryEscape(c.Database.Loc))
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Database.User, c.Database.Password),
		Host:     fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		Path:     c.Database.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.Database.SSLMode),
	}
	return u.String()
}

func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}
