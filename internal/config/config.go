package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

const (
	DatabasePostgres = "postgres"
	DatabaseSQLite   = "sqlite"

	StorageS3         = "s3"
	StorageFilesystem = "filesystem"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	ProfilePath string `env:"SHOP_PROFILE"`

	Auth      AuthConfig      `envPrefix:"AUTH_"`
	Database  DatabaseConfig  `envPrefix:"DB_"`
	Storage   StorageConfig   `envPrefix:"STORAGE_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Policy    PolicyConfig    `envPrefix:"POLICY_"`
	MySQL     MySQLConfig     `envPrefix:"MYSQL_"`
	Receipt   ReceiptConfig   `envPrefix:"RECEIPT_"`
	Reconcile ReconcileConfig `envPrefix:"RECONCILE_"`
	Log       LogConfig       `envPrefix:"LOG_"`
}

// AuthConfig holds the RS256 key pair as Base64 encoded PEM.
type AuthConfig struct {
	PrivateKey string        `env:"PRIVATE_KEY_BASE64"`
	PublicKey  string        `env:"PUBLIC_KEY_BASE64"`
	Issuer     string        `env:"ISSUER" envDefault:"tailor-ledger"`
	Audience   string        `env:"AUDIENCE" envDefault:"tailor-ledger-api"`
	TokenTTL   time.Duration `env:"TOKEN_TTL" envDefault:"24h"`
}

type DatabaseConfig struct {
	Driver string `env:"DRIVER" envDefault:"sqlite"`
	DSN    string `env:"DSN" envDefault:"file:tailor.db?_foreign_keys=on"`
}

type StorageConfig struct {
	Backend     string `env:"BACKEND" envDefault:"filesystem"`
	Root        string `env:"ROOT" envDefault:"data/media"`
	PublicURL   string `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	MediaSecret string `env:"MEDIA_SECRET"`

	Bucket          string `env:"S3_BUCKET" envDefault:"orders"`
	Region          string `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"S3_ENDPOINT"`
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
}

// RedisConfig enables the signed URL cache when Addr is set.
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
}

type PolicyConfig struct {
	RegoPath   string `env:"REGO_PATH"`
	CasbinPath string `env:"CASBIN_PATH" envDefault:"configs/casbin_policy.csv"`
}

// MySQLConfig stores casbin policies in MySQL when Host is set.
type MySQLConfig struct {
	User     string `env:"USER"`
	Password string `env:"PASSWORD"`
	Host     string `env:"HOST"`
	Port     string `env:"PORT" envDefault:"3306"`
}

func (c MySQLConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/", c.User, c.Password, c.Host, c.Port)
}

type ReceiptConfig struct {
	FontRegular string        `env:"FONT_REGULAR"`
	FontBold    string        `env:"FONT_BOLD"`
	LoadTimeout time.Duration `env:"LOAD_TIMEOUT" envDefault:"30s"`
}

type ReconcileConfig struct {
	Schedule string        `env:"SCHEDULE" envDefault:"@daily"`
	Grace    time.Duration `env:"GRACE" envDefault:"24h"`
	Disabled bool          `env:"DISABLED"`
}

// LogConfig adds a rotated JSON file next to stdout when File is set.
type LogConfig struct {
	Level      string `env:"LEVEL" envDefault:"info"`
	File       string `env:"FILE"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"64"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"7"`
	MaxAgeDays int    `env:"MAX_AGE_DAYS" envDefault:"7"`
}

// Load reads the configuration from the environment. A .env file is loaded
// by the godotenv autoload import in main.
func Load() (*Config, error) {
	return load(env.Options{})
}

func load(opts env.Options) (*Config, error) {
	cfg := new(Config)
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DatabasePostgres, DatabaseSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Storage.Backend {
	case StorageS3:
	case StorageFilesystem:
		if c.Storage.MediaSecret == "" {
			return errors.New("STORAGE_MEDIA_SECRET is required for filesystem storage")
		}
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}

	return nil
}
