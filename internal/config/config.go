package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix         = "KB_"
	configPathEnv     = "KB_CONFIG"
	maxConfigFileSize = 1 << 20
)

var defaults = []byte(`
server:
  addr: ":8787"
  cors_origin: "*"
  read_timeout: 15s
  write_timeout: 30s
database:
  url: "postgres://kb:kb@localhost:5432/kb?sslmode=disable"
  migrations_dir: "./db/migrations"
  max_open_conns: 20
  max_idle_conns: 10
  conn_max_lifetime: 30m
redis:
  url: "redis://localhost:6379/0"
  editor_state_ttl: 720h
meili:
  url: "http://localhost:7700"
  master_key: "kb-meili-key"
  index: "documents"
minio:
  endpoint: ""
  bucket: "kb-assets"
  use_ssl: false
auth:
  jwt_secret: "kb-dev-secret"
  issuer: "knowledgebase"
  access_ttl: 15m
repos:
  dir: "./data/repos"
log:
  level: "info"
  development: false
seed:
  enabled: true
  admin_email: "admin@kb.local"
  admin_password: "kb-admin-password"
  admin_name: "Admin"
`)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	Meili    MeiliConfig    `koanf:"meili"`
	Minio    MinioConfig    `koanf:"minio"`
	Auth     AuthConfig     `koanf:"auth"`
	Repos    ReposConfig    `koanf:"repos"`
	Log      LogConfig      `koanf:"log"`
	Seed     SeedConfig     `koanf:"seed"`
}

type ServerConfig struct {
	Addr         string        `koanf:"addr"`
	CORSOrigin   string        `koanf:"cors_origin"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MigrationsDir   string        `koanf:"migrations_dir"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// RedisConfig configures the editor state store. An empty URL keeps editor
// state in process memory.
type RedisConfig struct {
	URL            string        `koanf:"url"`
	EditorStateTTL time.Duration `koanf:"editor_state_ttl"`
}

// MeiliConfig configures the primary search backend. An empty URL falls back
// to PostgreSQL full-text search only.
type MeiliConfig struct {
	URL       string `koanf:"url"`
	MasterKey string `koanf:"master_key"`
	Index     string `koanf:"index"`
}

// MinioConfig configures the asset bucket used by image blocks. Uploads are
// disabled when Endpoint is empty.
type MinioConfig struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	UseSSL    bool   `koanf:"use_ssl"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	Issuer    string        `koanf:"issuer"`
	AccessTTL time.Duration `koanf:"access_ttl"`
}

type ReposConfig struct {
	Dir string `koanf:"dir"`
}

type LogConfig struct {
	Level       string `koanf:"level"`
	Development bool   `koanf:"development"`
}

// SeedConfig controls first-start data: the admin account is always ensured,
// the welcome document only when Enabled and the database is empty.
type SeedConfig struct {
	Enabled       bool   `koanf:"enabled"`
	AdminEmail    string `koanf:"admin_email"`
	AdminPassword string `koanf:"admin_password"`
	AdminName     string `koanf:"admin_name"`
}

// Load builds the configuration from built-in defaults, then the YAML file
// at path (or $KB_CONFIG when path is empty, skipped if neither is set),
// then KB_* environment variables:
//
//	KB_SERVER_ADDR        -> server.addr
//	KB_AUTH_JWT_SECRET    -> auth.jwt_secret
//	KB_REDIS_URL          -> redis.url
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaults), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return Config{}, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// envKey maps KB_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return content, nil
}

func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, errors.New("database.url is required"))
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		errs = append(errs, errors.New("database pool sizes must not be negative"))
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Auth.AccessTTL <= 0 {
		errs = append(errs, errors.New("auth.access_ttl must be positive"))
	}
	if strings.TrimSpace(c.Seed.AdminEmail) == "" || len(c.Seed.AdminPassword) < 8 {
		errs = append(errs, errors.New("seed.admin_email and an admin_password of at least 8 characters are required"))
	}
	if c.Minio.Endpoint != "" && c.Minio.Bucket == "" {
		errs = append(errs, errors.New("minio.bucket is required when minio.endpoint is set"))
	}
	return errors.Join(errs...)
}
