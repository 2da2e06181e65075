// config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string `yaml:"port"`
	AutoMigrate bool   `yaml:"auto_migrate"`
	DB          DB     `yaml:"db"`
	Auth        Auth   `yaml:"auth"`
	Log         Log    `yaml:"log"`
}

type DB struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type Auth struct {
	Token        string        `yaml:"token"`
	PasswordHash string        `yaml:"password_hash"`
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Default() Config {
	return Config{
		Port:        "8080",
		AutoMigrate: true,
		DB:          DB{Driver: "sqlite3", DSN: "notes.db"},
		Auth:        Auth{Token: "dev", TokenTTL: 24 * time.Hour},
		Log:         Log{Level: "info", Format: "console"},
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (or NOTES_CONFIG), then NOTES_* environment variables. A .env file in the
// working directory is loaded first and never overrides the real environment.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv("NOTES_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	for name, dst := range map[string]*string{
		"NOTES_PORT":          &c.Port,
		"NOTES_DB_DRIVER":     &c.DB.Driver,
		"NOTES_DB_DSN":        &c.DB.DSN,
		"NOTES_TOKEN":         &c.Auth.Token,
		"NOTES_PASSWORD_HASH": &c.Auth.PasswordHash,
		"NOTES_JWT_SECRET":    &c.Auth.JWTSecret,
		"NOTES_LOG_LEVEL":     &c.Log.Level,
		"NOTES_LOG_FORMAT":    &c.Log.Format,
	} {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("NOTES_TOKEN_TTL"); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("NOTES_TOKEN_TTL: %w", err)
		}
		c.Auth.TokenTTL = ttl
	}
	if v, ok := os.LookupEnv("NOTES_AUTO_MIGRATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("NOTES_AUTO_MIGRATE: %w", err)
		}
		c.AutoMigrate = b
	}
	return nil
}

func (c Config) Validate() error {
	switch c.DB.Driver {
	case "sqlite", "sqlite3", "postgres", "postgresql", "pgx", "mysql":
	default:
		return fmt.Errorf("unsupported database driver %q", c.DB.Driver)
	}
	if c.DB.DSN == "" {
		return errors.New("database dsn is required")
	}
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.Auth.Token == "" && c.Auth.PasswordHash == "" {
		return errors.New("set a token or a password hash")
	}
	return nil
}

func (c Config) Addr() string {
	return ":" + c.Port
}
