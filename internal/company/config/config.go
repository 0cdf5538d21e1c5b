// Package config loads the company service settings from a YAML file, an
// optional .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/gartstein/companies/internal/company/db"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the service looks for its YAML file.
const DefaultPath = "internal/company/config/config.yaml"

// Config struct for YAML configuration
type Config struct {
	GRPCPort       int      `yaml:"GRPC_PORT"`
	HTTPPort       int      `yaml:"HTTP_PORT"`
	DBDriver       string   `yaml:"DB_DRIVER"`
	DBHost         string   `yaml:"DB_HOST"`
	DBPort         int      `yaml:"DB_PORT"`
	DBUser         string   `yaml:"DB_USER"`
	DBPassword     string   `yaml:"DB_PASSWORD"`
	DBName         string   `yaml:"DB_NAME"`
	DBSSLMode      string   `yaml:"DB_SSLMODE"`
	DBPath         string   `yaml:"DB_PATH"`
	KafkaBrokers   []string `yaml:"KAFKA_BROKERS"`
	Topic          string   `yaml:"TOPIC"`
	JWTSecret      string   `yaml:"JWT_SECRET"`
	StoragePath    string   `yaml:"STORAGE_PATH"`
	MaxUploadBytes int64    `yaml:"MAX_UPLOAD_BYTES"`
	RateLimitRPM   int      `yaml:"RATE_LIMIT_RPM"`
	CORSOrigins    []string `yaml:"CORS_ORIGINS"`
	LogLevel       string   `yaml:"LOG_LEVEL"`
}

// Default returns the settings used for anything neither the file nor the
// environment sets.
func Default() *Config {
	return &Config{
		GRPCPort:       50051,
		HTTPPort:       8080,
		DBDriver:       db.DriverPostgres,
		DBHost:         "localhost",
		DBPort:         5432,
		DBUser:         "postgres",
		DBName:         "companies",
		DBSSLMode:      "disable",
		DBPath:         "companies.db",
		Topic:          "company-events",
		StoragePath:    "storage/logos",
		MaxUploadBytes: 5 << 20,
		RateLimitRPM:   120,
		LogLevel:       "info",
	}
}

// Load reads path (skipped when empty), then any envFiles (".env" when none
// are named, missing files ignored), then the environment, and validates
// the result.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(dst *string) func(string) error {
		return func(v string) error { *dst = v; return nil }
	}
	num := func(dst *int) func(string) error {
		return func(v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return err
			}
			*dst = n
			return nil
		}
	}
	list := func(dst *[]string) func(string) error {
		return func(v string) error { *dst = splitList(v); return nil }
	}

	setters := []struct {
		key string
		set func(string) error
	}{
		{"GRPC_PORT", num(&c.GRPCPort)},
		{"HTTP_PORT", num(&c.HTTPPort)},
		{"DB_DRIVER", str(&c.DBDriver)},
		{"DB_HOST", str(&c.DBHost)},
		{"DB_PORT", num(&c.DBPort)},
		{"DB_USER", str(&c.DBUser)},
		{"DB_PASSWORD", str(&c.DBPassword)},
		{"DB_NAME", str(&c.DBName)},
		{"DB_SSLMODE", str(&c.DBSSLMode)},
		{"DB_PATH", str(&c.DBPath)},
		{"KAFKA_BROKERS", list(&c.KafkaBrokers)},
		{"TOPIC", str(&c.Topic)},
		{"JWT_SECRET", str(&c.JWTSecret)},
		{"STORAGE_PATH", str(&c.StoragePath)},
		{"MAX_UPLOAD_BYTES", func(v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return err
			}
			c.MaxUploadBytes = n
			return nil
		}},
		{"RATE_LIMIT_RPM", num(&c.RateLimitRPM)},
		{"CORS_ORIGINS", list(&c.CORSOrigins)},
		{"LOG_LEVEL", str(&c.LogLevel)},
	}

	for _, s := range setters {
		v, ok := lookup(s.key)
		if !ok {
			continue
		}
		if err := s.set(strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("invalid %s: %w", s.key, err)
		}
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks that required values are present and in range.
func (c *Config) Validate() error {
	var problems []string
	if c.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if !validPort(c.GRPCPort) {
		problems = append(problems, "GRPC_PORT must be between 1 and 65535")
	}
	if !validPort(c.HTTPPort) {
		problems = append(problems, "HTTP_PORT must be between 1 and 65535")
	}
	switch c.DBDriver {
	case db.DriverPostgres:
		if c.DBHost == "" || c.DBName == "" {
			problems = append(problems, "DB_HOST and DB_NAME are required for postgres")
		}
	case db.DriverSQLite:
		if c.DBPath == "" {
			problems = append(problems, "DB_PATH is required for sqlite")
		}
	default:
		problems = append(problems, fmt.Sprintf("DB_DRIVER %q is not supported", c.DBDriver))
	}
	if c.StoragePath == "" {
		problems = append(problems, "STORAGE_PATH is required")
	}
	if c.MaxUploadBytes <= 0 {
		problems = append(problems, "MAX_UPLOAD_BYTES must be positive")
	}
	if c.RateLimitRPM < 0 {
		problems = append(problems, "RATE_LIMIT_RPM must not be negative")
	}
	if len(c.KafkaBrokers) > 0 && c.Topic == "" {
		problems = append(problems, "TOPIC is required when KAFKA_BROKERS is set")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}

// Database returns the repository settings.
func (c *Config) Database() *db.Config {
	return &db.Config{
		Driver:   c.DBDriver,
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		DBName:   c.DBName,
		SSLMode:  c.DBSSLMode,
		Path:     c.DBPath,
	}
}
