// Package config loads generator settings from a YAML file, a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	TargetPostgres = "postgres"

	EnumTypeString  = "string"
	EnumTypeInteger = "integer"
)

var (
	ErrInputNotSet       = errors.New("input is not set")
	ErrOutputNotSet      = errors.New("output is not set")
	ErrUnsupportedTarget = errors.New("unsupported target")
	ErrUnsupportedEnum   = errors.New("unsupported enum type")
)

// Config holds the generator configuration.
type Config struct {
	Input     string `yaml:"input"`
	Output    string `yaml:"output"`
	OutputDir string `yaml:"output_dir"`
	Target    string `yaml:"target"`
	// EnumType selects how active enums are stored: "string" or "integer"
	EnumType   string `yaml:"enum_type"`
	EnumLength *int   `yaml:"enum_length"`
	NativeEnum bool   `yaml:"native_enum"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	DatabaseURL string `yaml:"database_url"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Target:     TargetPostgres,
		EnumType:   EnumTypeString,
		NativeEnum: true,
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// Load reads configuration from an optional YAML file, then applies .env and
// environment variable overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	// Load .env file if it exists (silently ignore if missing)
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Input, "DBMLORM_INPUT")
	setString(&c.Output, "DBMLORM_OUTPUT")
	setString(&c.OutputDir, "DBMLORM_OUTPUT_DIR")
	setString(&c.Target, "DBMLORM_TARGET")
	setString(&c.EnumType, "DBMLORM_ENUM_TYPE")
	setString(&c.LogLevel, "DBMLORM_LOG_LEVEL")
	setString(&c.LogFormat, "DBMLORM_LOG_FORMAT")
	setString(&c.DatabaseURL, "DATABASE_URL")

	if v := os.Getenv("DBMLORM_ENUM_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid DBMLORM_ENUM_LENGTH %q: must be a positive integer", v)
		}
		c.EnumLength = &n
	}
	if v := os.Getenv("DBMLORM_NATIVE_ENUM"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DBMLORM_NATIVE_ENUM %q: %w", v, err)
		}
		c.NativeEnum = b
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks the settings needed for entity generation
func (c *Config) Validate() error {
	if c.Input == "" {
		return ErrInputNotSet
	}
	if c.Output == "" && c.OutputDir == "" {
		return ErrOutputNotSet
	}
	if c.Target != TargetPostgres {
		return fmt.Errorf("%w: %s", ErrUnsupportedTarget, c.Target)
	}
	switch c.EnumType {
	case EnumTypeString, EnumTypeInteger:
	default:
		return fmt.Errorf("%w: %s (must be 'string' or 'integer')", ErrUnsupportedEnum, c.EnumType)
	}
	return nil
}
