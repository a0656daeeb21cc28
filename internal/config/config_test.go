package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

var envKeys = []string{
	"DBMLORM_INPUT", "DBMLORM_OUTPUT", "DBMLORM_OUTPUT_DIR", "DBMLORM_TARGET",
	"DBMLORM_ENUM_TYPE", "DBMLORM_ENUM_LENGTH", "DBMLORM_NATIVE_ENUM",
	"DBMLORM_LOG_LEVEL", "DBMLORM_LOG_FORMAT", "DATABASE_URL",
}

// clearEnv blanks every variable Load reads so the host environment does not leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dbmlorm.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Target != TargetPostgres || cfg.EnumType != EnumTypeString || !cfg.NativeEnum {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}
	if cfg.EnumLength != nil {
		t.Errorf("Expected no enum length, got %d", *cfg.EnumLength)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
input: schema.dbml
output_dir: entity
enum_type: integer
enum_length: 16
native_enum: false
log_level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Input != "schema.dbml" || cfg.OutputDir != "entity" {
		t.Errorf("Unexpected paths: %+v", cfg)
	}
	if cfg.EnumType != EnumTypeInteger || cfg.NativeEnum {
		t.Errorf("Unexpected enum settings: %+v", cfg)
	}
	if cfg.EnumLength == nil || *cfg.EnumLength != 16 {
		t.Errorf("Expected enum length 16, got %v", cfg.EnumLength)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "text" {
		t.Errorf("Unexpected log settings: %s %s", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.Target != TargetPostgres {
		t.Errorf("Expected default target to survive, got %s", cfg.Target)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "input: from-file.dbml\noutput: from-file.rs\n")

	t.Setenv("DBMLORM_INPUT", "from-env.dbml")
	t.Setenv("DBMLORM_ENUM_LENGTH", "32")
	t.Setenv("DBMLORM_NATIVE_ENUM", "false")
	t.Setenv("DATABASE_URL", "sqlite://shop.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Input != "from-env.dbml" {
		t.Errorf("Expected env input, got %s", cfg.Input)
	}
	if cfg.Output != "from-file.rs" {
		t.Errorf("Expected file output, got %s", cfg.Output)
	}
	if cfg.EnumLength == nil || *cfg.EnumLength != 32 {
		t.Errorf("Expected enum length 32, got %v", cfg.EnumLength)
	}
	if cfg.NativeEnum {
		t.Error("Expected native enum to be disabled")
	}
	if cfg.DatabaseURL != "sqlite://shop.db" {
		t.Errorf("Unexpected database URL: %s", cfg.DatabaseURL)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
		env  map[string]string
	}{
		{
			name: "missing file",
			path: func(t *testing.T) string { return filepath.Join(t.TempDir(), "missing.yaml") },
		},
		{
			name: "invalid yaml",
			path: func(t *testing.T) string { return writeConfig(t, "input: [unclosed\n") },
		},
		{
			name: "invalid enum length",
			path: func(t *testing.T) string { return "" },
			env:  map[string]string{"DBMLORM_ENUM_LENGTH": "zero"},
		},
		{
			name: "invalid native enum",
			path: func(t *testing.T) string { return "" },
			env:  map[string]string{"DBMLORM_NATIVE_ENUM": "maybe"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(tt.path(t)); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr error
	}{
		{
			name:   "valid single output",
			modify: func(c *Config) {},
		},
		{
			name:   "valid output dir",
			modify: func(c *Config) { c.Output = ""; c.OutputDir = "entity" },
		},
		{
			name:    "missing input",
			modify:  func(c *Config) { c.Input = "" },
			wantErr: ErrInputNotSet,
		},
		{
			name:    "missing output",
			modify:  func(c *Config) { c.Output = "" },
			wantErr: ErrOutputNotSet,
		},
		{
			name:    "unsupported target",
			modify:  func(c *Config) { c.Target = "mysql" },
			wantErr: ErrUnsupportedTarget,
		},
		{
			name:    "unsupported enum type",
			modify:  func(c *Config) { c.EnumType = "bitmask" },
			wantErr: ErrUnsupportedEnum,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Input = "schema.dbml"
			cfg.Output = "entity.rs"
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
