package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "simbridge.yaml")

	tests := []struct {
		name          string
		setup         func()
		validate      func(*testing.T, *Config)
		checkFile     func(*testing.T)
		expectedError bool
	}{
		{
			name:  "NewFile_Defaults",
			setup: func() {},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Sim.Provider != "simconnect" {
					t.Errorf("expected default provider 'simconnect', got '%s'", cfg.Sim.Provider)
				}
				if time.Duration(cfg.Sync.PollInterval) != 250*time.Millisecond {
					t.Errorf("expected poll interval 250ms, got %v", time.Duration(cfg.Sync.PollInterval))
				}
				if !cfg.Sync.FireOnDown || !cfg.Sync.AutoReconnect {
					t.Error("expected fire_on_down and auto_reconnect to default to true")
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if !strings.Contains(string(content), "held_action_delay: 450ms") {
					t.Error("config file missing default values")
				}
				if !strings.Contains(string(content), "# Options: simconnect, mock") {
					t.Error("config file missing provider comment")
				}
			},
		},
		{
			name: "ExistingFile_Override",
			setup: func() {
				err := os.WriteFile(configPath, []byte("sim:\n  provider: mock\nsync:\n  poll_interval: 1s\n  locale: de-DE\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Sim.Provider != "mock" {
					t.Errorf("expected provider 'mock', got '%s'", cfg.Sim.Provider)
				}
				if time.Duration(cfg.Sync.PollInterval) != time.Second {
					t.Errorf("expected poll interval 1s, got %v", time.Duration(cfg.Sync.PollInterval))
				}
				if cfg.Sync.Locale != "de-DE" {
					t.Errorf("expected locale de-DE, got %s", cfg.Sync.Locale)
				}
				// untouched fields keep defaults
				if time.Duration(cfg.Sync.TickInterval) != 25*time.Millisecond {
					t.Errorf("expected tick interval default, got %v", time.Duration(cfg.Sync.TickInterval))
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if !strings.Contains(string(content), "provider: mock") {
					t.Error("config file should keep custom value")
				}
			},
		},
		{
			name: "InvalidYAML",
			setup: func() {
				_ = os.WriteFile(configPath, []byte("sync: [unclosed"), 0o644)
			},
			expectedError: true,
		},
		{
			name: "InvalidValues",
			setup: func() {
				_ = os.WriteFile(configPath, []byte("sim:\n  provider: xplane\n"), 0o644)
			},
			expectedError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_ = os.Remove(configPath)
			tt.setup()

			cfg, err := Load(configPath)
			if (err != nil) != tt.expectedError {
				t.Fatalf("Load() error = %v, expectedError %v", err, tt.expectedError)
			}
			if tt.expectedError {
				return
			}
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
			if tt.checkFile != nil {
				tt.checkFile(t)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero tick", func(c *Config) { c.Sync.TickInterval = 0 }, "tick_interval"},
		{"poll faster than tick", func(c *Config) { c.Sync.PollInterval = Duration(time.Millisecond) }, "poll_interval"},
		{"zero retry", func(c *Config) { c.Sync.RetryInterval = 0 }, "retry_interval"},
		{"zero rate", func(c *Config) { c.Sync.HeldActionRate = 0 }, "held_action_rate"},
		{"bad locale", func(c *Config) { c.Sync.Locale = "not a tag!" }, "locale"},
		{"bad provider", func(c *Config) { c.Sim.Provider = "xplane" }, "sim.provider"},
		{"surface without url", func(c *Config) { c.Surface.URL = "" }, "surface.url"},
		{"disabled surface without url", func(c *Config) { c.Surface.Enabled = false; c.Surface.URL = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected %q in %q", tt.wantErr, err.Error())
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SIMBRIDGE_SIM_PROVIDER", "mock")
	t.Setenv("SIMBRIDGE_SURFACE_URL", "ws://example:1/plugin")
	t.Setenv("SIMBRIDGE_POLL_INTERVAL", "2s")

	cfg := DefaultConfig()
	if err := ApplyEnv(cfg); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.Sim.Provider != "mock" {
		t.Errorf("expected provider from env, got %s", cfg.Sim.Provider)
	}
	if cfg.Surface.URL != "ws://example:1/plugin" {
		t.Errorf("expected url from env, got %s", cfg.Surface.URL)
	}
	if time.Duration(cfg.Sync.PollInterval) != 2*time.Second {
		t.Errorf("expected 2s, got %v", time.Duration(cfg.Sync.PollInterval))
	}

	t.Setenv("SIMBRIDGE_POLL_INTERVAL", "soon")
	if err := ApplyEnv(DefaultConfig()); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid for bad duration, got %v", err)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("SIMBRIDGE_TEST_DOTENV=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("SIMBRIDGE_TEST_DOTENV") })

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), envPath); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("SIMBRIDGE_TEST_DOTENV"); got != "from-file" {
		t.Errorf("expected from-file, got %q", got)
	}
}

func TestGenerateDefault(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "sub", "simbridge.yaml")

	if err := GenerateDefault(configPath); err != nil {
		t.Fatalf("GenerateDefault failed: %v", err)
	}
	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read generated file: %v", err)
	}
	if !strings.HasPrefix(string(content), "# SimBridge Configuration") {
		t.Error("generated file missing header")
	}

	// Existing file is left alone.
	if err := os.WriteFile(configPath, []byte("custom"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := GenerateDefault(configPath); err != nil {
		t.Fatalf("GenerateDefault failed: %v", err)
	}
	content, _ = os.ReadFile(configPath)
	if string(content) != "custom" {
		t.Error("GenerateDefault overwrote an existing file")
	}
}
