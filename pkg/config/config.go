package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the binary looks for its configuration.
const DefaultPath = "configs/simbridge.yaml"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds the application configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	DB      DBConfig      `yaml:"db"`
	Server  ServerConfig  `yaml:"server"`
	Sim     SimConfig     `yaml:"sim"`
	Surface SurfaceConfig `yaml:"surface"`
	Sync    SyncConfig    `yaml:"sync"`
	Defs    DefsConfig    `yaml:"defs"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	// Trace enables very chatty dispatch loop logs at DEBUG.
	Trace bool `yaml:"trace"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings. An empty path keeps state in memory.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP status API settings.
type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// SimConfig holds settings for the simulation connection.
type SimConfig struct {
	Provider string        `yaml:"provider"` // "simconnect", "mock"
	AppName  string        `yaml:"app_name"`
	DLLPath  string        `yaml:"dll_path"`
	Mock     MockSimConfig `yaml:"mock"`
}

// MockSimConfig holds settings for the mock simulation.
type MockSimConfig struct {
	Animate      bool              `yaml:"animate"`
	FailConnects int               `yaml:"fail_connects"`
	Values       map[string]string `yaml:"values"`
}

// SurfaceConfig holds settings for the control surface connection.
type SurfaceConfig struct {
	Enabled     bool   `yaml:"enabled"`
	URL         string `yaml:"url"`
	PluginID    string `yaml:"plugin_id"`
	StatePrefix string `yaml:"state_prefix"`
}

// SyncConfig holds the engine timing and behavior.
type SyncConfig struct {
	TickInterval    Duration `yaml:"tick_interval"`
	PollInterval    Duration `yaml:"poll_interval"`
	RetryInterval   Duration `yaml:"retry_interval"`
	HeldActionDelay Duration `yaml:"held_action_delay"`
	HeldActionRate  Duration `yaml:"held_action_rate"`
	FireOnDown      bool     `yaml:"fire_on_down"`
	AutoReconnect   bool     `yaml:"auto_reconnect"`
	Locale          string   `yaml:"locale"`
	QueueSize       int      `yaml:"queue_size"`
}

// DefsConfig points at action and variable tables. Empty paths use the
// built-in tables.
type DefsConfig struct {
	Actions   string `yaml:"actions"`
	Variables string `yaml:"variables"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/simbridge.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/simbridge.db",
		},
		Server: ServerConfig{
			Enabled: true,
			Address: "localhost:1921",
		},
		Sim: SimConfig{
			Provider: "simconnect",
			AppName:  "SimBridge",
		},
		Surface: SurfaceConfig{
			Enabled:     true,
			URL:         "ws://127.0.0.1:12136/plugin",
			PluginID:    "simbridge",
			StatePrefix: "simbridge",
		},
		Sync: SyncConfig{
			TickInterval:    Duration(25 * time.Millisecond),
			PollInterval:    Duration(250 * time.Millisecond),
			RetryInterval:   Duration(10 * time.Second),
			HeldActionDelay: Duration(450 * time.Millisecond),
			HeldActionRate:  Duration(100 * time.Millisecond),
			FireOnDown:      true,
			AutoReconnect:   true,
			Locale:          "en-US",
			QueueSize:       256,
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// Environment overrides are applied afterwards and never written back.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv reads .env style files into the process environment.
// Missing files are skipped; variables already set win.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides selected settings from SIMBRIDGE_* variables.
func ApplyEnv(cfg *Config) error {
	str := map[string]*string{
		"SIMBRIDGE_SIM_PROVIDER":   &cfg.Sim.Provider,
		"SIMBRIDGE_SIMCONNECT_DLL": &cfg.Sim.DLLPath,
		"SIMBRIDGE_SURFACE_URL":    &cfg.Surface.URL,
		"SIMBRIDGE_SERVER_ADDRESS": &cfg.Server.Address,
		"SIMBRIDGE_DB_PATH":        &cfg.DB.Path,
		"SIMBRIDGE_LOG_LEVEL":      &cfg.Log.Server.Level,
		"SIMBRIDGE_LOCALE":         &cfg.Sync.Locale,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("SIMBRIDGE_POLL_INTERVAL"); ok {
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: SIMBRIDGE_POLL_INTERVAL: %v", ErrInvalid, err)
		}
		cfg.Sync.PollInterval = Duration(d)
	}
	return nil
}

// Validate checks settings the engine cannot run with.
func (c *Config) Validate() error {
	var problems []string
	s := c.Sync
	if s.TickInterval <= 0 {
		problems = append(problems, "sync.tick_interval must be positive")
	}
	if s.PollInterval < s.TickInterval {
		problems = append(problems, "sync.poll_interval must not be shorter than sync.tick_interval")
	}
	if s.RetryInterval <= 0 {
		problems = append(problems, "sync.retry_interval must be positive")
	}
	if s.HeldActionRate <= 0 {
		problems = append(problems, "sync.held_action_rate must be positive")
	}
	if s.HeldActionDelay < 0 {
		problems = append(problems, "sync.held_action_delay must not be negative")
	}
	if _, err := language.Parse(s.Locale); err != nil {
		problems = append(problems, fmt.Sprintf("sync.locale %q is not a language tag", s.Locale))
	}
	switch c.Sim.Provider {
	case "simconnect", "mock":
	default:
		problems = append(problems, fmt.Sprintf("sim.provider %q must be simconnect or mock", c.Sim.Provider))
	}
	if c.Surface.Enabled && c.Surface.URL == "" {
		problems = append(problems, "surface.url is required when the surface is enabled")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# SimBridge Configuration
# ----------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h; a bare number is milliseconds
# Environment overrides (also read from .env):
#   SIMBRIDGE_SIM_PROVIDER, SIMBRIDGE_SIMCONNECT_DLL, SIMBRIDGE_SURFACE_URL,
#   SIMBRIDGE_SERVER_ADDRESS, SIMBRIDGE_DB_PATH, SIMBRIDGE_LOG_LEVEL,
#   SIMBRIDGE_LOCALE, SIMBRIDGE_POLL_INTERVAL

`)
	data = append(header, data...)

	reProvider := regexp.MustCompile(`(?m)^(\s+)provider:`)
	data = reProvider.ReplaceAll(data, []byte("${1}# Options: simconnect, mock\n${1}provider:"))

	reDefs := regexp.MustCompile(`(?m)^(\s+)actions:`)
	data = reDefs.ReplaceAll(data, []byte("${1}# Empty uses the built-in tables\n${1}actions:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
