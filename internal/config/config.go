package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for texforge.
type Config struct {
	BaseDir  string         `toml:"base_dir"`
	LogDir   string         `toml:"log_dir"`
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Compile  CompileConfig  `toml:"compile"`
	Session  SessionConfig  `toml:"session"`
	Score    ScoreConfig    `toml:"score"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
	StaticDir  string `toml:"static_dir,omitempty"` // optional UI asset directory
}

// DatabaseConfig represents configuration for the metadata database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// CompileConfig holds settings for the external LaTeX compiler and the
// per-session working areas it runs in.
type CompileConfig struct {
	Command       string   `toml:"command"`        // compiler binary, e.g. "pdflatex"
	WorkDir       string   `toml:"work_dir"`       // root for per-session directories
	Timeout       Duration `toml:"timeout"`        // subprocess kill deadline
	Retention     Duration `toml:"retention"`      // how long finished sessions are kept
	SweepInterval Duration `toml:"sweep_interval"` // how often the sweeper runs
}

// SessionConfig holds identity session settings.
type SessionConfig struct {
	TTL Duration `toml:"ttl"`
}

// ScoreConfig holds settings for the AI scoring client. The API key is
// read from the OPENAI_API_KEY environment variable, never from the file.
type ScoreConfig struct {
	Model string `toml:"model"`
}

// Duration wraps time.Duration so TOML values can be written as "1h" or "45s".
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Value returns the underlying time.Duration.
func (d Duration) Value() time.Duration { return time.Duration(d) }

// NewConfig creates a Config with the reference defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Server: ServerConfig{
			ListenAddr: ":3000",
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "data"),
		},
		Compile: CompileConfig{
			Command:       "pdflatex",
			WorkDir:       filepath.Join(baseDir, "compile"),
			Timeout:       Duration(60 * time.Second),
			Retention:     Duration(time.Hour),
			SweepInterval: Duration(10 * time.Minute),
		},
		Session: SessionConfig{
			TTL: Duration(24 * time.Hour),
		},
		Score: ScoreConfig{
			Model: "gpt-4o-mini",
		},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	// Check if config already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
