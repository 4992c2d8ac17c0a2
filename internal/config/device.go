package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DeviceConfig drives the scanner CLI. Zero values are filled from defaults.
type DeviceConfig struct {
	DataDir     string          `toml:"data_dir"`
	LogFilePath string          `toml:"log_file_path"`
	UserID      string          `toml:"user_id"`
	Queue       QueueConfig     `toml:"queue"`
	API         APIConfig       `toml:"api"`
	Sync        SyncConfig      `toml:"sync"`
	Vision      VisionConfig    `toml:"vision"`
	Thumbnail   ThumbnailConfig `toml:"thumbnail"`
}

type QueueConfig struct {
	// Backend is "file" or "sqlite".
	Backend string `toml:"backend"`
	Path    string `toml:"path"`
}

type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type SyncConfig struct {
	DrainIntervalSeconds int `toml:"drain_interval_seconds"`
	MaxBackoffSeconds    int `toml:"max_backoff_seconds"`
}

type VisionConfig struct {
	Provider string       `toml:"provider"`
	Gemini   GeminiConfig `toml:"gemini"`
	Ollama   OllamaConfig `toml:"ollama"`
}

type GeminiConfig struct {
	ProjectID       string `toml:"project_id"`
	Location        string `toml:"location"`
	Model           string `toml:"model"`
	CredentialsFile string `toml:"credentials_file"`
}

type OllamaConfig struct {
	BaseURL string `toml:"base_url"`
	Model   string `toml:"model"`
}

type ThumbnailConfig struct {
	Dir          string `toml:"dir"`
	MaxDimension int    `toml:"max_dimension"`
}

func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "ecospectre")
	}
	return ".ecospectre"
}

// DefaultDevicePath is where LoadDevice looks when no path is given.
func DefaultDevicePath() string {
	return filepath.Join(DefaultDataDir(), "config.toml")
}

// LoadDevice reads the TOML file at path. A missing file is not an error.
// ECOSPECTRE_* and GOOGLE_* environment variables override the file.
func LoadDevice(path string) (*DeviceConfig, error) {
	cfg := &DeviceConfig{}
	if path == "" {
		path = DefaultDevicePath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	applyDeviceEnv(cfg)
	applyDeviceDefaults(cfg)
	return cfg, nil
}

func applyDeviceEnv(cfg *DeviceConfig) {
	overrides := []struct {
		key    string
		target *string
	}{
		{"ECOSPECTRE_DATA_DIR", &cfg.DataDir},
		{"ECOSPECTRE_API_URL", &cfg.API.BaseURL},
		{"ECOSPECTRE_QUEUE_PATH", &cfg.Queue.Path},
		{"ECOSPECTRE_QUEUE_BACKEND", &cfg.Queue.Backend},
		{"ECOSPECTRE_VISION_PROVIDER", &cfg.Vision.Provider},
		{"GOOGLE_PROJECT_ID", &cfg.Vision.Gemini.ProjectID},
		{"GOOGLE_LOCATION", &cfg.Vision.Gemini.Location},
		{"GOOGLE_APPLICATION_CREDENTIALS", &cfg.Vision.Gemini.CredentialsFile},
		{"OLLAMA_BASE_URL", &cfg.Vision.Ollama.BaseURL},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			*o.target = v
		}
	}
}

func applyDeviceDefaults(cfg *DeviceConfig) {
	setDefault := func(target *string, value string) {
		if *target == "" {
			*target = value
		}
	}
	setDefaultInt := func(target *int, value int) {
		if *target <= 0 {
			*target = value
		}
	}

	setDefault(&cfg.DataDir, DefaultDataDir())
	setDefault(&cfg.LogFilePath, filepath.Join(cfg.DataDir, "scanner.log"))
	setDefault(&cfg.Queue.Backend, "file")
	if cfg.Queue.Path == "" {
		name := "scans.json"
		if cfg.Queue.Backend == "sqlite" {
			name = "scans.db"
		}
		cfg.Queue.Path = filepath.Join(cfg.DataDir, name)
	}
	setDefault(&cfg.API.BaseURL, "http://localhost:3000/api")
	setDefaultInt(&cfg.API.TimeoutSeconds, 15)
	setDefaultInt(&cfg.Sync.DrainIntervalSeconds, 30)
	setDefaultInt(&cfg.Sync.MaxBackoffSeconds, 300)
	setDefault(&cfg.Vision.Provider, "gemini")
	setDefault(&cfg.Vision.Gemini.Location, "us-central1")
	setDefault(&cfg.Vision.Gemini.Model, "gemini-1.5-flash-002")
	setDefault(&cfg.Vision.Ollama.BaseURL, "http://localhost:11434")
	setDefault(&cfg.Vision.Ollama.Model, "llava")
	setDefault(&cfg.Thumbnail.Dir, filepath.Join(cfg.DataDir, "thumbs"))
	setDefaultInt(&cfg.Thumbnail.MaxDimension, 320)
}

// SaveDevice writes cfg as TOML, creating the parent directory.
func SaveDevice(path string, cfg *DeviceConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
