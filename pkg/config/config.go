// Package config handles loading and managing nuages configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nuages/nuages/pkg/cloud"
)

// Config is the top-level configuration for nuages.
type Config struct {
	Cloud   CloudConfig   `yaml:"cloud"`
	Storage StorageConfig `yaml:"storage"`
	Server  ServerConfig  `yaml:"server"`
}

// CloudConfig controls sizing defaults.
type CloudConfig struct {
	MinSize        float64 `yaml:"min_size"`
	MaxSize        float64 `yaml:"max_size"`
	Mode           string  `yaml:"mode"` // lin or log
	WeightProperty string  `yaml:"weight_property"`
	SizeProperty   string  `yaml:"size_property"`
	LabelProperty  string  `yaml:"label_property"`
}

// StorageConfig selects and configures the blob storage backend.
type StorageConfig struct {
	Backend   string `yaml:"backend"` // local, s3 or gcs
	BaseDir   string `yaml:"base_dir"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// ServerConfig controls the local preview server.
type ServerConfig struct {
	Port           string   `yaml:"port"`
	APIKey         string   `yaml:"api_key"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Cloud: CloudConfig{
			MinSize:        10,
			MaxSize:        100,
			Mode:           string(cloud.ModeLinear),
			WeightProperty: "weight",
			SizeProperty:   "size",
			LabelProperty:  "label",
		},
		Storage: StorageConfig{
			Backend: "local",
			BaseDir: filepath.Join(CacheDir(), "storage"),
		},
		Server: ServerConfig{
			Port:           "7700",
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load reads a config file from the given path.
// If the file does not exist, it returns the default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if _, err := cfg.CloudOptions(); err != nil {
		return nil, fmt.Errorf("invalid cloud config: %w", err)
	}

	return cfg, nil
}

// CloudOptions converts the cloud section into validated sizing options.
func (c *Config) CloudOptions() (cloud.Options, error) {
	mode, err := cloud.ParseMode(c.Cloud.Mode)
	if err != nil {
		return cloud.Options{}, err
	}
	opts := cloud.Options{
		MinSize: c.Cloud.MinSize,
		MaxSize: c.Cloud.MaxSize,
		Mode:    mode,
	}
	return opts, opts.Validate()
}

// FindConfigFile looks for .nuages/config.yaml in the given directory
// and its parents, returning the path if found, or "" if not.
func FindConfigFile(dir string) string {
	for {
		candidate := filepath.Join(dir, ".nuages", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// LoadNearest loads the config found from dir upwards, or the defaults.
func LoadNearest(dir string) (*Config, error) {
	path := FindConfigFile(dir)
	if path == "" {
		return DefaultConfig(), nil
	}
	return Load(path)
}

// CacheDir returns ~/.cache/nuages.
func CacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to temp dir if HOME isn't available
		home = os.TempDir()
	}
	return filepath.Join(home, ".cache", "nuages")
}
