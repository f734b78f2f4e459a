package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/nuages/nuages/internal/logutil"
	"github.com/nuages/nuages/pkg/cloud"
	nconfig "github.com/nuages/nuages/pkg/config"
)

type config struct {
	Port           string
	DatabaseURL    string
	APIKey         string
	AllowedOrigins []string
	LogLevel       slog.Level
	CacheSize      int
	Cloud          cloud.Options
	Storage        nconfig.StorageConfig
}

// loadEnv loads the first existing files into the environment. Variables
// already set win.
func loadEnv(filenames ...string) {
	for _, filename := range filenames {
		if s, err := os.Stat(filename); err == nil && !s.IsDir() {
			if err := godotenv.Load(filename); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not load %s: %v\n", filename, err)
			}
		}
	}
}

func loadConfig() (config, error) {
	level, err := logutil.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return config{}, err
	}

	cacheSize := 64
	if v := os.Getenv("CLOUD_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return config{}, fmt.Errorf("CLOUD_CACHE_SIZE must be a positive integer, got %q", v)
		}
		cacheSize = n
	}

	opts := cloud.DefaultOptions()
	if opts.MinSize, err = envFloat("CLOUD_MIN_SIZE", opts.MinSize); err != nil {
		return config{}, err
	}
	if opts.MaxSize, err = envFloat("CLOUD_MAX_SIZE", opts.MaxSize); err != nil {
		return config{}, err
	}
	if v := os.Getenv("CLOUD_MODE"); v != "" {
		if opts.Mode, err = cloud.ParseMode(v); err != nil {
			return config{}, err
		}
	}
	if err := opts.Validate(); err != nil {
		return config{}, err
	}

	var origins []string
	for _, o := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return config{
		Port:           envOrDefault("PORT", "8080"),
		DatabaseURL:    envOrDefault("DATABASE_URL", "postgres://localhost:5432/nuages?sslmode=disable"),
		APIKey:         os.Getenv("API_KEY"),
		AllowedOrigins: origins,
		LogLevel:       level,
		CacheSize:      cacheSize,
		Cloud:          opts,
		Storage: nconfig.StorageConfig{
			Backend:   envOrDefault("STORAGE_BACKEND", "local"),
			BaseDir:   envOrDefault("LOCAL_STORAGE_PATH", "/tmp/nuages-data"),
			Bucket:    os.Getenv("BUCKET"),
			Region:    os.Getenv("S3_REGION"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		},
	}, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, v)
	}
	return f, nil
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
