package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"trivia-quiz/internal/domain"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Storage struct {
		Backend string `yaml:"backend"`
		Dir     string `yaml:"dir"`
	} `yaml:"storage"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		Amount        int    `yaml:"amount"`
		Difficulty    string `yaml:"difficulty"`
		Duration      int    `yaml:"duration"`
		FeedbackDelay string `yaml:"feedbackDelay"`
		Seed          int64  `yaml:"seed"`
	} `yaml:"quiz"`
	Source struct {
		Kind    string `yaml:"kind"`
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
		// Cache keeps fetched questions in Redis and serves them when the source fails.
		Cache bool `yaml:"cache"`
	} `yaml:"source"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Storage.Backend = "file"
	cfg.Storage.Dir = ".quiz"
	cfg.Redis.TTL = "168h"
	cfg.Quiz.Amount = 10
	cfg.Quiz.Difficulty = string(domain.DifficultyMedium)
	cfg.Quiz.Duration = domain.DefaultDuration
	cfg.Quiz.FeedbackDelay = "500ms"
	cfg.Source.Kind = "opentdb"
	cfg.Source.URL = "https://opentdb.com/api.php"
	cfg.Source.Timeout = "10s"
	return cfg
}

// Load reads YAML config from path on top of the defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case "file", "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("storage backend redis needs redis.addr")
		}
	case "postgres":
		if c.Postgres.URL == "" {
			return fmt.Errorf("storage backend postgres needs postgres.url")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Source.Kind {
	case "opentdb", "static":
	case "postgres":
		if c.Postgres.URL == "" {
			return fmt.Errorf("question source postgres needs postgres.url")
		}
	default:
		return fmt.Errorf("unknown question source %q", c.Source.Kind)
	}
	if c.Source.Cache && c.Redis.Addr == "" {
		return fmt.Errorf("source.cache needs redis.addr")
	}

	if c.Quiz.Amount <= 0 {
		return fmt.Errorf("quiz.amount must be positive, got %d", c.Quiz.Amount)
	}
	if c.Quiz.Duration <= 0 {
		return fmt.Errorf("quiz.duration must be positive, got %d", c.Quiz.Duration)
	}
	if _, err := domain.ParseDifficulty(c.Quiz.Difficulty); err != nil {
		return fmt.Errorf("quiz.difficulty %q: %w", c.Quiz.Difficulty, err)
	}
	return nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
