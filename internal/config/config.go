package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr     string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath       string     `env:"DB_PATH" envDefault:"data/livequiz.db"`
	LogLevel     slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	PublicURL    string     `env:"PUBLIC_URL" envDefault:"http://localhost:8080"`
	AdminKeyHash string     `env:"ADMIN_KEY_HASH"`
	SPADir       string     `env:"SPA_DIR"`
	QuizCount    int        `env:"QUIZ_COUNT" envDefault:"5"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	return &cfg, nil
}
