// Package config загружает конфигурацию из .env и переменных окружения.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type Config struct {
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	// WebhookURL — публичный базовый URL. Пусто — работаем long-polling'ом.
	WebhookURL string `env:"WEBHOOK_URL"`
	Port       string `env:"PORT"`

	// VisionEngine — движок детекции: yolo | gemini.
	VisionEngine string `env:"VISION_ENGINE"`
	// InferenceURL — адрес сервиса инференса YOLO.
	InferenceURL string `env:"INFERENCE_URL"`

	GeminiAPIKey string `env:"GEMINI_API_KEY"`
	GeminiModel  string `env:"GEMINI_MODEL"`

	// DatabaseURL — DSN Postgres для журнала детекций. Пусто — без журнала.
	DatabaseURL string `env:"DATABASE_URL"`

	Debug bool `env:"DEBUG"`
}

func defaults() *Config {
	return &Config{
		Port:         "8080",
		VisionEngine: "yolo",
		InferenceURL: "http://localhost:5000",
		GeminiModel:  "gemini-2.5-flash",
	}
}

// Load читает .env (если есть) и окружение поверх дефолтов.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TelegramBotToken == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	return cfg, nil
}
