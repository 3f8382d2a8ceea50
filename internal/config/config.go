package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        int
	CorpusPath  string
	Marker      string
	DatabaseURL string
	NatsURL     string
	NatsToken   string
	ModelURL    string
	APIToken    string
	LogLevel    string

	// Generation knobs for the demo endpoint.
	MaxLength   int
	Temperature float64

	// Fine-tune hyperparameters.
	Epochs       int
	BatchSize    int
	LearningRate float64
}

func Load() Config {
	return Config{
		Port:         envInt("PARLEY_PORT", 8760),
		CorpusPath:   envStr("PARLEY_CORPUS", ""),
		Marker:       envStr("PARLEY_MARKER", "__eou__"),
		DatabaseURL:  envStr("DATABASE_URL", ""),
		NatsURL:      envStr("NATS_URL", ""),
		NatsToken:    envStr("NATS_TOKEN", ""),
		ModelURL:     envStr("MODEL_URL", "http://localhost:8600"),
		APIToken:     envStr("PARLEY_API_TOKEN", ""),
		LogLevel:     envStr("LOG_LEVEL", "info"),
		MaxLength:    envInt("PARLEY_MAX_LENGTH", 64),
		Temperature:  envFloat("PARLEY_TEMPERATURE", 1.0),
		Epochs:       envInt("PARLEY_EPOCHS", 3),
		BatchSize:    envInt("PARLEY_BATCH_SIZE", 16),
		LearningRate: envFloat("PARLEY_LEARNING_RATE", 5e-5),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
