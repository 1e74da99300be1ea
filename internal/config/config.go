package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port           int
	DatabaseURL    string
	NatsURL        string
	NatsToken      string
	LogLevel       string
	DeepSeekAPIKey string
	DeepSeekAPIURL string
	Model          string
}

func Load() Config {
	return Config{
		Port:           envInt("MELVILLE_PORT", 8900),
		DatabaseURL:    envStr("DATABASE_URL", ""),
		NatsURL:        envStr("NATS_URL", ""),
		NatsToken:      envStr("NATS_TOKEN", ""),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		DeepSeekAPIKey: envStr("DEEPSEEK_API_KEY", ""),
		DeepSeekAPIURL: envStr("DEEPSEEK_API_URL", "https://api.deepseek.com"),
		Model:          envStr("MELVILLE_MODEL", "deepseek-chat"),
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
