package config

import (
	"os"
	"strconv"
)

type Config struct {
	GoogleApiKey     string
	DatabaseURL      string
	ReasoningModel   string
	FastModel        string
	Port             string
	Concurrency      int
	WindowSize       int
	WindowOverlap    int
	MaxVisitedURLs   int
	LearningsPerTask int
}

func Load() *Config {
	return &Config{
		GoogleApiKey:     getEnv("GOOGLE_API_KEY", ""),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		ReasoningModel:   getEnv("REASONING_MODEL", "gemini-3-pro-preview"),
		FastModel:        getEnv("FAST_MODEL", "gemini-3-flash-preview"),
		Port:             getEnv("PORT", "3000"),
		Concurrency:      getEnvAsInt("CONCURRENCY", 5),
		WindowSize:       getEnvAsInt("WINDOW_SIZE", 140),
		WindowOverlap:    getEnvAsInt("WINDOW_OVERLAP", 20),
		MaxVisitedURLs:   getEnvAsInt("MAX_VISITED_URLS", 20),
		LearningsPerTask: getEnvAsInt("LEARNINGS_PER_TASK", 3),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
