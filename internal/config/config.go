package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL     string
	StatePath      string
	LogLevel       string
	RequestTimeout time.Duration
}

func must(v, name string) string {
	if v == "" {
		log.Fatalf("missing required env %s", name)
	}
	return v
}

func envDefault(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func envSecondsDefault(name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return time.Duration(n) * time.Second
}

func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	return &Config{
		APIBaseURL:     must(os.Getenv("API_BASE_URL"), "API_BASE_URL"),
		StatePath:      envDefault("STATE_PATH", "respectcfw.db"),
		LogLevel:       envDefault("LOG_LEVEL", "info"),
		RequestTimeout: envSecondsDefault("REQUEST_TIMEOUT_SECONDS", 30*time.Second),
	}
}
