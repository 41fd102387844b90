package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, read from the environment.
type Config struct {
	Port string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string

	// LLMBackend selects the upstream client: "rest" (default) or "sdk".
	LLMBackend string

	// DBPath enables the prediction history store when set.
	DBPath string
}

// LoadEnvFile loads environment variables from a local .env file. Errors are
// ignored since the file may not exist.
func LoadEnvFile() {
	_ = godotenv.Load()
}

func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL: os.Getenv("GEMINI_BASE_URL"),
		LLMBackend:    getEnv("LLM_BACKEND", "rest"),
		DBPath:        os.Getenv("PRICELENS_DB_PATH"),
	}
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
