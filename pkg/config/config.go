package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	StateSecret string
	FrontendURL string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	SlackClientID     string
	SlackClientSecret string
	SlackRedirectURI  string

	AIProvider    string
	GeminiAPIKey  string
	OllamaBaseURL string
	OllamaModel   string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "your-secret-key-change-in-production")

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=flowdesk port=5432 sslmode=disable"),
		JWTSecret:   jwtSecret,
		StateSecret: getEnv("OAUTH_STATE_SECRET", jwtSecret),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/integrations/callback/google"),

		SlackClientID:     getEnv("SLACK_CLIENT_ID", ""),
		SlackClientSecret: getEnv("SLACK_CLIENT_SECRET", ""),
		SlackRedirectURI:  getEnv("SLACK_REDIRECT_URI", "http://localhost:8080/api/integrations/callback/slack"),

		AIProvider:    getEnv("AI_PROVIDER", "auto"),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", ""),
		OllamaModel:   getEnv("OLLAMA_MODEL", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
