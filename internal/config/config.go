package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration values.
type Config struct {
	AppPort      string
	Env          string
	MongoURI     string
	DatabaseName string
	JWTSecret    string
	TokenExpires time.Duration

	// Registration is restricted to addresses under this domain.
	EmailDomain string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	StorageCloudName string
	StorageAPIKey    string
	StorageAPISecret string

	GoogleClientID     string
	GoogleClientSecret string
	GithubClientID     string
	GithubClientSecret string
	OAuthCallbackBase  string
}

// Load reads environment variables and returns a populated Config.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:      getEnv("APP_PORT", "8080"),
		Env:          getEnv("APP_ENV", "development"),
		MongoURI:     getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DatabaseName: getEnv("MONGO_DB", "unimart"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		TokenExpires: time.Duration(getEnvInt("JWT_TTL_HOURS", 720)) * time.Hour,
		EmailDomain:  getEnv("EMAIL_DOMAIN", "iut-dhaka.edu"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", "no-reply@unimart.local"),

		StorageCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		StorageAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		StorageAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GithubClientID:     getEnv("GITHUB_CLIENT_ID", ""),
		GithubClientSecret: getEnv("GITHUB_CLIENT_SECRET", ""),
		OAuthCallbackBase:  getEnv("OAUTH_CALLBACK_BASE", "http://localhost:8080"),
	}

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	return cfg
}

// Production reports whether the app runs with production hardening
// (secure cookies, real mail delivery).
func (c *Config) Production() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
