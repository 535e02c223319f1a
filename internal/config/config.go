package config

import (
	"os"
)

type Config struct {
	ServerPort string
	Env        string // "development" | "production"
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string

	// Image store (S3-compatible, MinIO in development).
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	// When true, a disconnect only clears the presence entry if the
	// disconnecting connection is still the one on record.
	PresenceStrict bool

	CORSOrigin string
}

func Load() *Config {
	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		Env:        getEnv("APP_ENV", "development"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "beam"),
		DBPassword: getEnv("DB_PASSWORD", "beam_dev_password"),
		DBName:     getEnv("DB_NAME", "beam"),
		JWTSecret:  getEnv("JWT_SECRET", "dev-secret-change-me"),

		S3Endpoint:  getEnv("S3_ENDPOINT", "http://localhost:9000"),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3Bucket:    getEnv("S3_BUCKET", "beam-uploads"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey: getEnv("S3_SECRET_KEY", "minioadmin"),

		PresenceStrict: getEnv("PRESENCE_STRICT", "false") == "true",

		CORSOrigin: getEnv("CORS_ORIGIN", "http://localhost:5173"),
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}
