package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries all startup settings, including the bootstrap admin account.
// Nothing in here may be read from the environment after startup.
type Config struct {
	ServerPort string
	DBURL      string
	SecretKey  string

	AdminEmail       string
	AdminPassword    string
	AdminAccountName string

	BlobEndpoint  string
	BlobAccessKey string
	BlobSecretKey string
	BlobBucket    string
	BlobUseSSL    bool
}

// Load reads a .env file if present, then the environment.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBURL:      os.Getenv("DB_URL"),
		SecretKey:  os.Getenv("SECRET_KEY"),

		AdminEmail:       getEnv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword:    os.Getenv("ADMIN_PASSWORD"),
		AdminAccountName: getEnv("ADMIN_ACCOUNT_NAME", "ÅsaKringla"),

		BlobEndpoint:  getEnv("BLOB_ENDPOINT", "localhost:9000"),
		BlobAccessKey: os.Getenv("BLOB_ACCESS_KEY"),
		BlobSecretKey: os.Getenv("BLOB_SECRET_KEY"),
		BlobBucket:    getEnv("BLOB_BUCKET", "nartuliga-images"),
		BlobUseSSL:    getBoolEnv("BLOB_USE_SSL", false),
	}

	if cfg.DBURL == "" {
		return nil, fmt.Errorf("DB_URL is required")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("SECRET_KEY is required")
	}
	if cfg.AdminPassword == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
