// Package config reads the runtime settings from the environment.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the backend settings
type Config struct {
	Env             string
	Port            string
	DatabaseURL     string
	CredentialsPath string
	CredentialsJSON string
	DriveFolderID   string
	BaseURL         string
	PricingConfig   string
	ChromePath      string
	ImageCacheDir   string
	LogLevel        string
}

// Production reports whether ENV=production
func (c Config) Production() bool {
	return c.Env == "production"
}

// DriveEnabled reports whether Google Drive credentials were supplied
func (c Config) DriveEnabled() bool {
	return c.CredentialsPath != "" || c.CredentialsJSON != ""
}

// Addr is the listen address on all interfaces
func (c Config) Addr() string {
	return "0.0.0.0:" + c.Port
}

// LoadDotEnv loads envPath over the process environment outside production.
// It reports whether the file was loaded.
func LoadDotEnv(envPath string) (bool, error) {
	if os.Getenv("ENV") == "production" {
		return false, nil
	}
	// Overload so .env values win over variables already set in the shell
	if err := godotenv.Overload(envPath); err != nil {
		return false, err
	}
	return true, nil
}

// Load builds the Config from the environment. Call LoadDotEnv first to pick
// up a .env file.
func Load() (Config, error) {
	cfg := Config{
		Env:             getenv("ENV", "development"),
		Port:            strings.TrimPrefix(getenv("PORT", "8080"), ":"),
		CredentialsPath: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		CredentialsJSON: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"),
		DriveFolderID:   os.Getenv("DRIVE_FOLDER_ID"),
		PricingConfig:   getenv("PRICING_CONFIG", "config/pricing.json"),
		ChromePath:      os.Getenv("CHROME_PATH"),
		ImageCacheDir:   getenv("IMAGE_CACHE_DIR", "cache/images"),
		LogLevel:        getenv("LOG_LEVEL", "info"),
	}
	cfg.BaseURL = strings.TrimRight(getenv("BASE_URL", "http://localhost:"+cfg.Port), "/")

	dsn, err := databaseURL()
	if err != nil {
		return Config{}, err
	}
	cfg.DatabaseURL = dsn
	return cfg, nil
}

// databaseURL returns DATABASE_URL or builds a DSN from the DB_* variables
func databaseURL() (string, error) {
	if connStr := os.Getenv("DATABASE_URL"); connStr != "" {
		return connStr, nil
	}

	host := os.Getenv("DB_HOST")
	user := os.Getenv("DB_USER")
	dbname := os.Getenv("DB_NAME")
	if host == "" || user == "" || dbname == "" {
		return "", fmt.Errorf("database connection variables not set. Set DATABASE_URL or DB_HOST, DB_USER, DB_NAME")
	}

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host,
		getenv("DB_PORT", "5432"),
		user,
		os.Getenv("DB_PASSWORD"),
		dbname,
		getenv("DB_SSLMODE", "disable"),
	), nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
