package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const defaultMaxUploadBytes = 100 * 1024 * 1024

type Config struct {
	Host        string
	Port        string
	DatabaseURL string

	SessionSecret string
	CSRFSecret    string
	SessionDir    string
	SecureCookies bool

	StorageRoot         string
	MaxUploadBytes      int64
	DownloadLandingPath string

	// Bootstrap administrator, created at startup when username and
	// password are both set.
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := FromEnv()
	if err != nil {
		log.Fatal(err)
	}
	return cfg
}

// FromEnv reads the configuration from the process environment.
func FromEnv() (*Config, error) {
	sessionSecret := getEnv("SESSION_SECRET", "")
	if sessionSecret == "" {
		return nil, errors.New("SESSION_SECRET environment variable is required")
	}

	maxUpload, err := getEnvInt("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)
	if err != nil {
		return nil, err
	}
	if maxUpload <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", maxUpload)
	}

	secure, err := getEnvBool("SECURE_COOKIES", false)
	if err != nil {
		return nil, err
	}

	return &Config{
		Host:                getEnv("HOST", "0.0.0.0"),
		Port:                getEnv("PORT", "8080"),
		DatabaseURL:         getDatabaseURL(),
		SessionSecret:       sessionSecret,
		CSRFSecret:          getEnv("CSRF_SECRET", sessionSecret),
		SessionDir:          getEnv("SESSION_DIR", "./sessions"),
		SecureCookies:       secure,
		StorageRoot:         getEnv("STORAGE_ROOT", "./media"),
		MaxUploadBytes:      maxUpload,
		DownloadLandingPath: getEnv("DOWNLOAD_LANDING_PATH", "/download"),
		AdminUsername:       getEnv("ADMIN_USERNAME", ""),
		AdminEmail:          getEnv("ADMIN_EMAIL", ""),
		AdminPassword:       getEnv("ADMIN_PASSWORD", ""),
	}, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func (c *Config) BootstrapAdmin() bool {
	return c.AdminUsername != "" && c.AdminPassword != ""
}

func getDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "localhost")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "postgres")
	password := getEnv("DB_PASSWORD", "postgres")
	dbname := getEnv("DB_NAME", "postgres")
	sslmode := getEnv("DB_SSLMODE", "disable")

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode,
	)
}

func getEnv(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
