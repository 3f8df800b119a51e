package config

import (
	"os"
	"strconv"
)

type Config struct {
	PORT string

	DB_USERNAME string
	DB_PASSWORD string
	DB_HOST     string
	DB_PORT     string
	DB_NAME     string
	DISABLE_TLS string

	// Cloudflare R2 (S3-compatible) object storage
	R2_ACCOUNT_ID        string
	R2_ACCESS_KEY_ID     string
	R2_SECRET_ACCESS_KEY string
	R2_BUCKET            string

	// External image-generation API
	GENAPI_BASE_URL string
	GENAPI_API_KEY  string
	GENAPI_MODEL    string

	// Auth
	JWT_SECRET          string
	STATE_SECRET        string
	AUTH0_DOMAIN        string
	AUTH0_CLIENT_ID     string
	AUTH0_CLIENT_SECRET string
	AUTH0_CALLBACK_URL  string
	POST_LOGIN_REDIRECT string

	// Redis balance cache
	REDIS_ADDR     string
	REDIS_PASSWORD string

	// ClickHouse configuration for usage analytics
	CLICKHOUSE_HOST     string
	CLICKHOUSE_PORT     int
	CLICKHOUSE_DATABASE string
	CLICKHOUSE_USERNAME string
	CLICKHOUSE_PASSWORD string
	CLICKHOUSE_USE_TLS  bool

	// Otel
	OTEL_EXPORTER_OTLP_ENDPOINT string
}

func ReadConfig() *Config {
	// Default to HTTP port 8123 (more compatible than native port 9000)
	clickhousePort := 8123
	if portStr := os.Getenv("CLICKHOUSE_PORT"); portStr != "" {
		if port, err := strconv.Atoi(portStr); err == nil {
			clickhousePort = port
		}
	}

	return &Config{
		PORT: GetEnvOrDefault("PORT", "6060"),

		DB_USERNAME: os.Getenv("DB_USERNAME"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_NAME:     os.Getenv("DB_NAME"),
		DISABLE_TLS: os.Getenv("DISABLE_TLS"),

		R2_ACCOUNT_ID:        os.Getenv("R2_ACCOUNT_ID"),
		R2_ACCESS_KEY_ID:     os.Getenv("R2_ACCESS_KEY_ID"),
		R2_SECRET_ACCESS_KEY: os.Getenv("R2_SECRET_ACCESS_KEY"),
		R2_BUCKET:            GetEnvOrDefault("R2_BUCKET", "cosify"),

		GENAPI_BASE_URL: os.Getenv("GENAPI_BASE_URL"),
		GENAPI_API_KEY:  os.Getenv("GENAPI_API_KEY"),
		GENAPI_MODEL:    GetEnvOrDefault("GENAPI_MODEL", "cosify-image-1"),

		JWT_SECRET:          os.Getenv("JWT_SECRET"),
		STATE_SECRET:        os.Getenv("STATE_SECRET"),
		AUTH0_DOMAIN:        os.Getenv("AUTH0_DOMAIN"),
		AUTH0_CLIENT_ID:     os.Getenv("AUTH0_CLIENT_ID"),
		AUTH0_CLIENT_SECRET: os.Getenv("AUTH0_CLIENT_SECRET"),
		AUTH0_CALLBACK_URL:  os.Getenv("AUTH0_CALLBACK_URL"),
		POST_LOGIN_REDIRECT: GetEnvOrDefault("POST_LOGIN_REDIRECT", "http://localhost:3000"),

		REDIS_ADDR:     os.Getenv("REDIS_ADDR"),
		REDIS_PASSWORD: os.Getenv("REDIS_PASSWORD"),

		CLICKHOUSE_HOST:     os.Getenv("CLICKHOUSE_HOST"),
		CLICKHOUSE_PORT:     clickhousePort,
		CLICKHOUSE_DATABASE: GetEnvOrDefault("CLICKHOUSE_DATABASE", "cosify"),
		CLICKHOUSE_USERNAME: GetEnvOrDefault("CLICKHOUSE_USERNAME", "default"),
		CLICKHOUSE_PASSWORD: os.Getenv("CLICKHOUSE_PASSWORD"),
		CLICKHOUSE_USE_TLS:  os.Getenv("CLICKHOUSE_USE_TLS") == "true",

		OTEL_EXPORTER_OTLP_ENDPOINT: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
}

func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ConnString builds the Postgres connection string shared by the sqlx pool and
// the LISTEN/NOTIFY listener.
func (c *Config) ConnString() string {
	str := "postgresql://" + c.DB_USERNAME + ":" + c.DB_PASSWORD + "@" + c.DB_HOST + ":" + c.DB_PORT + "/" + c.DB_NAME
	if c.DISABLE_TLS == "true" {
		str = str + "?sslmode=disable"
	}
	return str
}
