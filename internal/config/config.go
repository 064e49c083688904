package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	StoreBackend     string // "postgres" or "firestore"
	DatabaseURL      string
	FirestoreProject string
	FirestoreCreds   string
	JWTSecret        string
	JWTTTL           string
	GoogleAudience   string
	AllowOrigins     []string
	LogstashTCPAddr  string
	MinIOEndpoint    string
	MinIOAccessKey   string
	MinIOSecretKey   string
	MinIOUseSSL      bool
	MinIOBucket      string
	ImportMaxRows    int
	ImportMaxBytes   int64
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	maxRows := 1000
	if v, err := strconv.Atoi(getenv("IMPORT_MAX_ROWS", "1000")); err == nil && v > 0 {
		maxRows = v
	}

	maxBytes := int64(10 * 1024 * 1024)
	if v, err := strconv.ParseInt(getenv("IMPORT_MAX_BYTES", "10485760"), 10, 64); err == nil && v > 0 {
		maxBytes = v
	}

	backend := strings.ToLower(getenv("STORE_BACKEND", "postgres"))

	cfg := Config{
		Port:            getenv("PORT", "8080"),
		StoreBackend:    backend,
		JWTSecret:       must("JWT_SECRET"),
		JWTTTL:          getenv("JWT_TTL", "24h"),
		GoogleAudience:  getenv("GOOGLE_AUDIENCE", ""),
		AllowOrigins:    splitAndTrim(getenv("ALLOW_ORIGINS", "*")),
		LogstashTCPAddr: getenv("LOGSTASH_TCP_ADDR", ""),
		MinIOEndpoint:   getenv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:  getenv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:  getenv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:     getenv("MINIO_USE_SSL", "false") == "true",
		MinIOBucket:     getenv("MINIO_BUCKET_IMPORTS", "contacthub-imports"),
		ImportMaxRows:   maxRows,
		ImportMaxBytes:  maxBytes,
	}

	switch backend {
	case "firestore":
		cfg.FirestoreProject = must("FIRESTORE_PROJECT_ID")
		cfg.FirestoreCreds = getenv("FIRESTORE_CREDENTIALS_FILE", "")
	default:
		cfg.DatabaseURL = must("DATABASE_URL")
	}

	return cfg
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
