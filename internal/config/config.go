package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the gateway
type Config struct {
	App      AppConfig
	Redis    RedisConfig
	MinIO    MinIOConfig
	CORS     CORSConfig
	SMTP     SMTPConfig
	Firebase FirebaseConfig
	Session  SessionConfig
	Origin   OriginConfig
	Cache    CacheConfig
}

type AppConfig struct {
	Env  string
	Port string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

type CORSConfig struct {
	Origins []string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

type FirebaseConfig struct {
	CredentialsFile string
	ProjectID       string
	WebAPIKey       string
}

type SessionConfig struct {
	Secret         string        // session token signing secret
	Duration       time.Duration // validity window of a session record
	VerifyInterval time.Duration // periodic device re-check
	WarningWindow  time.Duration // how long the multi-device warning stays up
}

type OriginConfig struct {
	BaseURL string // static content origin the gateway fronts
}

type CacheConfig struct {
	Version      string   // stamps the live cache generation name
	BucketPrefix string   // MinIO bucket name prefix per generation
	FreshPath    string   // always-fresh content manifest path
	Manifest     []string // core asset URLs the install step populates
}

// defaultManifest is the fixed list of core assets every generation starts
// from. Network-first paths add to the generation opportunistically.
var defaultManifest = []string{
	"/",
	"/index",
	"/chapters",
	"/lectures",
	"/video-player",
	"/style.css",
	"/script.js",
	"/settings.json",
	"/marquee.json",
	"/routine.json",
	"/manifest.json",
	"/icons/FRB-26.png",
}

// Load reads configuration from .env file and environment variables
func Load() *Config {
	// Load .env file (ignore error if not exists - e.g. in Docker)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading from environment variables")
	}

	sessionDuration := getDuration("SESSION_DURATION", 7*24*time.Hour)
	verifyInterval := getDuration("SESSION_VERIFY_INTERVAL", 30*time.Second)
	warningWindow := getDuration("SESSION_WARNING_WINDOW", 10*time.Second)

	manifest := defaultManifest
	if raw := getEnv("CACHE_MANIFEST", ""); raw != "" {
		manifest = strings.Split(raw, ",")
	}

	return &Config{
		App: AppConfig{
			Env:  getEnv("APP_ENV", "development"),
			Port: getEnv("APP_PORT", "8080"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: getEnv("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: getEnv("MINIO_SECRET_KEY", "minioadmin"),
			UseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",
		},
		CORS: CORSConfig{
			Origins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "mailpit"),
			Port:     getEnv("SMTP_PORT", "1025"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "noreply@bppowerplay.app"),
			FromName: getEnv("SMTP_FROM_NAME", "BP PowerPlay"),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			WebAPIKey:       getEnv("FIREBASE_WEB_API_KEY", ""),
		},
		Session: SessionConfig{
			Secret:         getEnv("SESSION_SECRET", "default-secret"),
			Duration:       sessionDuration,
			VerifyInterval: verifyInterval,
			WarningWindow:  warningWindow,
		},
		Origin: OriginConfig{
			BaseURL: getEnv("ORIGIN_BASE_URL", "http://localhost:9090"),
		},
		Cache: CacheConfig{
			Version:      getEnv("CACHE_VERSION", "v1.3.0"),
			BucketPrefix: getEnv("CACHE_BUCKET_PREFIX", "powerplay-cache"),
			FreshPath:    getEnv("CACHE_FRESH_PATH", "videos.json"),
			Manifest:     manifest,
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return d
}
