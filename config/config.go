package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	minProductionSecret = 32
	// DefaultConfigFile is read when present; every key can also come from the environment
	DefaultConfigFile = "config.yaml"
)

var (
	ErrWeakSecret  = errors.New("SESSION_SECRET is a known placeholder")
	ErrShortSecret = errors.New("SESSION_SECRET is too short")
)

// placeholderSecrets are values copied from docs and sample env files
var placeholderSecrets = map[string]bool{
	"change-me":   true,
	"changeme":    true,
	"secret":      true,
	"development": true,
	"test":        true,
	"debtflow":    true,
}

type Config struct {
	ServerPort  string
	Environment string
	LogLevel    string
	DBPath      string
	UploadDir   string

	// Collection backend
	APIBaseURL string
	APITimeout time.Duration

	// Sessions
	SessionSecret string

	// Auto-assignment
	AutoAssignThresholdHours int
	AutoAssignConcurrency    int
	AutoAssignCron           string
	AutoAssignEmail          string // service account used by the scheduled sweep
	AutoAssignPassword       string

	// UI timers
	DashboardRefreshInterval time.Duration
	ToastDuration            time.Duration
	ProgressResetDelay       time.Duration

	// Email (Resend)
	ResendAPIKey  string
	EmailFrom     string
	EmailFromName string
	EmailTestMode bool // When true, emails are logged instead of sent
	OpsEmail      string

	// Other
	AllowedOrigins   []string
	AppURL           string
	TursoDatabaseURL string
	TursoAuthToken   string
	RedisURL         string
	ChromePath       string

	// Cloudflare R2 Storage
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DB_PATH", "db/app.db")
	v.SetDefault("UPLOAD_DIR", "static/uploads")
	v.SetDefault("API_BASE_URL", "http://localhost:5000/api")
	v.SetDefault("API_TIMEOUT", "30s")
	v.SetDefault("AUTO_ASSIGN_THRESHOLD_HOURS", 24)
	v.SetDefault("AUTO_ASSIGN_CONCURRENCY", 4)
	v.SetDefault("AUTO_ASSIGN_CRON", "@every 1h")
	v.SetDefault("DASHBOARD_REFRESH_INTERVAL", "30s")
	v.SetDefault("TOAST_DURATION", "3s")
	v.SetDefault("PROGRESS_RESET_DELAY", "3s")
	v.SetDefault("EMAIL_FROM", "noreply@debtflow.app")
	v.SetDefault("EMAIL_FROM_NAME", "DebtFlow")
	v.SetDefault("EMAIL_TEST_MODE", true) // Default true for safety
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("APP_URL", "http://localhost:8080")
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading the environment only")
	}

	v := viper.New()
	v.SetConfigFile(DefaultConfigFile)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !strings.Contains(err.Error(), "no such file") {
			log.Printf("Ignoring %s: %v", DefaultConfigFile, err)
		}
	}

	cfg, err := FromViper(v)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// FromViper builds the config from an already populated viper instance.
// Production refuses a missing or weak SESSION_SECRET; development mints one.
func FromViper(v *viper.Viper) (*Config, error) {
	environment := v.GetString("ENVIRONMENT")
	secret, err := sessionSecret(v.GetString("SESSION_SECRET"), environment == "production")
	if err != nil {
		return nil, err
	}

	return &Config{
		ServerPort:               v.GetString("SERVER_PORT"),
		Environment:              environment,
		LogLevel:                 v.GetString("LOG_LEVEL"),
		DBPath:                   v.GetString("DB_PATH"),
		UploadDir:                v.GetString("UPLOAD_DIR"),
		APIBaseURL:               strings.TrimRight(v.GetString("API_BASE_URL"), "/"),
		APITimeout:               v.GetDuration("API_TIMEOUT"),
		SessionSecret:            secret,
		AutoAssignThresholdHours: v.GetInt("AUTO_ASSIGN_THRESHOLD_HOURS"),
		AutoAssignConcurrency:    v.GetInt("AUTO_ASSIGN_CONCURRENCY"),
		AutoAssignCron:           v.GetString("AUTO_ASSIGN_CRON"),
		AutoAssignEmail:          v.GetString("AUTO_ASSIGN_EMAIL"),
		AutoAssignPassword:       v.GetString("AUTO_ASSIGN_PASSWORD"),
		DashboardRefreshInterval: v.GetDuration("DASHBOARD_REFRESH_INTERVAL"),
		ToastDuration:            v.GetDuration("TOAST_DURATION"),
		ProgressResetDelay:       v.GetDuration("PROGRESS_RESET_DELAY"),
		ResendAPIKey:             v.GetString("RESEND_API_KEY"),
		EmailFrom:                v.GetString("EMAIL_FROM"),
		EmailFromName:            v.GetString("EMAIL_FROM_NAME"),
		EmailTestMode:            v.GetBool("EMAIL_TEST_MODE"),
		OpsEmail:                 v.GetString("OPS_EMAIL"),
		AllowedOrigins:           splitList(v.GetString("ALLOWED_ORIGINS")),
		AppURL:                   strings.TrimRight(v.GetString("APP_URL"), "/"),
		TursoDatabaseURL:         v.GetString("TURSO_DATABASE_URL"),
		TursoAuthToken:           v.GetString("TURSO_AUTH_TOKEN"),
		RedisURL:                 v.GetString("REDIS_URL"),
		ChromePath:               v.GetString("CHROME_PATH"),
		R2AccountID:              v.GetString("R2_ACCOUNT_ID"),
		R2AccessKeyID:            v.GetString("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:        v.GetString("R2_SECRET_ACCESS_KEY"),
		R2BucketName:             v.GetString("R2_BUCKET_NAME"),
		R2PublicURL:              v.GetString("R2_PUBLIC_URL"),
	}, nil
}

func sessionSecret(secret string, production bool) (string, error) {
	secret = strings.TrimSpace(secret)
	weak := placeholderSecrets[strings.ToLower(secret)]
	switch {
	case production && (secret == "" || weak):
		return "", ErrWeakSecret
	case production && len(secret) < minProductionSecret:
		return "", fmt.Errorf("%w: need %d characters, got %d", ErrShortSecret, minProductionSecret, len(secret))
	case secret == "":
		log.Println("SESSION_SECRET unset, sessions will not survive a restart")
		return GenerateSecureSecret(), nil
	case weak:
		log.Println("SESSION_SECRET is a placeholder, fine for development only")
	}
	return secret, nil
}

// GenerateSecureSecret returns 32 random bytes, base64 encoded
func GenerateSecureSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("config: crypto/rand failed: %v", err))
	}
	return base64.StdEncoding.EncodeToString(b)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
