package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	JWT       JWTConfig
	Store     StoreConfig
	Firebase  FirebaseConfig
	Mongo     MongoConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Auth      AuthConfig
	App       AppConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Port        string
	Host        string
	Environment string
}

type JWTConfig struct {
	Secret                 string
	Expiration             time.Duration
	RefreshTokenExpiration time.Duration
}

// StoreConfig selects the record store backend: firestore, mongo or memory.
type StoreConfig struct {
	Backend string
}

type FirebaseConfig struct {
	ProjectID       string
	CredentialsPath string
}

type MongoConfig struct {
	URI      string
	Database string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// AuthConfig throttles repeated sign-in attempts per e-mail.
type AuthConfig struct {
	LoginAttempts int
	LoginWindow   time.Duration
}

// AppConfig carries dashboard settings.
type AppConfig struct {
	SuiteName         string
	DefaultPeriodDays int
}

type LoggingConfig struct {
	Level  string
	Format string
}

const (
	BackendFirestore = "firestore"
	BackendMongo     = "mongo"
	BackendMemory    = "memory"
)

const devSecret = "dev-secret-key"

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Host:        getEnv("HOST", "0.0.0.0"),
			Environment: getEnv("ENVIRONMENT", "development"),
		},
		JWT: JWTConfig{
			Secret:                 getEnv("JWT_SECRET", devSecret),
			Expiration:             parseDuration(getEnv("JWT_EXPIRATION", "30m"), 30*time.Minute),
			RefreshTokenExpiration: parseDuration(getEnv("REFRESH_TOKEN_EXPIRATION", "168h"), 7*24*time.Hour),
		},
		Store: StoreConfig{
			Backend: strings.ToLower(getEnv("STORE_BACKEND", BackendFirestore)),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", "./serviceAccountKey.json"),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "plantmaint"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseStringSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		},
		RateLimit: RateLimitConfig{
			Requests: parseInt(getEnv("RATE_LIMIT_REQUESTS", "100"), 100),
			Window:   parseDuration(getEnv("RATE_LIMIT_WINDOW", "60"), 60*time.Second),
		},
		Auth: AuthConfig{
			LoginAttempts: parseInt(getEnv("LOGIN_ATTEMPTS", "5"), 5),
			LoginWindow:   parseDuration(getEnv("LOGIN_WINDOW", "15m"), 15*time.Minute),
		},
		App: AppConfig{
			SuiteName:         getEnv("SUITE_NAME", "PCM"),
			DefaultPeriodDays: parseInt(getEnv("DASHBOARD_PERIOD_DAYS", "0"), 0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(s string, defaultValue int) int {
	if i, err := strconv.Atoi(s); err == nil {
		return i
	}
	return defaultValue
}

func parseDuration(s string, defaultValue time.Duration) time.Duration {
	// Handle simple formats like "30m", "168h", "60"
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	// If it's just a number, assume seconds
	if i, err := strconv.Atoi(s); err == nil {
		return time.Duration(i) * time.Second
	}
	return defaultValue
}

func parseStringSlice(s string) []string {
	result := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// Validate reports the first setting that prevents startup.
func (c *Config) Validate() error {
	if c.JWT.Secret == devSecret && c.IsProduction() {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be positive")
	}

	switch c.Store.Backend {
	case BackendFirestore:
		if c.Firebase.ProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID must be set")
		}
		if c.Firebase.CredentialsPath != "" {
			if _, err := os.Stat(c.Firebase.CredentialsPath); os.IsNotExist(err) {
				return fmt.Errorf("firebase credentials file not found: %s", c.Firebase.CredentialsPath)
			}
		}
	case BackendMongo:
		if c.Mongo.URI == "" {
			return errors.New("MONGO_URI must be set")
		}
	case BackendMemory:
		if c.IsProduction() {
			return errors.New("the memory store cannot be used in production")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	return nil
}
