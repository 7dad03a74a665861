package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	// LocalAPIBaseURL is used when the portal runs against a developer machine.
	LocalAPIBaseURL = "http://localhost:8000/api"
	// ProductionAPIBaseURL is used for every other host.
	ProductionAPIBaseURL = "https://eschooladmin.etbur.com/api"

	TokenStoreMemory = "memory"
	TokenStoreRedis  = "redis"
)

type Config struct {
	Env  string
	Port int

	API       APIConfig
	Session   SessionConfig
	Tokens    TokenConfig
	Redis     RedisConfig
	Downloads DownloadsConfig
	CORS      CORSConfig
	Log       LogConfig
}

// APIConfig describes how the remote school API is reached.
type APIConfig struct {
	Host        string
	BaseURL     string
	Timeout     time.Duration
	RefreshPath string
}

// SessionConfig holds the inactivity window settings.
type SessionConfig struct {
	InactivityWindow time.Duration
	WarningThreshold time.Duration
	CheckInterval    time.Duration
}

// TokenConfig selects the credential store and optional bootstrap credentials.
type TokenConfig struct {
	Store        string
	KeyPrefix    string
	AccessToken  string
	RefreshToken string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// DownloadsConfig controls where exported files land and how links to them are signed.
type DownloadsConfig struct {
	Dir             string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	Workers         int
	Retries         int
	RetryDelay      time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	host := v.GetString("API_HOST")
	cfg.API = APIConfig{
		Host:        host,
		BaseURL:     ResolveBaseURL(host, v.GetString("API_BASE_URL")),
		Timeout:     parseDuration(v.GetString("API_TIMEOUT"), 0),
		RefreshPath: v.GetString("REFRESH_PATH"),
	}

	cfg.Session = SessionConfig{
		InactivityWindow: parseDuration(v.GetString("SESSION_INACTIVITY"), 5*time.Minute),
		WarningThreshold: parseDuration(v.GetString("SESSION_WARNING"), 10*time.Second),
		CheckInterval:    parseDuration(v.GetString("SESSION_CHECK_INTERVAL"), time.Second),
	}

	cfg.Tokens = TokenConfig{
		Store:        strings.ToLower(v.GetString("TOKEN_STORE")),
		KeyPrefix:    v.GetString("TOKEN_KEY_PREFIX"),
		AccessToken:  v.GetString("ACCESS_TOKEN"),
		RefreshToken: v.GetString("REFRESH_TOKEN"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	workers := v.GetInt("EXPORT_WORKERS")
	if workers <= 0 {
		workers = 1
	}
	cfg.Downloads = DownloadsConfig{
		Dir:             v.GetString("DOWNLOADS_DIR"),
		SignedURLSecret: v.GetString("DOWNLOADS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("DOWNLOADS_SIGNED_URL_TTL"), 30*time.Minute),
		Workers:         workers,
		Retries:         v.GetInt("EXPORT_RETRIES"),
		RetryDelay:      parseDuration(v.GetString("EXPORT_RETRY_DELAY"), 2*time.Second),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8090)

	v.SetDefault("API_HOST", "localhost")
	v.SetDefault("API_BASE_URL", "")
	v.SetDefault("API_TIMEOUT", "")
	v.SetDefault("REFRESH_PATH", "/token/refresh/")

	v.SetDefault("SESSION_INACTIVITY", "5m")
	v.SetDefault("SESSION_WARNING", "10s")
	v.SetDefault("SESSION_CHECK_INTERVAL", "1s")

	v.SetDefault("TOKEN_STORE", TokenStoreMemory)
	v.SetDefault("TOKEN_KEY_PREFIX", "eschool:session")
	v.SetDefault("ACCESS_TOKEN", "")
	v.SetDefault("REFRESH_TOKEN", "")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("DOWNLOADS_DIR", "./downloads")
	v.SetDefault("DOWNLOADS_SIGNED_URL_SECRET", "dev_downloads_secret")
	v.SetDefault("DOWNLOADS_SIGNED_URL_TTL", "30m")
	v.SetDefault("EXPORT_WORKERS", 1)
	v.SetDefault("EXPORT_RETRIES", 1)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

// ResolveBaseURL picks the API root for the given host. An explicit override always wins.
func ResolveBaseURL(host, override string) string {
	if override = strings.TrimSpace(override); override != "" {
		return strings.TrimRight(override, "/")
	}
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1":
		return LocalAPIBaseURL
	default:
		return ProductionAPIBaseURL
	}
}

func isMissingFile(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such file")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
