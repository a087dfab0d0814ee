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
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Goals     GoalsConfig
	Shifts    ShiftsConfig
	Behavior  BehaviorConfig
	Media     MediaConfig
	Reports   ReportsConfig
	Analytics AnalyticsConfig
	Events    EventsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// GoalsConfig tunes progress derivation.
type GoalsConfig struct {
	DefaultContributionWeight int
	CacheTTL                  time.Duration
}

// ShiftsConfig governs clock-in policy and the no-show sweep.
type ShiftsConfig struct {
	GracePeriod   time.Duration
	SweepInterval time.Duration
}

// BehaviorConfig holds risk classification thresholds. Risk is high when
// critical incidents reach CriticalHighCount or total incidents reach
// TotalHighCount, medium at the corresponding medium thresholds.
// RiskWindowDays of zero means all recorded history.
type BehaviorConfig struct {
	RiskWindowDays      int
	CriticalHighCount   int
	TotalHighCount      int
	CriticalMediumCount int
	TotalMediumCount    int
}

// MediaConfig controls upload storage and signed download links.
type MediaConfig struct {
	Enabled          bool
	StorageDir       string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// ReportsConfig configures export generation.
type ReportsConfig struct {
	Enabled    bool
	StorageDir string
}

// AnalyticsConfig governs feature flagging and cache behaviour for analytics endpoints.
type AnalyticsConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

// EventsConfig tunes the domain event dispatcher.
type EventsConfig struct {
	Workers    int
	BufferSize int
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
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Goals = GoalsConfig{
		DefaultContributionWeight: v.GetInt("GOAL_DEFAULT_CONTRIBUTION_WEIGHT"),
		CacheTTL:                  parseDuration(v.GetString("GOAL_PROGRESS_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Shifts = ShiftsConfig{
		GracePeriod:   parseDuration(v.GetString("SHIFT_GRACE_PERIOD"), 15*time.Minute),
		SweepInterval: parseDuration(v.GetString("SHIFT_SWEEP_INTERVAL"), 5*time.Minute),
	}

	cfg.Behavior = BehaviorConfig{
		RiskWindowDays:      v.GetInt("BEHAVIOR_RISK_WINDOW_DAYS"),
		CriticalHighCount:   v.GetInt("BEHAVIOR_CRITICAL_HIGH_COUNT"),
		TotalHighCount:      v.GetInt("BEHAVIOR_TOTAL_HIGH_COUNT"),
		CriticalMediumCount: v.GetInt("BEHAVIOR_CRITICAL_MEDIUM_COUNT"),
		TotalMediumCount:    v.GetInt("BEHAVIOR_TOTAL_MEDIUM_COUNT"),
	}

	maxMediaSize := v.GetInt64("MEDIA_MAX_FILE_SIZE")
	if maxMediaSize <= 0 {
		maxMediaSize = 25 * 1024 * 1024
	}
	cfg.Media = MediaConfig{
		Enabled:          v.GetBool("ENABLE_MEDIA"),
		StorageDir:       v.GetString("MEDIA_STORAGE_DIR"),
		SignedURLSecret:  v.GetString("MEDIA_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("MEDIA_SIGNED_URL_TTL"), 30*time.Minute),
		MaxFileSizeBytes: maxMediaSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("MEDIA_ALLOWED_MIME_TYPES")),
	}

	cfg.Reports = ReportsConfig{
		Enabled:    v.GetBool("ENABLE_REPORTS"),
		StorageDir: v.GetString("REPORTS_STORAGE_DIR"),
	}

	cfg.Analytics = AnalyticsConfig{
		Enabled:  v.GetBool("ENABLE_ANALYTICS"),
		CacheTTL: parseDuration(v.GetString("ANALYTICS_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Events = EventsConfig{
		Workers:    v.GetInt("EVENT_WORKERS"),
		BufferSize: v.GetInt("EVENT_BUFFER_SIZE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "carebridge")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("GOAL_DEFAULT_CONTRIBUTION_WEIGHT", 100)
	v.SetDefault("GOAL_PROGRESS_CACHE_TTL", "5m")

	v.SetDefault("SHIFT_GRACE_PERIOD", "15m")
	v.SetDefault("SHIFT_SWEEP_INTERVAL", "5m")

	v.SetDefault("BEHAVIOR_RISK_WINDOW_DAYS", 0)
	v.SetDefault("BEHAVIOR_CRITICAL_HIGH_COUNT", 3)
	v.SetDefault("BEHAVIOR_TOTAL_HIGH_COUNT", 10)
	v.SetDefault("BEHAVIOR_CRITICAL_MEDIUM_COUNT", 1)
	v.SetDefault("BEHAVIOR_TOTAL_MEDIUM_COUNT", 3)

	v.SetDefault("ENABLE_MEDIA", true)
	v.SetDefault("MEDIA_STORAGE_DIR", "./media")
	v.SetDefault("MEDIA_SIGNED_URL_SECRET", "")
	v.SetDefault("MEDIA_SIGNED_URL_TTL", "30m")
	v.SetDefault("MEDIA_MAX_FILE_SIZE", 25*1024*1024)
	v.SetDefault("MEDIA_ALLOWED_MIME_TYPES", "image/jpeg,image/png,video/mp4")

	v.SetDefault("ENABLE_REPORTS", true)
	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")

	v.SetDefault("ENABLE_ANALYTICS", true)
	v.SetDefault("ANALYTICS_CACHE_TTL", "10m")

	v.SetDefault("EVENT_WORKERS", 2)
	v.SetDefault("EVENT_BUFFER_SIZE", 64)
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
