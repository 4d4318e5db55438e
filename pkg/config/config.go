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

	Database      DatabaseConfig
	Redis         RedisConfig
	CORS          CORSConfig
	Log           LogConfig
	Oracle        OracleConfig
	Planner       PlannerConfig
	Notifications NotificationsConfig
	Export        ExportConfig
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

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// OracleConfig points the placement oracle at an OpenAI-compatible endpoint.
// When Enabled is false the planner runs in deterministic fallback mode only.
type OracleConfig struct {
	Enabled bool
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// PlannerConfig tunes the weekly plan generator.
type PlannerConfig struct {
	HorizonStart      string // HH:MM, inclusive
	HorizonEnd        string // HH:MM, exclusive
	SlotMinutes       int    // planning unit granularity
	MaxSessionMinutes int    // default cap for a single personal block
	DefaultGroupHours float64
	ChangeRequestTTL  time.Duration
	WorkerConcurrency int
	WeeklyCron        string
	WeeklyCronEnabled bool
}

// NotificationsConfig controls fire-and-forget event emission.
type NotificationsConfig struct {
	Enabled bool
	Channel string
	Workers int
}

// ExportConfig gates the weekly plan PDF export endpoint. When URLSecret is
// set, exports are archived on disk and the response carries a signed
// re-download token valid for URLTTL.
type ExportConfig struct {
	Enabled    bool
	ArchiveDir string
	URLSecret  string
	URLTTL     time.Duration
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

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Oracle = OracleConfig{
		Enabled: v.GetBool("ORACLE_ENABLED"),
		BaseURL: v.GetString("ORACLE_BASE_URL"),
		APIKey:  v.GetString("ORACLE_API_KEY"),
		Model:   v.GetString("ORACLE_MODEL"),
		Timeout: parseDuration(v.GetString("ORACLE_TIMEOUT"), 20*time.Second),
	}

	cfg.Planner = PlannerConfig{
		HorizonStart:      v.GetString("PLANNER_HORIZON_START"),
		HorizonEnd:        v.GetString("PLANNER_HORIZON_END"),
		SlotMinutes:       v.GetInt("PLANNER_SLOT_MINUTES"),
		MaxSessionMinutes: v.GetInt("PLANNER_MAX_SESSION_MINUTES"),
		DefaultGroupHours: v.GetFloat64("PLANNER_DEFAULT_GROUP_HOURS"),
		ChangeRequestTTL:  parseDuration(v.GetString("CHANGE_REQUEST_TTL"), 48*time.Hour),
		WorkerConcurrency: v.GetInt("PLANNER_WORKER_CONCURRENCY"),
		WeeklyCron:        v.GetString("PLANNER_WEEKLY_CRON"),
		WeeklyCronEnabled: v.GetBool("PLANNER_WEEKLY_CRON_ENABLED"),
	}

	cfg.Notifications = NotificationsConfig{
		Enabled: v.GetBool("NOTIFICATIONS_ENABLED"),
		Channel: v.GetString("NOTIFICATIONS_CHANNEL"),
		Workers: v.GetInt("NOTIFICATIONS_WORKERS"),
	}

	cfg.Export = ExportConfig{
		Enabled:    v.GetBool("ENABLE_PLAN_EXPORT"),
		ArchiveDir: v.GetString("PLAN_EXPORT_DIR"),
		URLSecret:  v.GetString("PLAN_EXPORT_URL_SECRET"),
		URLTTL:     parseDuration(v.GetString("PLAN_EXPORT_URL_TTL"), 24*time.Hour),
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
	v.SetDefault("DB_NAME", "study_planner")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ORACLE_ENABLED", false)
	v.SetDefault("ORACLE_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("ORACLE_API_KEY", "")
	v.SetDefault("ORACLE_MODEL", "gpt-4o-mini")
	v.SetDefault("ORACLE_TIMEOUT", "20s")

	v.SetDefault("PLANNER_HORIZON_START", "07:00")
	v.SetDefault("PLANNER_HORIZON_END", "23:00")
	v.SetDefault("PLANNER_SLOT_MINUTES", 30)
	v.SetDefault("PLANNER_MAX_SESSION_MINUTES", 120)
	v.SetDefault("PLANNER_DEFAULT_GROUP_HOURS", 2.0)
	v.SetDefault("CHANGE_REQUEST_TTL", "48h")
	v.SetDefault("PLANNER_WORKER_CONCURRENCY", 4)
	// Weeks start on Sunday; the auto-run fires Sunday 06:00.
	v.SetDefault("PLANNER_WEEKLY_CRON", "0 6 * * 0")
	v.SetDefault("PLANNER_WEEKLY_CRON_ENABLED", false)

	v.SetDefault("NOTIFICATIONS_ENABLED", false)
	v.SetDefault("NOTIFICATIONS_CHANNEL", "planner.events")
	v.SetDefault("NOTIFICATIONS_WORKERS", 2)

	v.SetDefault("ENABLE_PLAN_EXPORT", true)
	v.SetDefault("PLAN_EXPORT_DIR", "./exports")
	v.SetDefault("PLAN_EXPORT_URL_SECRET", "")
	v.SetDefault("PLAN_EXPORT_URL_TTL", "24h")
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
