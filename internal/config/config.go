package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port     string `validate:"required,numeric"`
	Env      string
	LogLevel string

	Store StoreConfig
	Redis RedisConfig

	CORSOrigins []string
	CronSecret  string
	// ResetSchedule is a cron expression; empty disables the scheduled reset.
	ResetSchedule string

	TemplatesSeedFile string
	DefaultLanguage   string `validate:"required"`
	EventQueueSize    int    `validate:"min=1"`
}

type StoreConfig struct {
	Driver   string `validate:"oneof=mongo sqlite postgres memory"`
	MongoURI string `validate:"required_if=Driver mongo"`
	MongoDB  string
	DSN      string `validate:"required_if=Driver sqlite,required_if=Driver postgres"`
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration `validate:"min=0"`
}

// CacheEnabled reports whether a Redis address was configured.
func (r RedisConfig) CacheEnabled() bool { return r.Addr != "" }

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE_DRIVER", DriverMongo)
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DB", "collab")
	v.SetDefault("DATABASE_DSN", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", 24*time.Hour)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("CRON_SECRET", "")
	v.SetDefault("RESET_SCHEDULE", "")
	v.SetDefault("TEMPLATES_SEED_FILE", "")
	v.SetDefault("DEFAULT_LANGUAGE", "javascript")
	v.SetDefault("EVENT_QUEUE_SIZE", 256)
}

// Load reads defaults, then an optional YAML file named by CONFIG_FILE, then
// the environment. The result is validated before it is returned.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := &Config{
		Port:     v.GetString("PORT"),
		Env:      v.GetString("APP_ENV"),
		LogLevel: v.GetString("LOG_LEVEL"),
		Store: StoreConfig{
			Driver:   strings.ToLower(v.GetString("STORE_DRIVER")),
			MongoURI: v.GetString("MONGO_URI"),
			MongoDB:  v.GetString("MONGO_DB"),
			DSN:      v.GetString("DATABASE_DSN"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			TTL:      v.GetDuration("CACHE_TTL"),
		},
		CORSOrigins:       splitList(v.GetString("CORS_ORIGINS")),
		CronSecret:        v.GetString("CRON_SECRET"),
		ResetSchedule:     v.GetString("RESET_SCHEDULE"),
		TemplatesSeedFile: v.GetString("TEMPLATES_SEED_FILE"),
		DefaultLanguage:   v.GetString("DEFAULT_LANGUAGE"),
		EventQueueSize:    v.GetInt("EVENT_QUEUE_SIZE"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(fields, ", "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
