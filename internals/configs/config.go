package configs

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	JWTSecret    string
	RollbarToken string
)

// =======================
// ENV LOADER
// =======================
func LoadEnv() {
	if os.Getenv("RAILWAY_ENVIRONMENT") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("[CONFIG] .env not found, using system environment")
		} else {
			log.Println("[CONFIG] .env loaded")
		}
	} else {
		log.Println("[CONFIG] running on Railway, using system environment")
	}

	JWTSecret = GetEnv("JWT_SECRET")
	RollbarToken = GetEnv("ROLLBAR_TOKEN")

	if JWTSecret == "" {
		log.Println("[CONFIG] JWT_SECRET is not set, admin endpoints will reject every request")
	}
}

func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if !exists && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

// =======================
// TYPED CONFIG
// =======================

type DBConfig struct {
	User     string
	Password string
	Host     string `validate:"required"`
	Port     string `validate:"required"`
	Name     string `validate:"required"`
	SSLMode  string `validate:"oneof=disable allow prefer require verify-ca verify-full"`

	StatementTimeout time.Duration `validate:"gt=0"`
	SlowThreshold    time.Duration `validate:"gt=0"`
	AutoMigrate      bool
}

// DSN builds the postgres URL consumed by gorm.io/driver/postgres.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&application_name=academy&options=-c statement_timeout=%d",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode, c.StatementTimeout.Milliseconds(),
	)
}

type SchedulerConfig struct {
	Enabled bool

	// Interval between ticks. Each tick is bounded by TickTimeout.
	Interval    time.Duration `validate:"gt=0"`
	TickTimeout time.Duration `validate:"gt=0"`

	// AttendanceWindow bounds the unattended pass to quizzes closed within [now-window, now].
	AttendanceWindow   time.Duration `validate:"gt=0"`
	SessionIdleTimeout time.Duration `validate:"gt=0"`

	// DisplayTimezone is only used to render timestamps for operators.
	DisplayTimezone string `validate:"required,timezone"`

	RedisURL string        `validate:"omitempty,url"`
	LockKey  string        `validate:"required"`
	LockTTL  time.Duration `validate:"gt=0"`
}

type AppConfig struct {
	Env          string `validate:"required"`
	Port         string `validate:"required,numeric"`
	JWTSecret    string
	RollbarToken string

	DB        DBConfig
	Scheduler SchedulerConfig
}

func newViper(withEnv bool) *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "3000")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("ROLLBAR_TOKEN", "")

	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "academy")
	v.SetDefault("DB_SSLMODE", "require")
	v.SetDefault("DB_STATEMENT_TIMEOUT", 3*time.Second)
	v.SetDefault("DB_SLOW_THRESHOLD", 200*time.Millisecond)
	v.SetDefault("AUTO_MIGRATE", false)

	v.SetDefault("SCHEDULER_ENABLED", true)
	v.SetDefault("SCHEDULER_INTERVAL", time.Minute)
	v.SetDefault("SCHEDULER_TICK_TIMEOUT", 50*time.Second)
	v.SetDefault("ATTENDANCE_WINDOW", 5*time.Minute)
	v.SetDefault("SESSION_IDLE_TIMEOUT", 30*time.Minute)
	v.SetDefault("DISPLAY_TIMEZONE", "Asia/Jakarta")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("SCHEDULER_LOCK_KEY", "academy:quiz-scheduler:tick")
	v.SetDefault("SCHEDULER_LOCK_TTL", 55*time.Second)

	if withEnv {
		v.AutomaticEnv()
	}
	return v
}

// Load reads the process environment (after LoadEnv) into a validated AppConfig.
func Load() (AppConfig, error) {
	return fromViper(newViper(true))
}

func fromViper(v *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		Env:          strings.ToLower(v.GetString("APP_ENV")),
		Port:         v.GetString("PORT"),
		JWTSecret:    v.GetString("JWT_SECRET"),
		RollbarToken: v.GetString("ROLLBAR_TOKEN"),
		DB: DBConfig{
			User:             v.GetString("DB_USER"),
			Password:         v.GetString("DB_PASSWORD"),
			Host:             v.GetString("DB_HOST"),
			Port:             v.GetString("DB_PORT"),
			Name:             v.GetString("DB_NAME"),
			SSLMode:          v.GetString("DB_SSLMODE"),
			StatementTimeout: v.GetDuration("DB_STATEMENT_TIMEOUT"),
			SlowThreshold:    v.GetDuration("DB_SLOW_THRESHOLD"),
			AutoMigrate:      v.GetBool("AUTO_MIGRATE"),
		},
		Scheduler: SchedulerConfig{
			Enabled:            v.GetBool("SCHEDULER_ENABLED"),
			Interval:           v.GetDuration("SCHEDULER_INTERVAL"),
			TickTimeout:        v.GetDuration("SCHEDULER_TICK_TIMEOUT"),
			AttendanceWindow:   v.GetDuration("ATTENDANCE_WINDOW"),
			SessionIdleTimeout: v.GetDuration("SESSION_IDLE_TIMEOUT"),
			DisplayTimezone:    v.GetString("DISPLAY_TIMEZONE"),
			RedisURL:           v.GetString("REDIS_URL"),
			LockKey:            v.GetString("SCHEDULER_LOCK_KEY"),
			LockTTL:            v.GetDuration("SCHEDULER_LOCK_TTL"),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return AppConfig{}, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Scheduler.TickTimeout > cfg.Scheduler.Interval {
		log.Printf("[CONFIG] SCHEDULER_TICK_TIMEOUT (%s) exceeds SCHEDULER_INTERVAL (%s); overlapping ticks will be skipped",
			cfg.Scheduler.TickTimeout, cfg.Scheduler.Interval)
	}
	return cfg, nil
}

// DefaultSchedulerConfig is the scheduler configuration with every default applied,
// ignoring the environment.
func DefaultSchedulerConfig() SchedulerConfig {
	cfg, err := fromViper(newViper(false))
	if err != nil {
		panic(err)
	}
	return cfg.Scheduler
}
