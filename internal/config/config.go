package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver string // sqlite|postgres
	DBDSN    string

	AuthHMACSecret string
	TokenTTL       time.Duration
	// AllowClaimRole lets /auth/login honour a requested role (offline demos).
	AllowClaimRole bool

	// Bootstrap admin, created at startup when absent and a hash is set.
	AdminUser     string
	AdminPassHash string // bcrypt

	CORSOrigins []string

	LogLevel  string
	LogFormat string // text|json

	// Redis quiz cache; disabled when RedisAddr is empty.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	QuizCacheTTL  time.Duration

	// RabbitMQ notification queue; disabled when AMQPURL is empty.
	AMQPURL     string
	NotifyQueue string

	// SweepInterval of 0 disables the expired-attempt sweeper.
	SweepInterval time.Duration
}

// LoadEnvFile loads KEY=VALUE pairs from path (ENV_FILE, default .env) into
// the process environment. A missing file is not an error; variables already
// set win.
func LoadEnvFile(path string) error {
	if path == "" {
		path = os.Getenv("ENV_FILE")
	}
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config.stat(%s): %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config.godotenv(%s): %w", path, err)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("MODE", string(ModeOffline))
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_DSN", "")
	v.SetDefault("AUTH_HMAC_SECRET", "dev-secret-change-me")
	v.SetDefault("TOKEN_TTL", 12*time.Hour)
	v.SetDefault("ALLOW_CLAIM_ROLE", false)
	v.SetDefault("ADMIN_USER", "admin")
	v.SetDefault("ADMIN_PASS_HASH", "")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:3010")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("QUIZ_CACHE_TTL", 5*time.Minute)
	v.SetDefault("AMQP_URL", "")
	v.SetDefault("NOTIFY_QUEUE", "notifications.create")
	v.SetDefault("SWEEP_INTERVAL", time.Minute)

	v.AutomaticEnv()
	return v
}

// FromEnv reads the configuration from the environment.
func FromEnv() Config {
	v := newViper()
	mode := Mode(strings.ToLower(v.GetString("MODE")))
	if mode != ModeOnline {
		mode = ModeOffline
	}
	return Config{
		Mode:           mode,
		HTTPAddr:       v.GetString("HTTP_ADDR"),
		DBDriver:       v.GetString("DB_DRIVER"),
		DBDSN:          v.GetString("DB_DSN"),
		AuthHMACSecret: v.GetString("AUTH_HMAC_SECRET"),
		TokenTTL:       v.GetDuration("TOKEN_TTL"),
		AllowClaimRole: v.GetBool("ALLOW_CLAIM_ROLE"),
		AdminUser:      v.GetString("ADMIN_USER"),
		AdminPassHash:  v.GetString("ADMIN_PASS_HASH"),
		CORSOrigins:    csv(v.GetString("CORS_ORIGINS")),
		LogLevel:       v.GetString("LOG_LEVEL"),
		LogFormat:      v.GetString("LOG_FORMAT"),
		RedisAddr:      v.GetString("REDIS_ADDR"),
		RedisPassword:  v.GetString("REDIS_PASSWORD"),
		RedisDB:        v.GetInt("REDIS_DB"),
		QuizCacheTTL:   v.GetDuration("QUIZ_CACHE_TTL"),
		AMQPURL:        v.GetString("AMQP_URL"),
		NotifyQueue:    v.GetString("NOTIFY_QUEUE"),
		SweepInterval:  v.GetDuration("SWEEP_INTERVAL"),
	}
}

func csv(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
