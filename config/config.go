package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppPort string `mapstructure:"APP_PORT"`
	AppMode string `mapstructure:"APP_MODE"`

	DBDriver     string `mapstructure:"DB_DRIVER"`
	DBHost       string `mapstructure:"DB_HOST"`
	DBUser       string `mapstructure:"DB_USER"`
	DBPassword   string `mapstructure:"DB_PASSWORD"`
	DBName       string `mapstructure:"DB_NAME"`
	DBPort       string `mapstructure:"DB_PORT"`
	DBSQLitePath string `mapstructure:"DB_SQLITE_PATH"`

	RedisEnabled  bool   `mapstructure:"REDIS_ENABLED"`
	RedisHost     string `mapstructure:"REDIS_HOST"`
	RedisPort     string `mapstructure:"REDIS_PORT"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	JWTSecret           string   `mapstructure:"JWT_SECRET"`
	JWTExpiryMin        int      `mapstructure:"JWT_EXPIRY_MIN"`
	AllowedEmailDomains []string `mapstructure:"ALLOWED_EMAIL_DOMAINS"`

	S3Region     string `mapstructure:"S3_REGION"`
	S3Bucket     string `mapstructure:"S3_BUCKET"`
	S3AccessKey  string `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey  string `mapstructure:"S3_SECRET_KEY"`
	S3Endpoint   string `mapstructure:"S3_ENDPOINT"`
	S3PublicBase string `mapstructure:"S3_PUBLIC_BASE"`
	MaxUploadMB  int64  `mapstructure:"MAX_UPLOAD_MB"`

	StaticDir   string   `mapstructure:"STATIC_DIR"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`
	LogFile     string   `mapstructure:"LOG_FILE"`

	PresenceHeartbeat     time.Duration `mapstructure:"PRESENCE_HEARTBEAT"`
	PresenceOfflineAfter  time.Duration `mapstructure:"PRESENCE_OFFLINE_AFTER"`
	PresenceSweepInterval time.Duration `mapstructure:"PRESENCE_SWEEP_INTERVAL"`

	MessageRateLimit int `mapstructure:"MESSAGE_RATE_LIMIT"`
	AuthRateLimit    int `mapstructure:"AUTH_RATE_LIMIT"`
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var defaults = map[string]interface{}{
	"APP_PORT":                "8080",
	"APP_MODE":                "debug",
	"DB_DRIVER":               DriverPostgres,
	"DB_HOST":                 "localhost",
	"DB_USER":                 "postgres",
	"DB_PASSWORD":             "postgres",
	"DB_NAME":                 "hivley",
	"DB_PORT":                 "5432",
	"DB_SQLITE_PATH":          "hivley.db",
	"REDIS_ENABLED":           false,
	"REDIS_HOST":              "localhost",
	"REDIS_PORT":              "6379",
	"REDIS_PASSWORD":          "",
	"JWT_SECRET":              "change-me",
	"JWT_EXPIRY_MIN":          1440,
	"ALLOWED_EMAIL_DOMAINS":   "psu.edu,wm.edu",
	"S3_REGION":               "",
	"S3_BUCKET":               "",
	"S3_ACCESS_KEY":           "",
	"S3_SECRET_KEY":           "",
	"S3_ENDPOINT":             "",
	"S3_PUBLIC_BASE":          "",
	"MAX_UPLOAD_MB":           25,
	"STATIC_DIR":              "dist",
	"CORS_ORIGINS":            "*",
	"LOG_FILE":                "",
	"PRESENCE_HEARTBEAT":      "5m",
	"PRESENCE_OFFLINE_AFTER":  "15m",
	"PRESENCE_SWEEP_INTERVAL": "1m",
	"MESSAGE_RATE_LIMIT":      60,
	"AUTH_RATE_LIMIT":         10,
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	return fromViper(viper.New())
}

func fromViper(v *viper.Viper) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.AllowedEmailDomains = normalizeDomains(cfg.AllowedEmailDomains)
	cfg.CORSOrigins = splitList(cfg.CORSOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.DBDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DBDriver)
	}
	if c.AppMode == "release" && (c.JWTSecret == "" || c.JWTSecret == "change-me") {
		return fmt.Errorf("JWT_SECRET is required in release mode")
	}
	if c.PresenceHeartbeat <= 0 {
		return fmt.Errorf("PRESENCE_HEARTBEAT must be positive")
	}
	if c.PresenceSweepInterval <= 0 {
		return fmt.Errorf("PRESENCE_SWEEP_INTERVAL must be positive")
	}
	if c.PresenceOfflineAfter < c.PresenceHeartbeat {
		return fmt.Errorf("PRESENCE_OFFLINE_AFTER must not be shorter than PRESENCE_HEARTBEAT")
	}
	return nil
}

// S3Enabled reports whether attachment uploads can be served.
func (c *Config) S3Enabled() bool {
	return c.S3Region != "" && c.S3Bucket != ""
}

func normalizeDomains(in []string) []string {
	out := splitList(in)
	for i, d := range out {
		out[i] = strings.ToLower(d)
	}
	return out
}

// splitList flattens comma separated values. Environment variables
// arrive as a single element.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
