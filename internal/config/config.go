package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// devSessionSecret signs session tokens when ENV=development and no
// SESSION_SECRET is configured.
const devSessionSecret = "cvrisk-development-session-secret"

type Config struct {
	Port            string        `mapstructure:"PORT"`
	Env             string        `mapstructure:"ENV"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL        string        `mapstructure:"REDIS_URL"`
	SheetsWebAppURL string        `mapstructure:"SHEETS_WEBAPP_URL"`
	SheetsAPIKey    string        `mapstructure:"SHEETS_API_KEY"`
	SheetsTimeout   time.Duration `mapstructure:"SHEETS_TIMEOUT"`
	SessionSecret   string        `mapstructure:"SESSION_SECRET"`
	SessionTTL      time.Duration `mapstructure:"SESSION_TTL"`
	TrustedParents  []string      `mapstructure:"TRUSTED_PARENTS"`
	CORSOrigins     []string      `mapstructure:"CORS_ORIGINS"`
	AdminAPIKey     string        `mapstructure:"ADMIN_API_KEY"`
	RateLimitRPS    float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int           `mapstructure:"RATE_LIMIT_BURST"`
	ReportTimezone  string        `mapstructure:"REPORT_TIMEZONE"`
	DefaultLang     string        `mapstructure:"DEFAULT_LANG"`
	DispatchWorkers int           `mapstructure:"DISPATCH_WORKERS"`
	DispatchQueue   int           `mapstructure:"DISPATCH_QUEUE"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit       string        `mapstructure:"BODY_LIMIT"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL",
	"SHEETS_WEBAPP_URL", "SHEETS_API_KEY", "SHEETS_TIMEOUT",
	"SESSION_SECRET", "SESSION_TTL", "TRUSTED_PARENTS", "CORS_ORIGINS", "ADMIN_API_KEY",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REPORT_TIMEZONE", "DEFAULT_LANG",
	"DISPATCH_WORKERS", "DISPATCH_QUEUE", "REQUEST_TIMEOUT", "BODY_LIMIT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("SHEETS_TIMEOUT", "10s")
	v.SetDefault("SESSION_TTL", "12h")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("REPORT_TIMEZONE", "Asia/Bangkok")
	v.SetDefault("DEFAULT_LANG", "th")
	v.SetDefault("DISPATCH_WORKERS", 4)
	v.SetDefault("DISPATCH_QUEUE", 256)
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("BODY_LIMIT", "64K")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.TrustedParents = splitList(cfg.TrustedParents, v.GetString("TRUSTED_PARENTS"))
	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))

	if cfg.IsDev() && cfg.SessionSecret == "" {
		cfg.SessionSecret = devSessionSecret
		log.Println("WARNING: SESSION_SECRET is not set; using the development secret.")
		log.Println("WARNING: Do NOT use this configuration in production.")
	}

	return cfg, nil
}

// splitList normalizes a comma separated list that viper may have decoded
// either as a slice or left as a single string.
func splitList(decoded []string, raw string) []string {
	if len(decoded) == 0 && raw != "" {
		decoded = []string{raw}
	}
	var out []string
	for _, item := range decoded {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location loads REPORT_TIMEZONE.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return nil, fmt.Errorf("REPORT_TIMEZONE %q: %w", c.ReportTimezone, err)
	}
	return loc, nil
}

// Validate checks that the configuration is safe to run. Outside development
// a real SESSION_SECRET of at least 32 bytes is required.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.SessionSecret == "" || c.SessionSecret == devSessionSecret {
			return fmt.Errorf("SESSION_SECRET is required when ENV=%q", c.Env)
		}
		if len(c.SessionSecret) < 32 {
			return fmt.Errorf("SESSION_SECRET must be at least 32 bytes, got %d", len(c.SessionSecret))
		}
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	if c.DispatchWorkers <= 0 {
		return fmt.Errorf("DISPATCH_WORKERS must be positive, got %d", c.DispatchWorkers)
	}
	if c.DispatchQueue <= 0 {
		return fmt.Errorf("DISPATCH_QUEUE must be positive, got %d", c.DispatchQueue)
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.DefaultLang == "" {
		return fmt.Errorf("DEFAULT_LANG is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.SheetsWebAppURL != "" && !strings.HasPrefix(c.SheetsWebAppURL, "https://") && c.IsProduction() {
		return fmt.Errorf("SHEETS_WEBAPP_URL must use https in production")
	}
	return nil
}
