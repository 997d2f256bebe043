package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/xxxsen/common/logger"

	"github.com/xxxsen/evoting/internal/model"
)

type Config struct {
	Port                  int                `json:"port"`
	JWTSecret             string             `json:"jwt_secret"`
	JWTTTLMinutes         int                `json:"jwt_ttl_minutes"`
	LogConfig             logger.LogConfig   `json:"log_config"`
	Database              DatabaseConfig     `json:"database"`
	Mail                  MailConfig         `json:"mail"`
	OTP                   OTPConfig          `json:"otp"`
	SessionStore          SessionStore       `json:"session_store"`
	CandidateDeletePolicy model.DeletePolicy `json:"candidate_delete_policy"`
	DefaultCandidateImage string             `json:"default_candidate_image"`
	Admin                 AdminConfig        `json:"admin"`
	CORSAllowlist         []string           `json:"cors_allowlist"`
	RateLimit             RateLimitConfig    `json:"rate_limit"`
}

type DatabaseConfig struct {
	Driver              string `json:"driver"`
	DSN                 string `json:"dsn"`
	Host                string `json:"host"`
	Port                int    `json:"port"`
	User                string `json:"user"`
	Password            string `json:"password"`
	DBName              string `json:"db_name"`
	SSLMode             string `json:"ssl_mode"`
	Path                string `json:"path"`
	MaxOpenConns        int    `json:"max_open_conns"`
	QueryTimeoutSeconds int    `json:"query_timeout_seconds"`
}

type MailConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	From     string `json:"from"`
}

type OTPConfig struct {
	Length          int    `json:"length"`
	TTLSeconds      int    `json:"ttl_seconds"`
	CooldownSeconds int    `json:"cooldown_seconds"`
	MaxAttempts     int    `json:"max_attempts"`
	CleanupCron     string `json:"cleanup_cron"`
	RetentionHours  int    `json:"retention_hours"`
}

type SessionStore struct {
	Type     string `json:"type"`
	RedisURL string `json:"redis_url"`
	LRUSize  int    `json:"lru_size"`
}

type AdminConfig struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RateLimitConfig holds the minimum seconds between calls per client and route.
type RateLimitConfig struct {
	Register int `json:"register"`
	Verify   int `json:"verify"`
	Resend   int `json:"resend"`
	Login    int `json:"login"`
	Vote     int `json:"vote"`
}

func (c *Config) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLMinutes) * time.Minute
}

func (c *DatabaseConfig) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSeconds) * time.Second
}

func (c *OTPConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

func (c *OTPConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

func (c *OTPConfig) Retention() time.Duration {
	return time.Duration(c.RetentionHours) * time.Hour
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("jwt_secret is required")
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.JWTTTLMinutes <= 0 {
		c.JWTTTLMinutes = 60
	}
	if c.LogConfig.Level == "" {
		c.LogConfig.Level = "info"
	}
	if err := c.Database.normalize(); err != nil {
		return err
	}
	c.OTP.normalize()
	switch c.SessionStore.Type {
	case "":
		c.SessionStore.Type = "memory"
	case "memory":
	case "redis":
		if c.SessionStore.RedisURL == "" {
			return fmt.Errorf("session_store.redis_url is required for redis store")
		}
	default:
		return fmt.Errorf("session_store.type must be memory or redis")
	}
	if c.SessionStore.LRUSize <= 0 {
		c.SessionStore.LRUSize = 10000
	}
	if c.CandidateDeletePolicy == "" {
		c.CandidateDeletePolicy = model.DeleteDisallow
	}
	if !c.CandidateDeletePolicy.Valid() {
		return fmt.Errorf("candidate_delete_policy must be one of %s", strings.Join(model.DeletePolicyNames(), ", "))
	}
	if c.DefaultCandidateImage == "" {
		c.DefaultCandidateImage = "https://via.placeholder.com/150"
	}
	c.Admin.Email = strings.ToLower(strings.TrimSpace(c.Admin.Email))
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		return fmt.Errorf("admin.email and admin.password must be set together")
	}
	c.RateLimit.normalize()
	return nil
}

func (c *DatabaseConfig) normalize() error {
	switch c.Driver {
	case "", "postgres":
		c.Driver = "postgres"
		if c.DSN == "" && c.Host == "" {
			return fmt.Errorf("database.dsn or database.host is required for postgres")
		}
		if c.Port == 0 {
			c.Port = 5432
		}
	case "sqlite":
		if c.Path == "" && c.DSN == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite")
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 25
	}
	if c.QueryTimeoutSeconds <= 0 {
		c.QueryTimeoutSeconds = 5
	}
	return nil
}

func (c *OTPConfig) normalize() {
	if c.Length <= 0 {
		c.Length = 6
	}
	if c.TTLSeconds <= 0 {
		c.TTLSeconds = 600
	}
	if c.CooldownSeconds <= 0 {
		c.CooldownSeconds = 60
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 5
	}
	if c.CleanupCron == "" {
		c.CleanupCron = "*/10 * * * *"
	}
	if c.RetentionHours <= 0 {
		c.RetentionHours = 24
	}
}

func (c *RateLimitConfig) normalize() {
	if c.Register <= 0 {
		c.Register = 12
	}
	if c.Verify <= 0 {
		c.Verify = 6
	}
	if c.Resend <= 0 {
		c.Resend = 20
	}
	if c.Login <= 0 {
		c.Login = 6
	}
	if c.Vote <= 0 {
		c.Vote = 60
	}
}
