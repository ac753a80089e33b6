package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `json:"server"`
	Database      DatabaseConfig      `json:"database"`
	Security      SecurityConfig      `json:"security"`
	Logging       LoggingConfig       `json:"logging"`
	Onboarding    OnboardingConfig    `json:"onboarding"`
	CRM           CRMConfig           `json:"crm"`
	Housekeeping  HousekeepingConfig  `json:"housekeeping"`
	Notifications NotificationsConfig `json:"notifications"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	AllowedOrigin   string        `json:"allowed_origin"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"db_name"`
	SSLMode        string        `json:"ssl_mode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleConns   int           `json:"max_idle_conns"`
	MaxLifetime    time.Duration `json:"max_lifetime"`
}

// SecurityConfig
type SecurityConfig struct {
	JWTSecret string        `json:"jwt_secret"`
	JWTIssuer string        `json:"jwt_issuer"`
	TokenTTL  time.Duration `json:"token_ttl"`
	DemoLogin bool          `json:"demo_login"`
}

// LoggingConfig
type LoggingConfig struct {
	Level       string `json:"level"`
	Development bool   `json:"development"`
}

// OnboardingConfig holds the fixed destinations and literals used by the onboarding screens
type OnboardingConfig struct {
	DashboardPath       string        `json:"dashboard_path"`
	OnboardingPath      string        `json:"onboarding_path"`
	FallbackCompanyName string        `json:"fallback_company_name"`
	SessionTTL          time.Duration `json:"session_ttl"`
	DemoAccountEmail    string        `json:"demo_account_email"`
}

// CRMConfig describes the external CRM authorization endpoints
type CRMConfig struct {
	ClientID     string        `json:"client_id"`
	ClientSecret string        `json:"client_secret"`
	AuthURL      string        `json:"auth_url"`
	TokenURL     string        `json:"token_url"`
	RedirectURI  string        `json:"redirect_uri"`
	Scopes       []string      `json:"scopes"`
	PendingTTL   time.Duration `json:"pending_ttl"`
	HTTPTimeout  time.Duration `json:"http_timeout"`
}

// HousekeepingConfig
type HousekeepingConfig struct {
	SweepSpec string `json:"sweep_spec"`
}

// NotificationsConfig
type NotificationsConfig struct {
	HistoryLimit int `json:"history_limit"`
}

// envOverrides holds raw environment values applied on top of the file config.
type envOverrides struct {
	ServerHost          string        `env:"SERVER_HOST"`
	ServerPort          int           `env:"SERVER_PORT"`
	AllowedOrigin       string        `env:"SERVER_ALLOWED_ORIGIN"`
	DatabaseHost        string        `env:"DATABASE_HOST"`
	DatabasePort        int           `env:"DATABASE_PORT"`
	DatabaseUser        string        `env:"DATABASE_USER"`
	DatabasePassword    string        `env:"DATABASE_PASSWORD"`
	DatabaseName        string        `env:"DATABASE_DBNAME"`
	DatabaseSSLMode     string        `env:"DATABASE_SSLMODE"`
	JWTSecret           string        `env:"JWT_SECRET"`
	DemoLogin           string        `env:"DEMO_LOGIN"`
	LogLevel            string        `env:"LOG_LEVEL"`
	FallbackCompanyName string        `env:"ONBOARDING_FALLBACK_COMPANY_NAME"`
	SessionTTL          time.Duration `env:"ONBOARDING_SESSION_TTL"`
	CRMClientID         string        `env:"CRM_CLIENT_ID"`
	CRMClientSecret     string        `env:"CRM_CLIENT_SECRET"`
	CRMAuthURL          string        `env:"CRM_AUTH_URL"`
	CRMTokenURL         string        `env:"CRM_TOKEN_URL"`
	CRMRedirectURI      string        `env:"CRM_REDIRECT_URI"`
	CRMScopes           []string      `env:"CRM_SCOPES" envSeparator:","`
	SweepSpec           string        `env:"HOUSEKEEPING_SWEEP_SPEC"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			AllowedOrigin:   "*",
		},
		Database: DatabaseConfig{
			Host:           "localhost",
			Port:           5432,
			User:           os.Getenv("USER"),
			DBName:         "crm_copy",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
			MaxLifetime:    30 * time.Minute,
		},
		Security: SecurityConfig{
			JWTIssuer: "crm-copy",
			TokenTTL:  24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Onboarding: OnboardingConfig{
			DashboardPath:       "/dashboard",
			OnboardingPath:      "/onboarding",
			FallbackCompanyName: "My Company",
			SessionTTL:          30 * time.Minute,
			DemoAccountEmail:    "company@example.com",
		},
		CRM: CRMConfig{
			Scopes:      []string{"crm.objects.contacts.read", "crm.objects.deals.read"},
			PendingTTL:  10 * time.Minute,
			HTTPTimeout: 10 * time.Second,
		},
		Housekeeping: HousekeepingConfig{
			SweepSpec: "@every 1m",
		},
		Notifications: NotificationsConfig{
			HistoryLimit: 50,
		},
	}
}

// LoadConfig loads configuration from file, .env and environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	// Load from file if exists
	if configPath != "" {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	if err := overrideWithEnv(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func overrideWithEnv(config *Config) error {
	var e envOverrides
	if err := env.Parse(&e); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	setString(&config.Server.Host, e.ServerHost)
	setInt(&config.Server.Port, e.ServerPort)
	setString(&config.Server.AllowedOrigin, e.AllowedOrigin)
	setString(&config.Database.Host, e.DatabaseHost)
	setInt(&config.Database.Port, e.DatabasePort)
	setString(&config.Database.User, e.DatabaseUser)
	setString(&config.Database.Password, e.DatabasePassword)
	setString(&config.Database.DBName, e.DatabaseName)
	setString(&config.Database.SSLMode, e.DatabaseSSLMode)
	setString(&config.Security.JWTSecret, e.JWTSecret)
	if e.DemoLogin != "" {
		demo, err := strconv.ParseBool(e.DemoLogin)
		if err != nil {
			return fmt.Errorf("invalid DEMO_LOGIN: %w", err)
		}
		config.Security.DemoLogin = demo
	}
	setString(&config.Logging.Level, e.LogLevel)
	setString(&config.Onboarding.FallbackCompanyName, e.FallbackCompanyName)
	if e.SessionTTL > 0 {
		config.Onboarding.SessionTTL = e.SessionTTL
	}
	setString(&config.CRM.ClientID, e.CRMClientID)
	setString(&config.CRM.ClientSecret, e.CRMClientSecret)
	setString(&config.CRM.AuthURL, e.CRMAuthURL)
	setString(&config.CRM.TokenURL, e.CRMTokenURL)
	setString(&config.CRM.RedirectURI, e.CRMRedirectURI)
	if len(e.CRMScopes) > 0 {
		config.CRM.Scopes = e.CRMScopes
	}
	setString(&config.Housekeeping.SweepSpec, e.SweepSpec)
	return nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func setInt(dst *int, value int) {
	if value != 0 {
		*dst = value
	}
}

// Validate checks the values the server cannot start without
func (c *Config) Validate() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("security.jwt_secret is required")
	}
	if c.Onboarding.FallbackCompanyName == "" {
		return fmt.Errorf("onboarding.fallback_company_name must not be empty")
	}
	if c.Onboarding.DashboardPath == "" || c.Onboarding.OnboardingPath == "" {
		return fmt.Errorf("onboarding destinations must not be empty")
	}
	return nil
}

// CRMEnabled reports whether the authorization handshake endpoints are configured
func (c *CRMConfig) CRMEnabled() bool {
	return c.ClientID != "" && c.AuthURL != "" && c.TokenURL != ""
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
