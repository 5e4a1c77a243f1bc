package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	CredentialStoreFile     = "file"
	CredentialStorePostgres = "postgres"
	CredentialStoreRedis    = "redis"
)

type Config struct {
	HTTP         HTTPConfig        `yaml:"http"`
	API          APIConfig         `yaml:"api"`
	Routes       RoutesConfig      `yaml:"routes"`
	Credentials  CredentialsConfig `yaml:"credentials"`
	LogLevel     string            `yaml:"log_level"`
	AuditLogFile string            `yaml:"audit_log_file"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type APIConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	RateLimitRPS int           `yaml:"rate_limit_rps"`
	RateBurst    int           `yaml:"rate_burst"`
}

// RoutesConfig names the screens the route guard redirects between.
type RoutesConfig struct {
	Login   string   `yaml:"login"`
	Landing string   `yaml:"landing"`
	Public  []string `yaml:"public"`
}

type CredentialsConfig struct {
	Store       string        `yaml:"store"`
	File        string        `yaml:"file"`
	DatabaseURL string        `yaml:"database_url"`
	RedisAddr   string        `yaml:"redis_addr"`
	RedisKey    string        `yaml:"redis_key"`
	RedisTTL    time.Duration `yaml:"redis_ttl"`
}

func defaults() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:            "127.0.0.1:5173",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		API: APIConfig{
			BaseURL:      "http://localhost:80/api",
			Timeout:      15 * time.Second,
			RateLimitRPS: 20,
			RateBurst:    10,
		},
		Routes: RoutesConfig{
			Login:   "/login",
			Landing: "/",
			Public:  []string{"/login", "/register", "/verify-otp"},
		},
		Credentials: CredentialsConfig{
			Store:    CredentialStoreFile,
			File:     "./data/credentials.json",
			RedisKey: "linkup-shell:credentials",
			RedisTTL: 7 * 24 * time.Hour,
		},
		LogLevel:     "info",
		AuditLogFile: "./data/audit.log",
	}
}

// Load builds the configuration from defaults, the optional YAML file named by
// LINKUP_CONFIG and finally environment variables.
func Load() (Config, error) {
	return LoadFile(os.Getenv("LINKUP_CONFIG"))
}

func LoadFile(path string) (Config, error) {
	cfg := defaults()

	path = strings.TrimSpace(path)
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config file: %w", err)
		}
	}

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.ReadTimeout = getEnvSeconds("HTTP_READ_TIMEOUT_SEC", cfg.HTTP.ReadTimeout)
	cfg.HTTP.WriteTimeout = getEnvSeconds("HTTP_WRITE_TIMEOUT_SEC", cfg.HTTP.WriteTimeout)
	cfg.HTTP.ShutdownTimeout = getEnvSeconds("HTTP_SHUTDOWN_TIMEOUT_SEC", cfg.HTTP.ShutdownTimeout)

	cfg.API.BaseURL = getEnv("LINKUP_API_URL", cfg.API.BaseURL)
	cfg.API.Timeout = getEnvSeconds("LINKUP_API_TIMEOUT_SEC", cfg.API.Timeout)
	cfg.API.RateLimitRPS = getEnvInt("LINKUP_API_RATE_LIMIT_RPS", cfg.API.RateLimitRPS)
	cfg.API.RateBurst = getEnvInt("LINKUP_API_RATE_BURST", cfg.API.RateBurst)

	cfg.Routes.Login = getEnv("ROUTE_LOGIN", cfg.Routes.Login)
	cfg.Routes.Landing = getEnv("ROUTE_LANDING", cfg.Routes.Landing)
	if cfg.Routes.Login != "" && !slices.Contains(cfg.Routes.Public, cfg.Routes.Login) {
		cfg.Routes.Public = append(cfg.Routes.Public, cfg.Routes.Login)
	}

	cfg.Credentials.Store = strings.ToLower(getEnv("CREDENTIAL_STORE", cfg.Credentials.Store))
	cfg.Credentials.File = getEnv("CREDENTIAL_STATE_FILE", cfg.Credentials.File)
	cfg.Credentials.DatabaseURL = getEnv("DATABASE_URL", cfg.Credentials.DatabaseURL)
	cfg.Credentials.RedisAddr = getEnv("REDIS_ADDR", cfg.Credentials.RedisAddr)
	cfg.Credentials.RedisKey = getEnv("REDIS_CREDENTIAL_KEY", cfg.Credentials.RedisKey)
	cfg.Credentials.RedisTTL = getEnvSeconds("REDIS_CREDENTIAL_TTL_SEC", cfg.Credentials.RedisTTL)

	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.AuditLogFile = getEnv("AUDIT_LOG_FILE", cfg.AuditLogFile)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 || c.HTTP.ShutdownTimeout <= 0 {
		return fmt.Errorf("HTTP timeouts must be > 0")
	}
	if c.API.BaseURL == "" {
		return fmt.Errorf("LINKUP_API_URL must not be empty")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("LINKUP_API_URL must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("LINKUP_API_TIMEOUT_SEC must be > 0")
	}
	if c.API.RateLimitRPS <= 0 || c.API.RateBurst <= 0 {
		return fmt.Errorf("LINKUP_API_RATE_LIMIT_RPS and LINKUP_API_RATE_BURST must be > 0")
	}
	if !strings.HasPrefix(c.Routes.Login, "/") || !strings.HasPrefix(c.Routes.Landing, "/") {
		return fmt.Errorf("ROUTE_LOGIN and ROUTE_LANDING must be absolute paths")
	}
	if c.Routes.Login == c.Routes.Landing {
		return fmt.Errorf("ROUTE_LOGIN and ROUTE_LANDING must differ, both are %q", c.Routes.Login)
	}
	if !slices.Contains(c.Routes.Public, c.Routes.Login) {
		return fmt.Errorf("ROUTE_LOGIN %q must be one of the public routes", c.Routes.Login)
	}
	if slices.Contains(c.Routes.Public, c.Routes.Landing) {
		return fmt.Errorf("ROUTE_LANDING %q must not be a public route", c.Routes.Landing)
	}
	switch c.Credentials.Store {
	case CredentialStoreFile:
		if c.Credentials.File == "" {
			return fmt.Errorf("CREDENTIAL_STATE_FILE must not be empty")
		}
	case CredentialStorePostgres:
		if c.Credentials.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must not be empty for the postgres credential store")
		}
	case CredentialStoreRedis:
		if c.Credentials.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR must not be empty for the redis credential store")
		}
		if c.Credentials.RedisKey == "" {
			return fmt.Errorf("REDIS_CREDENTIAL_KEY must not be empty")
		}
	default:
		return fmt.Errorf("CREDENTIAL_STORE must be one of file, postgres, redis, got %q", c.Credentials.Store)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	if c.AuditLogFile == "" {
		return fmt.Errorf("AUDIT_LOG_FILE must not be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	return val
}

func getEnvInt(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvSeconds(key string, fallback time.Duration) time.Duration {
	n := getEnvInt(key, -1)
	if n < 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
