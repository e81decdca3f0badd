package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/certledger/certledger/internal/identity"
)

const (
	defaultAppName        = "CertLedger"
	defaultAppEnv         = "development"
	defaultPort           = "3001"
	defaultLogLevel       = "info"
	defaultLogFormat      = "json"
	defaultSQLitePath     = "users.db"
	defaultShutdownDelay  = 10 * time.Second
	defaultAccessTTL      = time.Hour
	defaultCacheTTL       = 15 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultLedgerTimeout  = 10 * time.Second
	defaultProbeInterval  = 30 * time.Second
	defaultLoginRateLimit = 5
	devJWTSecret          = "dev-only-insecure-secret"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName   string
	Env       string
	Port      string
	LogLevel  string
	LogFormat string

	JWTSecret      string
	AccessTokenTTL time.Duration

	DatabaseURL      string
	SQLitePath       string
	SeedDefaultUsers bool

	RedisURL       string
	CacheTTL       time.Duration
	LoginRateLimit int
	IdempotencyTTL time.Duration

	LedgerRPCURL        string
	ContractAddress     string
	IssuerPrivateKey    string
	ChainID             int64
	LedgerTimeout       time.Duration
	LedgerProbeInterval time.Duration

	VerifyAllowedRoles []string
	IssueAllowedRoles  []string

	// IssuerUsername and IssuerPassword provision an issuer account at startup.
	IssuerUsername string
	IssuerPassword string

	ShutdownPeriod time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		Env:              strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:             getEnv("PORT", defaultPort),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:        strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		SQLitePath:       getEnv("SQLITE_PATH", defaultSQLitePath),
		RedisURL:         os.Getenv("REDIS_URL"),
		LedgerRPCURL:     os.Getenv("LEDGER_RPC_URL"),
		ContractAddress:  os.Getenv("CONTRACT_ADDRESS"),
		IssuerPrivateKey: strings.TrimPrefix(os.Getenv("ISSUER_PRIVATE_KEY"), "0x"),
		IssuerUsername:   strings.TrimSpace(os.Getenv("ISSUER_USERNAME")),
		IssuerPassword:   os.Getenv("ISSUER_PASSWORD"),
	}

	var err error
	durations := []struct {
		dst      *time.Duration
		name     string
		fallback time.Duration
	}{
		{&cfg.AccessTokenTTL, "ACCESS_TOKEN_TTL", defaultAccessTTL},
		{&cfg.CacheTTL, "CACHE_TTL", defaultCacheTTL},
		{&cfg.IdempotencyTTL, "IDEMPOTENCY_TTL", defaultIdempotencyTTL},
		{&cfg.LedgerTimeout, "LEDGER_TIMEOUT", defaultLedgerTimeout},
		{&cfg.LedgerProbeInterval, "LEDGER_PROBE_INTERVAL", defaultProbeInterval},
		{&cfg.ShutdownPeriod, "SHUTDOWN_TIMEOUT", defaultShutdownDelay},
	}
	for _, d := range durations {
		if *d.dst, err = getDuration(d.name, d.fallback); err != nil {
			return Config{}, err
		}
	}

	if cfg.LoginRateLimit, err = getInt("LOGIN_RATE_LIMIT", defaultLoginRateLimit); err != nil {
		return Config{}, err
	}
	chainID, err := getInt("CHAIN_ID", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.ChainID = int64(chainID)

	if cfg.SeedDefaultUsers, err = getBool("SEED_DEFAULT_USERS", cfg.IsDev()); err != nil {
		return Config{}, err
	}

	cfg.VerifyAllowedRoles = splitList(getEnv("VERIFY_ALLOWED_ROLES", "learner,employer"))
	cfg.IssueAllowedRoles = splitList(getEnv("ISSUE_ALLOWED_ROLES", identity.RoleIssuer))

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.JWTSecret == "" {
		if !c.IsDev() {
			return fmt.Errorf("JWT_SECRET must be set when APP_ENV=%s", c.Env)
		}
		c.JWTSecret = devJWTSecret
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	if c.LedgerTimeout <= 0 {
		return fmt.Errorf("LEDGER_TIMEOUT must be positive")
	}
	if c.LedgerProbeInterval <= 0 {
		return fmt.Errorf("LEDGER_PROBE_INTERVAL must be positive")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL must not be negative")
	}
	if c.LedgerRPCURL == "" && !c.IsDev() {
		return fmt.Errorf("LEDGER_RPC_URL must be set when APP_ENV=%s", c.Env)
	}
	if c.LedgerRPCURL != "" && c.ContractAddress == "" {
		return fmt.Errorf("CONTRACT_ADDRESS must be set together with LEDGER_RPC_URL")
	}
	if len(c.VerifyAllowedRoles) == 0 {
		return fmt.Errorf("VERIFY_ALLOWED_ROLES must name at least one role")
	}
	if len(c.IssueAllowedRoles) == 0 {
		return fmt.Errorf("ISSUE_ALLOWED_ROLES must name at least one role")
	}
	for _, role := range c.IssueAllowedRoles {
		if identity.SelfAssignable(role) {
			return fmt.Errorf("ISSUE_ALLOWED_ROLES must not include self-registrable role %q", role)
		}
	}
	if (c.IssuerUsername == "") != (c.IssuerPassword == "") {
		return fmt.Errorf("ISSUER_USERNAME and ISSUER_PASSWORD must be set together")
	}
	return nil
}

// IsDev reports whether the process runs in a development-like environment.
func (c Config) IsDev() bool {
	switch c.Env {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getDuration accepts either KEY as a Go duration or KEY_SECONDS as an integer.
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(key + "_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s_SECONDS: %w", key, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", key, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
