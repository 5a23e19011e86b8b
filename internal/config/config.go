package config

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalidConfig is returned when a configured value cannot be parsed
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds every recognized option of the wallet backend
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	ICP      ICPConfig
	Auth     AuthConfig
}

type AppConfig struct {
	Port       int
	NodeEnv    string
	CorsOrigin string
	APIPrefix  string
	LogLevel   string
}

type DatabaseConfig struct {
	// URL selects the driver: empty or sqlite:// uses SQLite, postgres:// uses Postgres
	URL               string
	SQLitePath        string
	ConnectionTimeout time.Duration
	MaxConnections    int
}

type ICPConfig struct {
	ReplicaURL        string
	BackendPrivateKey string
	// CanisterWasmPath is a local file path or an s3://bucket/key location
	CanisterWasmPath      string
	DefaultCanisterCycles *big.Int
	// FetchRootKey is only enabled in development, where the replica's root key is trusted as-is
	FetchRootKey   bool
	RequestTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
}

type AuthConfig struct {
	// JWKSURI enables RS/ES bearer authentication against the issuer's key set
	JWKSURI      string
	JWKSCacheTTL time.Duration
	// JWTSecret additionally accepts HS256 tokens signed with it
	JWTSecret string
}

// Enabled reports whether bearer authentication guards the API
func (a AuthConfig) Enabled() bool {
	return a.JWKSURI != "" || a.JWTSecret != ""
}

// IsDevelopment reports whether the development-mode flag is on
func (c *Config) IsDevelopment() bool {
	return c.App.NodeEnv == EnvDevelopment
}

var defaults = map[string]string{
	"PORT":                     "4000",
	"NODE_ENV":                 EnvDevelopment,
	"CORS_ORIGIN":              "http://localhost:3000",
	"API_PREFIX":               "api",
	"LOG_LEVEL":                "info",
	"DATABASE_URL":             "",
	"SQLITE_PATH":              "./wallets.db",
	"DB_CONNECTION_TIMEOUT_MS": "30000",
	"DB_MAX_CONNECTIONS":       "10",
	"ICP_REPLICA_URL":          "http://localhost:4943",
	"BACKEND_PRIVATE_KEY":      "",
	"CANISTER_WASM_PATH":       "./assets/wallet.wasm",
	"DEFAULT_CANISTER_CYCLES":  "1000000000000",
	"ICP_REQUEST_TIMEOUT_MS":   "60000",
	"ICP_MAX_RETRIES":          "3",
	"ICP_RETRY_DELAY_MS":       "1000",
	"AUTH_JWT_SECRET":          "",
	"AUTH_JWKS_URI":            "",
	"AUTH_JWKS_CACHE_TTL_MS":   "300000",
}

// NewViper returns a viper instance with defaults applied and the environment bound
func NewViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	return v
}

// Load reads the configuration from the environment
func Load() (*Config, error) {
	return FromViper(NewViper())
}

// FromViper builds a Config from an already populated viper instance
func FromViper(v *viper.Viper) (*Config, error) {
	p := &parser{v: v}

	cfg := &Config{
		App: AppConfig{
			Port:       p.int("PORT"),
			NodeEnv:    strings.TrimSpace(v.GetString("NODE_ENV")),
			CorsOrigin: v.GetString("CORS_ORIGIN"),
			APIPrefix:  strings.Trim(v.GetString("API_PREFIX"), "/"),
			LogLevel:   v.GetString("LOG_LEVEL"),
		},
		Database: DatabaseConfig{
			URL:               v.GetString("DATABASE_URL"),
			SQLitePath:        v.GetString("SQLITE_PATH"),
			ConnectionTimeout: p.millis("DB_CONNECTION_TIMEOUT_MS"),
			MaxConnections:    p.int("DB_MAX_CONNECTIONS"),
		},
		ICP: ICPConfig{
			ReplicaURL:            strings.TrimRight(v.GetString("ICP_REPLICA_URL"), "/"),
			BackendPrivateKey:     strings.TrimSpace(v.GetString("BACKEND_PRIVATE_KEY")),
			CanisterWasmPath:      v.GetString("CANISTER_WASM_PATH"),
			DefaultCanisterCycles: p.bigInt("DEFAULT_CANISTER_CYCLES"),
			RequestTimeout:        p.millis("ICP_REQUEST_TIMEOUT_MS"),
			MaxRetries:            p.int("ICP_MAX_RETRIES"),
			RetryDelay:            p.millis("ICP_RETRY_DELAY_MS"),
		},
		Auth: AuthConfig{
			JWKSURI:      strings.TrimSpace(v.GetString("AUTH_JWKS_URI")),
			JWKSCacheTTL: p.millis("AUTH_JWKS_CACHE_TTL_MS"),
			JWTSecret:    v.GetString("AUTH_JWT_SECRET"),
		},
	}
	cfg.ICP.FetchRootKey = cfg.IsDevelopment()

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	if cfg.ICP.MaxRetries < 1 {
		return nil, fmt.Errorf("%w: ICP_MAX_RETRIES must be at least 1", ErrInvalidConfig)
	}
	return cfg, nil
}

type parser struct {
	v    *viper.Viper
	errs []error
}

func (p *parser) int(key string) int {
	raw := strings.TrimSpace(p.v.GetString(key))
	value, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, key, raw))
		return 0
	}
	return value
}

func (p *parser) millis(key string) time.Duration {
	return time.Duration(p.int(key)) * time.Millisecond
}

func (p *parser) bigInt(key string) *big.Int {
	raw := strings.TrimSpace(p.v.GetString(key))
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok || value.Sign() < 0 {
		p.errs = append(p.errs, fmt.Errorf("%w: %s=%q is not a non-negative integer", ErrInvalidConfig, key, raw))
		return new(big.Int)
	}
	return value
}
