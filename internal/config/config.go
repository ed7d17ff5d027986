package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/user00265/ctyresolve/internal/dxcc"
)

// Default values for the various configuration options.
const (
	DefaultWebPort           = 8192
	DefaultDataDir           = "/data" // Inside the container
	DefaultCtyUpdateInterval = 7 * 24 * time.Hour
	MinCtyUpdateInterval     = time.Hour
	DefaultCacheSize         = 4096
	DefaultCacheTTL          = time.Hour
	DefaultBatchWorkers      = 8
	DefaultBatchMax          = 5000
	DefaultResultExpiry      = 24 * time.Hour
)

var (
	// Country file sources. The WAE variant carries the WAE-only entities
	// (Sicily, Shetland, ...) in addition to DXCC entities.
	CtyDatURL         = "https://www.country-files.com/cty/cty_wt_mod.dat"
	CtyDatFallbackURL = "https://www.country-files.com/cty/cty.dat"

	// EnvFile is loaded into the environment before parsing, if present.
	EnvFile = ".env"
)

// RedisConfig holds configuration for the optional shared result cache.
type RedisConfig struct {
	Enabled            bool          `env:"REDIS_ENABLED" envDefault:"false"`
	Host               string        `env:"REDIS_HOST"`
	Port               string        `env:"REDIS_PORT" envDefault:"6379"`
	User               string        `env:"REDIS_USER"`
	Password           string        `env:"REDIS_PASSWORD"`
	DB                 int           `env:"REDIS_DB" envDefault:"0"`
	UseTLS             bool          `env:"REDIS_USE_TLS" envDefault:"false"`
	InsecureSkipVerify bool          `env:"REDIS_INSECURE_SKIP_VERIFY" envDefault:"false"`
	ResultExpiry       time.Duration `env:"REDIS_RESULT_EXPIRY" envDefault:"24h"`
}

// Config holds all application configuration.
type Config struct {
	WebPort int    `env:"WEBPORT" envDefault:"8192"`
	BaseURL string `env:"WEBURL" envDefault:"/"`
	DataDir string `env:"DATA_DIR" envDefault:"/data"` // Directory for the SQLite file

	LogLevel string `env:"LOG_LEVEL"`
	LogFile  string `env:"LOG_FILE"` // Rotated copy of the log, optional

	// Country file. CTY_FILE, when set, is loaded from disk instead of
	// downloading.
	CtyURL            string        `env:"CTY_URL"`
	CtyFallbackURL    string        `env:"CTY_FALLBACK_URL"`
	CtyFile           string        `env:"CTY_FILE"`
	CtyUpdateInterval time.Duration `env:"CTY_UPDATE_INTERVAL" envDefault:"168h"`
	CtyForceRebuild   bool          `env:"CTY_FORCE_REBUILD" envDefault:"false"` // Drop and recreate the cty tables at start

	// In-process result cache. CACHE_SIZE=0 disables it.
	CacheSize int           `env:"CACHE_SIZE" envDefault:"4096"`
	CacheTTL  time.Duration `env:"CACHE_TTL" envDefault:"1h"`

	BatchWorkers int `env:"BATCH_WORKERS" envDefault:"8"`
	BatchMax     int `env:"BATCH_MAX" envDefault:"5000"`

	// Callsign shapes used by the portable-call rules.
	CallsignPattern         string `env:"CALLSIGN_PATTERN"`
	DomesticCallsignPattern string `env:"DOMESTIC_CALLSIGN_PATTERN"`

	Redis RedisConfig

	// Compiled from the pattern strings by LoadConfig.
	CallsignRe         *regexp.Regexp `env:"-"`
	DomesticCallsignRe *regexp.Regexp `env:"-"`
}

// LoadConfig loads configuration from the environment (and EnvFile).
func LoadConfig() (*Config, error) {
	// A missing .env is normal; real environment variables take precedence.
	_ = godotenv.Load(EnvFile)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	if cfg.CtyURL == "" {
		cfg.CtyURL = CtyDatURL
	}
	if cfg.CtyFallbackURL == "" {
		cfg.CtyFallbackURL = CtyDatFallbackURL
	}
	if cfg.CtyUpdateInterval < MinCtyUpdateInterval {
		cfg.CtyUpdateInterval = MinCtyUpdateInterval
	}
	if cfg.BatchWorkers < 1 {
		cfg.BatchWorkers = 1
	}
	if cfg.BatchMax < 1 {
		cfg.BatchMax = DefaultBatchMax
	}
	if cfg.CacheSize < 0 {
		cfg.CacheSize = 0
	}

	if cfg.CallsignPattern == "" {
		cfg.CallsignPattern = dxcc.DefaultCallPattern
	}
	if cfg.DomesticCallsignPattern == "" {
		cfg.DomesticCallsignPattern = dxcc.DefaultDomesticCallPattern
	}
	var err error
	if cfg.CallsignRe, err = regexp.Compile(cfg.CallsignPattern); err != nil {
		return nil, fmt.Errorf("failed to compile CALLSIGN_PATTERN: %w", err)
	}
	if cfg.DomesticCallsignRe, err = regexp.Compile(cfg.DomesticCallsignPattern); err != nil {
		return nil, fmt.Errorf("failed to compile DOMESTIC_CALLSIGN_PATTERN: %w", err)
	}

	if cfg.CtyFile != "" {
		if _, err := os.Stat(cfg.CtyFile); err != nil {
			return nil, fmt.Errorf("CTY_FILE %s is not readable: %w", cfg.CtyFile, err)
		}
	}

	// The SQLite store lives here, so it has to exist.
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}

	return cfg, nil
}
