package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	defaultConfigFile     = "config.json"
	defaultEnvFile        = ".env"
	defaultDatabasePath   = "db.sqlite3"
	defaultRequestTimeout = 10 * time.Second
	defaultMockPort       = "8001"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > config file > Environment variables > Defaults
type Config struct {
	MCPURL         string            `validate:"required,http_url"`
	Headers        map[string]string `validate:"-"`
	DatabasePath   string            `validate:"required"`
	RequestTimeout time.Duration     `validate:"gt=0"`
	MockServer     MockServer

	// File is the parsed config file, nil when none was found.
	File *File `validate:"-"`
}

// MockServer holds settings for the stand-in MCP server.
type MockServer struct {
	Port                 string        `validate:"required"`
	Token                string        `validate:"-"`
	ShutdownGracePeriod  time.Duration `validate:"gt=0"`
	ReadHeaderTimeout    time.Duration `validate:"gt=0"`
	WriteTimeout         time.Duration `validate:"gt=0"`
	IdleTimeout          time.Duration `validate:"gt=0"`
	EnableRequestLogging bool
	RateLimitRPS         float64 `validate:"gte=0"`
	RateLimitBurst       int     `validate:"gte=0"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	EnvFile        string
	MCPURL         *string
	DatabasePath   *string
	RequestTimeout *time.Duration
	Port           *string
	Token          *string
}

var validate = validator.New()

// Load extracts configuration from multiple sources with precedence:
// CLI flags > config file > Environment variables > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	if overrides == nil {
		overrides = &CLIOverrides{}
	}
	cfg := defaultConfig()

	env, err := newEnvLookup(overrides.EnvFile)
	if err != nil {
		return Config{}, err
	}

	if err := applyEnvConfig(&cfg, env); err != nil {
		return Config{}, err
	}

	path, explicit := resolveConfigPath(overrides, env)
	file, err := LoadFile(path)
	switch {
	case err == nil:
		if err := applyFileConfig(&cfg, file); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	case errors.Is(err, ErrNotFound) && !explicit:
		// defaults apply
	default:
		return Config{}, err
	}

	applyCLIOverrides(&cfg, overrides)

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		MCPURL:         DefaultMCPURL,
		Headers:        map[string]string{},
		DatabasePath:   defaultDatabasePath,
		RequestTimeout: defaultRequestTimeout,
		MockServer: MockServer{
			Port:                 defaultMockPort,
			ShutdownGracePeriod:  10 * time.Second,
			ReadHeaderTimeout:    5 * time.Second,
			WriteTimeout:         15 * time.Second,
			IdleTimeout:          60 * time.Second,
			EnableRequestLogging: true,
			RateLimitRPS:         defaultRateLimitRPS,
			RateLimitBurst:       defaultRateLimitBurst,
		},
	}
}

type envLookup func(key string) string

// newEnvLookup reads the optional .env file. Real environment variables win
// over values from the file.
func newEnvLookup(envFile string) (envLookup, error) {
	explicit := envFile != ""
	if !explicit {
		envFile = defaultEnvFile
	}

	dotenv, err := godotenv.Read(envFile)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			dotenv = map[string]string{}
		} else {
			return nil, fmt.Errorf("read env file %s: %w", envFile, err)
		}
	}

	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(dotenv[key])
	}, nil
}

// ResolvePath returns the config file path Load would read: the --config flag,
// then BPM_CONFIG (from the environment or the .env file), then config.json.
func ResolvePath(overrides *CLIOverrides) (string, error) {
	if overrides == nil {
		overrides = &CLIOverrides{}
	}
	env, err := newEnvLookup(overrides.EnvFile)
	if err != nil {
		return "", err
	}
	path, _ := resolveConfigPath(overrides, env)
	return path, nil
}

func resolveConfigPath(overrides *CLIOverrides, env envLookup) (string, bool) {
	if overrides.ConfigFile != "" {
		return overrides.ConfigFile, true
	}
	if path := env("BPM_CONFIG"); path != "" {
		return path, true
	}
	return defaultConfigFile, false
}

// applyEnvConfig applies environment variable configuration.
func applyEnvConfig(cfg *Config, env envLookup) error {
	if url := env("BPM_MCP_URL"); url != "" {
		cfg.MCPURL = url
	}

	if token := env("BPM_MCP_TOKEN"); token != "" {
		cfg.Headers[AuthorizationHeader] = "Bearer " + token
	}

	if path := env("BPM_DB_PATH"); path != "" {
		cfg.DatabasePath = path
	}

	if raw := env("BPM_REQUEST_TIMEOUT"); raw != "" {
		d, err := parseDuration("BPM_REQUEST_TIMEOUT", raw)
		if err != nil {
			return err
		}
		cfg.RequestTimeout = d
	}

	if port := env("BPM_MOCK_PORT"); port != "" {
		cfg.MockServer.Port = port
	}

	if rps := env("BPM_MOCK_RATE_LIMIT_RPS"); rps != "" {
		value, err := strconv.ParseFloat(rps, 64)
		if err != nil || value < 0 {
			return fmt.Errorf("invalid BPM_MOCK_RATE_LIMIT_RPS %q", rps)
		}
		cfg.MockServer.RateLimitRPS = value
	}

	if burst := env("BPM_MOCK_RATE_LIMIT_BURST"); burst != "" {
		value, err := strconv.Atoi(burst)
		if err != nil || value < 0 {
			return fmt.Errorf("invalid BPM_MOCK_RATE_LIMIT_BURST %q", burst)
		}
		cfg.MockServer.RateLimitBurst = value
	}
	return nil
}

// applyFileConfig applies the JSON config file. Headers from the file are
// merged over headers derived from the environment, matching names without
// regard to case.
func applyFileConfig(cfg *Config, f *File) error {
	cfg.File = f

	if f.PDM != nil && f.PDM.URL != nil {
		cfg.MCPURL = *f.PDM.URL
	}
	for k, v := range f.Headers() {
		for existing := range cfg.Headers {
			if existing != k && strings.EqualFold(existing, k) {
				delete(cfg.Headers, existing)
			}
		}
		cfg.Headers[k] = v
	}

	if f.Database.Path != "" {
		cfg.DatabasePath = f.Database.Path
	}

	if f.RequestTimeout != "" {
		d, err := parseDuration("request_timeout", f.RequestTimeout)
		if err != nil {
			return err
		}
		cfg.RequestTimeout = d
	}

	ms := f.MockServer
	if ms.Port != "" {
		cfg.MockServer.Port = ms.Port
	}
	if ms.Token != "" {
		cfg.MockServer.Token = ms.Token
	}
	if ms.ShutdownGracePeriod != "" {
		d, err := parseDuration("mock_server.shutdown_grace_period", ms.ShutdownGracePeriod)
		if err != nil {
			return err
		}
		cfg.MockServer.ShutdownGracePeriod = d
	}
	if ms.EnableRequestLogging != nil {
		cfg.MockServer.EnableRequestLogging = *ms.EnableRequestLogging
	}
	if ms.RateLimit.RPS != nil {
		cfg.MockServer.RateLimitRPS = *ms.RateLimit.RPS
	}
	if ms.RateLimit.Burst != nil {
		cfg.MockServer.RateLimitBurst = *ms.RateLimit.Burst
	}
	return nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return d, nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.MCPURL != nil && *overrides.MCPURL != "" {
		cfg.MCPURL = *overrides.MCPURL
	}

	if overrides.DatabasePath != nil && *overrides.DatabasePath != "" {
		cfg.DatabasePath = *overrides.DatabasePath
	}

	if overrides.RequestTimeout != nil && *overrides.RequestTimeout > 0 {
		cfg.RequestTimeout = *overrides.RequestTimeout
	}

	if overrides.Port != nil && *overrides.Port != "" {
		cfg.MockServer.Port = *overrides.Port
	}

	if overrides.Token != nil && *overrides.Token != "" {
		cfg.MockServer.Token = *overrides.Token
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid configuration: %s failed %q check (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
