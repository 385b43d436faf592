package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Engine drivers.
const (
	EngineBleve = "bleve"
	EngineRedis = "redis"
)

// Queue drivers.
const (
	QueueMemory   = "memory"
	QueueNATS     = "nats"
	QueueEmbedded = "embedded"
)

// Config holds the docgate configuration.
type Config struct {
	HTTP       HTTPConfig                 `yaml:"http"`
	Engine     EngineConfig               `yaml:"engine"`
	Queue      QueueConfig                `yaml:"queue"`
	RateLimits map[string]RateLimitConfig `yaml:"rate_limits"`
	Registry   RegistryConfig             `yaml:"registry"`
	Search     SearchConfig               `yaml:"search"`
	Logging    LoggingConfig              `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// EngineConfig selects and configures the search engine.
type EngineConfig struct {
	Driver           string   `yaml:"driver"` // bleve, redis (default: bleve)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	KeyPrefix        string   `yaml:"key_prefix"`
	TagFields        []string `yaml:"tag_fields"`
	NumericFields    []string `yaml:"numeric_fields"`
	DataDir          string   `yaml:"data_dir"` // bleve only; empty keeps indexes in memory
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// QueueConfig selects and configures the command queue.
type QueueConfig struct {
	Driver        string `yaml:"driver"` // memory, nats, embedded (default: memory)
	URL           string `yaml:"url"`
	Stream        string `yaml:"stream"`
	SubjectPrefix string `yaml:"subject_prefix"`
	Durable       string `yaml:"durable"`
	AckWaitSec    int    `yaml:"ack_wait_sec"`
	MaxDeliver    int    `yaml:"max_deliver"`
	StoreDir      string `yaml:"store_dir"` // embedded only
	Buffer        int    `yaml:"buffer"`    // memory only
}

// RateLimitConfig is the bucket of one named policy.
type RateLimitConfig struct {
	PermitsPerSecond float64 `yaml:"permits_per_second"`
	Burst            int     `yaml:"burst"`
}

// RegistryConfig bounds the limiter registry.
type RegistryConfig struct {
	MaxLimiters int `yaml:"max_limiters"`
}

// SearchConfig holds pagination and result cache settings.
type SearchConfig struct {
	DefaultSize     int `yaml:"default_size"`
	MaxSize         int `yaml:"max_size"`
	CacheMaxEntries int `yaml:"cache_max_entries"`
	CacheThreshold  int `yaml:"cache_threshold"`
}

// DefaultRateLimits are the built-in policies.
var DefaultRateLimits = map[string]RateLimitConfig{
	"ingestion": {PermitsPerSecond: 2, Burst: 20},
	"deletion":  {PermitsPerSecond: 1, Burst: 5},
	"search":    {PermitsPerSecond: 3, Burst: 25},
	"fetch":     {PermitsPerSecond: 2, Burst: 10},
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references first.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Engine.Driver == "" {
		c.Engine.Driver = EngineBleve
	}
	if c.Engine.KeyPrefix == "" {
		c.Engine.KeyPrefix = "docgate:"
	}
	if c.Engine.ReadinessTimeout <= 0 {
		c.Engine.ReadinessTimeout = 10
	}

	if c.Queue.Driver == "" {
		c.Queue.Driver = QueueMemory
	}
	if c.Queue.Stream == "" {
		c.Queue.Stream = "DOCGATE_COMMANDS"
	}
	if c.Queue.SubjectPrefix == "" {
		c.Queue.SubjectPrefix = "docgate.commands"
	}
	if c.Queue.Durable == "" {
		c.Queue.Durable = "docgate-indexer"
	}
	if c.Queue.AckWaitSec <= 0 {
		c.Queue.AckWaitSec = 30
	}
	if c.Queue.MaxDeliver <= 0 {
		c.Queue.MaxDeliver = 5
	}

	if c.RateLimits == nil {
		c.RateLimits = make(map[string]RateLimitConfig, len(DefaultRateLimits))
	}
	for name, rl := range DefaultRateLimits {
		if _, ok := c.RateLimits[name]; !ok {
			c.RateLimits[name] = rl
		}
	}

	if c.Registry.MaxLimiters <= 0 {
		c.Registry.MaxLimiters = 100_000
	}

	if c.Search.DefaultSize <= 0 {
		c.Search.DefaultSize = 10
	}
	if c.Search.MaxSize <= 0 {
		c.Search.MaxSize = 100
	}
	if c.Search.CacheMaxEntries <= 0 {
		c.Search.CacheMaxEntries = 10_000
	}
	if c.Search.CacheThreshold <= 0 {
		c.Search.CacheThreshold = 50
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Engine.Driver {
	case EngineBleve:
	case EngineRedis:
		if len(c.Engine.Addrs) == 0 {
			return fmt.Errorf("engine.addrs is required for the %s driver", EngineRedis)
		}
	default:
		return fmt.Errorf("engine.driver must be %q or %q, got %q", EngineBleve, EngineRedis, c.Engine.Driver)
	}

	switch c.Queue.Driver {
	case QueueMemory, QueueEmbedded:
	case QueueNATS:
		if c.Queue.URL == "" {
			return fmt.Errorf("queue.url is required for the %s driver", QueueNATS)
		}
	default:
		return fmt.Errorf("queue.driver must be one of %q, %q, %q, got %q",
			QueueMemory, QueueNATS, QueueEmbedded, c.Queue.Driver)
	}

	names := make([]string, 0, len(c.RateLimits))
	for name := range c.RateLimits {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		rl := c.RateLimits[name]
		if rl.PermitsPerSecond <= 0 {
			return fmt.Errorf("rate_limits.%s.permits_per_second must be positive, got %g", name, rl.PermitsPerSecond)
		}
		if rl.Burst <= 0 {
			return fmt.Errorf("rate_limits.%s.burst must be positive, got %d", name, rl.Burst)
		}
	}

	if c.Search.DefaultSize > c.Search.MaxSize {
		return fmt.Errorf("search.default_size (%d) exceeds search.max_size (%d)",
			c.Search.DefaultSize, c.Search.MaxSize)
	}
	return nil
}

// InProcessQueue reports whether the queue only exists inside this process,
// so the consumer has to run alongside the gateway. The embedded NATS server
// listens on a private port no other process is told about.
func (c *Config) InProcessQueue() bool {
	return c.Queue.Driver == QueueMemory || c.Queue.Driver == QueueEmbedded
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
