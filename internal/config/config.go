package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hollowgrove/cascade/pkg/api"
)

type (
	// Config holds configuration settings for the workflow service
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Resource Pool
		PoolCapacity      int
		PoolIdleTimeout   time.Duration
		PoolSweepInterval time.Duration

		// Step defaults applied to submitted specs when zero (milliseconds)
		StepTimeout  int64
		GroupTimeout int64

		// Presets & Artifacts
		PresetDir         string
		ArtifactBucketURL string
		ArtifactPrefix    string

		// Capability backends
		RedisAddr          string
		RedisPassword      string
		RedisDB            int
		RemoteCapabilities []RemoteCapability

		ShutdownTimeout time.Duration
	}

	// RemoteCapability names an external HTTP capability service
	RemoteCapability struct {
		Name string
		URL  string
	}
)

const (
	DefaultStepTimeout  = 30 * api.Second
	DefaultGroupTimeout = 60 * api.Second

	DefaultPoolCapacity      = 2
	DefaultPoolIdleTimeout   = 600 * time.Second
	DefaultPoolSweepInterval = 60 * time.Second

	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535

	DefaultPresetDir         = "presets"
	DefaultArtifactBucketURL = "file:///tmp/cascade-artifacts?create_dir=true"

	DefaultRedisDB = 0

	DefaultShutdownTimeout = 10 * time.Second

	MaxPoolCapacity = 1_000_000
	MaxIdleSeconds  = 365 * 24 * 60 * 60 // 1 year in seconds
	MaxSweepSeconds = 24 * 60 * 60       // 1 day in seconds
	MaxStepTimeout  = 365 * 24 * 60 * api.Minute // 1 year in ms
	MaxRedisDB      = 15
)

var (
	ErrInvalidAPIPort       = errors.New("invalid API port")
	ErrInvalidStepTimeout   = errors.New("step timeout must be positive")
	ErrInvalidGroupTimeout  = errors.New("group timeout must be positive")
	ErrInvalidSweepInterval = errors.New("pool sweep interval must be positive")
	ErrInvalidRemoteSpec    = errors.New("invalid remote capability spec")
)

// NewDefaultConfig creates a configuration with sensible defaults for all
// service settings
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:           DefaultAPIHost,
		APIPort:           DefaultAPIPort,
		LogLevel:          "info",
		PoolCapacity:      DefaultPoolCapacity,
		PoolIdleTimeout:   DefaultPoolIdleTimeout,
		PoolSweepInterval: DefaultPoolSweepInterval,
		StepTimeout:       DefaultStepTimeout,
		GroupTimeout:      DefaultGroupTimeout,
		PresetDir:         DefaultPresetDir,
		ArtifactBucketURL: DefaultArtifactBucketURL,
		RedisDB:           DefaultRedisDB,
		ShutdownTimeout:   DefaultShutdownTimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed
func (c *Config) LoadFromEnv() error {
	if apiHost := os.Getenv("API_HOST"); apiHost != "" {
		c.APIHost = apiHost
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if presetDir, ok := os.LookupEnv("PRESET_DIR"); ok {
		c.PresetDir = presetDir
	}
	if bucketURL := os.Getenv("ARTIFACT_BUCKET_URL"); bucketURL != "" {
		c.ArtifactBucketURL = bucketURL
	}
	if prefix := os.Getenv("ARTIFACT_PREFIX"); prefix != "" {
		c.ArtifactPrefix = prefix
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.RedisAddr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		c.RedisPassword = password
	}

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt("REDIS_DB", &c.RedisDB, -1, MaxRedisDB); err != nil {
		return err
	}

	// POOL_CAPACITY accepts zero, which disables the resident bound
	if err := loadEnvInt(
		"POOL_CAPACITY", &c.PoolCapacity, -1, MaxPoolCapacity,
	); err != nil {
		return err
	}

	// POOL_IDLE_SECONDS accepts zero, which disables idle sweeping
	idleSecs := int64(c.PoolIdleTimeout / time.Second)
	if err := loadEnvInt(
		"POOL_IDLE_SECONDS", &idleSecs, -1, MaxIdleSeconds,
	); err != nil {
		return err
	}
	c.PoolIdleTimeout = time.Duration(idleSecs) * time.Second

	sweepSecs := int64(c.PoolSweepInterval / time.Second)
	if err := loadEnvInt(
		"POOL_SWEEP_SECONDS", &sweepSecs, 0, MaxSweepSeconds,
	); err != nil {
		return err
	}
	c.PoolSweepInterval = time.Duration(sweepSecs) * time.Second

	if err := loadEnvInt(
		"STEP_TIMEOUT", &c.StepTimeout, 0, MaxStepTimeout,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"GROUP_TIMEOUT", &c.GroupTimeout, 0, MaxStepTimeout,
	); err != nil {
		return err
	}

	shutdownSecs := int64(c.ShutdownTimeout / time.Second)
	if err := loadEnvInt(
		"SHUTDOWN_SECONDS", &shutdownSecs, 0, MaxSweepSeconds,
	); err != nil {
		return err
	}
	c.ShutdownTimeout = time.Duration(shutdownSecs) * time.Second

	if remotes := os.Getenv("REMOTE_CAPABILITIES"); remotes != "" {
		parsed, err := ParseRemoteCapabilities(remotes)
		if err != nil {
			return err
		}
		c.RemoteCapabilities = parsed
	}

	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}

	if c.StepTimeout <= 0 {
		return ErrInvalidStepTimeout
	}
	if c.GroupTimeout <= 0 {
		return ErrInvalidGroupTimeout
	}

	if c.PoolSweepInterval <= 0 {
		return ErrInvalidSweepInterval
	}

	for _, remote := range c.RemoteCapabilities {
		if remote.Name == "" || remote.URL == "" {
			return fmt.Errorf("%w: %s=%s",
				ErrInvalidRemoteSpec, remote.Name, remote.URL)
		}
	}

	return nil
}

// ParseRemoteCapabilities parses a comma-separated list of name=url pairs
func ParseRemoteCapabilities(s string) ([]RemoteCapability, error) {
	var res []RemoteCapability
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, url, ok := strings.Cut(entry, "=")
		if !ok || name == "" || url == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRemoteSpec, entry)
		}
		res = append(res, RemoteCapability{
			Name: strings.TrimSpace(name),
			URL:  strings.TrimSpace(url),
		})
	}
	return res, nil
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range.
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}
