// Package config loads the process configuration from a YAML file and the
// environment. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"mcp-cognito/internal/cognito"
)

// ErrMissingUserPoolID is returned by Validate when no user pool is configured.
var ErrMissingUserPoolID = errors.New("user pool id is required (set --user-pool-id or COGNITO_USER_POOL_ID)")

// Environment variables read by ApplyEnv.
const (
	EnvUserPoolID = "COGNITO_USER_POOL_ID"
	EnvProfile    = "COGNITO_PROFILE"
	EnvRegion     = "COGNITO_REGION"
	EnvHTTPAddr   = "MCP_HTTP_ADDR"
	EnvToken      = "MCP_TOKEN"
)

// Config holds every setting the server reads at startup.
type Config struct {
	UserPoolID string `yaml:"user_pool_id"`
	Profile    string `yaml:"profile"`
	Region     string `yaml:"region"`
	Verbosity  int    `yaml:"verbosity"`

	// HTTPAddr switches the server from stdio to HTTP when set.
	HTTPAddr string `yaml:"http_addr"`
	Token    string `yaml:"token"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Profile: cognito.DefaultProfile,
		Region:  cognito.DefaultRegion,
	}
}

// Load returns the defaults overlaid with the YAML file at path.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	// Keys present but empty in the file fall back to the defaults.
	def := Default()
	cfg.Profile = firstNonEmpty(cfg.Profile, def.Profile)
	cfg.Region = firstNonEmpty(cfg.Region, def.Region)
	return cfg, nil
}

// ApplyEnv overrides settings with the non-empty environment variables
// returned by lookup. Pass os.Getenv outside tests.
func (c *Config) ApplyEnv(lookup func(string) string) {
	getEnv := func(key, def string) string {
		if v := strings.TrimSpace(lookup(key)); v != "" {
			return v
		}
		return def
	}
	c.UserPoolID = getEnv(EnvUserPoolID, c.UserPoolID)
	c.Profile = getEnv(EnvProfile, c.Profile)
	c.Region = getEnv(EnvRegion, c.Region)
	c.HTTPAddr = getEnv(EnvHTTPAddr, c.HTTPAddr)
	c.Token = getEnv(EnvToken, c.Token)
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.UserPoolID) == "" {
		return ErrMissingUserPoolID
	}
	if c.Verbosity < 0 {
		return fmt.Errorf("verbosity must not be negative, got %d", c.Verbosity)
	}
	return nil
}

// LogLevel maps verbosity to a log level: 0 is warn, 1 is info, 2 or more is debug.
func (c Config) LogLevel() zapcore.Level {
	switch {
	case c.Verbosity >= 2:
		return zapcore.DebugLevel
	case c.Verbosity == 1:
		return zapcore.InfoLevel
	default:
		return zapcore.WarnLevel
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
