// Package config provides environment-based configuration for zapper.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Supported source control clients.
const (
	VCSSVN = "svn"
	VCSGit = "git"
)

// Config holds all configuration for zapper.
type Config struct {
	LogLevel  string
	LogFormat string

	// WorkDir is where relative checkout paths are resolved.
	WorkDir string

	VCS     VCSConfig
	Build   BuildConfig
	Server  ServerConfig
	Secrets SecretsConfig

	Defaults Defaults
}

// VCSConfig selects and locates the source control client.
type VCSConfig struct {
	Client    string
	SVNBinary string
	GitBinary string
}

// Binary returns the executable for the selected client.
func (v VCSConfig) Binary() string {
	if v.Client == VCSGit {
		return v.GitBinary
	}
	return v.SVNBinary
}

// BuildConfig locates the Java runtime and Ant.
type BuildConfig struct {
	AntBinary      string
	JavaBinary     string
	JavaHome       string
	MinJavaVersion string
	VerifyArtifact bool
}

// ServerConfig configures the HTTP step server.
type ServerConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	JWTSecret       string
	// RequireAuth guards the /v1 routes with bearer tokens.
	RequireAuth bool
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecretsConfig holds age keys for sealed repository passwords.
type SecretsConfig struct {
	AgeRecipient string
	AgeIdentity  string
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := LoadWithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWithDefaults reads configuration from environment variables without
// validating it, useful for testing.
func LoadWithDefaults() *Config {
	workDir := getEnv("ZAPPER_WORKDIR", "")
	if workDir == "" {
		if wd, err := os.Getwd(); err == nil {
			workDir = wd
		}
	}
	vcsClient := strings.ToLower(getEnv("ZAPPER_VCS", VCSSVN))

	defaults := DefaultsFor(vcsClient, workDir)
	defaults.Host = getEnv("ZAPPER_DEFAULT_HOST", defaults.Host)
	defaults.Repository = getEnv("ZAPPER_DEFAULT_REPOSITORY", defaults.Repository)

	return &Config{
		LogLevel:  getEnv("ZAPPER_LOG_LEVEL", "info"),
		LogFormat: getEnv("ZAPPER_LOG_FORMAT", "text"),
		WorkDir:   workDir,
		VCS: VCSConfig{
			Client:    vcsClient,
			SVNBinary: getEnv("ZAPPER_SVN_BINARY", "svn"),
			GitBinary: getEnv("ZAPPER_GIT_BINARY", "git"),
		},
		Build: BuildConfig{
			AntBinary:      getEnv("ZAPPER_ANT_BINARY", antFromHome()),
			JavaBinary:     getEnv("ZAPPER_JAVA_BINARY", ""),
			JavaHome:       getEnv("JAVA_HOME", ""),
			MinJavaVersion: getEnv("ZAPPER_MIN_JAVA_VERSION", "1.7"),
			VerifyArtifact: getBoolEnv("ZAPPER_VERIFY_ARTIFACT", true),
		},
		Server: ServerConfig{
			Host:            getEnv("ZAPPER_API_HOST", "127.0.0.1"),
			Port:            getIntEnv("ZAPPER_API_PORT", 8080),
			ShutdownTimeout: getDurationEnv("ZAPPER_SHUTDOWN_TIMEOUT", 30*time.Second),
			JWTSecret:       getEnv("ZAPPER_JWT_SECRET", ""),
			RequireAuth:     getBoolEnv("ZAPPER_REQUIRE_AUTH", true),
		},
		Secrets: SecretsConfig{
			AgeRecipient: getEnv("ZAPPER_AGE_RECIPIENT", ""),
			AgeIdentity:  getEnv("ZAPPER_AGE_IDENTITY", ""),
		},
		Defaults: defaults,
	}
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.VCS.Client != VCSSVN && c.VCS.Client != VCSGit {
		return fmt.Errorf("ZAPPER_VCS must be %q or %q, got %q", VCSSVN, VCSGit, c.VCS.Client)
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("ZAPPER_API_PORT %d out of range", c.Server.Port)
	}
	if c.Server.JWTSecret != "" && len(c.Server.JWTSecret) < 32 {
		return fmt.Errorf("ZAPPER_JWT_SECRET must be at least 32 characters")
	}
	return nil
}

// ValidateServer checks the settings the step server needs on top of Validate.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Server.RequireAuth && c.Server.JWTSecret == "" {
		return fmt.Errorf("ZAPPER_JWT_SECRET is required when ZAPPER_REQUIRE_AUTH is set")
	}
	return nil
}

func antFromHome() string {
	if home := os.Getenv("ANT_HOME"); home != "" {
		return filepath.Join(home, "bin", "ant")
	}
	return "ant"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
