// Package config loads shell settings from an rc file, JSH_* environment
// variables and an optional dotenv file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rcarmo/go-jobsh/pkg/applets/procutil"
	"github.com/rcarmo/go-jobsh/pkg/cmdline"
	"github.com/rcarmo/go-jobsh/pkg/core/fs"
	"github.com/rcarmo/go-jobsh/pkg/jobs"
	"github.com/rcarmo/go-jobsh/pkg/launcher"
	"github.com/rcarmo/go-jobsh/pkg/sandbox"
)

// Config holds the shell settings.
type Config struct {
	Capacity   int      `yaml:"capacity"`
	Path       []string `yaml:"path"` // probed after the working directory
	Prompt     string   `yaml:"prompt"`
	MaxArgs    int      `yaml:"max_args"`
	MaxArgLen  int      `yaml:"max_arg_len"`
	KillSignal string   `yaml:"kill_signal"`
	Debug      bool     `yaml:"debug"`
	EnvFile    string   `yaml:"env_file"`

	Sandbox SandboxConfig `yaml:"sandbox"`
}

// SandboxConfig mirrors sandbox.Config with permissions written as "rwx".
type SandboxConfig struct {
	Enabled  bool         `yaml:"enabled"`
	AllowCwd bool         `yaml:"allow_cwd"`
	CwdPerm  string       `yaml:"cwd_perm"`
	Paths    []PathConfig `yaml:"paths"`
}

// PathConfig is one sandbox rule.
type PathConfig struct {
	Path string `yaml:"path"`
	Perm string `yaml:"perm"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Capacity:   jobs.DefaultCapacity,
		Path:       append([]string(nil), launcher.DefaultDirs...),
		Prompt:     "> ",
		MaxArgs:    cmdline.DefaultMaxArgs,
		MaxArgLen:  cmdline.DefaultMaxArgLen,
		KillSignal: "TERM",
	}
}

// Load reads the YAML file at path over the defaults. An empty path or a
// missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides settings from JSH_CAPACITY, JSH_PROMPT, JSH_DEBUG,
// JSH_KILL_SIGNAL and JSH_ENV_FILE. Malformed numbers and booleans are
// ignored.
func (c *Config) ApplyEnv() {
	c.Capacity = getEnvAsInt("JSH_CAPACITY", c.Capacity)
	c.Prompt = getEnv("JSH_PROMPT", c.Prompt)
	c.Debug = getEnvAsBool("JSH_DEBUG", c.Debug)
	c.KillSignal = getEnv("JSH_KILL_SIGNAL", c.KillSignal)
	c.EnvFile = getEnv("JSH_ENV_FILE", c.EnvFile)
}

// LoadEnvFile loads EnvFile into the process environment so that launched
// jobs inherit it. Variables already set are kept. A missing file is not an
// error.
func (c *Config) LoadEnvFile() error {
	if c.EnvFile == "" {
		return nil
	}
	if err := godotenv.Load(c.EnvFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Validate checks the settings for values the shell cannot run with.
func (c *Config) Validate() error {
	if c.Capacity < 1 {
		return fmt.Errorf("capacity must be at least 1, got %d", c.Capacity)
	}
	if len(c.Path) == 0 {
		return errors.New("path must name at least one directory")
	}
	if c.MaxArgs < 1 || c.MaxArgLen < 1 {
		return fmt.Errorf("token limits must be positive, got %d/%d", c.MaxArgs, c.MaxArgLen)
	}
	if _, err := c.Signal(); err != nil {
		return err
	}
	if _, err := c.SandboxRules(); err != nil {
		return err
	}
	return nil
}

// Signal returns the signal kill %N sends.
func (c *Config) Signal() (syscall.Signal, error) {
	sig, err := procutil.ParseSignal(c.KillSignal)
	if err != nil || sig == 0 {
		return 0, fmt.Errorf("invalid kill_signal %q", c.KillSignal)
	}
	return sig, nil
}

// Limits returns the tokenizer bounds.
func (c *Config) Limits() cmdline.Limits {
	return cmdline.Limits{MaxArgs: c.MaxArgs, MaxArgLen: c.MaxArgLen}
}

// SandboxRules converts the sandbox section. It returns nil when the sandbox
// is disabled.
func (c *Config) SandboxRules() (*sandbox.Config, error) {
	if !c.Sandbox.Enabled {
		return nil, nil
	}
	out := &sandbox.Config{AllowCwd: c.Sandbox.AllowCwd}
	if c.Sandbox.CwdPerm != "" {
		perm, err := sandbox.ParsePermission(c.Sandbox.CwdPerm)
		if err != nil {
			return nil, fmt.Errorf("sandbox cwd_perm: %w", err)
		}
		out.CwdPermission = perm
	}
	for _, p := range c.Sandbox.Paths {
		perm, err := sandbox.ParsePermission(p.Perm)
		if err != nil {
			return nil, fmt.Errorf("sandbox path %s: %w", p.Path, err)
		}
		out.AllowedPaths = append(out.AllowedPaths, sandbox.PathRule{Path: p.Path, Permission: perm})
	}
	return out, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
