package config_test

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/go-jobsh/pkg/config"
	"github.com/rcarmo/go-jobsh/pkg/sandbox"
	"github.com/rcarmo/go-jobsh/pkg/testutil"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.Equal(t, 100, cfg.Capacity)
	assert.Equal(t, []string{"/usr/bin", "/bin"}, cfg.Path)
	assert.Equal(t, "> ", cfg.Prompt)
	assert.Equal(t, 64, cfg.MaxArgs)
	assert.Equal(t, 255, cfg.MaxArgLen)
	require.NoError(t, cfg.Validate())

	sig, err := cfg.Signal()
	require.NoError(t, err)
	assert.Equal(t, syscall.SIGTERM, sig)

	rules, err := cfg.SandboxRules()
	require.NoError(t, err)
	assert.Nil(t, rules)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	cfg, err = config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadYAML(t *testing.T) {
	path := testutil.TempFile(t, "jshrc.yaml", `
capacity: 8
prompt: "$ "
path: [/opt/bin, /usr/bin]
kill_signal: KILL
sandbox:
  enabled: true
  allow_cwd: true
  cwd_perm: rx
  paths:
    - path: /usr/bin
      perm: rx
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Capacity)
	assert.Equal(t, "$ ", cfg.Prompt)
	assert.Equal(t, []string{"/opt/bin", "/usr/bin"}, cfg.Path)
	assert.Equal(t, 64, cfg.MaxArgs, "unset keys keep their defaults")
	require.NoError(t, cfg.Validate())

	sig, err := cfg.Signal()
	require.NoError(t, err)
	assert.Equal(t, syscall.SIGKILL, sig)

	rules, err := cfg.SandboxRules()
	require.NoError(t, err)
	require.NotNil(t, rules)
	assert.True(t, rules.AllowCwd)
	assert.Equal(t, sandbox.PermRead|sandbox.PermExec, rules.CwdPermission)
	assert.Equal(t, []sandbox.PathRule{{Path: "/usr/bin", Permission: sandbox.PermRead | sandbox.PermExec}}, rules.AllowedPaths)
}

func TestLoadBadYAML(t *testing.T) {
	path := testutil.TempFile(t, "bad.yaml", "capacity: [1, 2\n")
	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("JSH_CAPACITY", "3")
	t.Setenv("JSH_PROMPT", "jsh% ")
	t.Setenv("JSH_DEBUG", "1")
	t.Setenv("JSH_KILL_SIGNAL", "HUP")
	t.Setenv("JSH_ENV_FILE", "/tmp/x.env")

	cfg := config.Default()
	cfg.ApplyEnv()
	assert.Equal(t, 3, cfg.Capacity)
	assert.Equal(t, "jsh% ", cfg.Prompt)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "HUP", cfg.KillSignal)
	assert.Equal(t, "/tmp/x.env", cfg.EnvFile)
}

func TestApplyEnvIgnoresMalformed(t *testing.T) {
	t.Setenv("JSH_CAPACITY", "lots")
	t.Setenv("JSH_DEBUG", "maybe")
	cfg := config.Default()
	cfg.ApplyEnv()
	assert.Equal(t, 100, cfg.Capacity)
	assert.False(t, cfg.Debug)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{name: "zero_capacity", mutate: func(c *config.Config) { c.Capacity = 0 }},
		{name: "no_path", mutate: func(c *config.Config) { c.Path = nil }},
		{name: "no_tokens", mutate: func(c *config.Config) { c.MaxArgs = 0 }},
		{name: "short_tokens", mutate: func(c *config.Config) { c.MaxArgLen = -1 }},
		{name: "bad_signal", mutate: func(c *config.Config) { c.KillSignal = "BOGUS" }},
		{name: "signal_zero", mutate: func(c *config.Config) { c.KillSignal = "0" }},
		{name: "bad_perm", mutate: func(c *config.Config) {
			c.Sandbox.Enabled = true
			c.Sandbox.Paths = []config.PathConfig{{Path: "/bin", Perm: "rq"}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := testutil.TempFile(t, "jsh.env", "JSH_TEST_FROM_FILE=loaded\nJSH_TEST_KEEP=file\n")
	t.Setenv("JSH_TEST_KEEP", "env")
	t.Setenv("JSH_TEST_FROM_FILE", "")
	require.NoError(t, os.Unsetenv("JSH_TEST_FROM_FILE"))

	cfg := config.Default()
	cfg.EnvFile = path
	require.NoError(t, cfg.LoadEnvFile())
	assert.Equal(t, "loaded", os.Getenv("JSH_TEST_FROM_FILE"))
	assert.Equal(t, "env", os.Getenv("JSH_TEST_KEEP"), "existing variables win")

	cfg.EnvFile = filepath.Join(t.TempDir(), "missing.env")
	assert.NoError(t, cfg.LoadEnvFile())
}

func TestLimits(t *testing.T) {
	cfg := config.Default()
	cfg.MaxArgs = 2
	lim := cfg.Limits()
	assert.Equal(t, 2, lim.MaxArgs)
	assert.Equal(t, 255, lim.MaxArgLen)
}
