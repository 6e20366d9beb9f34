// Package sandbox provides capability-based access control for the shell.
// It gates which directories cd may enter and which executables the launcher
// may resolve, restricting both to pre-authorized path prefixes.
package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Common sandbox errors.
var (
	ErrAccessDenied   = errors.New("access denied: path not in sandbox")
	ErrNotInitialized = errors.New("sandbox not initialized")
	ErrExecDenied     = errors.New("exec denied: path not executable in sandbox")
)

// Permission represents path access permissions.
type Permission uint8

const (
	PermNone  Permission = 0
	PermRead  Permission = 1 << iota // Can read files and enter directories
	PermWrite                        // Can write/create files
	PermExec                         // Can launch executables
)

// ParsePermission parses an "rwx"-style permission string. Letters may appear
// in any order; "-" is ignored.
func ParsePermission(s string) (Permission, error) {
	perm := PermNone
	for _, c := range s {
		switch c {
		case 'r':
			perm |= PermRead
		case 'w':
			perm |= PermWrite
		case 'x':
			perm |= PermExec
		case '-':
		default:
			return PermNone, fmt.Errorf("invalid permission %q", s)
		}
	}
	return perm, nil
}

// PathRule defines access rules for a path prefix.
type PathRule struct {
	Path       string     // Path prefix (resolved to absolute)
	Permission Permission // Allowed operations
}

// Sandbox holds the active rule set.
type Sandbox struct {
	mu      sync.RWMutex
	rules   []PathRule
	enabled bool
}

// Config holds sandbox configuration.
type Config struct {
	// Paths to allow access to (with permissions)
	AllowedPaths []PathRule
	// Allow access to current working directory
	AllowCwd bool
	// Default permission for cwd if AllowCwd is true
	CwdPermission Permission
}

// Global sandbox instance (disabled by default).
var globalSandbox = &Sandbox{enabled: false}

// Init initializes the global sandbox with the given configuration.
func Init(cfg *Config) error {
	if cfg == nil {
		return ErrNotInitialized
	}
	globalSandbox.mu.Lock()
	defer globalSandbox.mu.Unlock()

	globalSandbox.rules = nil
	globalSandbox.enabled = true

	if cfg.AllowCwd {
		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		perm := cfg.CwdPermission
		if perm == PermNone {
			perm = PermRead | PermExec
		}
		globalSandbox.rules = append(globalSandbox.rules, PathRule{
			Path:       cwd,
			Permission: perm,
		})
	}

	for _, rule := range cfg.AllowedPaths {
		absPath, err := filepath.Abs(rule.Path)
		if err != nil {
			continue
		}
		globalSandbox.rules = append(globalSandbox.rules, PathRule{
			Path:       filepath.Clean(absPath),
			Permission: rule.Permission,
		})
	}

	return nil
}

// Disable disables the sandbox (allows all operations).
func Disable() {
	globalSandbox.mu.Lock()
	defer globalSandbox.mu.Unlock()
	globalSandbox.enabled = false
}

// IsEnabled returns whether the sandbox is enabled.
func IsEnabled() bool {
	globalSandbox.mu.RLock()
	defer globalSandbox.mu.RUnlock()
	return globalSandbox.enabled
}

// Check verifies that path may be accessed with the requested permission.
// It always succeeds while the sandbox is disabled.
func Check(path string, perm Permission) error {
	globalSandbox.mu.RLock()
	defer globalSandbox.mu.RUnlock()

	if !globalSandbox.enabled {
		return nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return ErrAccessDenied
	}
	absPath = filepath.Clean(absPath)

	matched := false
	for _, rule := range globalSandbox.rules {
		remainder, ok := strings.CutPrefix(absPath, rule.Path)
		if !ok {
			continue
		}
		if remainder != "" && !strings.HasPrefix(remainder, string(filepath.Separator)) && rule.Path != "/" {
			continue
		}
		matched = true
		if rule.Permission&perm == perm {
			return nil
		}
	}

	if matched && perm&PermExec != 0 {
		return ErrExecDenied
	}
	return ErrAccessDenied
}

// ReadFile reads a file within the sandbox.
func ReadFile(path string) ([]byte, error) {
	if err := Check(path, PermRead); err != nil {
		return nil, err
	}
	return os.ReadFile(path) // #nosec G304 -- sandbox Check enforces allowed paths
}

// Getwd returns the current working directory.
func Getwd() (string, error) {
	return os.Getwd()
}

// Chdir changes the current working directory within sandbox constraints.
func Chdir(path string) error {
	if err := Check(path, PermRead); err != nil {
		return err
	}
	return os.Chdir(path)
}
