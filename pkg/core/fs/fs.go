// Package fs provides filesystem operations that respect sandbox boundaries.
// Shell components should use this package instead of direct os calls.
package fs

import (
	"os"

	"github.com/rcarmo/go-jobsh/pkg/sandbox"
	"golang.org/x/sys/unix"
)

// ReadFile reads an entire file.
func ReadFile(path string) ([]byte, error) {
	return sandbox.ReadFile(path)
}

// Getwd returns current working directory.
func Getwd() (string, error) {
	return sandbox.Getwd()
}

// Chdir changes directory.
func Chdir(path string) error {
	return sandbox.Chdir(path)
}

// IsExecutable reports whether path names a non-directory file the calling
// process may execute and the sandbox allows launching.
func IsExecutable(path string) bool {
	if err := sandbox.Check(path, sandbox.PermExec); err != nil {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return unix.Access(path, unix.X_OK) == nil
}
