// Package core provides the I/O conventions shared by the shell and its packages.
package core

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Exit codes following POSIX conventions
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Stdio holds the standard I/O streams for the shell.
// This allows for easy testing by injecting mock streams.
type Stdio struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// DefaultStdio returns Stdio configured with os.Stdin, os.Stdout, os.Stderr.
func DefaultStdio() *Stdio {
	return &Stdio{
		In:  os.Stdin,
		Out: os.Stdout,
		Err: os.Stderr,
	}
}

// Errorf writes a formatted error message to stderr.
func (s *Stdio) Errorf(format string, args ...any) {
	fmt.Fprintf(s.Err, format, args...)
}

// Printf writes a formatted message to stdout.
func (s *Stdio) Printf(format string, args ...any) {
	fmt.Fprintf(s.Out, format, args...)
}

// Print writes a message to stdout.
func (s *Stdio) Print(args ...any) {
	fmt.Fprint(s.Out, args...)
}

// Println writes a message to stdout with a newline.
func (s *Stdio) Println(args ...any) {
	fmt.Fprintln(s.Out, args...)
}

// Synchronized returns a Stdio whose non-file writers are guarded by a single
// mutex. Background job output is copied into Out and Err from other
// goroutines while the command loop keeps printing, so in-memory writers
// must not be written concurrently. *os.File writers are passed through.
func (s *Stdio) Synchronized() *Stdio {
	var mu sync.Mutex
	return &Stdio{
		In:  s.In,
		Out: lockWriter(s.Out, &mu),
		Err: lockWriter(s.Err, &mu),
	}
}

type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func lockWriter(w io.Writer, mu *sync.Mutex) io.Writer {
	switch w.(type) {
	case *os.File, *lockedWriter:
		return w
	}
	return &lockedWriter{mu: mu, w: w}
}

// UsageError prints a usage error and returns ExitUsage.
func UsageError(stdio *Stdio, applet, message string) int {
	stdio.Errorf("%s: %s\n", applet, message)
	return ExitUsage
}
