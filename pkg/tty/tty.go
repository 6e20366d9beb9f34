// Package tty arbitrates ownership of the controlling terminal between the
// shell and its foreground jobs.
package tty

import (
	"errors"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Terminal hands the terminal's foreground process group to a job and takes
// it back for the shell.
type Terminal interface {
	Handover(pgid int) error
	Reclaim() error
	Interactive() bool
	// FD is the terminal descriptor, or -1 when there is none.
	FD() int
}

// Open returns an Arbiter for f when it is a terminal and Nop otherwise.
func Open(f *os.File) Terminal {
	if f == nil || !term.IsTerminal(int(f.Fd())) {
		return Nop{}
	}
	return &Arbiter{fd: int(f.Fd()), pgid: unix.Getpgrp()}
}

// Arbiter is a Terminal backed by a real tty.
type Arbiter struct {
	mu   sync.Mutex
	fd   int
	pgid int
}

// Claim puts the shell in its own process group and makes that group the
// terminal's foreground group.
func (a *Arbiter) Claim() error {
	// Fails harmlessly when the shell already leads a session or group.
	_ = unix.Setpgid(0, 0)
	a.mu.Lock()
	a.pgid = unix.Getpgrp()
	a.mu.Unlock()
	return a.Reclaim()
}

// Handover makes pgid the terminal's foreground group.
func (a *Arbiter) Handover(pgid int) error {
	if pgid <= 0 {
		return unix.EINVAL
	}
	return a.setForeground(pgid)
}

// Reclaim makes the shell's group the foreground group again. Once the shell
// is in the background the ioctl raises SIGTTOU, which is ignored for the
// duration of the call.
func (a *Arbiter) Reclaim() error {
	a.mu.Lock()
	pgid := a.pgid
	a.mu.Unlock()
	return a.setForeground(pgid)
}

// Foreground returns the terminal's current foreground group.
func (a *Arbiter) Foreground() (int, error) {
	return unix.IoctlGetInt(a.fd, unix.TIOCGPGRP)
}

// Interactive is always true for an Arbiter.
func (a *Arbiter) Interactive() bool { return true }

// FD returns the terminal descriptor.
func (a *Arbiter) FD() int { return a.fd }

// ShellGroup returns the process group the shell reclaims the terminal for.
func (a *Arbiter) ShellGroup() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pgid
}

func (a *Arbiter) setForeground(pgid int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	signal.Ignore(unix.SIGTTOU)
	defer signal.Reset(unix.SIGTTOU)
	for {
		err := unix.IoctlSetPointerInt(a.fd, unix.TIOCSPGRP, pgid)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return err
	}
}

// Nop is the Terminal used when input is not a terminal. Jobs keep running in
// the shell's session without any handover.
type Nop struct{}

func (Nop) Handover(int) error { return nil }
func (Nop) Reclaim() error     { return nil }
func (Nop) Interactive() bool  { return false }
func (Nop) FD() int            { return -1 }
