// Package launcher resolves external commands and starts each one as the
// leader of a new process group registered as a job.
package launcher

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/rcarmo/go-jobsh/pkg/core"
	"github.com/rcarmo/go-jobsh/pkg/core/fs"
	"github.com/rcarmo/go-jobsh/pkg/jobs"
)

var (
	// ErrFork wraps fork failures the shell cannot recover from.
	ErrFork = errors.New("fork failed")
	// ErrEmpty is returned for an empty argument list.
	ErrEmpty = errors.New("empty command")
)

// ExecError reports that the child could not replace its image, for example
// a file without a valid interpreter line.
type ExecError struct {
	Name string
	Err  error
}

func (e *ExecError) Error() string {
	return e.Name + ": " + e.Err.Error()
}

func (e *ExecError) Unwrap() error { return e.Err }

// Options configures a Launcher. Zero values select the defaults.
type Options struct {
	Dirs       []string          // probe directories after the working directory
	Cwd        func() string     // working directory used for the relative probe
	Env        func() []string   // child environment
	Executable func(string) bool // executability test used by Resolve
	JobControl bool              // hand the terminal to foreground jobs from the child
	TTY        int               // terminal fd, used when JobControl is set
	Logger     *slog.Logger
}

// Launcher spawns external commands as jobs.
type Launcher struct {
	jobs  *jobs.Registry
	stdio *core.Stdio
	opts  Options
	log   *slog.Logger
}

// New returns a Launcher registering jobs in reg and wiring children to stdio.
func New(reg *jobs.Registry, stdio *core.Stdio, opts Options) *Launcher {
	if opts.Dirs == nil {
		opts.Dirs = DefaultDirs
	}
	if opts.Cwd == nil {
		opts.Cwd = func() string { return os.Getenv("PWD") }
	}
	if opts.Env == nil {
		opts.Env = os.Environ
	}
	if opts.Executable == nil {
		opts.Executable = fs.IsExecutable
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Launcher{jobs: reg, stdio: stdio, opts: opts, log: log.With("component", "launcher")}
}

// Resolve resolves name with the launcher's probe configuration.
func (l *Launcher) Resolve(name string) (string, error) {
	return Resolve(name, l.opts.Cwd(), l.opts.Dirs, l.opts.Executable)
}

// Spawn resolves args[0], registers a Running job and starts the process as
// its own group leader. The job is in the registry, under its pid, before
// Spawn returns; since reaping only happens on the caller's goroutine the
// child cannot be finalized in between.
//
// Errors: *ResolveError (nothing was started), jobs.ErrFull (nothing was
// started, the table is unchanged), *ExecError, or an error wrapping ErrFork.
func (l *Launcher) Spawn(args []string, placement jobs.Placement) (jobs.Job, error) {
	if len(args) == 0 {
		return jobs.Job{}, ErrEmpty
	}
	path, err := l.Resolve(args[0])
	if err != nil {
		return jobs.Job{}, err
	}

	job := jobs.New(args, placement)
	id, err := l.jobs.Add(job)
	if err != nil {
		l.log.Debug("job table full", "cmd", args[0], "capacity", l.jobs.Cap())
		return jobs.Job{}, err
	}

	files, err := openChildFiles(l.stdio)
	if err != nil {
		l.jobs.Remove(id)
		return jobs.Job{}, fmt.Errorf("%w: %v", ErrFork, err)
	}

	sys := &syscall.SysProcAttr{Setpgid: true}
	if placement == jobs.Foreground && l.opts.JobControl {
		sys.Foreground = true
		sys.Ctty = l.opts.TTY
	}
	pid, err := syscall.ForkExec(path, args, &syscall.ProcAttr{
		Env:   l.opts.Env(),
		Files: files.fds(),
		Sys:   sys,
	})
	if err != nil {
		files.abort()
		l.jobs.Remove(id)
		if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.ENOMEM) {
			return jobs.Job{}, fmt.Errorf("%w: %v", ErrFork, err)
		}
		return jobs.Job{}, &ExecError{Name: args[0], Err: err}
	}
	files.started()

	// The child already did this; repeating it here closes the window in
	// which the parent signals a group that does not exist yet.
	if err := unix.Setpgid(pid, pid); err != nil && !errors.Is(err, unix.EACCES) && !errors.Is(err, unix.ESRCH) {
		l.log.Debug("setpgid", "pid", pid, "err", err)
	}

	var snap jobs.Job
	l.jobs.Update(id, func(j *jobs.Job) {
		j.PID = pid
		j.Status = jobs.StatusRunning
		j.OnRelease(files.release)
		snap = *j
	})
	l.log.Debug("spawned", "id", id, "pid", pid, "path", path, "placement", placement.String())
	return snap, nil
}
