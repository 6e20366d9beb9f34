// Package reaper collects child state transitions and applies them to the
// job registry.
//
// All reaping happens on the caller's goroutine. SIGCHLD is only turned into
// a channel notification (see Notify); the owner of the registry calls Drain
// when it fires and before blocking in Wait.
package reaper

import (
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/rcarmo/go-jobsh/pkg/jobs"
)

// Result describes one observed transition.
type Result struct {
	PID    int // process that changed state
	JobID  int // 0 when the process is not a tracked job
	Status jobs.Status
	Signal syscall.Signal // terminating or stopping signal
	Code   int            // exit code for StatusComplete
	// Removed is set when this observation finalized the job.
	Removed bool
	// Gone is set when the kernel had nothing left to report for the pid:
	// somebody else already reaped it.
	Gone bool
}

// Stopped reports whether the process was stopped rather than ended.
func (r Result) Stopped() bool {
	return !r.Gone && r.Status == jobs.StatusStopped
}

// Signaled reports whether the process was terminated by a signal.
func (r Result) Signaled() bool {
	return !r.Gone && r.Status == jobs.StatusTerminated
}

// Reaper maps wait statuses onto a registry.
type Reaper struct {
	jobs *jobs.Registry
	log  *slog.Logger
}

// New returns a Reaper for reg. A nil logger discards.
func New(reg *jobs.Registry, log *slog.Logger) *Reaper {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Reaper{jobs: reg, log: log.With("component", "reaper")}
}

// Wait blocks until pid (or, for a negative pid, any member of that process
// group) exits, is killed or stops. A pid that is no longer a child yields a
// Result with Gone set and no error: the job was already finalized by Drain.
func (r *Reaper) Wait(pid int) (Result, error) {
	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(pid, &ws, unix.WUNTRACED, nil)
		switch {
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.ECHILD):
			r.log.Debug("wait: already reaped", "pid", pid)
			return Result{PID: abs(pid), Gone: true}, nil
		case err != nil:
			return Result{PID: abs(pid)}, err
		}
		if ws.Continued() {
			// Only reported with WCONTINUED; tolerate it anyway.
			r.apply(wpid, ws)
			continue
		}
		return r.apply(wpid, ws), nil
	}
}

// Drain collects every pending transition without blocking and returns the
// ones that belonged to tracked jobs. Untracked children are reaped and
// ignored.
func (r *Reaper) Drain() []Result {
	var out []Result
	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(-1, &ws, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil || wpid <= 0 {
			return out
		}
		if res := r.apply(wpid, ws); res.JobID != 0 {
			out = append(out, res)
		}
	}
}

func (r *Reaper) apply(pid int, ws unix.WaitStatus) Result {
	res := Result{PID: pid}
	switch {
	case ws.Exited():
		res.Status = jobs.StatusComplete
		res.Code = ws.ExitStatus()
	case ws.Signaled():
		res.Status = jobs.StatusTerminated
		res.Signal = ws.Signal()
	case ws.Stopped():
		res.Status = jobs.StatusStopped
		res.Signal = ws.StopSignal()
	case ws.Continued():
		res.Status = jobs.StatusRunning
	default:
		return res
	}

	snap, ok := r.jobs.UpdateByPID(pid, func(j *jobs.Job) {
		j.Status = res.Status
	})
	if !ok {
		r.log.Debug("untracked child", "pid", pid, "status", res.Status.String())
		return res
	}
	res.JobID = snap.ID
	r.log.Debug("transition", "id", snap.ID, "pid", pid, "status", res.Status.String())
	if res.Status.Done() {
		res.Removed = r.jobs.Remove(snap.ID)
		r.log.Debug("removed", "id", snap.ID, "pid", pid)
	}
	return res
}

// Notify returns a channel that receives a value whenever SIGCHLD arrives,
// and a function that stops the notifications. Deliveries coalesce: one
// pending value covers any number of children.
func Notify() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, unix.SIGCHLD)
	return ch, func() { signal.Stop(ch) }
}

func abs(pid int) int {
	if pid < 0 {
		return -pid
	}
	return pid
}
