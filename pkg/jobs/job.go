// Package jobs implements the job table shared by the launcher, the reaper
// and the builtins.
package jobs

import (
	"strconv"
	"strings"
)

// Status mirrors the last observed wait-status transition of a job.
type Status int

const (
	StatusRunning Status = iota
	StatusStopped
	StatusTerminated
	StatusComplete
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "Running"
	case StatusStopped:
		return "Stopped"
	case StatusTerminated:
		return "Terminated"
	case StatusComplete:
		return "Complete"
	}
	return "Status(" + strconv.Itoa(int(s)) + ")"
}

// Done reports whether the status is terminal. A job in a terminal status is
// removed from the registry the first time the status is observed.
func (s Status) Done() bool {
	return s == StatusTerminated || s == StatusComplete
}

// Placement records whether a job owns (or last owned) the terminal.
type Placement int

const (
	Background Placement = iota
	Foreground
)

func (p Placement) String() string {
	if p == Foreground {
		return "foreground"
	}
	return "background"
}

// Job is one spawned process group under shell control. PID is also the
// process group id: the launched process is always its own group leader.
type Job struct {
	ID        int
	Args      []string
	PID       int
	Placement Placement
	Status    Status

	release func()
}

// New returns a running job for args. ID and PID are assigned by the
// registry and the launcher respectively.
func New(args []string, placement Placement) *Job {
	return &Job{
		Args:      append([]string(nil), args...),
		Placement: placement,
		Status:    StatusRunning,
	}
}

// OnRelease registers fn to run once when the job leaves the registry.
// The launcher uses it to tear down output copiers.
func (j *Job) OnRelease(fn func()) {
	j.release = fn
}

func (j *Job) drop() {
	if fn := j.release; fn != nil {
		j.release = nil
		fn()
	}
	j.Args = nil
}

// String formats the job as a listing line:
//
//	[2] 4321 Stopped sleep 100 &
func (j Job) String() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteString(strconv.Itoa(j.ID))
	b.WriteString("] ")
	b.WriteString(strconv.Itoa(j.PID))
	b.WriteByte(' ')
	b.WriteString(j.Status.String())
	for _, arg := range j.Args {
		b.WriteByte(' ')
		b.WriteString(arg)
	}
	if j.Placement == Background {
		b.WriteString(" &")
	}
	return b.String()
}
