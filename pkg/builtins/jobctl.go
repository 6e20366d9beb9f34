package builtins

import (
	"golang.org/x/sys/unix"

	"github.com/rcarmo/go-jobsh/pkg/applets/procutil"
	"github.com/rcarmo/go-jobsh/pkg/jobs"
	"github.com/rcarmo/go-jobsh/pkg/reaper"
)

func (d *Dispatcher) bg(args []string) {
	job, ok := d.jobRef(args)
	if !ok {
		return
	}
	if err := unix.Kill(-job.PID, unix.SIGCONT); err != nil {
		d.log.Debug("bg: continue failed", "id", job.ID, "pid", job.PID, "err", err)
		return
	}
	d.reg.Update(job.ID, func(j *jobs.Job) {
		j.Status = jobs.StatusRunning
		j.Placement = jobs.Background
	})
}

func (d *Dispatcher) fg(args []string) {
	// Stale stop reports must not satisfy the wait below.
	d.Report(d.reaper.Drain())
	job, ok := d.jobRef(args)
	if !ok {
		return
	}
	if err := d.term.Handover(job.PID); err != nil {
		d.log.Debug("fg: handover failed", "id", job.ID, "pid", job.PID, "err", err)
	}
	if err := unix.Kill(-job.PID, unix.SIGCONT); err != nil {
		d.log.Debug("fg: continue failed", "id", job.ID, "pid", job.PID, "err", err)
		d.reclaim()
		return
	}
	d.reg.Update(job.ID, func(j *jobs.Job) {
		j.Status = jobs.StatusRunning
		j.Placement = jobs.Foreground
	})
	job.Status = jobs.StatusRunning
	job.Placement = jobs.Foreground
	d.wait(job)
}

func (d *Dispatcher) kill(args []string) {
	job, ok := d.jobRef(args)
	if !ok {
		return
	}
	_ = unix.Kill(-job.PID, unix.SIGCONT)
	if err := unix.Kill(-job.PID, d.sig); err != nil {
		d.log.Debug("kill failed", "id", job.ID, "pid", job.PID, "signal", procutil.SignalName(d.sig), "err", err)
		return
	}
	d.reg.Update(job.ID, func(j *jobs.Job) { j.Status = jobs.StatusTerminated })

	res, err := d.reaper.Wait(-job.PID)
	if err != nil {
		d.log.Debug("kill: wait failed", "id", job.ID, "err", err)
		return
	}
	if res.Stopped() {
		return
	}
	d.reg.Remove(job.ID)
	d.log.Debug("killed", "id", job.ID, "pid", job.PID, "signal", procutil.SignalName(d.sig), "gone", res.Gone)
	d.stdio.Printf("[%d] %d terminated by signal %d\n", job.ID, job.PID, int(d.sig))
}

// Foreground gives the terminal to job, blocks until it stops or ends and
// then takes the terminal back. A job that ended by a signal or stopped is
// reported on stdout.
func (d *Dispatcher) Foreground(job jobs.Job) reaper.Result {
	if err := d.term.Handover(job.PID); err != nil {
		d.log.Debug("handover failed", "id", job.ID, "pid", job.PID, "err", err)
	}
	return d.wait(job)
}

func (d *Dispatcher) wait(job jobs.Job) reaper.Result {
	res, err := d.reaper.Wait(job.PID)
	d.reclaim()
	if err != nil {
		d.log.Debug("wait failed", "id", job.ID, "pid", job.PID, "err", err)
		return res
	}
	d.log.Debug("foreground done", "id", job.ID, "status", res.Status.String(), "signal", procutil.SignalName(res.Signal))
	switch {
	case res.Signaled():
		d.stdio.Printf("\n[%d] %d terminated by signal %d\n", job.ID, job.PID, int(res.Signal))
	case res.Stopped():
		job.Status = jobs.StatusStopped
		d.stdio.Printf("\n%s\n", job.String())
	}
	return res
}

// Report prints a line for every job the results finalized: background jobs
// that ended while the shell was doing something else.
func (d *Dispatcher) Report(results []reaper.Result) {
	for _, res := range results {
		if !res.Removed {
			continue
		}
		if res.Signaled() {
			d.stdio.Printf("[%d] %d terminated by signal %d\n", res.JobID, res.PID, int(res.Signal))
			continue
		}
		d.stdio.Printf("[%d] %d exited with status %d\n", res.JobID, res.PID, res.Code)
	}
}

func (d *Dispatcher) reclaim() {
	if err := d.term.Reclaim(); err != nil {
		d.log.Debug("reclaim failed", "err", err)
	}
}
