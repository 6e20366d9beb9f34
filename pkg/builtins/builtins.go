// Package builtins implements the commands the shell runs itself: bg, fg,
// kill, cd, jobs and exit.
package builtins

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/rcarmo/go-jobsh/pkg/cmdline"
	"github.com/rcarmo/go-jobsh/pkg/core"
	"github.com/rcarmo/go-jobsh/pkg/core/fs"
	"github.com/rcarmo/go-jobsh/pkg/jobs"
	"github.com/rcarmo/go-jobsh/pkg/reaper"
	"github.com/rcarmo/go-jobsh/pkg/tty"
)

type builtinFunc func(d *Dispatcher, args []string)

var builtins = map[string]builtinFunc{
	"bg":   (*Dispatcher).bg,
	"fg":   (*Dispatcher).fg,
	"kill": (*Dispatcher).kill,
	"cd":   (*Dispatcher).cd,
	"jobs": (*Dispatcher).jobs,
	"exit": (*Dispatcher).exit,
}

// IsBuiltin reports whether name is handled by the Dispatcher.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

// Names returns the builtin names.
func Names() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	return out
}

// Options configures a Dispatcher.
type Options struct {
	KillSignal syscall.Signal // sent by kill %N; SIGTERM when zero
	Cwd        string         // initial working directory
	Logger     *slog.Logger
}

// Dispatcher runs builtins against the job registry. It is not safe for
// concurrent use; the command loop owns it.
type Dispatcher struct {
	stdio  *core.Stdio
	reg    *jobs.Registry
	reaper *reaper.Reaper
	term   tty.Terminal
	sig    syscall.Signal
	log    *slog.Logger

	cwd  string
	quit bool
}

// New returns a Dispatcher.
func New(stdio *core.Stdio, reg *jobs.Registry, rp *reaper.Reaper, term tty.Terminal, opts Options) *Dispatcher {
	if opts.KillSignal == 0 {
		opts.KillSignal = syscall.SIGTERM
	}
	if term == nil {
		term = tty.Nop{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		stdio:  stdio,
		reg:    reg,
		reaper: rp,
		term:   term,
		sig:    opts.KillSignal,
		log:    log.With("component", "builtins"),
		cwd:    opts.Cwd,
	}
}

// Run executes cmd if it names a builtin and reports whether it did.
func (d *Dispatcher) Run(cmd cmdline.Command) bool {
	fn, ok := builtins[cmd.Name()]
	if !ok {
		return false
	}
	fn(d, cmd.Args)
	return true
}

// Quit reports whether exit has been run.
func (d *Dispatcher) Quit() bool { return d.quit }

// Cwd returns the working directory as last refreshed by cd.
func (d *Dispatcher) Cwd() string { return d.cwd }

// jobRef parses "%N" and returns N when it names an occupied slot.
func (d *Dispatcher) jobRef(args []string) (jobs.Job, bool) {
	if len(args) != 2 || !strings.HasPrefix(args[1], "%") {
		d.log.Debug("bad job reference", "cmd", args[0], "args", len(args))
		return jobs.Job{}, false
	}
	id, err := strconv.Atoi(args[1][1:])
	if err != nil || !d.reg.ValidID(id) {
		d.log.Debug("invalid job id", "cmd", args[0], "ref", args[1])
		return jobs.Job{}, false
	}
	job, ok := d.reg.Get(id)
	if !ok {
		d.log.Debug("no such job", "cmd", args[0], "id", id)
		return jobs.Job{}, false
	}
	return job, true
}

func (d *Dispatcher) cd(args []string) {
	if len(args) > 2 {
		d.log.Debug("cd: too many arguments", "args", len(args))
		return
	}
	var dir string
	if len(args) > 1 {
		dir = args[1]
	} else {
		dir = os.Getenv("HOME")
	}
	if dir == "" {
		return
	}
	if err := fs.Chdir(dir); err != nil {
		d.log.Debug("cd failed", "dir", dir, "err", err)
		return
	}
	wd, err := fs.Getwd()
	if err != nil {
		d.log.Debug("getwd failed", "err", err)
		return
	}
	_ = os.Setenv("PWD", wd)
	d.cwd = wd
}

func (d *Dispatcher) jobs(args []string) {
	d.reg.Each(func(j jobs.Job) {
		if j.Status.Done() {
			return
		}
		d.stdio.Println(j.String())
	})
}

func (d *Dispatcher) exit(args []string) {
	d.quit = true
}
