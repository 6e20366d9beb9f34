// Package jsh implements a job-control shell: external commands run as
// process groups that can be stopped, resumed, moved between foreground and
// background, and killed.
package jsh

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/rcarmo/go-jobsh/pkg/builtins"
	"github.com/rcarmo/go-jobsh/pkg/cmdline"
	"github.com/rcarmo/go-jobsh/pkg/config"
	"github.com/rcarmo/go-jobsh/pkg/core"
	"github.com/rcarmo/go-jobsh/pkg/core/fs"
	"github.com/rcarmo/go-jobsh/pkg/jobs"
	"github.com/rcarmo/go-jobsh/pkg/launcher"
	"github.com/rcarmo/go-jobsh/pkg/reaper"
	"github.com/rcarmo/go-jobsh/pkg/sandbox"
	"github.com/rcarmo/go-jobsh/pkg/tty"
)

// Run is the applet entry point: jsh [-c SCRIPT]. Settings come from the
// defaults and JSH_* variables.
func Run(stdio *core.Stdio, args []string) int {
	var opts Options
	switch {
	case len(args) == 0:
	case args[0] == "-c":
		if len(args) < 2 {
			return core.UsageError(stdio, "jsh", "-c requires an argument")
		}
		opts.Script = args[1]
		opts.HasScript = true
	default:
		return core.UsageError(stdio, "jsh", "unexpected argument "+args[0])
	}

	cfg := config.Default()
	cfg.ApplyEnv()
	if err := cfg.LoadEnvFile(); err != nil {
		stdio.Errorf("jsh: %v\n", err)
		return core.ExitFailure
	}
	opts.Config = cfg
	opts.Logger = NewLogger(stdio.Err, cfg.Debug)

	sh, err := New(stdio, opts)
	if err != nil {
		stdio.Errorf("jsh: %v\n", err)
		return core.ExitFailure
	}
	return sh.Run()
}

// NewLogger returns the diagnostic logger: text on w at debug level when
// debug is set, otherwise a logger that discards everything.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	if !debug {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Options configures a Shell.
type Options struct {
	Config *config.Config
	Logger *slog.Logger

	// Script, when HasScript is set, replaces stdin as the command source.
	Script    string
	HasScript bool
}

// Shell is the command loop and the components it drives.
type Shell struct {
	stdio  *core.Stdio
	input  io.Reader
	prompt string
	limits cmdline.Limits
	log    *slog.Logger

	reg    *jobs.Registry
	reaper *reaper.Reaper
	launch *launcher.Launcher
	disp   *builtins.Dispatcher
	term   tty.Terminal
}

// New validates the configuration and assembles a Shell.
func New(stdio *core.Stdio, opts Options) (*Shell, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sig, _ := cfg.Signal()
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	rules, _ := cfg.SandboxRules()
	if rules != nil {
		if err := sandbox.Init(rules); err != nil {
			return nil, err
		}
		log.Debug("sandbox enabled", "rules", len(rules.AllowedPaths), "cwd", rules.AllowCwd, "active", sandbox.IsEnabled())
	}

	stdio = stdio.Synchronized()
	input := stdio.In
	var term tty.Terminal = tty.Nop{}
	if opts.HasScript {
		input = strings.NewReader(opts.Script)
	} else if f, ok := stdio.In.(*os.File); ok {
		term = tty.Open(f)
	}

	cwd, err := fs.Getwd()
	if err != nil {
		return nil, err
	}
	_ = os.Setenv("PWD", cwd)

	reg := jobs.NewRegistry(cfg.Capacity)
	rp := reaper.New(reg, log)
	disp := builtins.New(stdio, reg, rp, term, builtins.Options{
		KillSignal: sig,
		Cwd:        cwd,
		Logger:     log,
	})
	launch := launcher.New(reg, stdio, launcher.Options{
		Dirs:       cfg.Path,
		Cwd:        disp.Cwd,
		JobControl: term.Interactive(),
		TTY:        term.FD(),
		Logger:     log,
	})
	return &Shell{
		stdio:  stdio,
		input:  input,
		prompt: cfg.Prompt,
		limits: cfg.Limits(),
		log:    log.With("component", "loop"),
		reg:    reg,
		reaper: rp,
		launch: launch,
		disp:   disp,
		term:   term,
	}, nil
}

// Run reads and executes commands until exit or end of input, then runs the
// shutdown sequence. It returns core.ExitSuccess unless a fork failed.
func (s *Shell) Run() int {
	interactive := s.term.Interactive()
	if a, ok := s.term.(*tty.Arbiter); ok {
		if err := a.Claim(); err != nil {
			s.log.Debug("claim terminal", "err", err)
		}
	}

	chld, stopChld := reaper.Notify()
	defer stopChld()

	// Keystroke signals only matter while the shell owns the terminal.
	// Catching rather than ignoring them leaves children with default
	// dispositions after exec.
	intr := make(chan os.Signal, 1)
	if interactive {
		signal.Notify(intr, unix.SIGINT, unix.SIGTSTP, unix.SIGQUIT, unix.SIGTTIN)
		defer signal.Stop(intr)
	}

	lines := newLineReader(s.input)
	defer lines.close()

	code := core.ExitSuccess
	for !s.disp.Quit() {
		if interactive {
			s.stdio.Print(s.prompt)
		}
		lines.request()
		var in readResult
	wait:
		for {
			select {
			case in = <-lines.out:
				break wait
			case <-chld:
				s.disp.Report(s.reaper.Drain())
			case sig := <-intr:
				s.log.Debug("signal while idle", "signal", sig.String())
				s.stdio.Print("\n", s.prompt)
			}
		}

		if in.text != "" {
			if err := s.execute(in.text); err != nil {
				s.stdio.Errorf("jsh: %v\n", err)
				code = core.ExitFailure
				break
			}
		}
		if in.err != nil {
			if !errors.Is(in.err, io.EOF) {
				s.log.Debug("read failed", "err", in.err)
			}
			if interactive {
				s.stdio.Println()
			}
			break
		}
	}

	s.shutdown()
	return code
}

// execute runs one input line. Only unrecoverable failures are returned.
func (s *Shell) execute(line string) error {
	cmd, err := cmdline.Parse(line, s.limits)
	if err != nil {
		s.stdio.Errorf("jsh: %v\n", err)
		return nil
	}
	s.disp.Report(s.reaper.Drain())
	if cmd.Empty() {
		return nil
	}
	if s.disp.Run(cmd) {
		return nil
	}

	job, err := s.launch.Spawn(cmd.Args, cmd.Placement)
	if err != nil {
		var re *launcher.ResolveError
		var ee *launcher.ExecError
		switch {
		case errors.As(err, &re), errors.As(err, &ee):
			s.stdio.Errorf("%v\n", err)
		case errors.Is(err, jobs.ErrFull):
			s.log.Debug("spawn refused", "cmd", cmd.Name(), "err", err)
		case errors.Is(err, launcher.ErrFork):
			return err
		default:
			s.stdio.Errorf("%s: %v\n", cmd.Name(), err)
		}
		return nil
	}

	if job.Placement == jobs.Foreground {
		res := s.disp.Foreground(job)
		s.log.Debug("foreground returned", "id", job.ID, "status", res.Status.String(), "gone", res.Gone)
		return nil
	}
	s.stdio.Printf("[%d] %d\n", job.ID, job.PID)
	return nil
}

// shutdown hangs up every remaining job, waking stopped and background ones
// so they see the signal, and empties the registry.
func (s *Shell) shutdown() {
	s.disp.Report(s.reaper.Drain())
	s.reg.Each(func(j jobs.Job) {
		if j.PID <= 0 {
			return
		}
		s.log.Debug("hangup", "id", j.ID, "pid", j.PID)
		_ = unix.Kill(-j.PID, unix.SIGHUP)
		if j.Placement == jobs.Background || j.Status == jobs.StatusStopped {
			_ = unix.Kill(-j.PID, unix.SIGCONT)
		}
	})
	s.reg.Clear()
}
