// Command jsh is the job-control shell.
package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/rcarmo/go-jobsh/pkg/applets/jsh"
	"github.com/rcarmo/go-jobsh/pkg/config"
	"github.com/rcarmo/go-jobsh/pkg/core"
)

func main() {
	stdio := core.DefaultStdio()
	code := core.ExitSuccess

	app := &cli.Command{
		Name:      "jsh",
		Usage:     "job-control shell",
		UsageText: "jsh [options]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Usage: "rc file path",
				Value: defaultRC(),
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "environment file loaded before the first command",
			},
			&cli.IntFlag{
				Name:  "capacity",
				Usage: "maximum number of jobs",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "trace job control on stderr",
			},
			&cli.StringFlag{
				Name:    "command",
				Aliases: []string{"c"},
				Usage:   "run `SCRIPT` instead of reading stdin",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			code = run(stdio, cmd)
			return nil
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		stdio.Errorf("jsh: %v\n", err)
		os.Exit(core.ExitUsage)
	}
	os.Exit(code)
}

func run(stdio *core.Stdio, cmd *cli.Command) int {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		stdio.Errorf("jsh: %v\n", err)
		return core.ExitFailure
	}
	cfg.ApplyEnv()
	if cmd.IsSet("env") {
		cfg.EnvFile = cmd.String("env")
	}
	if cmd.IsSet("capacity") {
		cfg.Capacity = cmd.Int("capacity")
	}
	if cmd.Bool("debug") {
		cfg.Debug = true
	}
	if err := cfg.LoadEnvFile(); err != nil {
		stdio.Errorf("jsh: %v\n", err)
		return core.ExitFailure
	}

	opts := jsh.Options{
		Config: cfg,
		Logger: jsh.NewLogger(stdio.Err, cfg.Debug),
	}
	if cmd.IsSet("command") {
		opts.Script = cmd.String("command")
		opts.HasScript = true
	}
	sh, err := jsh.New(stdio, opts)
	if err != nil {
		stdio.Errorf("jsh: %v\n", err)
		return core.ExitFailure
	}
	return sh.Run()
}

func defaultRC() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".jshrc.yaml")
}
