package command

import (
	"context"
	"errors"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Corptech02/Multi-voice-bot-sub002/internal/config"
)

type WatchOptions struct {
	Targets  []string
	Discover bool
	DryRun   bool
	API      bool
}

type CheckOptions struct {
	File   string
	Target string
}

type HistoryOptions struct {
	Limit    int
	Target   string
	Sessions bool
}

type Deps struct {
	LoadConfig    func() config.Config
	RunWatch      func(context.Context, config.Config, WatchOptions) error
	RunCheck      func(context.Context, config.Config, CheckOptions) error
	RunHistory    func(context.Context, config.Config, HistoryOptions) error
	RunConfigInit func(context.Context, config.Config) error
	RunConfigShow func(context.Context, config.Config) error
	RunProfiles   func(context.Context, config.Config) error
}

func BuildApp(deps Deps) *cli.App {
	watchFlags := []cli.Flag{
		&cli.StringSliceFlag{Name: "target", Aliases: []string{"t"}, Usage: "tmux pane to watch (session:window.pane), repeatable"},
		&cli.BoolFlag{Name: "discover", Usage: "discover panes by session name and running program"},
		&cli.BoolFlag{Name: "dry-run", Usage: "detect and log prompts without sending keys"},
		&cli.BoolFlag{Name: "api", Usage: "serve the local HTTP API"},
	}
	watchAction := func(ctx *cli.Context) error {
		cfg := loadConfig(deps)
		return runWatch(ctx.Context, deps, cfg, WatchOptions{
			Targets:  cleanTargets(ctx.StringSlice("target")),
			Discover: ctx.Bool("discover"),
			DryRun:   ctx.Bool("dry-run"),
			API:      ctx.Bool("api"),
		})
	}

	return &cli.App{
		Name:   "promptwatch",
		Usage:  "auto-approve confirmation prompts in tmux panes",
		Flags:  watchFlags,
		Action: watchAction,
		Commands: []*cli.Command{
			{
				Name:   "watch",
				Usage:  "watch panes and answer confirmation prompts",
				Flags:  watchFlags,
				Action: watchAction,
			},
			{
				Name:  "check",
				Usage: "classify a captured screen once and print the decision",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "read screen text from file (- for stdin)"},
					&cli.StringFlag{Name: "target", Aliases: []string{"t"}, Usage: "capture screen text from a tmux pane"},
				},
				Action: func(ctx *cli.Context) error {
					opts := CheckOptions{
						File:   strings.TrimSpace(ctx.String("file")),
						Target: strings.TrimSpace(ctx.String("target")),
					}
					if (opts.File == "") == (opts.Target == "") {
						return errors.New("exactly one of --file or --target is required")
					}
					return runCheck(ctx.Context, deps, loadConfig(deps), opts)
				},
			},
			{
				Name:  "history",
				Usage: "list recent injections",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Value: 20, Usage: "maximum rows"},
					&cli.StringFlag{Name: "target", Aliases: []string{"t"}, Usage: "only rows for this pane"},
					&cli.BoolFlag{Name: "sessions", Usage: "list watcher start/stop sessions instead of injections"},
				},
				Action: func(ctx *cli.Context) error {
					return runHistory(ctx.Context, deps, loadConfig(deps), HistoryOptions{
						Limit:    ctx.Int("limit"),
						Target:   strings.TrimSpace(ctx.String("target")),
						Sessions: ctx.Bool("sessions"),
					})
				},
			},
			{
				Name:  "profiles",
				Usage: "list program profiles and whether their binaries are installed",
				Action: func(ctx *cli.Context) error {
					return runProfiles(ctx.Context, deps, loadConfig(deps))
				},
			},
			{
				Name:  "config",
				Usage: "manage config.toml",
				Subcommands: []*cli.Command{
					{
						Name:  "init",
						Usage: "create config.toml with defaults if missing",
						Action: func(ctx *cli.Context) error {
							return runConfigInit(ctx.Context, deps, loadConfig(deps))
						},
					},
					{
						Name:  "show",
						Usage: "print the effective configuration",
						Action: func(ctx *cli.Context) error {
							return runConfigShow(ctx.Context, deps, loadConfig(deps))
						},
					},
				},
			},
		},
	}
}

func loadConfig(deps Deps) config.Config {
	if deps.LoadConfig != nil {
		return deps.LoadConfig()
	}
	return config.LoadConfig()
}

func cleanTargets(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func runWatch(ctx context.Context, deps Deps, cfg config.Config, opts WatchOptions) error {
	if deps.RunWatch == nil {
		return errors.New("watch runner is not configured")
	}
	return deps.RunWatch(ctx, cfg, opts)
}

func runCheck(ctx context.Context, deps Deps, cfg config.Config, opts CheckOptions) error {
	if deps.RunCheck == nil {
		return errors.New("check runner is not configured")
	}
	return deps.RunCheck(ctx, cfg, opts)
}

func runHistory(ctx context.Context, deps Deps, cfg config.Config, opts HistoryOptions) error {
	if deps.RunHistory == nil {
		return errors.New("history runner is not configured")
	}
	return deps.RunHistory(ctx, cfg, opts)
}

func runProfiles(ctx context.Context, deps Deps, cfg config.Config) error {
	if deps.RunProfiles == nil {
		return errors.New("profiles runner is not configured")
	}
	return deps.RunProfiles(ctx, cfg)
}

func runConfigInit(ctx context.Context, deps Deps, cfg config.Config) error {
	if deps.RunConfigInit == nil {
		return errors.New("config init runner is not configured")
	}
	return deps.RunConfigInit(ctx, cfg)
}

func runConfigShow(ctx context.Context, deps Deps, cfg config.Config) error {
	if deps.RunConfigShow == nil {
		return errors.New("config show runner is not configured")
	}
	return deps.RunConfigShow(ctx, cfg)
}
