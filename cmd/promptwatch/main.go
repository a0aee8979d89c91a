package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync/atomic"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Corptech02/Multi-voice-bot-sub002/internal/command"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/config"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/db"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/global"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/historydb"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/lifecycle"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/localapi"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/logging"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/metrics"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/progdetector"
	_ "github.com/Corptech02/Multi-voice-bot-sub002/internal/progdetector/builtin"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/prompt"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/supervisor"
	"github.com/Corptech02/Multi-voice-bot-sub002/internal/tmux"
)

var version = "dev"

var historyPruneInterval = time.Minute

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := command.BuildApp(command.Deps{
		LoadConfig: config.LoadConfig,
		RunWatch: func(ctx context.Context, cfg config.Config, opts command.WatchOptions) error {
			return runWatch(ctx, os.Stdout, cfg, opts)
		},
		RunCheck: func(ctx context.Context, cfg config.Config, opts command.CheckOptions) error {
			return runCheck(ctx, os.Stdin, os.Stdout, cfg, opts)
		},
		RunHistory: func(ctx context.Context, cfg config.Config, opts command.HistoryOptions) error {
			return runHistory(ctx, os.Stdout, cfg, opts)
		},
		RunProfiles: func(ctx context.Context, cfg config.Config) error {
			return runProfiles(ctx, os.Stdout, progdetector.ProgramDetectorRegistry)
		},
		RunConfigInit: func(ctx context.Context, cfg config.Config) error {
			return runConfigInit(ctx, os.Stdout, cfg)
		},
		RunConfigShow: func(ctx context.Context, cfg config.Config) error {
			return runConfigShow(ctx, os.Stdout, cfg)
		},
	})
	app.Version = version

	if err := app.RunContext(rootCtx, os.Args); err != nil {
		logging.NewLogger(logging.Options{Level: "error", Writer: os.Stderr, Component: "promptwatch"}).Error("promptwatch failed", "err", err)
		os.Exit(1)
	}
}

// newRuntimeLogger logs JSON to stderr, or to a rotated file when
// PROMPTWATCH_LOG_FILE is set. The returned func closes the file.
func newRuntimeLogger(cfg config.Config, stderr io.Writer) (*slog.Logger, func()) {
	opts := logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Writer: stderr, Component: "promptwatch"}
	if cfg.LogFile == "" {
		return logging.NewLogger(opts), func() {}
	}
	w := logging.NewRotatingWriter(logging.FileOptions{Path: cfg.LogFile})
	opts.Writer = w
	return logging.NewLogger(opts), func() { _ = w.Close() }
}

func resolveConfigDir(cfg config.Config) (string, error) {
	if cfg.ConfigDir != "" {
		return cfg.ConfigDir, nil
	}
	return global.DefaultConfigDir()
}

// loadConfigReadOnly returns the defaults when config.toml does not exist
// instead of creating it.
func loadConfigReadOnly(cfg config.Config) (*global.ConfigStore, global.GlobalConfig, error) {
	dir, err := resolveConfigDir(cfg)
	if err != nil {
		return nil, global.GlobalConfig{}, err
	}
	store := global.NewConfigStore(dir)
	gcfg, err := store.Load()
	if errors.Is(err, fs.ErrNotExist) {
		return store, global.DefaultConfig(), nil
	}
	if err != nil {
		return nil, global.GlobalConfig{}, fmt.Errorf("load %s: %w", store.Path(), err)
	}
	return store, gcfg, nil
}

func runWatch(ctx context.Context, out io.Writer, cfg config.Config, opts command.WatchOptions) error {
	logger, closeLog := newRuntimeLogger(cfg, os.Stderr)
	defer closeLog()

	dir, err := resolveConfigDir(cfg)
	if err != nil {
		return err
	}
	store := global.NewConfigStore(dir)
	gcfg, err := store.LoadOrInit()
	if err != nil {
		return fmt.Errorf("load %s: %w", store.Path(), err)
	}
	classifier, err := gcfg.Classifier()
	if err != nil {
		return err
	}
	pattern, err := gcfg.SessionPattern()
	if err != nil {
		return err
	}

	targets := opts.Targets
	if len(targets) == 0 {
		targets = gcfg.Targets
	}
	discover := opts.Discover || gcfg.Discovery.Enabled
	template := gcfg.WatcherTemplate()
	template.DryRun = template.DryRun || opts.DryRun

	provider := metrics.NewDefaultProvider()
	adapter := tmux.NewAdapterWithSocket(&tmux.RealExec{}, cfg.TmuxSocket)
	fanout := newEventFanout(defaultEventBuffer, logger.With("module", "events"))

	sup, err := supervisor.New(supervisor.Options{
		Tmux:       adapter,
		Registry:   progdetector.ProgramDetectorRegistry,
		Classifier: classifier,
		Template:   template,
		Targets:    targets,
		Discovery: supervisor.DiscoveryOptions{
			Enabled:        discover,
			Interval:       gcfg.DiscoveryInterval(),
			SessionPattern: pattern,
			MatchPrograms:  gcfg.Discovery.MatchPrograms,
		},
		Logger:  logger.With("module", "supervisor"),
		Metrics: provider,
		OnEvent: fanout.Publish,
	})
	if err != nil {
		return err
	}

	mgr := lifecycle.NewManager()
	mgr.SetLogger(logger.With("module", "lifecycle"))

	var history localapi.InjectionHistory
	if gcfg.History.Enabled {
		gdb, err := db.Open(cfg.ResolveDBPath(dir))
		if err != nil {
			return fmt.Errorf("open history db: %w", err)
		}
		mgr.AddShutdown("history-db", func(context.Context) error {
			return db.Close(gdb)
		})
		hs, err := historydb.NewStore(gdb)
		if err != nil {
			_ = db.Close(gdb)
			return err
		}
		history = hs
		historyLogger := logger.With("module", "history")
		fanout.Subscribe(recordHistory(hs, historyLogger))
		keep := gcfg.History.Keep
		mgr.AddRun("history-prune", func(runCtx context.Context) error {
			return runHistoryPrune(runCtx, hs, keep, historyPruneInterval, historyLogger)
		})
	}

	var current atomic.Pointer[prompt.Classifier]
	current.Store(classifier)
	configLogger := logger.With("module", "config")
	reloader := global.NewConfigWatcher(store, func(next global.GlobalConfig) {
		c, err := next.Classifier()
		if err != nil {
			configLogger.Warn("reloaded rules are invalid, keeping previous rule set", "err", err)
			return
		}
		current.Store(c)
		sup.UpdateClassifier(c)
	}, configLogger)

	mgr.AddRun("supervisor", sup.Run)
	mgr.AddRun("config-watch", func(runCtx context.Context) error {
		if err := reloader.Run(runCtx); err != nil {
			configLogger.Warn("config reload disabled", "path", store.Path(), "err", err)
		}
		return nil
	})

	apiAddr := ""
	if opts.API || gcfg.API.Enabled {
		port := gcfg.API.Port
		if cfg.PortFromEnv {
			port = cfg.LocalPort
		}
		apiAddr = net.JoinHostPort(cfg.LocalHost, strconv.Itoa(port))
		api := localapi.NewServer(localapi.Deps{
			ConfigStore: store,
			Watchers:    sup,
			History:     history,
			Classifier:  current.Load,
			Metrics:     provider.Handler(),
			Logger:      logger.With("module", "localapi"),
		})
		fanout.Subscribe(api.PublishEvent)
		mgr.AddRun("local-api", func(runCtx context.Context) error {
			return api.ListenAndServe(runCtx, apiAddr)
		})
	}

	// Events are drained after every run job has returned so that the
	// watcher.stopped events reach history before the db closes.
	fanoutCtx, stopFanout := context.WithCancel(context.Background())
	fanoutDone := make(chan struct{})
	go func() {
		defer close(fanoutDone)
		_ = fanout.Run(fanoutCtx)
	}()
	mgr.AddShutdown("events", func(shutdownCtx context.Context) error {
		stopFanout()
		select {
		case <-fanoutDone:
		case <-shutdownCtx.Done():
			return shutdownCtx.Err()
		}
		if n := fanout.Dropped(); n > 0 {
			logger.Warn("events dropped during run", "count", n)
		}
		return nil
	})

	logger.Info("promptwatch started",
		"version", version,
		"config", store.Path(),
		"targets", strings.Join(targets, ","),
		"discovery", discover,
		"dry_run", template.DryRun,
		"rules", strings.Join(classifier.RuleNames(), ","),
	)
	_, _ = fmt.Fprintf(out, "promptwatch %s: %d target(s), discovery=%t, dry-run=%t\n", version, len(targets), discover, template.DryRun)
	if apiAddr != "" {
		_, _ = fmt.Fprintf(out, "local api: http://%s\n", apiAddr)
	}
	return mgr.StartAndWait(ctx)
}

type checkOutput struct {
	Decision string          `json:"decision"`
	Detail   prompt.Decision `json:"detail"`
}

func runCheck(_ context.Context, in io.Reader, out io.Writer, cfg config.Config, opts command.CheckOptions) error {
	_, gcfg, err := loadConfigReadOnly(cfg)
	if err != nil {
		return err
	}
	classifier, err := gcfg.Classifier()
	if err != nil {
		return err
	}

	var text string
	switch {
	case opts.File == "-":
		b, err := io.ReadAll(in)
		if err != nil {
			return err
		}
		text = string(b)
	case opts.File != "":
		b, err := os.ReadFile(opts.File)
		if err != nil {
			return err
		}
		text = string(b)
	default:
		adapter := tmux.NewAdapterWithSocket(&tmux.RealExec{}, cfg.TmuxSocket)
		text, err = capturePane(adapter, opts.Target, gcfg.Watcher.CaptureLines)
		if err != nil {
			return err
		}
	}

	decision := classifier.Classify(prompt.NewSnapshot(text, time.Now()))
	b, err := json.MarshalIndent(checkOutput{Decision: decision.Kind.String(), Detail: decision}, "", "  ")
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "%s\n", b)
	return nil
}

type paneCapturer interface {
	PaneExists(target string) (bool, error)
	CaptureTail(target string, lines int) (string, error)
}

// capturePane reports a missing pane by name instead of tmux's bare
// "can't find pane" error.
func capturePane(src paneCapturer, target string, lines int) (string, error) {
	ok, err := src.PaneExists(target)
	if err != nil {
		return "", fmt.Errorf("list panes: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("pane %s not found", target)
	}
	text, err := src.CaptureTail(target, lines)
	if err != nil {
		return "", fmt.Errorf("capture %s: %w", target, err)
	}
	return text, nil
}

func runHistory(_ context.Context, out io.Writer, cfg config.Config, opts command.HistoryOptions) error {
	dir, err := resolveConfigDir(cfg)
	if err != nil {
		return err
	}
	gdb, err := db.Open(cfg.ResolveDBPath(dir))
	if err != nil {
		return fmt.Errorf("open history db: %w", err)
	}
	defer func() { _ = db.Close(gdb) }()
	store, err := historydb.NewStore(gdb)
	if err != nil {
		return err
	}
	if opts.Sessions {
		sessions, err := store.Sessions(opts.Limit)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			_, _ = fmt.Fprintf(out, "no watcher sessions recorded\n")
			return nil
		}
		return writeSessionTable(out, sessions)
	}
	rows, err := store.List(opts.Limit, opts.Target)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		_, _ = fmt.Fprintf(out, "no injections recorded\n")
		return nil
	}
	return writeInjectionTable(out, rows)
}

func writeInjectionTable(w io.Writer, rows []historydb.Injection) error {
	out := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(out, "TIME\tTARGET\tPROGRAM\tRULE\tSTATUS\tRESPONSE\n")
	for _, row := range rows {
		status := row.Status
		if row.Error != "" {
			status += " (" + row.Error + ")"
		}
		_, _ = fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\t%q\n",
			row.CreatedAt.Local().Format(time.DateTime), row.Target, row.Program, row.Rule, status, row.Response)
	}
	return out.Flush()
}

func writeSessionTable(w io.Writer, sessions []historydb.Session) error {
	out := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(out, "STARTED\tSTOPPED\tTARGET\tPROGRAM\tWATCHER\n")
	for _, s := range sessions {
		stopped := "running"
		if !s.StoppedAt.IsZero() {
			stopped = s.StoppedAt.Local().Format(time.DateTime)
		}
		_, _ = fmt.Fprintf(out, "%s\t%s\t%s\t%s\t%s\n",
			s.StartedAt.Local().Format(time.DateTime), stopped, s.Target, s.Program, s.WatcherID)
	}
	return out.Flush()
}

func runProfiles(ctx context.Context, w io.Writer, registry *progdetector.Registry) error {
	out := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(out, "PROGRAM\tINSTALLED\n")
	for _, d := range registry.List() {
		ok, err := d.IsAvailable(ctx)
		installed := strconv.FormatBool(ok)
		if err != nil {
			installed = "error: " + err.Error()
		}
		_, _ = fmt.Fprintf(out, "%s\t%s\n", d.ProgramID(), installed)
	}
	_, _ = fmt.Fprintf(out, "%s\t%s\n", progdetector.GenericProgramID, "always")
	return out.Flush()
}

func runConfigInit(_ context.Context, out io.Writer, cfg config.Config) error {
	dir, err := resolveConfigDir(cfg)
	if err != nil {
		return err
	}
	store := global.NewConfigStore(dir)
	if _, err := store.LoadOrInit(); err != nil {
		return fmt.Errorf("init %s: %w", store.Path(), err)
	}
	_, _ = fmt.Fprintf(out, "config: %s\n", store.Path())
	return nil
}

func runConfigShow(_ context.Context, out io.Writer, cfg config.Config) error {
	store, gcfg, err := loadConfigReadOnly(cfg)
	if err != nil {
		return err
	}
	b, err := toml.Marshal(gcfg)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "# %s\n%s", store.Path(), b)
	return nil
}
