package command

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/Corptech02/Multi-voice-bot-sub002/internal/config"
)

func staticConfig() config.Config {
	return config.Config{LogLevel: "info"}
}

func TestBuildApp_DefaultCommandIsWatch(t *testing.T) {
	var got []WatchOptions
	app := BuildApp(Deps{
		LoadConfig: staticConfig,
		RunWatch: func(_ context.Context, _ config.Config, opts WatchOptions) error {
			got = append(got, opts)
			return nil
		},
	})
	if err := app.RunContext(context.Background(), []string{"promptwatch"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected watch runner called once, got %d", len(got))
	}
	if len(got[0].Targets) != 0 || got[0].Discover || got[0].DryRun || got[0].API {
		t.Fatalf("unexpected default options: %+v", got[0])
	}
}

func TestBuildApp_WatchFlags(t *testing.T) {
	var got WatchOptions
	app := BuildApp(Deps{
		LoadConfig: staticConfig,
		RunWatch: func(_ context.Context, _ config.Config, opts WatchOptions) error {
			got = opts
			return nil
		},
	})
	args := []string{"promptwatch", "watch", "--target", "claude:0.0", "-t", "work:1.2,ops:0.0", "--discover", "--dry-run", "--api"}
	if err := app.RunContext(context.Background(), args); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	want := WatchOptions{
		Targets:  []string{"claude:0.0", "work:1.2", "ops:0.0"},
		Discover: true,
		DryRun:   true,
		API:      true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected options (-want +got):\n%s", diff)
	}
}

func TestBuildApp_CheckRequiresExactlyOneSource(t *testing.T) {
	called := 0
	app := BuildApp(Deps{
		LoadConfig: staticConfig,
		RunCheck: func(context.Context, config.Config, CheckOptions) error {
			called++
			return nil
		},
	})
	if err := app.RunContext(context.Background(), []string{"promptwatch", "check"}); err == nil {
		t.Fatal("expected error without a source")
	}
	if err := app.RunContext(context.Background(), []string{"promptwatch", "check", "--file", "a.txt", "--target", "s:0.0"}); err == nil {
		t.Fatal("expected error with two sources")
	}
	if err := app.RunContext(context.Background(), []string{"promptwatch", "check", "--file", "screen.txt"}); err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if called != 1 {
		t.Fatalf("expected check runner called once, got %d", called)
	}
}

func TestBuildApp_HistoryCommand(t *testing.T) {
	var got HistoryOptions
	app := BuildApp(Deps{
		LoadConfig: staticConfig,
		RunHistory: func(_ context.Context, _ config.Config, opts HistoryOptions) error {
			got = opts
			return nil
		},
	})
	if err := app.RunContext(context.Background(), []string{"promptwatch", "history", "--limit", "5", "--target", "claude:0.0"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got.Limit != 5 || got.Target != "claude:0.0" || got.Sessions {
		t.Fatalf("unexpected options: %+v", got)
	}

	if err := app.RunContext(context.Background(), []string{"promptwatch", "history", "--sessions"}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !got.Sessions || got.Limit != 20 {
		t.Fatalf("unexpected sessions options: %+v", got)
	}
}

func TestBuildApp_ConfigSubcommands(t *testing.T) {
	initCalled, showCalled := 0, 0
	app := BuildApp(Deps{
		LoadConfig: staticConfig,
		RunConfigInit: func(context.Context, config.Config) error {
			initCalled++
			return nil
		},
		RunConfigShow: func(context.Context, config.Config) error {
			showCalled++
			return nil
		},
	})
	if err := app.RunContext(context.Background(), []string{"promptwatch", "config", "init"}); err != nil {
		t.Fatalf("config init failed: %v", err)
	}
	if err := app.RunContext(context.Background(), []string{"promptwatch", "config", "show"}); err != nil {
		t.Fatalf("config show failed: %v", err)
	}
	if initCalled != 1 || showCalled != 1 {
		t.Fatalf("unexpected call count init=%d show=%d", initCalled, showCalled)
	}
}

func TestBuildApp_MissingRunnerFails(t *testing.T) {
	app := BuildApp(Deps{LoadConfig: staticConfig})
	for _, args := range [][]string{
		{"promptwatch"},
		{"promptwatch", "history"},
		{"promptwatch", "profiles"},
		{"promptwatch", "config", "show"},
	} {
		if err := app.RunContext(context.Background(), args); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}
