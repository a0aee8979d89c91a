package config

import (
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PROMPTWATCH_LOG_LEVEL",
		"PROMPTWATCH_LOG_FORMAT",
		"PROMPTWATCH_LOG_FILE",
		"PROMPTWATCH_TMUX_SOCKET",
		"PROMPTWATCH_CONFIG_DIR",
		"PROMPTWATCH_LOCAL_HOST",
		"PROMPTWATCH_LOCAL_PORT",
		"PROMPTWATCH_DB_PATH",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := LoadConfig()
	if cfg.LogLevel != "info" {
		t.Fatalf("unexpected LogLevel: %s", cfg.LogLevel)
	}
	if cfg.LocalHost != "127.0.0.1" {
		t.Fatalf("unexpected local host: %s", cfg.LocalHost)
	}
	if cfg.LocalPort != 4731 {
		t.Fatalf("unexpected local port: %d", cfg.LocalPort)
	}
	if cfg.LogFile != "" || cfg.TmuxSocket != "" || cfg.DBPath != "" {
		t.Fatalf("expected empty optional settings, got %+v", cfg)
	}
}

func TestLoadConfig_ReadsEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROMPTWATCH_LOG_LEVEL", "debug")
	t.Setenv("PROMPTWATCH_LOG_FORMAT", "text")
	t.Setenv("PROMPTWATCH_LOG_FILE", "/tmp/pw.log")
	t.Setenv("PROMPTWATCH_TMUX_SOCKET", "pw")
	t.Setenv("PROMPTWATCH_LOCAL_HOST", "0.0.0.0")
	t.Setenv("PROMPTWATCH_LOCAL_PORT", "4800")
	t.Setenv("PROMPTWATCH_DB_PATH", "/tmp/pw.db")

	cfg := LoadConfig()
	want := Config{
		LogLevel:    "debug",
		LogFormat:   "text",
		LogFile:     "/tmp/pw.log",
		TmuxSocket:  "pw",
		LocalHost:   "0.0.0.0",
		LocalPort:   4800,
		DBPath:      "/tmp/pw.db",
		PortFromEnv: true,
	}
	if cfg != want {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadConfig_MalformedPortFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROMPTWATCH_LOCAL_PORT", "47x1")
	if cfg := LoadConfig(); cfg.LocalPort != 4731 || cfg.PortFromEnv {
		t.Fatalf("unexpected local port: %d", cfg.LocalPort)
	}
	t.Setenv("PROMPTWATCH_LOCAL_PORT", "99999")
	if cfg := LoadConfig(); cfg.LocalPort != 4731 {
		t.Fatalf("unexpected local port for out of range value: %d", cfg.LocalPort)
	}
}

func TestLoadConfig_DefaultLocalPortFromBuildVariable(t *testing.T) {
	old := defaultLocalPort
	defaultLocalPort = "9001"
	t.Cleanup(func() {
		defaultLocalPort = old
	})
	clearEnv(t)

	cfg := LoadConfig()
	if cfg.LocalPort != 9001 {
		t.Fatalf("unexpected local port from build variable: %d", cfg.LocalPort)
	}
}

func TestLoadConfig_DBPathDerivedFromConfigDir(t *testing.T) {
	clearEnv(t)
	t.Setenv("PROMPTWATCH_CONFIG_DIR", "/tmp/pw-config")
	cfg := LoadConfig()
	if cfg.DBPath != filepath.Join("/tmp/pw-config", "promptwatch.db") {
		t.Fatalf("unexpected db path: %s", cfg.DBPath)
	}
}

func TestConfig_ResolveDBPath(t *testing.T) {
	if got := (Config{}).ResolveDBPath("/etc/pw"); got != filepath.Join("/etc/pw", "promptwatch.db") {
		t.Fatalf("unexpected resolved path: %s", got)
	}
	if got := (Config{DBPath: "/var/pw.db"}).ResolveDBPath("/etc/pw"); got != "/var/pw.db" {
		t.Fatalf("unexpected explicit path: %s", got)
	}
}
