package config

import (
	"os"
	"path/filepath"
	"strings"
)

// defaultLocalPort may be overridden at build time with -ldflags -X.
var defaultLocalPort = "4731"

type Config struct {
	LogLevel   string
	LogFormat  string
	LogFile    string
	TmuxSocket string
	ConfigDir  string
	LocalHost  string
	LocalPort  int
	DBPath     string

	// PortFromEnv reports an explicit PROMPTWATCH_LOCAL_PORT, which overrides
	// api.port from config.toml.
	PortFromEnv bool
}

// LoadConfig reads runtime settings from PROMPTWATCH_* environment variables.
func LoadConfig() Config {
	level := os.Getenv("PROMPTWATCH_LOG_LEVEL")
	if level == "" {
		level = "info"
	}

	localHost := os.Getenv("PROMPTWATCH_LOCAL_HOST")
	if localHost == "" {
		localHost = "127.0.0.1"
	}
	fallbackPort := atoiOrDefault(defaultLocalPort, 4731)
	localPort := fallbackPort
	portFromEnv := false
	if p := os.Getenv("PROMPTWATCH_LOCAL_PORT"); p != "" {
		// Keep parsing strict but fallback to default on malformed values.
		if n := atoiOrDefault(p, 0); n > 0 && n <= 65535 {
			localPort = n
			portFromEnv = true
		}
	}

	configDir := strings.TrimSpace(os.Getenv("PROMPTWATCH_CONFIG_DIR"))
	dbPath := strings.TrimSpace(os.Getenv("PROMPTWATCH_DB_PATH"))
	if dbPath == "" && configDir != "" {
		dbPath = filepath.Join(configDir, "promptwatch.db")
	}

	return Config{
		LogLevel:    level,
		LogFormat:   strings.TrimSpace(os.Getenv("PROMPTWATCH_LOG_FORMAT")),
		LogFile:     strings.TrimSpace(os.Getenv("PROMPTWATCH_LOG_FILE")),
		TmuxSocket:  strings.TrimSpace(os.Getenv("PROMPTWATCH_TMUX_SOCKET")),
		ConfigDir:   configDir,
		LocalHost:   localHost,
		LocalPort:   localPort,
		DBPath:      dbPath,
		PortFromEnv: portFromEnv,
	}
}

// ResolveDBPath returns DBPath, or promptwatch.db inside configDir.
func (c Config) ResolveDBPath(configDir string) string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(configDir, "promptwatch.db")
}

func atoiOrDefault(v string, fallback int) int {
	n := 0
	for i := 0; i < len(v); i++ {
		if v[i] < '0' || v[i] > '9' {
			return fallback
		}
		n = n*10 + int(v[i]-'0')
	}
	if n == 0 {
		return fallback
	}
	return n
}
