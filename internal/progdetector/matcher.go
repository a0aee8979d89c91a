package progdetector

import (
	"path/filepath"
	"strings"
)

// MatchProgramInCommand reports whether programName is the leading executable
// of currentCommand, or appears as a "primary (secondary)" process label.
func MatchProgramInCommand(currentCommand, programName string) bool {
	cmd := strings.ToLower(strings.TrimSpace(currentCommand))
	name := strings.ToLower(strings.TrimSpace(programName))
	if cmd == "" || name == "" {
		return false
	}
	fields := strings.Fields(cmd)
	if len(fields) > 0 && executableName(fields[0]) == name {
		return true
	}
	return strings.Contains(cmd, name+" (") || strings.Contains(cmd, "("+name+")")
}

func executableName(token string) string {
	token = strings.ReplaceAll(token, `\`, "/")
	return filepath.Base(token)
}
