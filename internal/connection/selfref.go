package connection

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mcphub/mcphub/internal/config"
)

// packageManagers invoke an installed package by name among their args
// rather than as the command itself (npx, uvx, pipx, bunx and similar).
var packageManagers = map[string]bool{
	"npx":  true,
	"uvx":  true,
	"pipx": true,
	"bunx": true,
	"pnpx": true,
}

// genericInterpreters accept a script/module path as one of their args.
var genericInterpreters = map[string]bool{
	"node":    true,
	"python":  true,
	"python3": true,
	"bun":     true,
	"deno":    true,
	"ruby":    true,
}

// selfReferenceMatch reports whether cfg's stdio command would launch this
// process itself, checking three pattern rules. Non-stdio transports are
// never guarded. Only the stdio branch is checked: a server configured
// over http/sse cannot recurse into this process by definition of the
// transport.
func selfReferenceMatch(cfg *config.ServerConfig) (reason string, matched bool) {
	if cfg == nil || cfg.ResolvedTransport() != config.TransportStdio || cfg.Command == "" {
		return "", false
	}

	selfPath, err := os.Executable()
	if err != nil {
		return "", false
	}
	selfPath, err = filepath.EvalSymlinks(selfPath)
	if err != nil {
		return "", false
	}
	selfName := filepath.Base(selfPath)

	cmdBase := filepath.Base(cfg.Command)

	// (a) stdio command equal to or ending with the process's own binary name.
	if cmdBase == selfName || strings.HasSuffix(cfg.Command, selfName) {
		return "command matches this process's own binary name", true
	}

	// (b) package manager invocation naming this process's package identifier.
	if packageManagers[cmdBase] {
		selfModule := strings.TrimSuffix(selfName, filepath.Ext(selfName))
		for _, arg := range cfg.Args {
			if arg == selfModule || strings.Contains(arg, selfModule) {
				return "package manager invocation references this process's package identifier", true
			}
		}
	}

	// (c) generic interpreter invocation whose path resolves to this
	// process's own entry file.
	if genericInterpreters[cmdBase] {
		for _, arg := range cfg.Args {
			if strings.HasPrefix(arg, "-") {
				continue
			}
			resolved, err := filepath.Abs(arg)
			if err != nil {
				continue
			}
			if resolved == selfPath {
				return "interpreter invocation resolves to this process's own entry file", true
			}
		}
	}

	return "", false
}
