package connection

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mcphub/mcphub/internal/config"
)

// selfIdentity mirrors exactly what selfReferenceMatch derives internally,
// so tests can construct configs that are known to match or not match the
// running test binary without any injection seam into the function itself.
func selfIdentity(t *testing.T) (path, name string) {
	t.Helper()
	p, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable: %v", err)
	}
	p, err = filepath.EvalSymlinks(p)
	if err != nil {
		t.Fatalf("filepath.EvalSymlinks: %v", err)
	}
	return p, filepath.Base(p)
}

func TestSelfReferenceMatch_NonStdioNeverGuarded(t *testing.T) {
	_, selfName := selfIdentity(t)

	cfg := &config.ServerConfig{
		Transport: config.TransportHTTP,
		Command:   selfName,
		URL:       "http://localhost:8080",
	}
	if _, matched := selfReferenceMatch(cfg); matched {
		t.Fatalf("http transport must never be guarded, even with a self-matching Command")
	}

	cfg = &config.ServerConfig{
		Transport: config.TransportSSE,
		Command:   selfName,
		URL:       "http://localhost:8080/sse",
	}
	if _, matched := selfReferenceMatch(cfg); matched {
		t.Fatalf("sse transport must never be guarded, even with a self-matching Command")
	}
}

func TestSelfReferenceMatch_EmptyCommandNeverMatches(t *testing.T) {
	cfg := &config.ServerConfig{Transport: config.TransportStdio}
	if _, matched := selfReferenceMatch(cfg); matched {
		t.Fatalf("empty Command must never match")
	}
}

func TestSelfReferenceMatch_UnrelatedCommandDoesNotMatch(t *testing.T) {
	cfg := &config.ServerConfig{
		Transport: config.TransportStdio,
		Command:   "some-unrelated-downstream-server",
		Args:      []string{"--flag", "value"},
	}
	if reason, matched := selfReferenceMatch(cfg); matched {
		t.Fatalf("unrelated command matched unexpectedly: %s", reason)
	}
}

// Rule (a): the stdio command is, or ends with, this process's own binary name.
func TestSelfReferenceMatch_BinaryNameMatch(t *testing.T) {
	selfPath, selfName := selfIdentity(t)

	cfg := &config.ServerConfig{
		Transport: config.TransportStdio,
		Command:   selfName,
	}
	reason, matched := selfReferenceMatch(cfg)
	if !matched {
		t.Fatalf("expected Command=%q to match this process's own binary name", selfName)
	}
	if reason == "" {
		t.Fatalf("expected a non-empty reason on match")
	}

	cfg = &config.ServerConfig{
		Transport: config.TransportStdio,
		Command:   selfPath,
	}
	if _, matched := selfReferenceMatch(cfg); !matched {
		t.Fatalf("expected Command=%q (full self path) to match via HasSuffix", selfPath)
	}

	cfg = &config.ServerConfig{
		Transport: config.TransportStdio,
		Command:   filepath.Join("some", "other", "dir", selfName),
	}
	if _, matched := selfReferenceMatch(cfg); !matched {
		t.Fatalf("expected a differently-rooted path ending in %q to match via HasSuffix", selfName)
	}
}

// Rule (b): a package manager invocation naming this process's package
// identifier among its arguments.
func TestSelfReferenceMatch_PackageManagerInvocation(t *testing.T) {
	_, selfName := selfIdentity(t)
	selfModule := selfName
	if ext := filepath.Ext(selfName); ext != "" {
		selfModule = selfName[:len(selfName)-len(ext)]
	}

	cfg := &config.ServerConfig{
		Transport: config.TransportStdio,
		Command:   "npx",
		Args:      []string{"-y", selfModule},
	}
	reason, matched := selfReferenceMatch(cfg)
	if !matched {
		t.Fatalf("expected npx invocation naming %q to match", selfModule)
	}
	if reason == "" {
		t.Fatalf("expected a non-empty reason on match")
	}

	cfg = &config.ServerConfig{
		Transport: config.TransportStdio,
		Command:   "uvx",
		Args:      []string{"@scope/" + selfModule},
	}
	if _, matched := selfReferenceMatch(cfg); !matched {
		t.Fatalf("expected uvx invocation whose arg contains %q to match", selfModule)
	}

	cfg = &config.ServerConfig{
		Transport: config.TransportStdio,
		Command:   "npx",
		Args:      []string{"-y", "some-other-completely-unrelated-package"},
	}
	if _, matched := selfReferenceMatch(cfg); matched {
		t.Fatalf("package manager invocation naming an unrelated package must not match")
	}
}

// Rule (c): a generic interpreter invocation whose argument resolves to
// this process's own entry file.
func TestSelfReferenceMatch_GenericInterpreterInvocation(t *testing.T) {
	selfPath, _ := selfIdentity(t)

	cfg := &config.ServerConfig{
		Transport: config.TransportStdio,
		Command:   "node",
		Args:      []string{"--max-old-space-size=4096", selfPath},
	}
	reason, matched := selfReferenceMatch(cfg)
	if !matched {
		t.Fatalf("expected interpreter invocation resolving to %q to match", selfPath)
	}
	if reason == "" {
		t.Fatalf("expected a non-empty reason on match")
	}

	cfg = &config.ServerConfig{
		Transport: config.TransportStdio,
		Command:   "python3",
		Args:      []string{"/some/other/unrelated/script.py"},
	}
	if _, matched := selfReferenceMatch(cfg); matched {
		t.Fatalf("interpreter invocation resolving to an unrelated file must not match")
	}
}
