package config

import (
	"context"
	"os"
	"testing"

	"github.com/urfave/cli/v3"
)

// newTestCommand builds a *cli.Command carrying exactly the flags the
// command actions under test read via cmd.String/cmd.Bool/cmd.StringSlice,
// pre-populated with the given values.
func newTestCommand(t *testing.T, flags []cli.Flag, values map[string]string) *cli.Command {
	t.Helper()
	cmd := &cli.Command{Name: "test", Flags: flags}
	for name, value := range values {
		if err := cmd.Set(name, value); err != nil {
			t.Fatalf("cmd.Set(%s, %s): %v", name, value, err)
		}
	}
	return cmd
}

func isolateHome(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
}

func addServerCommand() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "name"},
		&cli.StringFlag{Name: "command"},
		&cli.StringFlag{Name: "url"},
		&cli.StringFlag{Name: "transport"},
		&cli.StringSliceFlag{Name: "args"},
		&cli.StringFlag{Name: "description"},
		&cli.BoolFlag{Name: "enabled", Value: true},
	}
}

func TestAddServer(t *testing.T) {
	isolateHome(t)
	if err := initConfig(context.Background(), newTestCommand(t, nil, nil)); err != nil {
		t.Fatalf("initConfig: %v", err)
	}

	cmd := newTestCommand(t, addServerCommand(), map[string]string{
		"name":        "weather",
		"command":     "npx",
		"transport":   "stdio",
		"description": "weather lookups",
	})
	if err := addServer(context.Background(), cmd); err != nil {
		t.Fatalf("addServer: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	server, ok := cfg.Servers["weather"]
	if !ok {
		t.Fatal("expected server 'weather' to be present after addServer")
	}
	if server.Command != "npx" || server.Transport != TransportStdio {
		t.Errorf("unexpected server config: %+v", server)
	}
	if !server.IsEnabled() {
		t.Error("expected server to be enabled by default")
	}
}

func TestAddServer_RejectsDuplicateName(t *testing.T) {
	isolateHome(t)
	if err := initConfig(context.Background(), newTestCommand(t, nil, nil)); err != nil {
		t.Fatalf("initConfig: %v", err)
	}

	cmd := newTestCommand(t, addServerCommand(), map[string]string{"name": "weather", "command": "npx"})
	if err := addServer(context.Background(), cmd); err != nil {
		t.Fatalf("first addServer: %v", err)
	}
	if err := addServer(context.Background(), cmd); err == nil {
		t.Fatal("expected an error re-adding an existing server name")
	}
}

func TestRemoveServer(t *testing.T) {
	isolateHome(t)
	if err := initConfig(context.Background(), newTestCommand(t, nil, nil)); err != nil {
		t.Fatalf("initConfig: %v", err)
	}
	addCmd := newTestCommand(t, addServerCommand(), map[string]string{"name": "weather", "command": "npx"})
	if err := addServer(context.Background(), addCmd); err != nil {
		t.Fatalf("addServer: %v", err)
	}

	removeCmd := newTestCommand(t, []cli.Flag{&cli.StringFlag{Name: "name"}}, map[string]string{"name": "weather"})
	if err := removeServer(context.Background(), removeCmd); err != nil {
		t.Fatalf("removeServer: %v", err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HasServer("weather") {
		t.Fatal("expected server 'weather' to be removed")
	}
}

func TestRemoveServer_UnknownNameErrors(t *testing.T) {
	isolateHome(t)
	if err := initConfig(context.Background(), newTestCommand(t, nil, nil)); err != nil {
		t.Fatalf("initConfig: %v", err)
	}

	removeCmd := newTestCommand(t, []cli.Flag{&cli.StringFlag{Name: "name"}}, map[string]string{"name": "ghost"})
	if err := removeServer(context.Background(), removeCmd); err == nil {
		t.Fatal("expected an error removing a server that doesn't exist")
	}
}

func TestEnableDisableServer(t *testing.T) {
	isolateHome(t)
	if err := initConfig(context.Background(), newTestCommand(t, nil, nil)); err != nil {
		t.Fatalf("initConfig: %v", err)
	}
	addCmd := newTestCommand(t, addServerCommand(), map[string]string{"name": "weather", "command": "npx"})
	if err := addServer(context.Background(), addCmd); err != nil {
		t.Fatalf("addServer: %v", err)
	}

	nameCmd := func(name string) *cli.Command {
		return newTestCommand(t, []cli.Flag{&cli.StringFlag{Name: "name"}}, map[string]string{"name": name})
	}

	if err := disableServer(context.Background(), nameCmd("weather")); err != nil {
		t.Fatalf("disableServer: %v", err)
	}
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Servers["weather"].IsEnabled() {
		t.Fatal("expected server to be disabled")
	}

	if err := enableServer(context.Background(), nameCmd("weather")); err != nil {
		t.Fatalf("enableServer: %v", err)
	}
	cfg, err = LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Servers["weather"].IsEnabled() {
		t.Fatal("expected server to be re-enabled")
	}
}

func TestToggleServer_UnknownNameErrors(t *testing.T) {
	isolateHome(t)
	if err := initConfig(context.Background(), newTestCommand(t, nil, nil)); err != nil {
		t.Fatalf("initConfig: %v", err)
	}
	if err := toggleServer("ghost", true); err == nil {
		t.Fatal("expected an error toggling a server that doesn't exist")
	}
}

func TestInitConfig(t *testing.T) {
	isolateHome(t)
	if err := initConfig(context.Background(), newTestCommand(t, nil, nil)); err != nil {
		t.Fatalf("initConfig: %v", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		t.Fatalf("GetConfigPath: %v", err)
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		t.Fatalf("expected config file at %s", configPath)
	}

	// A second call against an existing file must fail rather than silently
	// overwrite it.
	if err := initConfig(context.Background(), newTestCommand(t, nil, nil)); err == nil {
		t.Fatal("expected initConfig to refuse to overwrite an existing configuration")
	}
}

func TestShowConfig(t *testing.T) {
	isolateHome(t)
	if err := initConfig(context.Background(), newTestCommand(t, nil, nil)); err != nil {
		t.Fatalf("initConfig: %v", err)
	}

	cmd := newTestCommand(t, []cli.Flag{&cli.BoolFlag{Name: "json"}}, nil)
	if err := showConfig(context.Background(), cmd); err != nil {
		t.Fatalf("showConfig (text): %v", err)
	}

	jsonCmd := newTestCommand(t, []cli.Flag{&cli.BoolFlag{Name: "json"}}, map[string]string{"json": "true"})
	if err := showConfig(context.Background(), jsonCmd); err != nil {
		t.Fatalf("showConfig (json): %v", err)
	}
}

func TestShowConfig_MissingConfigErrors(t *testing.T) {
	isolateHome(t)
	if err := showConfig(context.Background(), newTestCommand(t, []cli.Flag{&cli.BoolFlag{Name: "json"}}, nil)); err == nil {
		t.Fatal("expected an error showing a configuration that was never initialized")
	}
}

func TestValidateConfig(t *testing.T) {
	isolateHome(t)
	if err := initConfig(context.Background(), newTestCommand(t, nil, nil)); err != nil {
		t.Fatalf("initConfig: %v", err)
	}

	// A freshly initialized config has no servers yet, which
	// ValidateConfigForServer rejects.
	if err := validateConfig(context.Background(), newTestCommand(t, nil, nil)); err == nil {
		t.Fatal("expected validateConfig to reject a config with no servers")
	}

	addCmd := newTestCommand(t, addServerCommand(), map[string]string{"name": "weather", "command": "npx"})
	if err := addServer(context.Background(), addCmd); err != nil {
		t.Fatalf("addServer: %v", err)
	}
	if err := validateConfig(context.Background(), newTestCommand(t, nil, nil)); err != nil {
		t.Fatalf("validateConfig after adding a server: %v", err)
	}
}

func TestListServers(t *testing.T) {
	isolateHome(t)
	if err := initConfig(context.Background(), newTestCommand(t, nil, nil)); err != nil {
		t.Fatalf("initConfig: %v", err)
	}

	emptyCmd := newTestCommand(t, []cli.Flag{&cli.BoolFlag{Name: "enabled-only"}}, nil)
	if err := listServers(context.Background(), emptyCmd); err != nil {
		t.Fatalf("listServers on an empty config: %v", err)
	}

	addCmd := newTestCommand(t, addServerCommand(), map[string]string{"name": "weather", "command": "npx"})
	if err := addServer(context.Background(), addCmd); err != nil {
		t.Fatalf("addServer: %v", err)
	}

	listCmd := newTestCommand(t, []cli.Flag{&cli.BoolFlag{Name: "enabled-only"}}, nil)
	if err := listServers(context.Background(), listCmd); err != nil {
		t.Fatalf("listServers with a configured server: %v", err)
	}
}

func TestRemoveConfig_Force(t *testing.T) {
	isolateHome(t)
	if err := initConfig(context.Background(), newTestCommand(t, nil, nil)); err != nil {
		t.Fatalf("initConfig: %v", err)
	}

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir: %v", err)
	}

	cmd := newTestCommand(t, []cli.Flag{&cli.BoolFlag{Name: "force"}}, map[string]string{"force": "true"})
	if err := removeConfig(context.Background(), cmd); err != nil {
		t.Fatalf("removeConfig: %v", err)
	}

	if _, err := os.Stat(configDir); !os.IsNotExist(err) {
		t.Fatalf("expected config directory %s to be removed", configDir)
	}
}

func TestRemoveConfig_MissingIsNoop(t *testing.T) {
	isolateHome(t)
	cmd := newTestCommand(t, []cli.Flag{&cli.BoolFlag{Name: "force"}}, map[string]string{"force": "true"})
	if err := removeConfig(context.Background(), cmd); err != nil {
		t.Fatalf("removeConfig on an already-absent config dir should be a no-op: %v", err)
	}
}
