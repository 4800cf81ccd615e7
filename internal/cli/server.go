// Copyright 2025 Centian Contributors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at.
//
//     http://www.apache.org/licenses/LICENSE-2.0.
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcphub/mcphub/internal/auth"
	"github.com/mcphub/mcphub/internal/config"
	"github.com/mcphub/mcphub/internal/frontend"
	"github.com/urfave/cli/v3"
)

// ServerCommand provides server management functionality.
var ServerCommand = &cli.Command{
	Name:  "server",
	Usage: "Manage the mcphub front-end server",
	Commands: []*cli.Command{
		ServerStartCommand,
		ServerGetKeyCommand,
	},
}

// ServerStartCommand starts the mcphub front-end server over HTTP.
var ServerStartCommand = &cli.Command{
	Name:  "start",
	Usage: "mcphub server start [--config-path <path>]",
	Description: `Start the mcphub front-end server.

Connects every configured downstream MCP server, discovers their tools, and
exposes a single aggregated endpoint at:
  /mcp

The exposed tool list depends on the current mode (configuration, normal,
or legacy-combined) and, in normal mode, the currently equipped toolset.

Configuration is loaded from ~/.mcphub/config.json by default.

Examples:
  mcphub server start
  mcphub server start --config-path ./custom-config.json
`,
	Action: handleServerStartCommand,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "config-path",
			Usage: "Path to config file (default: ~/.mcphub/config.json)",
		},
	},
}

// ServerGetKeyCommand generates and stores a new API key.
var ServerGetKeyCommand = &cli.Command{
	Name:  "get-key",
	Usage: "mcphub server get-key",
	Description: `Generate a new API key for the front-end HTTP server.

The key is printed once to the console, then hashed with bcrypt and stored in:
  ~/.mcphub/api_keys.json
`,
	Action: handleServerGetKeyCommand,
}

func printServerInfo(sys *system) {
	serverName := sys.cfg.Name
	if serverName == "" {
		serverName = "mcphub"
	}
	host := sys.cfg.Proxy.Host
	if host == "" {
		host = config.DefaultProxyHost
	}
	port := sys.cfg.Proxy.Port
	if port == "" {
		port = "8080"
	}

	fmt.Fprintf(os.Stderr, "[MCPHUB] %s\n", serverName)
	fmt.Fprintf(os.Stderr, "[MCPHUB] Starting front-end server...\n")
	fmt.Fprintf(os.Stderr, "[MCPHUB] Host: %s\n", host)
	fmt.Fprintf(os.Stderr, "[MCPHUB] Port: %s\n", port)
	fmt.Fprintf(os.Stderr, "[MCPHUB] Configured downstream servers: %d\n", len(sys.cfg.ListEnabledServers()))
	fmt.Fprintf(os.Stderr, "[MCPHUB] Mode: %s\n", sys.frontend.Mode().Current())
	fmt.Fprintf(os.Stderr, "[MCPHUB] Endpoint: http://%s:%s/mcp\n\n", host, port)
}

// handleServerStartCommand handles the server start command.
func handleServerStartCommand(ctx context.Context, cmd *cli.Command) error {
	sys, err := buildSystem(ctx, cmd.String("config-path"))
	if err != nil {
		return err
	}
	defer sys.Close()

	keys, err := loadAPIKeyStore(sys.cfg)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	frontend.RegisterHandler("/mcp", sys.frontend, mux, keys, sys.cfg.GetAuthHeader(), nil)

	host := sys.cfg.Proxy.Host
	if host == "" {
		host = config.DefaultProxyHost
	}
	port := sys.cfg.Proxy.Port
	if port == "" {
		port = "8080"
	}
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", host, port),
		Handler:      mux,
		ReadTimeout:  time.Duration(sys.cfg.Proxy.Timeout) * time.Second,
		WriteTimeout: time.Duration(sys.cfg.Proxy.Timeout) * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	printServerInfo(sys)
	if keys == nil {
		fmt.Fprintf(os.Stderr, "[MCPHUB] warning: no API keys configured, front-end auth is disabled\n")
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP front-end server error: %w", err)
		}
	}()

	fmt.Fprintf(os.Stderr, "[MCPHUB] Server started successfully\n")
	fmt.Fprintf(os.Stderr, "[MCPHUB] Press Ctrl+C to stop\n\n")

	select {
	case <-sigChan:
		fmt.Fprintf(os.Stderr, "\n[MCPHUB] Received shutdown signal, stopping server...\n")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error during shutdown: %w", err)
		}
		fmt.Fprintf(os.Stderr, "[MCPHUB] Server stopped successfully\n")
		return nil
	case err := <-errChan:
		return err
	}
}

// handleServerGetKeyCommand generates and stores a new API key.
func handleServerGetKeyCommand(_ context.Context, _ *cli.Command) error {
	path, err := auth.DefaultAPIKeysPath()
	if err != nil {
		return fmt.Errorf("failed to resolve api key path: %w", err)
	}

	key, err := auth.GenerateAPIKey()
	if err != nil {
		return err
	}

	var pErr error
	_, pErr = fmt.Fprintln(os.Stdout, "New API key (store this now, it won't be shown again):")
	if pErr != nil {
		return pErr
	}
	_, pErr = fmt.Fprintln(os.Stdout, key)
	if pErr != nil {
		return pErr
	}

	entry, err := auth.NewAPIKeyEntry(key)
	if err != nil {
		return err
	}

	if _, err := auth.AppendAPIKey(path, entry); err != nil {
		return err
	}

	_, pErr = fmt.Fprintf(os.Stdout, "Stored hashed key in %s\n", path)
	if pErr != nil {
		return pErr
	}
	return nil
}
