// Copyright 2025 CentianCLI Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
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

	"github.com/mcphub/mcphub/internal/daemon"
	"github.com/mcphub/mcphub/internal/frontend"
	"github.com/urfave/cli/v3"
)

// DaemonCommand provides daemon management functionality for the mcphub
// front-end server.
var DaemonCommand = &cli.Command{
	Name:  "daemon",
	Usage: "Manage the mcphub background server process",
	Description: `Manage a persistent mcphub front-end process.

The daemon starts the aggregated front-end server (the same process
"mcphub server start" runs) in the background and exposes a small control
plane so a separate invocation of mcphub can query its status or stop it.`,
	Commands: []*cli.Command{
		{
			Name:   "start",
			Usage:  "Start the daemon",
			Action: handleDaemonStart,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "config-path",
					Usage: "Path to config file (default: ~/.mcphub/config.json)",
				},
			},
		},
		{
			Name:   "stop",
			Usage:  "Stop the daemon",
			Action: handleDaemonStop,
		},
		{
			Name:   "status",
			Usage:  "Show daemon status",
			Action: handleDaemonStatus,
		},
		{
			Name:   "restart",
			Usage:  "Restart the daemon",
			Action: handleDaemonRestart,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "config-path",
					Usage: "Path to config file (default: ~/.mcphub/config.json)",
				},
			},
		},
	},
}

// handleDaemonStart builds the front-end system and hands its HTTP serve
// loop to the daemon for background supervision.
func handleDaemonStart(ctx context.Context, cmd *cli.Command) error {
	if daemon.IsDaemonRunning() {
		return fmt.Errorf("daemon is already running")
	}

	sys, err := buildSystem(ctx, cmd.String("config-path"))
	if err != nil {
		return err
	}

	keys, err := loadAPIKeyStore(sys.cfg)
	if err != nil {
		sys.Close()
		return err
	}

	mux := http.NewServeMux()
	frontend.RegisterHandler("/mcp", sys.frontend, mux, keys, sys.cfg.GetAuthHeader(), nil)

	host := sys.cfg.Proxy.Host
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

	d, err := daemon.NewDaemon()
	if err != nil {
		sys.Close()
		return fmt.Errorf("failed to create daemon: %w", err)
	}

	serve := func(serveCtx context.Context) error {
		defer sys.Close()
		errChan := make(chan error, 1)
		go func() {
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()
		select {
		case <-serveCtx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		case err := <-errChan:
			return err
		}
	}

	if err := d.Start(serve); err != nil {
		sys.Close()
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("[MCPHUB] daemon started, front-end listening at http://%s:%s/mcp (control port %d, PID %d)\n", host, port, d.GetPort(), os.Getpid())
	fmt.Println("[MCPHUB] press Ctrl+C to stop the daemon")

	<-sigChan
	fmt.Println("\n[MCPHUB] received shutdown signal, stopping daemon...")

	return d.Stop()
}

// handleDaemonStop stops the running daemon.
func handleDaemonStop(_ context.Context, _ *cli.Command) error {
	if !daemon.IsDaemonRunning() {
		return fmt.Errorf("daemon is not running")
	}

	client, err := daemon.NewDaemonClient()
	if err != nil {
		return fmt.Errorf("failed to create daemon client: %w", err)
	}

	response, err := client.Stop()
	if err != nil {
		return fmt.Errorf("failed to stop daemon: %w", err)
	}

	if !response.Success {
		return fmt.Errorf("daemon stop failed: %s", response.Error)
	}

	fmt.Println("daemon stopped successfully")
	return nil
}

// handleDaemonStatus shows daemon status.
func handleDaemonStatus(_ context.Context, _ *cli.Command) error {
	if !daemon.IsDaemonRunning() {
		fmt.Println("daemon: not running")
		return nil
	}

	client, err := daemon.NewDaemonClient()
	if err != nil {
		fmt.Printf("daemon: error creating client - %v\n", err)
		return nil
	}

	response, err := client.Status()
	if err != nil {
		fmt.Printf("daemon: error getting status - %v\n", err)
		return nil
	}

	if !response.Success {
		fmt.Printf("daemon: error - %s\n", response.Error)
		return nil
	}

	fmt.Println("daemon: running")
	if data := response.Data; data != nil {
		if port, ok := data["port"].(float64); ok {
			fmt.Printf("control port: %d\n", int(port))
		}
		if uptime, ok := data["uptime_secs"].(float64); ok {
			fmt.Printf("uptime: %.0fs\n", uptime)
		}
	}

	return nil
}

// handleDaemonRestart restarts the daemon.
func handleDaemonRestart(ctx context.Context, cmd *cli.Command) error {
	if daemon.IsDaemonRunning() {
		fmt.Println("stopping existing daemon...")
		if err := handleDaemonStop(ctx, cmd); err != nil {
			fmt.Printf("warning: failed to stop existing daemon: %v\n", err)
		}
	}

	fmt.Println("starting daemon...")
	return handleDaemonStart(ctx, cmd)
}
