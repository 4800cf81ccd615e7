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
	"os"

	"github.com/urfave/cli/v3"
)

// StdioCommand serves the front-end's aggregated tool set over this
// process's own stdin/stdout, for MCP clients that only speak stdio
// (e.g. launching mcphub as a subprocess from an editor integration).
var StdioCommand = &cli.Command{
	Name:  "stdio",
	Usage: "mcphub stdio [--config-path <path>]",
	Description: `Serve the aggregated front-end over stdio.

Connects every configured downstream MCP server, discovers their tools, and
serves the same mode-aware, toolset-backed tool list as "mcphub server
start" does over HTTP, but over this process's stdin/stdout instead.

Configuration is loaded from ~/.mcphub/config.json by default.`,
	Action: handleStdioCommand,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "config-path",
			Usage: "Path to config file (default: ~/.mcphub/config.json)",
		},
	},
}

// handleStdioCommand handles the stdio front-end command.
func handleStdioCommand(ctx context.Context, cmd *cli.Command) error {
	sys, err := buildSystem(ctx, cmd.String("config-path"))
	if err != nil {
		return err
	}
	defer sys.Close()

	fmt.Fprintf(os.Stderr, "[MCPHUB] Serving aggregated front-end over stdio (mode: %s)\n", sys.frontend.Mode().Current())

	if err := sys.frontend.ServeStdio(ctx); err != nil {
		return fmt.Errorf("stdio front-end exited: %w", err)
	}
	return nil
}
