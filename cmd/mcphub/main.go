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

package main

import (
	"context"
	"log"
	"os"

	"github.com/mcphub/mcphub/internal/cli"
	"github.com/mcphub/mcphub/internal/config"
	urfavecli "github.com/urfave/cli/v3"
)

// version is set by build flags during release.
var version = "dev"

func main() {
	app := &urfavecli.Command{
		Name:                  "mcphub",
		Description:           "Aggregate multiple MCP servers behind a single mode-aware front-end.",
		Usage:                 "mcphub init",
		Version:               version,
		EnableShellCompletion: true,
		Commands: []*urfavecli.Command{
			cli.InitCommand,
			cli.ServerCommand,
			cli.StdioCommand,
			cli.DaemonCommand,
			cli.AuthCommand,
			cli.LogsCommand,
			cli.ProcessorCommand,
			config.ConfigCommand,
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
