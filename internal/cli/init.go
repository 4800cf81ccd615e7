// Package cli provides all CLI commands mcphub offers, including init,
// stdio, server, logs, config, and all of their sub-commands.
package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	mcphubinternal "github.com/mcphub/mcphub/internal"
	"github.com/mcphub/mcphub/internal/auth"
	"github.com/mcphub/mcphub/internal/config"
	"github.com/urfave/cli/v3"
)

// InitOption represents the user's choice for initialization method.
type InitOption int

const (
	// InitOptionEmpty creates an empty config with no servers.
	InitOptionEmpty InitOption = iota
	// InitOptionQuickstart creates a ready-to-run config with a default MCP server.
	InitOptionQuickstart
	// InitOptionFromPath imports servers from an existing MCP client config file.
	InitOptionFromPath
)

// InitUI provides user interface functions for the init command.
type InitUI struct {
	reader *bufio.Reader
}

// NewInitUI creates a new init UI interface.
func NewInitUI() *InitUI {
	return &InitUI{
		reader: bufio.NewReader(os.Stdin),
	}
}

// promptInitOption asks the user how they want to initialize mcphub.
func (ui *InitUI) promptInitOption() (InitOption, error) {
	fmt.Printf("\nWelcome to mcphub!\n\n")
	fmt.Printf("How would you like to initialize your configuration?\n\n")
	fmt.Printf("  [1] Start fresh (empty config)\n")
	fmt.Printf("  [2] Quickstart (sequential-thinking, requires npx)\n")
	fmt.Printf("  [3] Import downstream servers from an existing MCP client config file\n\n")
	fmt.Printf("Choice [1/2/3]: ")

	response, err := ui.reader.ReadString('\n')
	if err != nil {
		return InitOptionEmpty, fmt.Errorf("failed to read input: %w", err)
	}

	response = strings.TrimSpace(response)

	switch response {
	case "1":
		return InitOptionEmpty, nil
	case "2":
		return InitOptionQuickstart, nil
	case "3":
		return InitOptionFromPath, nil
	default:
		fmt.Printf("Invalid choice '%s'. Using empty config.\n", response)
		return InitOptionEmpty, nil
	}
}

// promptConfigPath asks the user for a config file path.
func (ui *InitUI) promptConfigPath() (string, error) {
	fmt.Printf("\nEnter the path to your MCP client config file: ")

	response, err := ui.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	path := strings.TrimSpace(response)
	if path == "" {
		return "", fmt.Errorf("no path provided")
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return "", fmt.Errorf("file does not exist: %s", path)
	}

	return path, nil
}

// importedClientConfig is the common `{"mcpServers": {...}}` shape used by
// Claude Desktop, Cursor, and VS Code's mcp.json.
type importedClientConfig struct {
	MCPServers map[string]importedServerEntry `json:"mcpServers"`
	Servers    map[string]importedServerEntry `json:"servers"`
}

type importedServerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Env     map[string]string `json:"env"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Type    string            `json:"type"`
}

// importFromPath reads an existing MCP client config file and merges its
// downstream server entries into cfg.Servers, in the ServerConfig shape.
// This only reads the one file the user names, not a host-machine scan.
//
//nolint:gosec // G304: path is user-provided intentionally for config import
func importFromPath(cfg *config.Config, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read file: %w", err)
	}

	var parsed importedClientConfig
	if err := json.Unmarshal(data, &parsed); err != nil {
		return 0, fmt.Errorf("failed to parse config: %w", err)
	}

	entries := parsed.MCPServers
	if len(entries) == 0 {
		entries = parsed.Servers
	}
	if len(entries) == 0 {
		fmt.Printf("no servers found in %s\n", path)
		return 0, nil
	}

	fmt.Printf("found %d server(s) in %s\n", len(entries), path)

	imported := 0
	for name, entry := range entries {
		if cfg.HasServer(name) {
			continue
		}
		transport := config.TransportStdio
		if entry.URL != "" {
			transport = config.TransportHTTP
			if entry.Type == "sse" {
				transport = config.TransportSSE
			}
		}
		cfg.AddServer(name, &config.ServerConfig{
			Name:        name,
			Transport:   transport,
			Command:     entry.Command,
			Args:        entry.Args,
			Env:         entry.Env,
			URL:         entry.URL,
			Headers:     entry.Headers,
			Description: fmt.Sprintf("imported from %s", path),
			Source:      path,
		})
		imported++
	}
	fmt.Printf("imported %d server(s)\n", imported)

	return imported, nil
}

// InitCommand initializes a new mcphub setup with default configuration.
var InitCommand = &cli.Command{
	Name:        "init",
	Usage:       "Initialize mcphub with default configuration",
	Description: "Creates ~/.mcphub/config.json with default settings and guides initial setup",
	Action:      initMcphub,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "force",
			Aliases: []string{"f"},
			Usage:   "Overwrite existing configuration if it exists",
		},
		&cli.BoolFlag{
			Name:    "no-discovery",
			Aliases: []string{"n"},
			Usage:   "Start with an empty configuration, skipping interactive prompts",
		},
		&cli.StringFlag{
			Name:    "from-path",
			Aliases: []string{"p"},
			Usage:   "Import downstream servers from an existing MCP client config file",
		},
		&cli.BoolFlag{
			Name:  "quickstart",
			Usage: "Create a ready-to-run config (requires npx)",
		},
	},
}

// handleInteractiveInit prompts the user for initialization method and performs import.
func handleInteractiveInit(cfg *config.Config, ui *InitUI) (int, bool, error) {
	option, err := ui.promptInitOption()
	if err != nil {
		fmt.Printf("%v. Starting with empty config.\n", err)
		return 0, false, nil
	}

	switch option {
	case InitOptionEmpty:
		return 0, false, nil
	case InitOptionQuickstart:
		if _, err := exec.LookPath("npx"); err != nil {
			return 0, false, fmt.Errorf("quickstart requires npx to be installed and available on PATH")
		}
		applyQuickstartConfig(cfg)
		return 1, true, nil
	case InitOptionFromPath:
		path, pathErr := ui.promptConfigPath()
		if pathErr != nil {
			fmt.Printf("%v.\n\nStarting with empty config.\n", pathErr)
			return 0, false, nil
		}
		imported, importErr := importFromPath(cfg, path)
		if importErr != nil {
			fmt.Printf("%v.\n\nStarting with empty config.\n", importErr)
			return 0, false, nil
		}
		return imported, false, nil
	default:
		return 0, false, nil
	}
}

// initMcphub initializes the mcphub configuration and provides setup
// guidance. This is the main entry point for new users to get started.
func initMcphub(_ context.Context, cmd *cli.Command) error {
	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to determine config path: %w", err)
	}

	if !cmd.Bool("force") {
		if _, err := config.LoadConfig(); err == nil {
			fmt.Printf("configuration already exists at %s\n", configPath)
			fmt.Printf("use 'mcphub config show' to view current configuration\n")
			fmt.Printf("use 'mcphub init --force' to overwrite existing configuration\n")
			return nil
		}
	}

	cfg := config.DefaultConfig()

	var imported int
	quickstart := cmd.Bool("quickstart")
	ui := NewInitUI()

	switch {
	case quickstart:
		if _, err := exec.LookPath("npx"); err != nil {
			return fmt.Errorf("quickstart requires npx to be installed and available on PATH")
		}
		applyQuickstartConfig(cfg)
		imported = 1
	case cmd.Bool("no-discovery"):
		imported = 0
	case cmd.String("from-path") != "":
		var importErr error
		imported, importErr = importFromPath(cfg, cmd.String("from-path"))
		if importErr != nil {
			return fmt.Errorf("failed to import from path: %w", importErr)
		}
	default:
		var usedQuickstart bool
		var interactiveErr error
		imported, usedQuickstart, interactiveErr = handleInteractiveInit(cfg, ui)
		if interactiveErr != nil {
			return interactiveErr
		}
		if usedQuickstart {
			quickstart = true
		}
	}

	if err := config.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to create configuration: %w", err)
	}

	if quickstart {
		apiKey, err := createDefaultAPIKey()
		if err != nil {
			return err
		}
		printQuickstartSummary(configPath, cfg, apiKey)
		return nil
	}

	fmt.Printf("\nmcphub initialized successfully!\n")
	fmt.Printf("configuration created at: %s\n\n", configPath)

	fmt.Printf("next steps:\n")
	if imported == 0 {
		fmt.Printf("  1. Add downstream MCP servers:\n")
		fmt.Printf("     mcphub config server add --name \"my-server\" --command \"npx\" --args \"-y,@upstash/context7-mcp,--api-key,YOUR_KEY\"\n\n")
	}
	fmt.Printf("  2. Create an API key:\n")
	fmt.Printf("     mcphub server get-key\n\n")
	fmt.Printf("  3. Start the server:\n")
	fmt.Printf("     mcphub server start\n\n")
	fmt.Printf("  4. Configure your MCP client to use mcphub:\n")
	fmt.Printf(`
    {
        "mcpServers": {
            "mcphub": {
                "url": "http://localhost:8080/mcp",
                "headers": {
                    "X-Mcphub-Auth": <your api key - see step 2>
                }
            }
        }
    }

`)

	fmt.Printf("use 'mcphub config --help' for more configuration options\n")
	fmt.Printf("Press enter to continue")

	_, _ = ui.reader.ReadString('\n')

	if err := mcphubinternal.SetupShellCompletion(); err != nil {
		fmt.Printf("shell completion setup failed: %v\n", err)
		fmt.Printf("you can set it up manually later using: mcphub completion <shell>\n")
	}

	return nil
}

func applyQuickstartConfig(cfg *config.Config) {
	enabled := true
	cfg.AddServer("sequential-thinking", &config.ServerConfig{
		Name:        "sequential-thinking",
		Transport:   config.TransportStdio,
		Command:     "npx",
		Args:        []string{"-y", "@modelcontextprotocol/server-sequential-thinking"},
		Enabled:     &enabled,
		Description: "Sequential thinking MCP server (via npx)",
	})
}

func createDefaultAPIKey() (string, error) {
	key, err := auth.GenerateAPIKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate api key: %w", err)
	}
	entry, err := auth.NewAPIKeyEntry(key)
	if err != nil {
		return "", fmt.Errorf("failed to create api key entry: %w", err)
	}
	path, err := auth.DefaultAPIKeysPath()
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key path: %w", err)
	}
	if _, err := auth.AppendAPIKey(path, entry); err != nil {
		return "", fmt.Errorf("failed to persist api key: %w", err)
	}
	return key, nil
}

func printQuickstartSummary(configPath string, cfg *config.Config, apiKey string) {
	host := cfg.Proxy.Host
	if host == "" {
		host = config.DefaultProxyHost
	}
	endpoint := fmt.Sprintf("http://%s:%s/mcp", host, cfg.Proxy.Port)
	authHeader := cfg.GetAuthHeader()

	fmt.Printf("\nquickstart configuration initialized\n")
	fmt.Printf("configuration created at: %s\n", configPath)
	fmt.Printf("API key: %s\n\n", apiKey)

	fmt.Println("MCP client config snippets:")
	fmt.Println("Claude Desktop / Cursor / Zed (mcpServers):")
	fmt.Printf(`{
  "mcpServers": {
    "mcphub": {
      "url": "%s",
      "headers": {
        "%s": "%s"
      }
    }
  }
}
`, endpoint, authHeader, apiKey)
	fmt.Println("\nVS Code (mcp.json):")
	fmt.Printf(`{
  "servers": {
    "mcphub": {
      "type": "http",
      "url": "%s",
      "headers": {
        "%s": "%s"
      }
    }
  }
}
`, endpoint, authHeader, apiKey)
	fmt.Println("\ncopy the above snippets into your MCP client settings and start mcphub by running 'mcphub server start'.")
}
