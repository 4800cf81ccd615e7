package config

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
)

// ConfigCommand provides configuration management subcommands for the
// mcphub CLI: initialization, validation, and server management.
var ConfigCommand = &cli.Command{
	Name:        "config",
	Usage:       "Manage mcphub configuration",
	Description: "Commands to manage the global mcphub configuration at ~/.mcphub/config.json",
	Commands: []*cli.Command{
		configInitCommand,
		configShowCommand,
		configValidateCommand,
		configRemoveCommand,
		configServerCommand,
	},
}

var configInitCommand = &cli.Command{
	Name:        "init",
	Usage:       "Initialize configuration with defaults",
	Description: "Creates ~/.mcphub/config.json with default settings if it doesn't exist",
	Action:      initConfig,
}

var configShowCommand = &cli.Command{
	Name:        "show",
	Usage:       "Display current configuration",
	Description: "Shows the current configuration from ~/.mcphub/config.json",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Output as JSON",
		},
	},
	Action: showConfig,
}

var configValidateCommand = &cli.Command{
	Name:        "validate",
	Usage:       "Validate configuration file",
	Description: "Validates the syntax and content of ~/.mcphub/config.json",
	Action:      validateConfig,
}

var configRemoveCommand = &cli.Command{
	Name:        "remove",
	Usage:       "Remove configuration file",
	Description: "Removes ~/.mcphub/config.json and the entire ~/.mcphub directory",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "force",
			Aliases: []string{"f"},
			Usage:   "Skip confirmation prompt",
		},
	},
	Action: removeConfig,
}

var configServerCommand = &cli.Command{
	Name:        "server",
	Usage:       "Manage downstream MCP servers",
	Description: "Add, remove, and configure downstream MCP servers",
	Commands: []*cli.Command{
		{
			Name:        "list",
			Usage:       "List all configured servers",
			Description: "Display all MCP servers in the configuration",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:    "enabled-only",
					Aliases: []string{"e"},
					Usage:   "Show only enabled servers",
				},
			},
			Action: listServers,
		},
		{
			Name:        "add",
			Usage:       "Add a new server",
			Description: "Add a new downstream MCP server configuration",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Usage:    "Server name",
					Required: true,
				},
				&cli.StringFlag{
					Name:    "command",
					Aliases: []string{"c"},
					Usage:   "Server command (stdio transport)",
				},
				&cli.StringFlag{
					Name:    "url",
					Aliases: []string{"u"},
					Usage:   "Server URL (http/sse transport)",
				},
				&cli.StringFlag{
					Name:  "transport",
					Usage: "Transport variant: stdio, http, or sse",
				},
				&cli.StringSliceFlag{
					Name:    "args",
					Aliases: []string{"a"},
					Usage:   "Command arguments",
				},
				&cli.StringFlag{
					Name:    "description",
					Aliases: []string{"d"},
					Usage:   "Server description",
				},
				&cli.BoolFlag{
					Name:  "enabled",
					Usage: "Enable server",
					Value: true,
				},
			},
			Action: addServer,
		},
		{
			Name:        "remove",
			Usage:       "Remove a server",
			Description: "Remove a downstream MCP server from configuration",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Usage:    "Server name to remove",
					Required: true,
				},
			},
			Action: removeServer,
		},
		{
			Name:        "enable",
			Usage:       "Enable a server",
			Description: "Enable a downstream MCP server",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Usage:    "Server name to enable",
					Required: true,
				},
			},
			Action: enableServer,
		},
		{
			Name:        "disable",
			Usage:       "Disable a server",
			Description: "Disable a downstream MCP server",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "name",
					Aliases:  []string{"n"},
					Usage:    "Server name to disable",
					Required: true,
				},
			},
			Action: disableServer,
		},
	},
}

// initConfig initializes a new configuration file with default settings.
func initConfig(ctx context.Context, cmd *cli.Command) error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration already exists at %s", configPath)
	}

	config := DefaultConfig()
	if err := SaveConfig(config); err != nil {
		return fmt.Errorf("failed to create configuration: %w", err)
	}

	fmt.Printf("Configuration initialized at %s\n", configPath)
	return nil
}

// showConfig displays the current configuration either as formatted text
// or JSON based on the --json flag.
func showConfig(ctx context.Context, cmd *cli.Command) error {
	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cmd.Bool("json") {
		data, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	configPath, _ := GetConfigPath()
	fmt.Printf("Configuration path: %s\n", configPath)
	fmt.Printf("Version: %s\n", config.Version)
	if config.Proxy != nil {
		fmt.Printf("Transport: %s\n", config.Proxy.Transport)
		fmt.Printf("Max concurrent connections: %d\n", config.Proxy.ResolvedMaxConcurrentConnections())
	}
	fmt.Printf("Servers: %d configured\n", len(config.Servers))

	enabled := len(config.ListEnabledServers())
	fmt.Printf("  - Enabled: %d\n", enabled)
	fmt.Printf("  - Disabled: %d\n", len(config.Servers)-enabled)

	return nil
}

func validateConfig(ctx context.Context, cmd *cli.Command) error {
	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := ValidateConfig(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	configPath, _ := GetConfigPath()
	fmt.Printf("Configuration is valid: %s\n", configPath)
	return nil
}

func listServers(ctx context.Context, cmd *cli.Command) error {
	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	enabledOnly := cmd.Bool("enabled-only")

	if len(config.Servers) == 0 {
		fmt.Println("No servers configured.")
		return nil
	}

	fmt.Println("MCP Servers:")
	for name, server := range config.Servers {
		if enabledOnly && !server.IsEnabled() {
			continue
		}

		status := "enabled"
		if !server.IsEnabled() {
			status = "disabled"
		}

		fmt.Printf("  %s (%s, %s)\n", name, status, server.ResolvedTransport())
		if server.Command != "" {
			fmt.Printf("    Command: %s %v\n", server.Command, server.Args)
		}
		if server.URL != "" {
			fmt.Printf("    URL: %s\n", server.URL)
		}
		if server.Source != "" {
			fmt.Printf("    Source: %s\n", server.Source)
		}
		fmt.Println()
	}

	return nil
}

// addServer adds a new downstream MCP server configuration to the config.
func addServer(ctx context.Context, cmd *cli.Command) error {
	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	name := cmd.String("name")
	if config.HasServer(name) {
		return fmt.Errorf("server '%s' already exists", name)
	}

	enabled := cmd.Bool("enabled")
	server := &ServerConfig{
		Name:        name,
		Transport:   Transport(cmd.String("transport")),
		Command:     cmd.String("command"),
		Args:        cmd.StringSlice("args"),
		URL:         cmd.String("url"),
		Description: cmd.String("description"),
		Enabled:     &enabled,
	}

	config.AddServer(name, server)

	if err := SaveConfig(config); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("Added server '%s'\n", name)
	return nil
}

func removeServer(ctx context.Context, cmd *cli.Command) error {
	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	name := cmd.String("name")
	if !config.HasServer(name) {
		return fmt.Errorf("server '%s' not found", name)
	}

	config.RemoveServer(name)

	if err := SaveConfig(config); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("Removed server '%s'\n", name)
	return nil
}

func enableServer(ctx context.Context, cmd *cli.Command) error {
	return toggleServer(cmd.String("name"), true)
}

func disableServer(ctx context.Context, cmd *cli.Command) error {
	return toggleServer(cmd.String("name"), false)
}

func toggleServer(name string, enabled bool) error {
	config, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	server, exists := config.Servers[name]
	if !exists {
		return fmt.Errorf("server '%s' not found", name)
	}

	server.Enabled = &enabled

	if err := SaveConfig(config); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	status := "enabled"
	if !enabled {
		status = "disabled"
	}
	fmt.Printf("Server '%s' %s\n", name, status)
	return nil
}

// removeConfig removes the entire mcphub configuration.
func removeConfig(ctx context.Context, cmd *cli.Command) error {
	configDir, err := GetConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}

	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		fmt.Printf("No configuration found at %s\n", configDir)
		return nil
	}

	if !cmd.Bool("force") {
		reader := bufio.NewReader(os.Stdin)
		fmt.Printf("This will permanently remove your mcphub configuration at:\n")
		fmt.Printf("   %s\n", configDir)
		fmt.Printf("This action cannot be undone. Continue? [y/N]: ")

		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}

		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			fmt.Println("Operation cancelled")
			return nil
		}
	}

	if err := os.RemoveAll(configDir); err != nil {
		return fmt.Errorf("failed to remove configuration: %w", err)
	}

	fmt.Println("Configuration removed successfully")
	fmt.Println("Run 'mcphub init' to create a new configuration")

	return nil
}
