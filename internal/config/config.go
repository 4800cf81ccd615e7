// Package config provides configuration ingress for mcphub: downstream
// server descriptors, proxy-level settings, discovery/connection tuning,
// and the optional call-processing chain.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/mcphub/mcphub/internal/common"
)

// ProcessorType defines the type of processor, e.g. cli, webhook, internal, etc.
type ProcessorType string

const (
	// CLIProcessor represents the type of a CLI-based processor -> "cli".
	CLIProcessor ProcessorType = "cli"
)

// Transport identifies how the manager reaches a downstream server.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportHTTP  Transport = "http"
	TransportSSE   Transport = "sse"
)

// DefaultAuthHeader is the default header name for front-end API key auth.
const DefaultAuthHeader = "X-Mcphub-Auth"

// DefaultProxyHost is the default bind address for the front-end server.
const DefaultProxyHost = "127.0.0.1"

// MaxConcurrentConnectionsEnv overrides ProxySettings.MaxConcurrentConnections.
const MaxConcurrentConnectionsEnv = "MCPHUB_MAX_CONCURRENT_CONNECTIONS"

// Config is the root configuration object, stored at ~/.mcphub/config.json
// (or config.yaml). It holds every downstream server descriptor, proxy-level
// settings, discovery/connection tuning, and the processor chain.
type Config struct {
	Name        string                   `json:"name" yaml:"name"`
	Version     string                   `json:"version" yaml:"version"`
	AuthEnabled *bool                    `json:"auth,omitempty" yaml:"auth,omitempty"`
	AuthHeader  string                   `json:"authHeader,omitempty" yaml:"authHeader,omitempty"`
	Proxy       *ProxySettings           `json:"proxy,omitempty" yaml:"proxy,omitempty"`
	Discovery   *DiscoverySettings       `json:"discovery,omitempty" yaml:"discovery,omitempty"`
	Servers     map[string]*ServerConfig `json:"servers" yaml:"servers"`
	Processors  []*ProcessorConfig       `json:"processors,omitempty" yaml:"processors,omitempty"`
	Metadata    map[string]interface{}   `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// IsAuthEnabled returns true when auth is enabled or unset.
func (c *Config) IsAuthEnabled() bool {
	if c == nil || c.AuthEnabled == nil {
		return true
	}
	return *c.AuthEnabled
}

// GetAuthHeader returns the configured auth header name or the default.
func (c *Config) GetAuthHeader() string {
	if c == nil || c.AuthHeader == "" {
		return DefaultAuthHeader
	}
	return c.AuthHeader
}

// ListEnabledServers returns the subset of configured servers that are
// enabled, keyed by name.
func (c *Config) ListEnabledServers() map[string]*ServerConfig {
	out := make(map[string]*ServerConfig)
	for name, server := range c.Servers {
		if server.IsEnabled() {
			out[name] = server
		}
	}
	return out
}

// AddServer registers (or overwrites) a server under name.
func (c *Config) AddServer(name string, server *ServerConfig) {
	if c.Servers == nil {
		c.Servers = make(map[string]*ServerConfig)
	}
	c.Servers[name] = server
}

// RemoveServer removes the server identified by name, if present.
func (c *Config) RemoveServer(name string) {
	delete(c.Servers, name)
}

// HasServer reports whether a server with the given name is configured.
func (c *Config) HasServer(name string) bool {
	_, ok := c.Servers[name]
	return ok
}

// ServerConfig is a single downstream MCP server descriptor: a unique
// name, a transport variant, and variant-specific fields. The variant
// tag is authoritative; when absent it is inferred from
// whether Command or URL is set, for backward-compatible JSON.
type ServerConfig struct {
	Name        string                 `json:"name" yaml:"name"`
	Transport   Transport              `json:"transport,omitempty" yaml:"transport,omitempty"`
	Command     string                 `json:"command,omitempty" yaml:"command,omitempty"`
	Args        []string               `json:"args,omitempty" yaml:"args,omitempty"`
	Env         map[string]string      `json:"env,omitempty" yaml:"env,omitempty"`
	URL         string                 `json:"url,omitempty" yaml:"url,omitempty"`
	Headers     map[string]string      `json:"headers,omitempty" yaml:"headers,omitempty"`
	Enabled     *bool                  `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Source      string                 `json:"source,omitempty" yaml:"source,omitempty"`
	Config      map[string]interface{} `json:"config,omitempty" yaml:"config,omitempty"`
}

// IsEnabled returns true if the server is either explicitly enabled or the
// flag is unset (nil).
func (s *ServerConfig) IsEnabled() bool {
	if s.Enabled == nil {
		return true
	}
	return *s.Enabled
}

// ResolvedTransport returns the effective transport variant, inferring it
// from Command/URL when the Transport field was left unset.
func (s *ServerConfig) ResolvedTransport() Transport {
	if s.Transport != "" {
		return s.Transport
	}
	if s.Command != "" {
		return TransportStdio
	}
	return TransportHTTP
}

// GetSubstitutedHeaders returns headers with environment variables
// substituted. Supports both ${VAR_NAME} and $VAR_NAME syntax.
func (s *ServerConfig) GetSubstitutedHeaders() map[string]string {
	if s.Headers == nil {
		return make(map[string]string)
	}
	result := make(map[string]string, len(s.Headers))
	for key, value := range s.Headers {
		result[key] = os.Expand(value, os.Getenv)
	}
	return result
}

// ProxySettings contains front-end server settings: bind address, log
// level/file, request timeout, and connection-manager tuning.
type ProxySettings struct {
	Host                     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port                     string `json:"port,omitempty" yaml:"port,omitempty"`
	Transport                string `json:"transport,omitempty" yaml:"transport,omitempty"` // "http" or "stdio"
	LogLevel                 string `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	LogFile                  string `json:"logFile,omitempty" yaml:"logFile,omitempty"`
	Timeout                  int    `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	MaxConcurrentConnections int    `json:"maxConcurrentConnections,omitempty" yaml:"maxConcurrentConnections,omitempty"`
	LegacyCombinedMode       bool   `json:"legacyCombinedMode,omitempty" yaml:"legacyCombinedMode,omitempty"`
	SecureToolsetValidation  *bool  `json:"secureToolsetValidation,omitempty" yaml:"secureToolsetValidation,omitempty"`
}

// ResolvedMaxConcurrentConnections applies the MCPHUB_MAX_CONCURRENT_CONNECTIONS
// environment override, falling back to the configured value (default 10).
func (p *ProxySettings) ResolvedMaxConcurrentConnections() int {
	if v := os.Getenv(MaxConcurrentConnectionsEnv); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	if p != nil && p.MaxConcurrentConnections > 0 {
		return p.MaxConcurrentConnections
	}
	return 10
}

// IsSecureToolsetValidation returns true (secure mode) unless explicitly
// disabled.
func (p *ProxySettings) IsSecureToolsetValidation() bool {
	if p == nil || p.SecureToolsetValidation == nil {
		return true
	}
	return *p.SecureToolsetValidation
}

// NewDefaultProxySettings creates a new ProxySettings with default values.
func NewDefaultProxySettings() ProxySettings {
	return ProxySettings{
		Host:                     DefaultProxyHost,
		Port:                     "8080",
		Transport:                "http",
		Timeout:                  30,
		LogLevel:                 "info",
		MaxConcurrentConnections: 10,
	}
}

// DiscoverySettings configures the Tool Discovery Engine.
type DiscoverySettings struct {
	CacheTTLSeconds     int    `json:"cacheTtlSeconds,omitempty" yaml:"cacheTtlSeconds,omitempty"`
	RefreshIntervalSecs int    `json:"refreshIntervalSeconds,omitempty" yaml:"refreshIntervalSeconds,omitempty"`
	AutoDiscovery       *bool  `json:"autoDiscovery,omitempty" yaml:"autoDiscovery,omitempty"`
	NamespaceSeparator  string `json:"namespaceSeparator,omitempty" yaml:"namespaceSeparator,omitempty"`
	MaxToolsPerServer   int    `json:"maxToolsPerServer,omitempty" yaml:"maxToolsPerServer,omitempty"`
	ConflictPolicy      string `json:"conflictPolicy,omitempty" yaml:"conflictPolicy,omitempty"` // namespace-always | prefix-server | error
	EnableMetrics       bool   `json:"enableMetrics,omitempty" yaml:"enableMetrics,omitempty"`
}

// NewDefaultDiscoverySettings returns the Tool Discovery Engine's defaults.
func NewDefaultDiscoverySettings() *DiscoverySettings {
	autoDiscovery := true
	return &DiscoverySettings{
		CacheTTLSeconds:     300,
		RefreshIntervalSecs: 30,
		AutoDiscovery:       &autoDiscovery,
		NamespaceSeparator:  ".",
		MaxToolsPerServer:   0, // 0 = unlimited
		ConflictPolicy:      "namespace-always",
		EnableMetrics:       true,
	}
}

// IsAutoDiscoveryEnabled returns true (enabled) unless explicitly disabled.
func (d *DiscoverySettings) IsAutoDiscoveryEnabled() bool {
	if d == nil || d.AutoDiscovery == nil {
		return true
	}
	return *d.AutoDiscovery
}

//////// PROCESSOR CONFIG STRUCTS ///////

// ProcessorConfig defines a single processor that executes during MCP
// request/response flow. Processors are composable units that can inspect,
// modify, or reject MCP messages around the Router's route_call.
type ProcessorConfig struct {
	Name    string                 `json:"name" yaml:"name"`
	Type    string                 `json:"type" yaml:"type"`
	Enabled bool                   `json:"enabled" yaml:"enabled"`
	Timeout int                    `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	Config  map[string]interface{} `json:"config" yaml:"config"`
}

// ProcessorInput represents the JSON input passed to processors via stdin.
type ProcessorInput struct {
	Type       string                 `json:"type"`
	Timestamp  string                 `json:"timestamp"`
	Connection ConnectionContext      `json:"connection"`
	Payload    map[string]interface{} `json:"payload"`
	Metadata   ProcessorMetadata      `json:"metadata"`
}

// ConnectionContext provides connection-level metadata for processors.
type ConnectionContext struct {
	ServerName     string `json:"server_name"`
	Transport      string `json:"transport"`
	SessionID      string `json:"session_id"`
	ToolName       string `json:"tool_name,omitempty"`
	NamespacedName string `json:"namespaced_name,omitempty"`
	RefID          string `json:"ref_id,omitempty"`
}

// ProcessorMetadata contains additional context for processor execution.
type ProcessorMetadata struct {
	ProcessorChain  []string               `json:"processor_chain"`
	OriginalPayload map[string]interface{} `json:"original_payload"`
}

// ProcessorOutput represents the JSON output expected from processors via stdout.
type ProcessorOutput struct {
	Status   int                    `json:"status"`
	Payload  map[string]interface{} `json:"payload"`
	Error    *string                `json:"error"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	authEnabled := true
	proxySettings := NewDefaultProxySettings()
	return &Config{
		Name:        "mcphub",
		Version:     "1.0.0",
		AuthEnabled: &authEnabled,
		AuthHeader:  DefaultAuthHeader,
		Proxy:       &proxySettings,
		Discovery:   NewDefaultDiscoverySettings(),
		Servers:     make(map[string]*ServerConfig),
		Processors:  []*ProcessorConfig{},
		Metadata:    make(map[string]interface{}),
	}
}

// GetConfigDir returns the mcphub config directory path.
func GetConfigDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".mcphub"), nil
}

// GetConfigPath returns the full path to config.json.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.json"), nil
}

// EnsureConfigDir creates the config directory if it doesn't exist.
func EnsureConfigDir() error {
	configDir, err := GetConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(configDir, 0o750)
}

// LoadConfig loads the global configuration from ~/.mcphub/config.json.
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFromPath(configPath)
}

// LoadConfigFromPath loads configuration from a custom JSON file path.
// The configuration is validated after loading.
func LoadConfigFromPath(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: configuration file not found at %s", common.ErrConfiguration, path)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", common.ErrConfiguration, err)
	}

	if err := ValidateConfigSchema(&cfg); err != nil {
		return nil, fmt.Errorf("%w: invalid configuration: %v", common.ErrConfiguration, err)
	}

	return &cfg, nil
}

// LoadConfigYAML loads configuration from a YAML file path, for tooling
// that prefers YAML over the native JSON format.
func LoadConfigYAML(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: configuration file not found at %s", common.ErrConfiguration, path)
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", common.ErrConfiguration, err)
	}

	if err := ValidateConfigSchema(&cfg); err != nil {
		return nil, fmt.Errorf("%w: invalid configuration: %v", common.ErrConfiguration, err)
	}

	return &cfg, nil
}

// SaveConfig saves the configuration to ~/.mcphub/config.json.
func SaveConfig(config *Config) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	//nolint:gosec // We are writing a file without sensitive data.
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfigYAML saves the configuration as YAML to the given path.
func SaveConfigYAML(config *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	//nolint:gosec // We are writing a file without sensitive data.
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ValidateConfigSchema performs basic schema validation: required fields
// and per-server/per-processor structural checks. Allows an empty server
// map (for fresh configs awaiting `mcphub config server add`).
func ValidateConfigSchema(config *Config) error {
	if config.Version == "" {
		return fmt.Errorf("version field is required")
	}
	if config.Proxy == nil {
		return fmt.Errorf("proxy settings are required in config")
	}
	for name, server := range config.Servers {
		if err := validateServer(name, server); err != nil {
			return err
		}
	}
	if err := validateProcessors(config.Processors); err != nil {
		return err
	}
	return nil
}

// ValidateConfigForServer validates the config is ready for the front-end
// server to start: at least one downstream must be configured.
func ValidateConfigForServer(config *Config) error {
	if len(config.Servers) == 0 {
		return fmt.Errorf("no servers configured; add at least one MCP server before starting")
	}
	return nil
}

// ValidateConfig performs full validation including operational requirements.
func ValidateConfig(config *Config) error {
	if err := ValidateConfigSchema(config); err != nil {
		return err
	}
	return ValidateConfigForServer(config)
}

func isValidHTTPURL(urlStr string) bool {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return false
	}
	return (parsedURL.Scheme == "http" || parsedURL.Scheme == "https") && parsedURL.Host != ""
}

func validateServer(name string, server *ServerConfig) error {
	if !common.IsURLCompliant(name) {
		return fmt.Errorf("server '%s': name must be URL-safe (alphanumeric, dash, underscore only)", name)
	}

	hasCommand := server.Command != ""
	hasURL := server.URL != ""

	if !hasCommand && !hasURL {
		return fmt.Errorf("server '%s': must specify either 'command' (stdio transport) or 'url' (http/sse transport)", name)
	}
	if hasCommand && hasURL {
		return fmt.Errorf("server '%s': cannot specify both 'command' and 'url' - choose either stdio or http/sse transport", name)
	}
	if hasURL && !isValidHTTPURL(server.URL) {
		return fmt.Errorf("server '%s': invalid URL format - must be a valid http:// or https:// URL", name)
	}
	for headerKey, headerValue := range server.Headers {
		if headerKey == "" {
			return fmt.Errorf("server '%s': header keys cannot be empty", name)
		}
		if headerValue == "" {
			return fmt.Errorf("server '%s': header '%s' has empty value", name, headerKey)
		}
	}
	switch server.ResolvedTransport() {
	case TransportStdio, TransportHTTP, TransportSSE:
	default:
		return fmt.Errorf("server '%s': unsupported transport '%s'", name, server.Transport)
	}
	return nil
}

func validateProcessors(processors []*ProcessorConfig) error {
	processorNames := make(map[string]bool)
	for i, processor := range processors {
		if err := validateProcessor(i, processor, processorNames); err != nil {
			return err
		}
	}
	return nil
}

func validateProcessor(index int, processor *ProcessorConfig, processorNames map[string]bool) error {
	if processor.Name == "" {
		return fmt.Errorf("processor[%d]: name is required", index)
	}
	if processorNames[processor.Name] {
		return fmt.Errorf("processor '%s': duplicate processor name", processor.Name)
	}
	processorNames[processor.Name] = true

	if processor.Type == "" {
		return fmt.Errorf("processor '%s': type is required", processor.Name)
	}
	if ProcessorType(processor.Type) != CLIProcessor {
		return fmt.Errorf("processor '%s': unsupported type '%s' (v1 only supports 'cli')", processor.Name, processor.Type)
	}
	if processor.Timeout == 0 {
		processor.Timeout = 15
	}
	if processor.Config == nil {
		return fmt.Errorf("processor '%s': config is required", processor.Name)
	}
	return validateProcessorTypeConfig(processor)
}

func validateProcessorTypeConfig(processor *ProcessorConfig) error {
	//nolint:gocritic // switch used for future extensibility with additional processor types
	switch ProcessorType(processor.Type) {
	case CLIProcessor:
		command, ok := processor.Config["command"]
		if !ok {
			return fmt.Errorf("processor '%s': config.command is required for cli type", processor.Name)
		}
		if _, ok := command.(string); !ok {
			return fmt.Errorf("processor '%s': config.command must be a string", processor.Name)
		}
		if args, exists := processor.Config["args"]; exists {
			if _, ok := args.([]interface{}); !ok {
				return fmt.Errorf("processor '%s': config.args must be an array", processor.Name)
			}
		}
	}
	return nil
}
