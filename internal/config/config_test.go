package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestServerConfig_ResolvedTransport(t *testing.T) {
	tests := []struct {
		name   string
		server ServerConfig
		want   Transport
	}{
		{"explicit stdio", ServerConfig{Transport: TransportStdio, URL: "http://x"}, TransportStdio},
		{"inferred stdio from command", ServerConfig{Command: "npx"}, TransportStdio},
		{"inferred http from url", ServerConfig{URL: "http://localhost:9000"}, TransportHTTP},
		{"explicit sse", ServerConfig{Transport: TransportSSE, URL: "http://localhost:9000"}, TransportSSE},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.server.ResolvedTransport(); got != tt.want {
				t.Errorf("ResolvedTransport() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestServerConfig_IsEnabled(t *testing.T) {
	var s ServerConfig
	if !s.IsEnabled() {
		t.Error("nil Enabled should default to true")
	}
	disabled := false
	s.Enabled = &disabled
	if s.IsEnabled() {
		t.Error("explicit false should stay disabled")
	}
}

func TestValidateConfigSchema(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "missing version",
			config:  &Config{Proxy: &ProxySettings{}},
			wantErr: true,
		},
		{
			name:    "missing proxy",
			config:  &Config{Version: "1.0.0"},
			wantErr: true,
		},
		{
			name: "valid empty servers",
			config: &Config{
				Version: "1.0.0",
				Proxy:   &ProxySettings{},
				Servers: map[string]*ServerConfig{},
			},
			wantErr: false,
		},
		{
			name: "server with both command and url",
			config: &Config{
				Version: "1.0.0",
				Proxy:   &ProxySettings{},
				Servers: map[string]*ServerConfig{
					"bad": {Command: "npx", URL: "http://localhost"},
				},
			},
			wantErr: true,
		},
		{
			name: "server with neither command nor url",
			config: &Config{
				Version: "1.0.0",
				Proxy:   &ProxySettings{},
				Servers: map[string]*ServerConfig{
					"bad": {},
				},
			},
			wantErr: true,
		},
		{
			name: "non url-safe server name",
			config: &Config{
				Version: "1.0.0",
				Proxy:   &ProxySettings{},
				Servers: map[string]*ServerConfig{
					"bad name": {Command: "npx"},
				},
			},
			wantErr: true,
		},
		{
			name: "valid stdio server",
			config: &Config{
				Version: "1.0.0",
				Proxy:   &ProxySettings{},
				Servers: map[string]*ServerConfig{
					"echo": {Command: "npx", Args: []string{"echo-server"}},
				},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateConfigSchema(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateConfigSchema() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateConfigForServer_RequiresAtLeastOneServer(t *testing.T) {
	cfg := DefaultConfig()
	if err := ValidateConfigForServer(cfg); err == nil {
		t.Error("expected error for empty server map")
	}

	cfg.AddServer("echo", &ServerConfig{Command: "npx"})
	if err := ValidateConfigForServer(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadSaveConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := DefaultConfig()
	cfg.AddServer("echo", &ServerConfig{Command: "npx", Args: []string{"srv"}})

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	loaded, err := LoadConfigFromPath(path)
	if err != nil {
		t.Fatalf("LoadConfigFromPath: %v", err)
	}
	if !loaded.HasServer("echo") {
		t.Error("expected loaded config to retain the echo server")
	}
}

func TestGetSubstitutedHeaders(t *testing.T) {
	t.Setenv("MCPHUB_TEST_TOKEN", "secret123")
	s := ServerConfig{Headers: map[string]string{"Authorization": "Bearer ${MCPHUB_TEST_TOKEN}"}}
	got := s.GetSubstitutedHeaders()
	if got["Authorization"] != "Bearer secret123" {
		t.Errorf("GetSubstitutedHeaders() = %v", got)
	}
}

func TestResolvedMaxConcurrentConnections_EnvOverride(t *testing.T) {
	p := &ProxySettings{MaxConcurrentConnections: 5}
	if p.ResolvedMaxConcurrentConnections() != 5 {
		t.Fatal("expected configured value without env override")
	}
	t.Setenv(MaxConcurrentConnectionsEnv, "3")
	if p.ResolvedMaxConcurrentConnections() != 3 {
		t.Fatal("expected env override to take precedence")
	}
}
