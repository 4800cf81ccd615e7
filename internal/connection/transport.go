package connection

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcphub/mcphub/internal/config"
)

// transport declares only open. The other per-server operations
// (list_tools, call_tool, ping, close) are methods on Session, which works
// over whichever mcp.Transport newTransport builds; the Manager is
// transport-agnostic above Session.
type transport interface {
	open(ctx context.Context) (*mcp.ClientSession, error)
}

// newTransport builds the mcp.Transport for a server's configured variant:
// a three-way switch on the explicit transport tag (stdio, http, sse).
func newTransport(serverName string, cfg *config.ServerConfig, authHeaders map[string]string) (mcp.Transport, error) {
	switch cfg.ResolvedTransport() {
	case config.TransportStdio:
		if cfg.Command == "" {
			return nil, fmt.Errorf("server %s: stdio transport requires command", serverName)
		}
		cmd := exec.Command(cfg.Command, cfg.Args...)
		for k, v := range cfg.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
		return &mcp.CommandTransport{Command: cmd}, nil

	case config.TransportHTTP:
		if cfg.URL == "" {
			return nil, fmt.Errorf("server %s: http transport requires url", serverName)
		}
		httpClient := &http.Client{
			Transport: HeaderRoundTripper{Headers: mergeHeaders(cfg.GetSubstitutedHeaders(), authHeaders)},
			Timeout:   30 * time.Second,
		}
		return &mcp.StreamableClientTransport{
			Endpoint:   cfg.URL,
			HTTPClient: httpClient,
		}, nil

	case config.TransportSSE:
		if cfg.URL == "" {
			return nil, fmt.Errorf("server %s: sse transport requires url", serverName)
		}
		httpClient := &http.Client{
			Transport: HeaderRoundTripper{Headers: mergeHeaders(cfg.GetSubstitutedHeaders(), authHeaders)},
			Timeout:   30 * time.Second,
		}
		return &mcp.SSEClientTransport{
			Endpoint:   cfg.URL,
			HTTPClient: httpClient,
		}, nil

	default:
		return nil, fmt.Errorf("server %s: unsupported transport %q", serverName, cfg.Transport)
	}
}

// HeaderRoundTripper injects static and passthrough-auth headers onto
// every outbound request.
type HeaderRoundTripper struct {
	Base    http.RoundTripper
	Headers map[string]string
}

func (rt HeaderRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	base := rt.Base
	if base == nil {
		base = http.DefaultTransport
	}
	cloned := req.Clone(req.Context())
	for k, v := range rt.Headers {
		cloned.Header.Set(k, v)
	}
	return base.RoundTrip(cloned)
}

func mergeHeaders(base, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v // auth headers override static config headers
	}
	return merged
}
