package frontend

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServeStdio runs the Front-end's shared *mcp.Server over the process's
// own stdin/stdout, for `mcphub stdio`. It hosts the *aggregated*
// server built by New (mode-aware, toolset-backed) instead of piping raw
// bytes through to a single downstream process.
func (f *Frontend) ServeStdio(ctx context.Context) error {
	server := f.Server()
	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcphub: stdio front-end exited: %w", err)
	}
	return nil
}
