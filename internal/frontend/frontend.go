// Package frontend implements the Front-end MCP Server / Mode Controller:
// it terminates the inbound protocol connection, publishes the tool list
// for the current mode, dispatches calls, and emits list_changed. A single
// shared *mcp.Server is used throughout, rather than one per downstream
// session, since only two pieces of state are truly process-wide: the
// mode and the active-toolset pointer.
package frontend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcphub/mcphub/internal/auth"
	"github.com/mcphub/mcphub/internal/common"
	"github.com/mcphub/mcphub/internal/discovery"
	"github.com/mcphub/mcphub/internal/logging"
	"github.com/mcphub/mcphub/internal/toolset"
)

// toolsetManager is the subset of *toolset.Manager the Front-end depends
// on, narrowed the way router.toolResolver narrows *discovery.Engine.
type toolsetManager interface {
	GetToolsForExposure() []*mcp.Tool
	ResolveOriginal(flattenedName string) (string, bool)
	HasActive() bool
	ActiveInfo() (*toolset.ActiveInfo, bool)
	ListSaved() ([]*toolset.ToolsetConfig, error)
	Build(name string, refs []toolset.ToolReference, description string) (*toolset.ToolsetConfig, error)
	Equip(name string) error
	Unequip()
	Delete(name string, confirm bool) error
	AddToolAnnotation(ref toolset.ToolReference, notes []toolset.ToolNote) error
	On(handler func(toolset.ChangedEvent))
}

// catalogReader is the subset of *discovery.Engine the Front-end's
// list-available-tools administrative tool depends on.
type catalogReader interface {
	AvailableTools(connectedOnly bool) []*discovery.DiscoveredTool
}

// callRouter is the subset of *router.Router the Front-end depends on for
// non-administrative dispatch.
type callRouter interface {
	RouteCall(ctx context.Context, name string, arguments map[string]any) (*mcp.CallToolResult, error)
}

// Frontend owns the single shared *mcp.Server, the mode state, and the
// tool-registration bookkeeping needed to keep that server's exposed tool
// list in sync with mode and toolset changes.
type Frontend struct {
	mu     sync.Mutex
	server *mcp.Server

	name       string
	registered map[string]bool // tool names currently AddTool'd on server

	mode     *ModeState
	toolsets toolsetManager
	catalog  catalogReader
	router   callRouter
	logger   *logging.Logger
}

// Options configures a Frontend.
type Options struct {
	Name           string
	LegacyCombined bool
}

// New constructs a Frontend, determines the initial mode from the
// Toolset Manager's restored active-toolset state, performs the initial
// tool sync, and subscribes to toolset_changed so that future equip/
// unequip/update events keep the exposed list current.
func New(opts Options, toolsets toolsetManager, catalog catalogReader, router callRouter, logger *logging.Logger) *Frontend {
	f := &Frontend{
		name:       opts.Name,
		registered: make(map[string]bool),
		mode:       NewModeState(opts.LegacyCombined, toolsets.HasActive()),
		toolsets:   toolsets,
		catalog:    catalog,
		router:     router,
		logger:     logger,
	}
	f.server = f.newMcpServer()
	toolsets.On(func(ev toolset.ChangedEvent) {
		f.notifyListChanged()
	})
	f.notifyListChanged()
	return f
}

// newMcpServer constructs the underlying *mcp.Server.
func (f *Frontend) newMcpServer() *mcp.Server {
	return mcp.NewServer(&mcp.Implementation{
		Name:    "mcphub-" + f.name,
		Version: "1.0.0",
	}, &mcp.ServerOptions{
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: true},
		},
	})
}

// GetServerForRequest returns the shared *mcp.Server for every inbound
// HTTP session: mode and active toolset are process-wide, not
// session-scoped, so every session is served from the same *mcp.Server
// instance instead of one vended per Mcp-Session-Id.
func (f *Frontend) GetServerForRequest(r *http.Request) *mcp.Server {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.server
}

// Server returns the shared *mcp.Server, for the stdio entrypoint.
func (f *Frontend) Server() *mcp.Server {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.server
}

// Mode returns the Front-end's ModeState.
func (f *Frontend) Mode() *ModeState {
	return f.mode
}

// notifyListChanged recomputes the desired exposed tool set for the
// current mode and reconciles it against what's currently registered on
// the shared server, adding and removing tools as needed. Together with
// the toolset_changed subscription above, this is the single funnel both
// toolset changes and the Mode Controller's own transitions go through.
func (f *Frontend) notifyListChanged() {
	f.mu.Lock()
	defer f.mu.Unlock()

	desired := f.desiredToolsLocked()

	for name := range f.registered {
		if _, ok := desired[name]; !ok {
			f.server.RemoveTool(name)
			delete(f.registered, name)
		}
	}
	for name, tool := range desired {
		f.server.AddTool(tool, f.handlerFor(name))
		f.registered[name] = true
	}
}

// desiredToolsLocked computes the tool set for the current mode. Caller
// holds f.mu.
func (f *Frontend) desiredToolsLocked() map[string]*mcp.Tool {
	out := make(map[string]*mcp.Tool)

	switch f.mode.Current() {
	case ModeConfiguration:
		for _, t := range administrativeTools() {
			out[t.Name] = t
		}
	case ModeNormal:
		for _, t := range f.toolsets.GetToolsForExposure() {
			out[t.Name] = t
		}
		enter := enterConfigurationTool()
		out[enter.Name] = enter
	case ModeLegacyCombined:
		for _, t := range baseAdministrativeTools() {
			out[t.Name] = t
		}
		for _, t := range f.toolsets.GetToolsForExposure() {
			out[t.Name] = t
		}
	}
	return out
}

// handlerFor returns the tool handler for one exposed tool name:
// administrative names dispatch in-process, everything else is
// translated back to original_name and routed.
func (f *Frontend) handlerFor(name string) func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if isAdministrativeTool(name) {
		return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return f.dispatchAdministrative(ctx, name, req)
		}
	}
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return f.dispatchToolCall(ctx, name, req)
	}
}

// dispatchToolCall handles a non-administrative call: translate the
// (possibly flattened) exposed name back to the downstream original_name
// via the Toolset Manager, then route it.
func (f *Frontend) dispatchToolCall(ctx context.Context, exposedName string, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if f.router == nil {
		return nil, fmt.Errorf("%w: router not initialized", common.ErrServiceUnavailable)
	}

	original, ok := f.toolsets.ResolveOriginal(exposedName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", common.ErrToolNotFound, exposedName)
	}

	var args map[string]any
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidParameters, err)
	}

	start := time.Now()
	result, err := f.router.RouteCall(ctx, original, args)
	if f.logger != nil {
		f.logSystemEvent(fmt.Sprintf("routed %s -> %s in %s (err=%v)", exposedName, original, time.Since(start), err))
	}
	return result, err
}

func (f *Frontend) logSystemEvent(message string) {
	ev := common.NewMCPSystemEvent("frontend").WithRawMessage(message)
	if err := f.logger.LogMcpEvent(ev); err != nil {
		common.LogError(err.Error())
	}
}

// RegisterHandler wires the shared server behind an HTTP endpoint,
// optionally behind an API-key middleware reused from internal/auth.
func RegisterHandler(endpoint string, f *Frontend, mux *http.ServeMux, keys *auth.APIKeyStore, authHeader string, options *mcp.StreamableHTTPOptions) {
	if options == nil {
		options = &mcp.StreamableHTTPOptions{
			SessionTimeout: 10 * time.Minute,
			Stateless:      false,
		}
	}
	base := mcp.NewStreamableHTTPHandler(f.GetServerForRequest, options)

	var handler http.Handler = base
	if keys != nil {
		handler = apiKeyMiddleware(keys, authHeader, handler)
	}

	mux.Handle(endpoint, handler)
	common.LogInfo("mcphub: registered front-end handler at %s", endpoint)
}
