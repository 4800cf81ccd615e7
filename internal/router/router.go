// Package router implements the Request Router: it maps an inbound tool
// call name to a downstream Session and forwards it, keeping routing
// failures and tool-level failures distinct.
package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcphub/mcphub/internal/common"
	"github.com/mcphub/mcphub/internal/connection"
	"github.com/mcphub/mcphub/internal/discovery"
)

// DefaultCallTimeout is the per-call timeout.
const DefaultCallTimeout = 60 * time.Second

// toolResolver is the subset of *discovery.Engine the Router depends on.
type toolResolver interface {
	GetByName(name string) (*discovery.DiscoveredTool, bool)
}

// sessionSource is the subset of *connection.Manager the Router depends on.
type sessionSource interface {
	Get(name string) *connection.Session
}

// Hook runs before or after a routed call; returning an error from a
// pre-hook short-circuits the call. Narrower than internal/processor's
// Chain: a call-scoped interface instead of a raw-JSON-payload chain.
type Hook func(ctx context.Context, call *Call) error

// Call carries one route_call invocation's mutable state across hooks.
type Call struct {
	Name      string
	Arguments map[string]any

	Tool   *discovery.DiscoveredTool
	Result *mcp.CallToolResult

	RequestID string
}

// Options tunes a Router. The zero value leaves ValidateParameters off;
// the CLI's system wiring turns it on.
type Options struct {
	ValidateParameters bool
	CallTimeout        time.Duration
}

// Router resolves namespaced/hash tool references to a downstream Session
// and forwards tool calls.
type Router struct {
	discovery toolResolver
	sessions  sessionSource
	opts      Options

	preHooks  []Hook
	postHooks []Hook

	statsMu sync.Mutex
	global  serverStats
	byServer map[string]*serverStats
}

type serverStats struct {
	Count        int64
	Success      int64
	Failure      int64
	totalLatency time.Duration
}

// NewRouter constructs a Router over the given Discovery Engine and
// Connection Manager.
func NewRouter(discovery toolResolver, sessions sessionSource, opts Options) *Router {
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	return &Router{
		discovery: discovery,
		sessions:  sessions,
		opts:      opts,
		byServer:  make(map[string]*serverStats),
	}
}

// UsePreHook registers a hook run before the downstream call.
func (r *Router) UsePreHook(h Hook) { r.preHooks = append(r.preHooks, h) }

// UsePostHook registers a hook run after a successful downstream call.
func (r *Router) UsePostHook(h Hook) { r.postHooks = append(r.postHooks, h) }

// RouteCall resolves the tool, validates parameters, runs pre-hooks,
// forwards the call to its downstream Session, and runs post-hooks.
func (r *Router) RouteCall(ctx context.Context, name string, arguments map[string]any) (*mcp.CallToolResult, error) {
	start := time.Now()

	// Step 1: resolve the tool.
	tool, ok := r.discovery.GetByName(name)
	if !ok {
		r.record(name, start, false)
		return nil, fmt.Errorf("%w: %s", common.ErrToolNotFound, name)
	}

	// Step 2: the owning Session must be connected.
	session := r.sessions.Get(tool.ServerName)
	if session == nil || !session.IsConnected() {
		r.record(tool.ServerName, start, false)
		return nil, fmt.Errorf("%w: %s", common.ErrServerNotConnected, tool.ServerName)
	}

	// Step 3: required-field parameter validation, when enabled.
	if r.opts.ValidateParameters {
		if err := validateRequiredFields(tool.InputSchema, arguments); err != nil {
			r.record(tool.ServerName, start, false)
			return nil, fmt.Errorf("%w: %v", common.ErrInvalidParameters, err)
		}
	}

	call := &Call{Name: name, Arguments: arguments, Tool: tool}
	for _, hook := range r.preHooks {
		if err := hook(ctx, call); err != nil {
			r.record(tool.ServerName, start, false)
			return nil, err
		}
	}

	// Step 4: forward the call with a per-call timeout.
	callCtx, cancel := context.WithTimeout(ctx, r.opts.CallTimeout)
	defer cancel()

	result, err := session.CallTool(callCtx, tool.OriginalName, call.Arguments)
	if err != nil {
		r.record(tool.ServerName, start, false)
		return nil, fmt.Errorf("%w: %v", common.ErrTimeout, err)
	}

	// The downstream's tool-level failure is not a routing error: IsError
	// is bool-valued and already defaults false when the downstream omits
	// it, so the result is propagated untouched here, never coerced into
	// a protocol error.
	call.Result = result
	for _, hook := range r.postHooks {
		if err := hook(ctx, call); err != nil {
			r.record(tool.ServerName, start, false)
			return nil, err
		}
	}

	r.record(tool.ServerName, start, true)
	return call.Result, nil
}

// record updates per-server and global rolling statistics.
func (r *Router) record(serverName string, start time.Time, success bool) {
	elapsed := time.Since(start)

	r.statsMu.Lock()
	defer r.statsMu.Unlock()

	r.global.Count++
	r.global.totalLatency += elapsed
	if success {
		r.global.Success++
	} else {
		r.global.Failure++
	}

	s, ok := r.byServer[serverName]
	if !ok {
		s = &serverStats{}
		r.byServer[serverName] = s
	}
	s.Count++
	s.totalLatency += elapsed
	if success {
		s.Success++
	} else {
		s.Failure++
	}
}

// Stats is the public snapshot of a Router's rolling statistics.
type Stats struct {
	Count             int64
	Success           int64
	Failure           int64
	AverageLatencyMs  float64
}

// GlobalStats returns the Router's aggregate statistics.
func (r *Router) GlobalStats() Stats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	return toStats(&r.global)
}

// ServerStats returns per-server statistics, or the zero value if the
// server has never been routed to.
func (r *Router) ServerStats(serverName string) Stats {
	r.statsMu.Lock()
	defer r.statsMu.Unlock()
	s, ok := r.byServer[serverName]
	if !ok {
		return Stats{}
	}
	return toStats(s)
}

func toStats(s *serverStats) Stats {
	st := Stats{Count: s.Count, Success: s.Success, Failure: s.Failure}
	if s.Count > 0 {
		st.AverageLatencyMs = float64(s.totalLatency.Milliseconds()) / float64(s.Count)
	}
	return st
}
