package discovery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcphub/mcphub/internal/config"
	"github.com/mcphub/mcphub/internal/connection"
)

// fakeLister backs the Engine in tests without a real downstream process.
type fakeLister struct {
	sessions map[string]*connection.Session
	tools    map[string][]*mcp.Tool
}

func (f *fakeLister) All() map[string]*connection.Session { return f.sessions }
func (f *fakeLister) Get(name string) *connection.Session { return f.sessions[name] }

func noopHandler(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "ok"}}}, nil
}

// TestEngine_DiscoverClassifiesAddedUpdatedRemoved exercises the full
// reconcile path against a real, live *connection.Session — a
// *connection.Manager dialing a real MCP server over streamable HTTP — since
// the Engine's sessionLister narrows to the concrete *connection.Session
// type and has no fake-session seam. Rename drift across discovery passes is
// what reconcile classifies as remove-then-add, not update.
func TestEngine_DiscoverClassifiesAddedUpdatedRemoved(t *testing.T) {
	srv := mcp.NewServer(&mcp.Implementation{Name: "mock-downstream", Version: "1.0.0"}, nil)
	srv.AddTool(&mcp.Tool{Name: "get_forecast", Description: "v1", InputSchema: map[string]any{"type": "object"}}, noopHandler)
	srv.AddTool(&mcp.Tool{Name: "get_alerts", Description: "alerts", InputSchema: map[string]any{"type": "object"}}, noopHandler)

	handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server { return srv }, nil)
	ts := httptest.NewServer(handler)
	defer ts.Close()

	mgr := connection.NewManager(5, nil)
	mgr.Initialize(map[string]*config.ServerConfig{
		"weather": {Name: "weather", Transport: config.TransportHTTP, URL: ts.URL},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := mgr.Start(ctx, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer mgr.Stop()
	if !mgr.IsConnected("weather") {
		t.Fatal("expected the mock downstream to be connected")
	}

	e := NewEngine(mgr, Options{}, nil)

	var events []ToolsChangedEvent
	e.On(func(ev ToolsChangedEvent) { events = append(events, ev) })

	if err := e.Discover(ctx, "weather"); err != nil {
		t.Fatalf("initial Discover: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event from the initial pass, got %d", len(events))
	}
	sort.Strings(events[0].Added)
	wantInitial := []string{"weather.get_alerts", "weather.get_forecast"}
	if !equalStrings(events[0].Added, wantInitial) {
		t.Fatalf("initial pass Added = %v, want %v", events[0].Added, wantInitial)
	}
	if len(events[0].Updated) != 0 || len(events[0].Removed) != 0 {
		t.Fatalf("initial pass must report only additions, got %+v", events[0])
	}

	// Second pass: "get_alerts" is removed, "get_forecast"'s description
	// changes (update), and a new "get_warnings" tool is added. Renaming a
	// tool is indistinguishable from a remove+add of two different
	// original_names, which is the documented classification for rename
	// drift between passes.
	srv.RemoveTool("get_alerts")
	srv.RemoveTool("get_forecast")
	srv.AddTool(&mcp.Tool{Name: "get_forecast", Description: "v2", InputSchema: map[string]any{"type": "object"}}, noopHandler)
	srv.AddTool(&mcp.Tool{Name: "get_warnings", Description: "warnings", InputSchema: map[string]any{"type": "object"}}, noopHandler)

	events = nil
	if err := e.Discover(ctx, "weather"); err != nil {
		t.Fatalf("second Discover: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one event from the second pass, got %d", len(events))
	}

	ev := events[0]
	if !equalStrings(ev.Added, []string{"weather.get_warnings"}) {
		t.Fatalf("second pass Added = %v, want [weather.get_warnings]", ev.Added)
	}
	if !equalStrings(ev.Updated, []string{"weather.get_forecast"}) {
		t.Fatalf("second pass Updated = %v, want [weather.get_forecast]", ev.Updated)
	}
	if !equalStrings(ev.Removed, []string{"weather.get_alerts"}) {
		t.Fatalf("second pass Removed = %v, want [weather.get_alerts]", ev.Removed)
	}

	tools := e.AvailableTools(false)
	names := make([]string, 0, len(tools))
	for _, tl := range tools {
		names = append(names, tl.NamespacedName)
	}
	sort.Strings(names)
	want := []string{"weather.get_forecast", "weather.get_warnings"}
	if !equalStrings(names, want) {
		t.Fatalf("cache after second pass = %v, want %v", names, want)
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	sort.Strings(a)
	sort.Strings(b)
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNamespacedName(t *testing.T) {
	tests := []struct {
		policy ConflictPolicy
		want   string
	}{
		{ConflictNamespaceAlways, "weather.get_forecast"},
		{ConflictPrefixServer, "weather_get_forecast"},
		{ConflictError, "weather.get_forecast"},
	}
	for _, tt := range tests {
		if got := namespacedName(tt.policy, ".", "weather", "get_forecast"); got != tt.want {
			t.Errorf("namespacedName(%s) = %q, want %q", tt.policy, got, tt.want)
		}
	}
}

func TestEngine_GetByNameFallsBackToOriginalNameWhenUnambiguous(t *testing.T) {
	e := NewEngine(&fakeLister{sessions: map[string]*connection.Session{}}, Options{}, nil)
	now := time.Now()
	e.cache["weather.forecast"] = &cacheEntry{
		tool:      newDiscoveredTool("weather", "forecast", "weather.forecast", "", nil, now),
		expiresAt: now.Add(time.Minute),
	}

	tool, ok := e.GetByName("forecast")
	if !ok || tool.NamespacedName != "weather.forecast" {
		t.Fatalf("expected unambiguous original_name fallback to resolve, got %+v ok=%v", tool, ok)
	}

	e.cache["radar.forecast"] = &cacheEntry{
		tool:      newDiscoveredTool("radar", "forecast", "radar.forecast", "", nil, now),
		expiresAt: now.Add(time.Minute),
	}
	if _, ok := e.GetByName("forecast"); ok {
		t.Fatal("expected ambiguous original_name fallback to fail")
	}
}

func TestEngine_ClearRemovesServerEntriesOnly(t *testing.T) {
	e := NewEngine(&fakeLister{sessions: map[string]*connection.Session{}}, Options{}, nil)
	now := time.Now()
	e.cache["a.t1"] = &cacheEntry{tool: newDiscoveredTool("a", "t1", "a.t1", "", nil, now), expiresAt: now.Add(time.Minute)}
	e.cache["b.t1"] = &cacheEntry{tool: newDiscoveredTool("b", "t1", "b.t1", "", nil, now), expiresAt: now.Add(time.Minute)}
	e.previous["a"] = map[string]*DiscoveredTool{"t1": e.cache["a.t1"].tool}
	e.previous["b"] = map[string]*DiscoveredTool{"t1": e.cache["b.t1"].tool}

	e.Clear("a")

	if _, ok := e.cache["a.t1"]; ok {
		t.Error("expected server a's cache entries to be purged")
	}
	if _, ok := e.cache["b.t1"]; !ok {
		t.Error("expected server b's cache entries to remain")
	}
}

func TestEngine_DiscoverOnDisconnectedServerClearsCache(t *testing.T) {
	e := NewEngine(&fakeLister{sessions: map[string]*connection.Session{}}, Options{}, nil)
	now := time.Now()
	e.cache["ghost.t1"] = &cacheEntry{tool: newDiscoveredTool("ghost", "t1", "ghost.t1", "", nil, now), expiresAt: now.Add(time.Minute)}
	e.previous["ghost"] = map[string]*DiscoveredTool{"t1": e.cache["ghost.t1"].tool}

	err := e.Discover(context.Background(), "ghost")
	if err == nil {
		t.Fatal("expected error discovering an unknown/disconnected server")
	}
	if _, ok := e.cache["ghost.t1"]; ok {
		t.Error("expected cache to be cleared for a server with no live Session")
	}
}
