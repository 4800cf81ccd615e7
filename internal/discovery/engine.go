package discovery

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mcphub/mcphub/internal/common"
	"github.com/mcphub/mcphub/internal/config"
	"github.com/mcphub/mcphub/internal/connection"
)

// Options configures an Engine.
type Options struct {
	CacheTTL          time.Duration
	RefreshInterval   time.Duration
	AutoDiscovery     bool
	NamespaceSeparator string
	MaxToolsPerServer int
	ConflictPolicy    ConflictPolicy
	EnableMetrics     bool
}

// OptionsFromSettings adapts a config.DiscoverySettings into engine Options.
func OptionsFromSettings(s *config.DiscoverySettings) Options {
	if s == nil {
		s = config.NewDefaultDiscoverySettings()
	}
	return Options{
		CacheTTL:           time.Duration(s.CacheTTLSeconds) * time.Second,
		RefreshInterval:    time.Duration(s.RefreshIntervalSecs) * time.Second,
		AutoDiscovery:      s.IsAutoDiscoveryEnabled(),
		NamespaceSeparator: s.NamespaceSeparator,
		MaxToolsPerServer:  s.MaxToolsPerServer,
		ConflictPolicy:     ConflictPolicy(s.ConflictPolicy),
		EnableMetrics:      s.EnableMetrics,
	}
}

// sessionLister is the subset of *connection.Manager the Engine
// depends on; narrowed here so tests can substitute a fake.
type sessionLister interface {
	All() map[string]*connection.Session
	Get(name string) *connection.Session
}

// Engine is the Tool Discovery Engine: a TTL cache of discovered tools
// refreshed on a ticker, with namespacing applied at registration time.
type Engine struct {
	opts    Options
	sources sessionLister
	logger  *common.Logger

	mu    sync.RWMutex
	cache map[string]*cacheEntry // keyed by namespaced_name
	// previous holds, per server, the last observed tools keyed by
	// original_name — the basis for the diff in each discovery pass.
	previous map[string]map[string]*DiscoveredTool

	sf singleflight.Group

	handlersMu sync.Mutex
	handlers   []func(ToolsChangedEvent)

	statsMu      sync.Mutex
	callCount    int64
	cacheHits    int64
	lastAt       time.Time
	totalLatency time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewEngine constructs an Engine against the given Session source.
func NewEngine(sources sessionLister, opts Options, logger *common.Logger) *Engine {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 30 * time.Second
	}
	if opts.NamespaceSeparator == "" {
		opts.NamespaceSeparator = "."
	}
	if opts.ConflictPolicy == "" {
		opts.ConflictPolicy = ConflictNamespaceAlways
	}
	return &Engine{
		opts:     opts,
		sources:  sources,
		logger:   logger,
		cache:    make(map[string]*cacheEntry),
		previous: make(map[string]map[string]*DiscoveredTool),
		stopCh:   make(chan struct{}),
	}
}

// On subscribes handler to tools_changed events.
func (e *Engine) On(handler func(ToolsChangedEvent)) {
	e.handlersMu.Lock()
	defer e.handlersMu.Unlock()
	e.handlers = append(e.handlers, handler)
}

func (e *Engine) emit(ev ToolsChangedEvent) {
	e.handlersMu.Lock()
	handlers := append([]func(ToolsChangedEvent){}, e.handlers...)
	e.handlersMu.Unlock()
	for _, h := range handlers {
		h(ev)
	}
}

// Start launches the periodic refresh loop.
func (e *Engine) Start(ctx context.Context) {
	if !e.opts.AutoDiscovery {
		return
	}
	e.wg.Add(1)
	go e.refreshLoop(ctx)
}

// Stop halts the refresh loop.
func (e *Engine) Stop() {
	close(e.stopCh)
	e.wg.Wait()
}

func (e *Engine) refreshLoop(ctx context.Context) {
	defer e.wg.Done()
	_ = e.Discover(ctx, "")

	ticker := time.NewTicker(e.opts.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = e.Discover(ctx, "")
		}
	}
}

// Discover enumerates tools from one Session (serverName non-empty) or
// every Session (serverName == ""), serialized per server but parallel
// across servers.
func (e *Engine) Discover(ctx context.Context, serverName string) error {
	if serverName != "" {
		return e.discoverOne(ctx, serverName)
	}

	sessions := e.sources.All()
	g, gctx := errgroup.WithContext(ctx)
	for name := range sessions {
		name := name
		g.Go(func() error {
			return e.discoverOne(gctx, name)
		})
	}
	return g.Wait()
}

// Refresh is Discover for external callers, explicitly coalescing
// concurrent calls for the same server into a single in-flight pass.
func (e *Engine) Refresh(ctx context.Context, serverName string) error {
	return e.Discover(ctx, serverName)
}

func (e *Engine) discoverOne(ctx context.Context, serverName string) error {
	_, err, _ := e.sf.Do(serverName, func() (any, error) {
		return nil, e.runDiscoveryPass(ctx, serverName)
	})
	return err
}

func (e *Engine) runDiscoveryPass(ctx context.Context, serverName string) error {
	start := time.Now()

	session := e.sources.Get(serverName)
	if session == nil || !session.IsConnected() {
		e.clearServer(serverName)
		return fmt.Errorf("%w: %s", common.ErrServerNotConnected, serverName)
	}

	listCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	tools, err := session.ListTools(listCtx)
	if err != nil {
		return fmt.Errorf("discover %s: %w", serverName, err)
	}

	if e.opts.MaxToolsPerServer > 0 && len(tools) > e.opts.MaxToolsPerServer {
		if e.logger != nil {
			e.logger.Warn("server %s advertised %d tools, truncating to max_tools_per_server=%d",
				serverName, len(tools), e.opts.MaxToolsPerServer)
		}
		tools = tools[:e.opts.MaxToolsPerServer]
	}

	now := time.Now()
	current := make(map[string]*DiscoveredTool, len(tools))
	for _, tool := range tools {
		ns := namespacedName(e.opts.ConflictPolicy, e.opts.NamespaceSeparator, serverName, tool.Name)
		current[tool.Name] = newDiscoveredTool(serverName, tool.Name, ns, tool.Description, tool.InputSchema, now)
	}

	added, updated, removed := e.reconcile(serverName, current)

	e.statsMu.Lock()
	e.callCount++
	e.lastAt = now
	e.totalLatency += time.Since(start)
	e.statsMu.Unlock()

	if len(added) > 0 || len(updated) > 0 || len(removed) > 0 {
		e.emit(ToolsChangedEvent{ServerName: serverName, Added: added, Updated: updated, Removed: removed, At: now})
	}
	return nil
}

// reconcile diffs current against the previous snapshot for serverName,
// updates the cache, and returns the namespaced names classified as
// added/updated/removed. Unchanged tools still refresh their cache entry's
// expiry but are not reported.
func (e *Engine) reconcile(serverName string, current map[string]*DiscoveredTool) (added, updated, removed []string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.previous[serverName]
	now := time.Now()

	for originalName, tool := range current {
		old, existed := prev[originalName]
		switch {
		case !existed:
			added = append(added, tool.NamespacedName)
		case old.StructureHash != tool.StructureHash || old.FullHash != tool.FullHash:
			tool.DiscoveredAt = old.DiscoveredAt
			updated = append(updated, tool.NamespacedName)
		default:
			tool.DiscoveredAt = old.DiscoveredAt
		}
		e.cache[tool.NamespacedName] = &cacheEntry{tool: tool, expiresAt: now.Add(e.opts.CacheTTL)}
	}

	for originalName, old := range prev {
		if _, stillPresent := current[originalName]; !stillPresent {
			removed = append(removed, old.NamespacedName)
			delete(e.cache, old.NamespacedName)
		}
	}

	e.previous[serverName] = current

	// Purge any remaining cache entries of this server that the current
	// pass no longer reports.
	live := make(map[string]bool, len(current))
	for _, t := range current {
		live[t.NamespacedName] = true
	}
	for ns, entry := range e.cache {
		if entry.tool.ServerName == serverName && !live[ns] {
			delete(e.cache, ns)
		}
	}

	sort.Strings(added)
	sort.Strings(updated)
	sort.Strings(removed)
	return added, updated, removed
}

// clearServer drops every cached tool belonging to serverName, used when a
// Session is found disconnected at the start of a discovery pass.
func (e *Engine) clearServer(serverName string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.previous, serverName)
	for ns, entry := range e.cache {
		if entry.tool.ServerName == serverName {
			delete(e.cache, ns)
		}
	}
}

// Clear drops the cache for serverName, or the entire cache when empty.
func (e *Engine) Clear(serverName string) {
	if serverName != "" {
		e.clearServer(serverName)
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]*cacheEntry)
	e.previous = make(map[string]map[string]*DiscoveredTool)
}

// GetByName resolves a namespaced_name exact match first, falling back to
// an original_name match only when it is unambiguous across all servers.
func (e *Engine) GetByName(name string) (*DiscoveredTool, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if entry, ok := e.cache[name]; ok {
		entry.hits++
		e.statsMu.Lock()
		e.cacheHits++
		e.statsMu.Unlock()
		return entry.tool, true
	}

	var match *DiscoveredTool
	for _, entry := range e.cache {
		if entry.tool.OriginalName == name {
			if match != nil {
				return nil, false // ambiguous
			}
			match = entry.tool
		}
	}
	if match == nil {
		return nil, false
	}
	return match, true
}

// Search filters the catalog by server, name pattern, and connection state.
func (e *Engine) Search(filter Filter) ([]*DiscoveredTool, error) {
	re, err := filter.matcher()
	if err != nil {
		return nil, fmt.Errorf("%w: invalid name_pattern", common.ErrInvalidParameters)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var results []*DiscoveredTool
	for _, entry := range e.cache {
		t := entry.tool
		if filter.ServerName != "" && t.ServerName != filter.ServerName {
			continue
		}
		if re != nil && !re.MatchString(t.OriginalName) && !re.MatchString(t.NamespacedName) {
			continue
		}
		if filter.ConnectedOnly {
			if s := e.sources.Get(t.ServerName); s == nil || !s.IsConnected() {
				continue
			}
		}
		results = append(results, t)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].NamespacedName < results[j].NamespacedName })
	return results, nil
}

// AvailableTools returns every cached tool, optionally restricted to tools
// whose owning Session is currently connected.
func (e *Engine) AvailableTools(connectedOnly bool) []*DiscoveredTool {
	results, _ := e.Search(Filter{ConnectedOnly: connectedOnly})
	return results
}

// StatsSnapshot reports the engine's current counters.
func (e *Engine) StatsSnapshot() Stats {
	e.mu.RLock()
	byServer := make(map[string]int)
	total := 0
	for _, entry := range e.cache {
		byServer[entry.tool.ServerName]++
		total++
	}
	connected := 0
	for name := range e.previous {
		if s := e.sources.Get(name); s != nil && s.IsConnected() {
			connected++
		}
	}
	totalServers := len(e.previous)
	e.mu.RUnlock()

	e.statsMu.Lock()
	defer e.statsMu.Unlock()

	var hitRate, avgLatency float64
	if e.callCount > 0 {
		hitRate = float64(e.cacheHits) / float64(e.callCount)
		avgLatency = float64(e.totalLatency.Milliseconds()) / float64(e.callCount)
	}

	var lastAt string
	if !e.lastAt.IsZero() {
		lastAt = e.lastAt.Format(time.RFC3339)
	}

	return Stats{
		TotalServers:      totalServers,
		ConnectedServers:  connected,
		TotalTools:        total,
		CacheHitRate:      hitRate,
		LastDiscoveryTime: lastAt,
		AvgLatencyMillis:  avgLatency,
		ToolsByServer:     byServer,
	}
}
