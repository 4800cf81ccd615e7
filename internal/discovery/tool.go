// Package discovery implements the Tool Discovery Engine: it enumerates
// tools from connected downstream Sessions, namespaces and hashes them,
// caches the result with a TTL, and emits diff-based change events.
package discovery

import (
	"time"

	"github.com/mcphub/mcphub/internal/common"
)

// DiscoveredTool is the canonical record of a tool known to the system.
type DiscoveredTool struct {
	ServerName     string
	OriginalName   string
	NamespacedName string
	Description    string
	InputSchema    any

	StructureHash string
	FullHash      string

	DiscoveredAt time.Time
	LastUpdated  time.Time
}

func newDiscoveredTool(serverName, originalName, namespacedName, description string, inputSchema any, now time.Time) *DiscoveredTool {
	return &DiscoveredTool{
		ServerName:     serverName,
		OriginalName:   originalName,
		NamespacedName: namespacedName,
		Description:    description,
		InputSchema:    inputSchema,
		StructureHash:  common.StructureHash(originalName, inputSchema),
		FullHash:       common.FullHash(originalName, description, inputSchema),
		DiscoveredAt:   now,
		LastUpdated:    now,
	}
}

// cacheEntry wraps a DiscoveredTool with its expiry and a hit counter.
type cacheEntry struct {
	tool      *DiscoveredTool
	expiresAt time.Time
	hits      int
}

func (e *cacheEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// ChangeKind classifies how a tool changed between two discovery passes.
type ChangeKind string

const (
	ChangeAdded     ChangeKind = "added"
	ChangeUpdated   ChangeKind = "updated"
	ChangeRemoved   ChangeKind = "removed"
	ChangeUnchanged ChangeKind = "unchanged"
)

// ToolsChangedEvent is emitted once per discovery pass, aggregating every
// tool-level change observed for one server.
type ToolsChangedEvent struct {
	ServerName string
	Added      []string
	Updated    []string
	Removed    []string
	At         time.Time
}

// ConflictPolicy governs how namespace collisions on publish are handled.
type ConflictPolicy string

const (
	ConflictNamespaceAlways ConflictPolicy = "namespace-always"
	ConflictPrefixServer    ConflictPolicy = "prefix-server"
	ConflictError           ConflictPolicy = "error"
)

func namespacedName(policy ConflictPolicy, separator, serverName, originalName string) string {
	switch policy {
	case ConflictPrefixServer:
		return serverName + "_" + originalName
	default: // namespace-always and error both publish with the separator form
		return serverName + separator + originalName
	}
}
