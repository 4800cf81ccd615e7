package toolset

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcphub/mcphub/internal/common"
	"github.com/mcphub/mcphub/internal/discovery"
	"github.com/mcphub/mcphub/internal/store"
)

var namePattern = regexp.MustCompile(`^[a-z0-9-]+$`)

const lastEquippedKey = "last-equipped"

// ValidName reports whether name satisfies the `^[a-z0-9-]+$`, 2-50 char
// rule for toolset names and annotation notes.
func ValidName(name string) bool {
	return len(name) >= 2 && len(name) <= 50 && namePattern.MatchString(name)
}

// catalog is the subset of *discovery.Engine the Manager depends on.
type catalog interface {
	AvailableTools(connectedOnly bool) []*discovery.DiscoveredTool
}

// Manager owns the persisted toolset catalog and the active-toolset
// pointer. Follows the config package's pattern of small validated
// structs plus a Validate* function family, backed by internal/store
// for persistence.
type Manager struct {
	mu      sync.Mutex
	store   store.Store
	catalog catalog
	secure  bool

	active      *ToolsetConfig
	flattened   map[string]string // flattened name -> original_name
	unavailable map[string]bool   // namespaced_name -> true when excluded from exposure

	handlersMu sync.Mutex
	handlers   []func(ChangedEvent)
}

// NewManager constructs a Manager. secure selects the default
// secure-mode structural-drift validation; false accepts drift silently.
func NewManager(st store.Store, cat catalog, secure bool) *Manager {
	return &Manager{
		store:     st,
		catalog:   cat,
		secure:    secure,
		flattened: make(map[string]string),
	}
}

// On subscribes handler to toolset_changed events.
func (m *Manager) On(handler func(ChangedEvent)) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	m.handlers = append(m.handlers, handler)
}

func (m *Manager) emit(kind ChangeKind, name string) {
	m.handlersMu.Lock()
	handlers := append([]func(ChangedEvent){}, m.handlers...)
	m.handlersMu.Unlock()
	ev := ChangedEvent{Kind: kind, Name: name, At: time.Now()}
	for _, h := range handlers {
		h(ev)
	}
}

// ListSaved reads every persisted ToolsetConfig from the store.
func (m *Manager) ListSaved() ([]*ToolsetConfig, error) {
	blobs, err := m.store.List(store.KindToolsets)
	if err != nil {
		return nil, err
	}
	out := make([]*ToolsetConfig, 0, len(blobs))
	for _, blob := range blobs {
		var cfg ToolsetConfig
		if err := json.Unmarshal(blob, &cfg); err != nil {
			continue
		}
		out = append(out, &cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Build validates references, persists the toolset, and returns its
// stored form.
func (m *Manager) Build(name string, refs []ToolReference, description string) (*ToolsetConfig, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: invalid toolset name %q", common.ErrInvalidParameters, name)
	}
	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: toolset must have at least one tool reference", common.ErrInvalidParameters)
	}
	if err := rejectDuplicateRefs(refs); err != nil {
		return nil, err
	}

	// Stamp ExpectedStructureHash from the current catalog, when resolvable.
	available := m.catalog.AvailableTools(false)
	for i := range refs {
		if tool := findByReference(available, refs[i]); tool != nil {
			refs[i].ExpectedStructureHash = tool.StructureHash
			if refs[i].NamespacedName == "" {
				refs[i].NamespacedName = tool.NamespacedName
			}
			if refs[i].FullHash == "" {
				refs[i].FullHash = tool.FullHash
			}
		}
	}

	cfg := &ToolsetConfig{
		Name:        name,
		Description: description,
		Version:     "1",
		CreatedAt:   time.Now(),
		References:  refs,
	}

	if err := m.persist(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func rejectDuplicateRefs(refs []ToolReference) error {
	seen := make(map[string]bool, len(refs))
	for _, r := range refs {
		key := r.NamespacedName + "|" + r.FullHash
		if seen[key] {
			return fmt.Errorf("%w: duplicate tool reference %s", common.ErrInvalidParameters, key)
		}
		seen[key] = true
	}
	return nil
}

func (m *Manager) persist(cfg *ToolsetConfig) error {
	blob, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal toolset %s: %w", cfg.Name, err)
	}
	return m.store.Put(store.KindToolsets, cfg.Name, blob)
}

func (m *Manager) load(name string) (*ToolsetConfig, error) {
	blob, err := m.store.Get(store.KindToolsets, name)
	if err != nil {
		return nil, err
	}
	var cfg ToolsetConfig
	if err := json.Unmarshal(blob, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal toolset %s: %w", name, err)
	}
	return &cfg, nil
}

// Equip loads a saved toolset, sets it active, and emits
// toolset_changed{kind=equipped}. GetToolsForExposure recomputes the
// flattened name table on next call; Equip does not pre-warm it.
func (m *Manager) Equip(name string) error {
	cfg, err := m.load(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.active = cfg
	m.mu.Unlock()

	_ = m.store.Put(store.KindPreferences, lastEquippedKey, []byte(name))
	m.emit(ChangeEquipped, name)
	return nil
}

// Unequip clears the active pointer and emits toolset_changed{kind=unequipped}.
func (m *Manager) Unequip() {
	m.mu.Lock()
	name := ""
	if m.active != nil {
		name = m.active.Name
	}
	m.active = nil
	m.flattened = make(map[string]string)
	m.unavailable = nil
	m.mu.Unlock()

	m.emit(ChangeUnequipped, name)
}

// Delete removes a saved toolset. Forbidden on the active toolset without
// first unequipping.
func (m *Manager) Delete(name string, confirm bool) error {
	if !confirm {
		return fmt.Errorf("%w: delete requires confirm=true", common.ErrInvalidParameters)
	}
	m.mu.Lock()
	active := m.active != nil && m.active.Name == name
	m.mu.Unlock()
	if active {
		return fmt.Errorf("%w: toolset %q is active; unequip before deleting", common.ErrInvalidParameters, name)
	}
	return m.store.Delete(store.KindToolsets, name)
}

// RestoreLastEquipped re-equips the most recently equipped toolset on
// startup, if any. Returns whether anything was restored.
func (m *Manager) RestoreLastEquipped() (bool, error) {
	blob, err := m.store.Get(store.KindPreferences, lastEquippedKey)
	if err != nil {
		if err == store.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	name := string(blob)
	if name == "" {
		return false, nil
	}
	if _, err := m.store.Get(store.KindToolsets, name); err != nil {
		if err == store.ErrNotFound {
			return false, nil
		}
		return false, err
	}
	if err := m.Equip(name); err != nil {
		return false, err
	}
	return true, nil
}

// HasActive reports whether a toolset is currently equipped.
func (m *Manager) HasActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// ActiveInfo summarizes the active toolset's state.
func (m *Manager) ActiveInfo() (*ActiveInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, false
	}

	available := m.catalog.AvailableTools(false)
	var warnings []string
	unavailableCount := 0
	toolCount := 0
	for _, ref := range m.active.References {
		tool, status := resolveReference(available, ref, m.secure)
		switch status {
		case refUnavailable:
			unavailableCount++
		case refDriftExcluded:
			unavailableCount++
			warnings = append(warnings, fmt.Sprintf("%s excluded: structural drift detected", refLabel(ref)))
		case refOK:
			if tool != nil {
				toolCount++
			}
		}
	}

	return &ActiveInfo{
		Name:             m.active.Name,
		ToolCount:        toolCount,
		UnavailableCount: unavailableCount,
		Warnings:         warnings,
	}, true
}

type refStatus int

const (
	refOK refStatus = iota
	refUnavailable
	refDriftExcluded
)

// resolveReference implements the 4-step reference validation: resolve
// by namespaced name, fall back to full hash, check structural drift,
// and report availability.
func resolveReference(available []*discovery.DiscoveredTool, ref ToolReference, secure bool) (*discovery.DiscoveredTool, refStatus) {
	tool := findByReference(available, ref)
	if tool == nil {
		return nil, refUnavailable
	}
	if secure && ref.ExpectedStructureHash != "" && tool.StructureHash != ref.ExpectedStructureHash {
		return tool, refDriftExcluded
	}
	return tool, refOK
}

// findByReference matches namespaced_name first, falling back to
// full_hash for the stale-rename case.
func findByReference(available []*discovery.DiscoveredTool, ref ToolReference) *discovery.DiscoveredTool {
	if ref.NamespacedName != "" {
		for _, t := range available {
			if t.NamespacedName == ref.NamespacedName {
				return t
			}
		}
	}
	if ref.FullHash != "" {
		for _, t := range available {
			if t.FullHash == ref.FullHash {
				return t
			}
		}
	}
	return nil
}

func refLabel(ref ToolReference) string {
	if ref.NamespacedName != "" {
		return ref.NamespacedName
	}
	return ref.FullHash
}

// GetToolsForExposure produces the Front-end-facing tool list: the
// active toolset's resolvable, non-drift-excluded references, flattened
// and annotated. Returns an empty slice if no toolset is active.
func (m *Manager) GetToolsForExposure() []*mcp.Tool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return []*mcp.Tool{}
	}

	available := m.catalog.AvailableTools(false)
	notesByRef := m.notesIndex()

	m.flattened = make(map[string]string)
	m.unavailable = make(map[string]bool)

	used := make(map[string]int)
	out := make([]*mcp.Tool, 0, len(m.active.References))
	for _, ref := range m.active.References {
		tool, status := resolveReference(available, ref, m.secure)
		if status != refOK {
			m.unavailable[refLabel(ref)] = true
			continue
		}

		flatName := flatten(tool.NamespacedName)
		used[flatName]++
		if n := used[flatName]; n > 1 {
			flatName = flatName + "-" + strconv.Itoa(n)
		}
		m.flattened[flatName] = tool.OriginalName

		description := tool.Description
		if notes, ok := notesByRef[refLabel(ref)]; ok && len(notes) > 0 {
			description += renderNotes(notes)
		}

		schema, _ := tool.InputSchema.(map[string]any)
		out = append(out, &mcp.Tool{
			Name:        flatName,
			Description: description,
			InputSchema: schema,
		})
	}
	return out
}

// ResolveOriginal is the inverse of the flattening applied for exposure.
func (m *Manager) ResolveOriginal(flattenedName string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name, ok := m.flattened[flattenedName]
	return name, ok
}

// flatten replaces the namespace separator with an underscore, a
// reversible transform for clients intolerant of '.'.
func flatten(namespacedName string) string {
	return strings.ReplaceAll(namespacedName, ".", "_")
}

func (m *Manager) notesIndex() map[string][]ToolNote {
	idx := make(map[string][]ToolNote)
	if m.active == nil {
		return idx
	}
	for _, ann := range m.active.Annotations {
		idx[refLabel(ann.ToolRef)] = ann.Notes
	}
	return idx
}

func renderNotes(notes []ToolNote) string {
	var b strings.Builder
	b.WriteString("\n\n## Additional Tool Notes\n")
	for _, n := range notes {
		b.WriteString(fmt.Sprintf("- **%s**: %s\n", n.Name, n.Note))
	}
	return b.String()
}

// AddToolAnnotation appends notes to the active toolset, additive-only:
// a note name already present under the same reference is ignored, not
// overwritten.
func (m *Manager) AddToolAnnotation(ref ToolReference, notes []ToolNote) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return fmt.Errorf("%w: no active toolset", common.ErrInvalidParameters)
	}
	for _, n := range notes {
		if !ValidName(n.Name) {
			return fmt.Errorf("%w: invalid annotation note name %q", common.ErrInvalidParameters, n.Name)
		}
	}

	var target *ToolAnnotation
	for i := range m.active.Annotations {
		if refLabel(m.active.Annotations[i].ToolRef) == refLabel(ref) {
			target = &m.active.Annotations[i]
			break
		}
	}
	if target == nil {
		m.active.Annotations = append(m.active.Annotations, ToolAnnotation{ToolRef: ref})
		target = &m.active.Annotations[len(m.active.Annotations)-1]
	}

	existing := make(map[string]bool, len(target.Notes))
	for _, n := range target.Notes {
		existing[n.Name] = true
	}
	for _, n := range notes {
		if existing[n.Name] {
			continue
		}
		target.Notes = append(target.Notes, n)
		existing[n.Name] = true
	}

	return m.persist(m.active)
}

// OnToolsChanged re-validates the active toolset against a discovery
// change and, if the exposed view changed, emits toolset_changed{kind=updated}.
// Wired to discovery.Engine's tools_changed event.
func (m *Manager) OnToolsChanged(affectedNamespacedNames []string) {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()
	if active == nil {
		return
	}

	affected := make(map[string]bool, len(affectedNamespacedNames))
	for _, n := range affectedNamespacedNames {
		affected[n] = true
	}
	for _, ref := range active.References {
		if affected[ref.NamespacedName] {
			m.emit(ChangeUpdated, active.Name)
			return
		}
	}
}
