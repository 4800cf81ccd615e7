// Package toolset implements the Toolset Manager: the persisted catalog
// of saved toolsets, the active-toolset pointer, reference validation,
// name flattening, and annotation handling.
package toolset

import "time"

// ToolReference names one tool within a ToolsetConfig. Resolution prefers
// NamespacedName but falls back to FullHash when the name no longer
// exists (stale-rename tolerance). ExpectedStructureHash records the
// hash at save time, for secure-mode drift detection.
type ToolReference struct {
	NamespacedName        string `json:"namespacedName,omitempty"`
	FullHash              string `json:"fullHash,omitempty"`
	ExpectedStructureHash string `json:"expectedStructureHash,omitempty"`
}

// ToolNote is one entry of a ToolAnnotation's notes list.
type ToolNote struct {
	Name string `json:"name"`
	Note string `json:"note"`
}

// ToolAnnotation attaches append-only notes to one tool reference within
// a toolset.
type ToolAnnotation struct {
	ToolRef ToolReference `json:"toolRef"`
	Notes   []ToolNote    `json:"notes"`
}

// ToolsetConfig is a named, persisted selection of tools.
type ToolsetConfig struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Version     string          `json:"version,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	References  []ToolReference `json:"references"`
	Annotations []ToolAnnotation `json:"annotations,omitempty"`
}

// ChangeKind enumerates toolset_changed event kinds.
type ChangeKind string

const (
	ChangeEquipped   ChangeKind = "equipped"
	ChangeUnequipped ChangeKind = "unequipped"
	ChangeUpdated    ChangeKind = "updated"
)

// ChangedEvent is emitted on every active-toolset mutation.
type ChangedEvent struct {
	Kind ChangeKind
	Name string
	At   time.Time
}

// ActiveInfo summarizes the currently equipped toolset.
type ActiveInfo struct {
	Name               string
	ToolCount          int
	UnavailableCount   int
	Warnings           []string
}
