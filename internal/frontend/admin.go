package frontend

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcphub/mcphub/internal/common"
	"github.com/mcphub/mcphub/internal/toolset"
)

// Administrative tool names. Closed enumeration: dispatchAdministrative
// below switches on exactly these, statically auditable rather than an
// open plugin registry.
const (
	toolListAvailable      = "list-available-tools"
	toolBuildToolset       = "build-toolset"
	toolListSavedToolsets  = "list-saved-toolsets"
	toolEquipToolset       = "equip-toolset"
	toolDeleteToolset      = "delete-toolset"
	toolUnequipToolset     = "unequip-toolset"
	toolGetActiveToolset   = "get-active-toolset"
	toolAddToolAnnotation  = "add-tool-annotation"
	toolEnterConfiguration = "enter-configuration-mode"
	toolExitConfiguration  = "exit-configuration-mode"
)

var administrativeNames = map[string]bool{
	toolListAvailable:      true,
	toolBuildToolset:       true,
	toolListSavedToolsets:  true,
	toolEquipToolset:       true,
	toolDeleteToolset:      true,
	toolUnequipToolset:     true,
	toolGetActiveToolset:   true,
	toolAddToolAnnotation:  true,
	toolEnterConfiguration: true,
	toolExitConfiguration:  true,
}

func isAdministrativeTool(name string) bool {
	return administrativeNames[name]
}

func emptySchema() map[string]any {
	return map[string]any{"type": "object"}
}

// baseAdministrativeTools are the eight administrative tools not
// concerned with mode switching, exposed in configuration mode and (in
// legacy combined mode) alongside toolset tools.
func baseAdministrativeTools() []*mcp.Tool {
	return []*mcp.Tool{
		{
			Name:        toolListAvailable,
			Description: "List every discovered tool, grouped by downstream server.",
			InputSchema: emptySchema(),
		},
		{
			Name:        toolBuildToolset,
			Description: "Persist a named toolset from a set of tool references, optionally equipping it immediately.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":        map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"autoEquip":   map[string]any{"type": "boolean"},
					"tools": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"namespacedName":        map[string]any{"type": "string"},
								"fullHash":              map[string]any{"type": "string"},
								"expectedStructureHash": map[string]any{"type": "string"},
							},
						},
					},
				},
				"required": []any{"name", "tools"},
			},
		},
		{
			Name:        toolListSavedToolsets,
			Description: "List every saved toolset with its reference count and timestamps.",
			InputSchema: emptySchema(),
		},
		{
			Name:        toolEquipToolset,
			Description: "Equip a saved toolset and transition to normal mode.",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{"name": map[string]any{"type": "string"}},
				"required":   []any{"name"},
			},
		},
		{
			Name:        toolDeleteToolset,
			Description: "Delete a saved toolset. Fails on the active toolset until unequipped.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":    map[string]any{"type": "string"},
					"confirm": map[string]any{"type": "boolean"},
				},
				"required": []any{"name", "confirm"},
			},
		},
		{
			Name:        toolUnequipToolset,
			Description: "Clear the active-toolset pointer.",
			InputSchema: emptySchema(),
		},
		{
			Name:        toolGetActiveToolset,
			Description: "Return detailed status for the active toolset, including unavailable tools and warnings.",
			InputSchema: emptySchema(),
		},
		{
			Name:        toolAddToolAnnotation,
			Description: "Append notes to a tool reference within the active toolset. Additive only: existing note names are not overwritten.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"toolRef": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"namespacedName": map[string]any{"type": "string"},
							"fullHash":       map[string]any{"type": "string"},
						},
					},
					"notes": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"name": map[string]any{"type": "string"},
								"note": map[string]any{"type": "string"},
							},
						},
					},
				},
				"required": []any{"toolRef", "notes"},
			},
		},
	}
}

func enterConfigurationTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        toolEnterConfiguration,
		Description: "Enter configuration mode to manage toolsets.",
		InputSchema: emptySchema(),
	}
}

func exitConfigurationTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        toolExitConfiguration,
		Description: "Exit configuration mode and return to normal tool exposure.",
		InputSchema: emptySchema(),
	}
}

func administrativeTools() []*mcp.Tool {
	return append(baseAdministrativeTools(), exitConfigurationTool())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal administrative result: %w", err)
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(b)}}}, nil
}

// dispatchAdministrative is the single closed switch all administrative
// tool calls go through.
func (f *Frontend) dispatchAdministrative(ctx context.Context, name string, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args map[string]any
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrInvalidParameters, err)
		}
	}

	switch name {
	case toolListAvailable:
		return f.adminListAvailableTools()
	case toolBuildToolset:
		return f.adminBuildToolset(args)
	case toolListSavedToolsets:
		return f.adminListSavedToolsets()
	case toolEquipToolset:
		return f.adminEquipToolset(args)
	case toolDeleteToolset:
		return f.adminDeleteToolset(args)
	case toolUnequipToolset:
		return f.adminUnequipToolset()
	case toolGetActiveToolset:
		return f.adminGetActiveToolset()
	case toolAddToolAnnotation:
		return f.adminAddToolAnnotation(args)
	case toolEnterConfiguration:
		return f.adminEnterConfiguration()
	case toolExitConfiguration:
		return f.adminExitConfiguration()
	default:
		return nil, fmt.Errorf("%w: unknown administrative tool %q", common.ErrToolNotFound, name)
	}
}

type toolSummary struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	NamespacedName string `json:"namespacedName"`
	ServerName     string `json:"serverName"`
	RefID          string `json:"refId"`
}

type serverToolGroup struct {
	ServerName string        `json:"serverName"`
	ToolCount  int           `json:"toolCount"`
	Tools      []toolSummary `json:"tools"`
}

func (f *Frontend) adminListAvailableTools() (*mcp.CallToolResult, error) {
	available := f.catalog.AvailableTools(false)

	byServer := make(map[string][]toolSummary)
	order := make([]string, 0)
	for _, t := range available {
		if _, ok := byServer[t.ServerName]; !ok {
			order = append(order, t.ServerName)
		}
		byServer[t.ServerName] = append(byServer[t.ServerName], toolSummary{
			Name:           t.OriginalName,
			Description:    t.Description,
			NamespacedName: t.NamespacedName,
			ServerName:     t.ServerName,
			RefID:          t.FullHash,
		})
	}

	groups := make([]serverToolGroup, 0, len(order))
	for _, name := range order {
		groups = append(groups, serverToolGroup{
			ServerName: name,
			ToolCount:  len(byServer[name]),
			Tools:      byServer[name],
		})
	}

	return jsonResult(map[string]any{
		"summary": map[string]any{
			"totalTools":   len(available),
			"totalServers": len(order),
		},
		"toolsByServer": groups,
	})
}

func (f *Frontend) adminBuildToolset(args map[string]any) (*mcp.CallToolResult, error) {
	name, _ := args["name"].(string)
	description, _ := args["description"].(string)
	autoEquip, _ := args["autoEquip"].(bool)

	rawTools, _ := args["tools"].([]any)
	refs := make([]toolset.ToolReference, 0, len(rawTools))
	for _, rt := range rawTools {
		m, ok := rt.(map[string]any)
		if !ok {
			continue
		}
		ns, _ := m["namespacedName"].(string)
		fh, _ := m["fullHash"].(string)
		esh, _ := m["expectedStructureHash"].(string)
		refs = append(refs, toolset.ToolReference{
			NamespacedName:        ns,
			FullHash:              fh,
			ExpectedStructureHash: esh,
		})
	}

	cfg, err := f.toolsets.Build(name, refs, description)
	if err != nil {
		return nil, err
	}

	autoEquipped := false
	if autoEquip {
		if err := f.toolsets.Equip(name); err != nil {
			return nil, err
		}
		autoEquipped = true
		f.mode.EnterNormal()
		f.notifyListChanged()
	}

	return jsonResult(map[string]any{
		"success":       true,
		"toolsetName":   cfg.Name,
		"configuration": cfg,
		"createdAt":     cfg.CreatedAt.Format(time.RFC3339),
		"autoEquipped":  autoEquipped,
	})
}

func (f *Frontend) adminListSavedToolsets() (*mcp.CallToolResult, error) {
	saved, err := f.toolsets.ListSaved()
	if err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"toolsets": saved})
}

func (f *Frontend) adminEquipToolset(args map[string]any) (*mcp.CallToolResult, error) {
	name, _ := args["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", common.ErrInvalidParameters)
	}
	if err := f.toolsets.Equip(name); err != nil {
		return nil, err
	}
	f.mode.EnterNormal()
	f.notifyListChanged()

	info, _ := f.toolsets.ActiveInfo()
	return jsonResult(map[string]any{"success": true, "active": info})
}

func (f *Frontend) adminDeleteToolset(args map[string]any) (*mcp.CallToolResult, error) {
	name, _ := args["name"].(string)
	confirm, _ := args["confirm"].(bool)
	if err := f.toolsets.Delete(name, confirm); err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"success": true})
}

func (f *Frontend) adminUnequipToolset() (*mcp.CallToolResult, error) {
	f.toolsets.Unequip()
	f.notifyListChanged()
	return jsonResult(map[string]any{"success": true})
}

func (f *Frontend) adminGetActiveToolset() (*mcp.CallToolResult, error) {
	info, ok := f.toolsets.ActiveInfo()
	if !ok {
		return jsonResult(map[string]any{"active": false})
	}
	return jsonResult(map[string]any{"active": true, "toolset": info})
}

func (f *Frontend) adminAddToolAnnotation(args map[string]any) (*mcp.CallToolResult, error) {
	refMap, _ := args["toolRef"].(map[string]any)
	ns, _ := refMap["namespacedName"].(string)
	fh, _ := refMap["fullHash"].(string)
	ref := toolset.ToolReference{NamespacedName: ns, FullHash: fh}

	rawNotes, _ := args["notes"].([]any)
	notes := make([]toolset.ToolNote, 0, len(rawNotes))
	for _, rn := range rawNotes {
		m, ok := rn.(map[string]any)
		if !ok {
			continue
		}
		n, _ := m["name"].(string)
		note, _ := m["note"].(string)
		notes = append(notes, toolset.ToolNote{Name: n, Note: note})
	}

	if err := f.toolsets.AddToolAnnotation(ref, notes); err != nil {
		return nil, err
	}
	return jsonResult(map[string]any{"success": true})
}

func (f *Frontend) adminEnterConfiguration() (*mcp.CallToolResult, error) {
	f.mode.EnterConfiguration()
	f.notifyListChanged()
	return jsonResult(map[string]any{"mode": string(f.mode.Current())})
}

func (f *Frontend) adminExitConfiguration() (*mcp.CallToolResult, error) {
	f.mode.ExitConfiguration()
	f.notifyListChanged()
	return jsonResult(map[string]any{"mode": string(f.mode.Current())})
}
