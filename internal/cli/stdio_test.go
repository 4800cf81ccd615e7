package cli

import (
	"testing"

	urfavecli "github.com/urfave/cli/v3"
)

// TestStdioCommandStructure tests the StdioCommand CLI structure.
func TestStdioCommandStructure(t *testing.T) {
	if StdioCommand == nil {
		t.Fatal("StdioCommand is nil")
	}

	if StdioCommand.Name != "stdio" {
		t.Errorf("expected command name 'stdio', got '%s'", StdioCommand.Name)
	}

	if StdioCommand.Usage == "" {
		t.Error("StdioCommand should have usage text")
	}

	if StdioCommand.Description == "" {
		t.Error("StdioCommand should have description")
	}

	if StdioCommand.Action == nil {
		t.Error("StdioCommand should have action function")
	}

	var configPathFound bool
	for _, flag := range StdioCommand.Flags {
		if sf, ok := flag.(*urfavecli.StringFlag); ok && sf.Name == "config-path" {
			configPathFound = true
		}
	}
	if !configPathFound {
		t.Error("expected 'config-path' flag not found in StdioCommand")
	}
}

// TestStdioCommandUsageExamples verifies the description reflects the
// aggregated front-end's stdio behavior.
func TestStdioCommandUsageExamples(t *testing.T) {
	description := StdioCommand.Description

	expectedSubstrings := []string{
		"stdio",
		"aggregated front-end",
		"config.json",
	}

	for _, s := range expectedSubstrings {
		if !contains(description, s) {
			t.Errorf("expected description to contain '%s', but it didn't", s)
		}
	}
}

// TestStdioCommandNoCmdFlag verifies the stdio command has no per-process
// --cmd flag: it always serves the aggregated front-end.
func TestStdioCommandNoCmdFlag(t *testing.T) {
	for _, flag := range StdioCommand.Flags {
		if sf, ok := flag.(*urfavecli.StringFlag); ok && sf.Name == "cmd" {
			t.Errorf("did not expect a 'cmd' flag on StdioCommand, found %+v", sf)
		}
	}
}

// Helper function to check if a string contains a substring.
func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || substr == "" ||
		(s != "" && substr != "" && findSubstring(s, substr)))
}

func findSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
