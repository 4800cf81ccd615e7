package router

import "fmt"

// validateRequiredFields checks that every field schema declares required
// is present in arguments. Deeper JSON-Schema checks (types, formats,
// nested objects) are an extension point, not a requirement here.
func validateRequiredFields(inputSchema any, arguments map[string]any) error {
	schema, ok := inputSchema.(map[string]any)
	if !ok {
		return nil
	}
	required, ok := schema["required"].([]any)
	if !ok {
		return nil
	}
	for _, field := range required {
		name, ok := field.(string)
		if !ok {
			continue
		}
		if _, present := arguments[name]; !present {
			return fmt.Errorf("missing required field %q", name)
		}
	}
	return nil
}
