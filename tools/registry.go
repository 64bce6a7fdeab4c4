// Package tools provides a metadata-driven registry for MCP tool definitions.
// Tools are declared once in AllTools and bound to gateway methods with
// type-safe handlers.
package tools

// ToolSpec defines a tool's metadata for declarative registration.
// Each spec maps to a gateway method with matching Args/Result types.
type ToolSpec struct {
	// Name is the MCP tool name (e.g., "mediawiki_get_page")
	Name string

	// Method is the gateway method name without the MCP suffix (e.g., "GetPage")
	Method string

	// Description is the tool description shown to LLMs
	Description string

	// Title is the human-readable tool title for annotations
	Title string

	// Category groups tools logically (read, search, write, ...)
	Category string

	// ReadOnly indicates the tool doesn't modify wiki state
	ReadOnly bool

	// Destructive indicates the tool can delete or overwrite data
	Destructive bool

	// Idempotent indicates repeated calls have the same effect
	Idempotent bool

	// OpenWorld indicates the tool accesses external resources
	OpenWorld bool
}

// ToolsByCategory returns the specs in one category.
func ToolsByCategory(category string) []ToolSpec {
	var result []ToolSpec
	for _, spec := range AllTools {
		if spec.Category == category {
			result = append(result, spec)
		}
	}
	return result
}

// ReadOnlyTools returns the specs that never modify the wiki.
func ReadOnlyTools() []ToolSpec {
	var result []ToolSpec
	for _, spec := range AllTools {
		if spec.ReadOnly {
			result = append(result, spec)
		}
	}
	return result
}

// ptr is a helper to create a pointer to a value.
func ptr[T any](v T) *T {
	return &v
}
