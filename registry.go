package mcptools

import (
	"context"
	"fmt"
	"regexp"
)

var validToolName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// Handler implements a tool. It receives arguments already checked against
// the tool's schema and returns the text of the single result item.
type Handler func(ctx context.Context, args Arguments) (string, error)

type entry struct {
	tool    Tool
	handler Handler
}

// Registry is the ordered catalog of tools a session serves. It is filled at
// startup and must not be modified once a session is serving it.
type Registry struct {
	entries []entry
	index   map[string]int
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register adds a tool. It fails with ErrDuplicateToolName if the name is
// already registered and with ErrInvalidTool if the descriptor is malformed.
func (r *Registry) Register(tool Tool, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("%w: tool %q has no handler", ErrInvalidTool, tool.Name)
	}
	if tool.InputSchema.Type == "" {
		tool.InputSchema.Type = schemaTypeObject
	}
	if err := validateTool(tool); err != nil {
		return err
	}
	if _, exists := r.index[tool.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateToolName, tool.Name)
	}

	r.index[tool.Name] = len(r.entries)
	r.entries = append(r.entries, entry{tool: cloneTool(tool), handler: handler})
	return nil
}

// MustRegister is Register for startup code; it panics on error.
func (r *Registry) MustRegister(tool Tool, handler Handler) {
	if err := r.Register(tool, handler); err != nil {
		panic(err)
	}
}

// ListTools returns the descriptors in registration order. The slice is a
// copy and is never nil.
func (r *Registry) ListTools() []Tool {
	tools := make([]Tool, len(r.entries))
	for i, e := range r.entries {
		tools[i] = cloneTool(e.tool)
	}
	return tools
}

// Lookup returns a copy of the descriptor and the handler registered
// under name.
func (r *Registry) Lookup(name string) (Tool, Handler, bool) {
	i, ok := r.index[name]
	if !ok {
		return Tool{}, nil, false
	}
	e := r.entries[i]
	return cloneTool(e.tool), e.handler, true
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	return len(r.entries)
}

func validateTool(tool Tool) error {
	if tool.Name == "" {
		return fmt.Errorf("%w: tool name is required", ErrInvalidTool)
	}
	if !validToolName.MatchString(tool.Name) {
		return fmt.Errorf("%w: tool name %q must start with a letter and contain only letters, numbers, and underscores", ErrInvalidTool, tool.Name)
	}
	if tool.InputSchema.Type != schemaTypeObject {
		return fmt.Errorf("%w: tool %q has schema type %q, want %q", ErrInvalidTool, tool.Name, tool.InputSchema.Type, schemaTypeObject)
	}
	for name, prop := range tool.InputSchema.Properties {
		if !supportedType(prop.Type) {
			return fmt.Errorf("%w: property %q of tool %q has unsupported type %q", ErrInvalidTool, name, tool.Name, prop.Type)
		}
	}
	for _, name := range tool.InputSchema.Required {
		if _, ok := tool.InputSchema.Properties[name]; !ok {
			return fmt.Errorf("%w: tool %q requires undeclared property %q", ErrInvalidTool, tool.Name, name)
		}
	}
	return nil
}

// cloneTool copies the reference fields of a descriptor so callers cannot
// mutate the registered copy.
func cloneTool(t Tool) Tool {
	if t.Description != nil {
		d := *t.Description
		t.Description = &d
	}
	if t.InputSchema.Properties != nil {
		props := make(map[string]Property, len(t.InputSchema.Properties))
		for k, v := range t.InputSchema.Properties {
			props[k] = v
		}
		t.InputSchema.Properties = props
	}
	if t.InputSchema.Required != nil {
		t.InputSchema.Required = append([]string(nil), t.InputSchema.Required...)
	}
	return t
}
