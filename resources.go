package mcptools

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/y0ug/mcptools/internal/mcp"
)

var (
	// ErrDuplicateResource is returned when a URI or URI template is
	// registered twice.
	ErrDuplicateResource = errors.New("duplicate resource")

	// ErrInvalidResource is returned for a malformed resource descriptor.
	ErrInvalidResource = errors.New("invalid resource")

	ErrUnknownResource = errors.New("unknown resource")

	// ErrResourceReadFailed wraps the error returned by a ResourceReader.
	ErrResourceReadFailed = errors.New("resource read failed")
)

var templateVar = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// ResourceReader produces the text of a resource. vars holds the values
// bound by a URI template and is empty for fixed resources.
type ResourceReader func(ctx context.Context, uri string, vars map[string]string) (string, error)

type resourceEntry struct {
	resource Resource
	read     ResourceReader
}

type templateEntry struct {
	template ResourceTemplate
	pattern  *regexp.Regexp
	vars     []string
	read     ResourceReader
}

// ResourceRegistry is the ordered catalog of readable resources. Like
// Registry it is filled at startup and read-only while served.
type ResourceRegistry struct {
	resources []resourceEntry
	index     map[string]int
	templates []templateEntry
}

// NewResourceRegistry creates an empty resource registry.
func NewResourceRegistry() *ResourceRegistry {
	return &ResourceRegistry{index: make(map[string]int)}
}

// AddResource registers a fixed URI.
func (r *ResourceRegistry) AddResource(res Resource, read ResourceReader) error {
	if res.URI == "" || res.Name == "" || read == nil {
		return fmt.Errorf("%w: resource needs a uri, a name and a reader", ErrInvalidResource)
	}
	if _, exists := r.index[res.URI]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateResource, res.URI)
	}
	r.index[res.URI] = len(r.resources)
	r.resources = append(r.resources, resourceEntry{resource: res, read: read})
	return nil
}

// AddTemplate registers a URI template. Each {var} matches one non-empty
// segment without '/'.
func (r *ResourceRegistry) AddTemplate(tmpl ResourceTemplate, read ResourceReader) error {
	if tmpl.URITemplate == "" || tmpl.Name == "" || read == nil {
		return fmt.Errorf("%w: template needs a uriTemplate, a name and a reader", ErrInvalidResource)
	}
	for _, t := range r.templates {
		if t.template.URITemplate == tmpl.URITemplate {
			return fmt.Errorf("%w: %q", ErrDuplicateResource, tmpl.URITemplate)
		}
	}
	pattern, vars, err := compileTemplate(tmpl.URITemplate)
	if err != nil {
		return err
	}
	r.templates = append(r.templates, templateEntry{template: tmpl, pattern: pattern, vars: vars, read: read})
	return nil
}

// ListResources returns the fixed resources in registration order.
func (r *ResourceRegistry) ListResources() []Resource {
	out := make([]Resource, len(r.resources))
	for i, e := range r.resources {
		out[i] = e.resource
	}
	return out
}

// ListTemplates returns the URI templates in registration order.
func (r *ResourceRegistry) ListTemplates() []ResourceTemplate {
	out := make([]ResourceTemplate, len(r.templates))
	for i, e := range r.templates {
		out[i] = e.template
	}
	return out
}

// Len returns the number of fixed resources plus templates.
func (r *ResourceRegistry) Len() int {
	return len(r.resources) + len(r.templates)
}

// Read resolves uri against the fixed resources first, then the templates
// in registration order.
func (r *ResourceRegistry) Read(ctx context.Context, uri string) (*ReadResourceResult, error) {
	if i, ok := r.index[uri]; ok {
		e := r.resources[i]
		return readWith(ctx, e.read, uri, map[string]string{}, e.resource.MimeType)
	}
	for _, t := range r.templates {
		m := t.pattern.FindStringSubmatch(uri)
		if m == nil {
			continue
		}
		vars := make(map[string]string, len(t.vars))
		for i, name := range t.vars {
			vars[name] = m[i+1]
		}
		return readWith(ctx, t.read, uri, vars, t.template.MimeType)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownResource, uri)
}

func readWith(ctx context.Context, read ResourceReader, uri string, vars map[string]string, mimeType *string) (*ReadResourceResult, error) {
	text, err := read(ctx, uri, vars)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrResourceReadFailed, uri, err)
	}
	contents := mcp.ResourceContents{URI: uri, Text: text}
	if mimeType != nil {
		contents.MimeType = *mimeType
	}
	return &ReadResourceResult{Contents: []mcp.ResourceContents{contents}}, nil
}

func compileTemplate(tmpl string) (*regexp.Regexp, []string, error) {
	var (
		expr strings.Builder
		vars []string
		last int
	)
	expr.WriteString("^")
	literal := func(part string) error {
		if strings.ContainsAny(part, "{}") {
			return fmt.Errorf("%w: malformed uri template %q", ErrInvalidResource, tmpl)
		}
		expr.WriteString(regexp.QuoteMeta(part))
		return nil
	}
	for _, loc := range templateVar.FindAllStringSubmatchIndex(tmpl, -1) {
		if err := literal(tmpl[last:loc[0]]); err != nil {
			return nil, nil, err
		}
		expr.WriteString("([^/]+)")
		vars = append(vars, tmpl[loc[2]:loc[3]])
		last = loc[1]
	}
	if len(vars) == 0 {
		return nil, nil, fmt.Errorf("%w: uri template %q has no variables", ErrInvalidResource, tmpl)
	}
	if err := literal(tmpl[last:]); err != nil {
		return nil, nil, err
	}
	expr.WriteString("$")
	pattern, err := regexp.Compile(expr.String())
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidResource, err)
	}
	return pattern, vars, nil
}
