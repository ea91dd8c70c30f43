package builtin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/y0ug/mcptools"
)

// now is replaced in tests.
var now = time.Now

// RegisterResources adds info://server and the greeting://{name} template
// to res. The server description lists the tools held by tools and the
// resources held by res.
func RegisterResources(
	res *mcptools.ResourceRegistry,
	logger *slog.Logger,
	info mcptools.Implementation,
	tools *mcptools.Registry,
) error {
	if err := res.AddResource(mcptools.Resource{
		URI:         "info://server",
		Name:        "server-info",
		Description: mcptools.StrPtr("Server name, version and tool list."),
		MimeType:    mcptools.StrPtr("text/plain"),
	}, serverInfo(logger, info, tools, res)); err != nil {
		return fmt.Errorf("register info://server: %w", err)
	}

	if err := res.AddTemplate(mcptools.ResourceTemplate{
		URITemplate: "greeting://{name}",
		Name:        "greeting",
		Description: mcptools.StrPtr("A personalized greeting."),
		MimeType:    mcptools.StrPtr("text/plain"),
	}, greeting(logger)); err != nil {
		return fmt.Errorf("register greeting://{name}: %w", err)
	}
	return nil
}

// GreetingResource is the text of greeting://{name} at time t.
func GreetingResource(name string, t time.Time) string {
	return fmt.Sprintf("Hello, %s! Current time is %s. Have a great day!", name, t.Format("15:04"))
}

func greeting(logger *slog.Logger) mcptools.ResourceReader {
	return func(ctx context.Context, uri string, vars map[string]string) (string, error) {
		logger.Info("Reading greeting", "name", vars["name"])
		return GreetingResource(vars["name"], now()), nil
	}
}

func serverInfo(
	logger *slog.Logger,
	info mcptools.Implementation,
	tools *mcptools.Registry,
	res *mcptools.ResourceRegistry,
) mcptools.ResourceReader {
	return func(ctx context.Context, uri string, vars map[string]string) (string, error) {
		logger.Info("Reading server info")
		var b strings.Builder
		fmt.Fprintf(&b, "%s\nVersion: %s\n\nAvailable Tools:\n", info.Name, info.Version)
		for _, t := range tools.ListTools() {
			writeItem(&b, t.Name, t.Description)
		}
		b.WriteString("\nAvailable Resources:\n")
		for _, r := range res.ListResources() {
			writeItem(&b, r.URI, r.Description)
		}
		for _, r := range res.ListTemplates() {
			writeItem(&b, r.URITemplate, r.Description)
		}
		return b.String(), nil
	}
}

func writeItem(b *strings.Builder, name string, desc *string) {
	b.WriteString("- " + name)
	if desc != nil {
		b.WriteString(" - " + *desc)
	}
	b.WriteString("\n")
}
