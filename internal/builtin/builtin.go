// Package builtin provides the hello-world tool set: greet, add and
// multiply.
package builtin

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/y0ug/mcptools"
)

// Names lists the built-in tools in registration order.
var Names = []string{"greet", "add", "multiply"}

type tool struct {
	descriptor mcptools.Tool
	handler    func(logger *slog.Logger) mcptools.Handler
}

var tools = []tool{
	{descriptor: greetTool, handler: greet},
	{descriptor: addTool, handler: add},
	{descriptor: multiplyTool, handler: multiply},
}

// Register adds the built-in tools to reg. When enabled is non-empty only
// the named tools are registered; naming an unknown tool is an error.
func Register(reg *mcptools.Registry, logger *slog.Logger, enabled ...string) error {
	for _, name := range enabled {
		if !slices.Contains(Names, name) {
			return fmt.Errorf("no built-in tool named %q", name)
		}
	}
	for _, t := range tools {
		if len(enabled) > 0 && !slices.Contains(enabled, t.descriptor.Name) {
			continue
		}
		if err := reg.Register(t.descriptor, t.handler(logger)); err != nil {
			return fmt.Errorf("register %s: %w", t.descriptor.Name, err)
		}
	}
	return nil
}

var greetTool = mcptools.Tool{
	Name:        "greet",
	Description: mcptools.StrPtr("Greet a user by name."),
	InputSchema: mcptools.ToolInputSchema{
		Type: "object",
		Properties: map[string]mcptools.Property{
			"name": {Type: mcptools.TypeString, Description: "Name of the person to greet."},
		},
		Required: []string{"name"},
	},
}

var addTool = mcptools.Tool{
	Name:        "add",
	Description: mcptools.StrPtr("Add two numbers."),
	InputSchema: binarySchema,
}

var multiplyTool = mcptools.Tool{
	Name:        "multiply",
	Description: mcptools.StrPtr("Multiply two numbers."),
	InputSchema: binarySchema,
}

var binarySchema = mcptools.ToolInputSchema{
	Type: "object",
	Properties: map[string]mcptools.Property{
		"a": {Type: mcptools.TypeNumber, Description: "First number."},
		"b": {Type: mcptools.TypeNumber, Description: "Second number."},
	},
	Required: []string{"a", "b"},
}

// Greeting is the text greet produces for name.
func Greeting(name string) string {
	return fmt.Sprintf("Hello, %s! Welcome to MCP!", name)
}

func greet(logger *slog.Logger) mcptools.Handler {
	return func(ctx context.Context, args mcptools.Arguments) (string, error) {
		name, _ := args.GetString("name")
		logger.Info("Greeting", "name", name)
		return Greeting(name), nil
	}
}

func add(logger *slog.Logger) mcptools.Handler {
	return func(ctx context.Context, args mcptools.Arguments) (string, error) {
		a, _ := args.GetNumber("a")
		b, _ := args.GetNumber("b")
		logger.Info("Adding", "a", a, "b", b)
		return fmt.Sprintf("%s + %s = %s",
			mcptools.FormatNumber(a), mcptools.FormatNumber(b), mcptools.FormatNumber(a+b)), nil
	}
}

func multiply(logger *slog.Logger) mcptools.Handler {
	return func(ctx context.Context, args mcptools.Arguments) (string, error) {
		a, _ := args.GetNumber("a")
		b, _ := args.GetNumber("b")
		logger.Info("Multiplying", "a", a, "b", b)
		return fmt.Sprintf("%s * %s = %s",
			mcptools.FormatNumber(a), mcptools.FormatNumber(b), mcptools.FormatNumber(a*b)), nil
	}
}
