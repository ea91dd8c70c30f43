package mcptools

import (
	"context"
	"fmt"
	"log/slog"
)

// Dispatcher routes a named call through validation to its handler. It
// holds no per-call state.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher over registry.
func NewDispatcher(logger *slog.Logger, registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry, logger: logger}
}

// Dispatch looks up name, validates arguments against its schema, invokes
// the handler and wraps its text in a single-item result. Every failure is
// an *InvocationError; the handler is only invoked once validation passes.
func (d *Dispatcher) Dispatch(
	ctx context.Context,
	name string,
	arguments map[string]any,
) (*CallToolResult, error) {
	tool, handler, ok := d.registry.Lookup(name)
	if !ok {
		return nil, &InvocationError{Code: UnknownTool, Tool: name, Err: ErrUnknownTool}
	}

	args, err := Validate(tool.InputSchema, arguments)
	if err != nil {
		return nil, &InvocationError{Code: InvalidArguments, Tool: name, Err: err}
	}

	text, err := d.invoke(ctx, handler, args)
	if err != nil {
		return nil, &InvocationError{Code: HandlerFailure, Tool: name, Err: err}
	}

	return &CallToolResult{Content: []Content{TextContent(text)}}, nil
}

func (d *Dispatcher) invoke(ctx context.Context, handler Handler, args Arguments) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Tool handler panicked", "panic", r)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handler(ctx, args)
}
