package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/y0ug/mcptools/internal/mcp"
	"golang.org/x/exp/jsonrpc2"
)

// JSON-RPC error codes used for tool and resource failures.
const (
	codeInvalidParams int64 = -32602
	codeInternalError int64 = -32603

	// codeResourceNotFound is the MCP code for an unresolvable resource URI.
	codeResourceNotFound int64 = -32002
)

// Session serves one tool registry, and optionally one resource registry,
// over one message channel. Requests are handled one at a time.
type Session struct {
	logger     *slog.Logger
	info       Implementation
	registry   *Registry
	resources  *ResourceRegistry
	dispatcher *Dispatcher

	mu       sync.Mutex
	handlers map[string]jsonrpc2.HandlerFunc
}

// NewSession creates a Session that advertises info and serves registry.
// A nil resources serves no resources.
func NewSession(logger *slog.Logger, info Implementation, registry *Registry, resources *ResourceRegistry) *Session {
	if resources == nil {
		resources = NewResourceRegistry()
	}
	s := &Session{
		logger:     logger,
		info:       info,
		registry:   registry,
		resources:  resources,
		dispatcher: NewDispatcher(logger, registry),
		handlers:   make(map[string]jsonrpc2.HandlerFunc),
	}
	s.handlers[mcp.MethodInitialize] = s.handleInitialize
	s.handlers[mcp.MethodPing] = s.handlePing
	s.handlers[mcp.MethodToolsList] = s.handleToolsList
	s.handlers[mcp.MethodToolsCall] = s.handleToolsCall
	s.handlers[mcp.MethodResourcesList] = s.handleResourcesList
	s.handlers[mcp.MethodResourcesTemplatesList] = s.handleResourceTemplatesList
	s.handlers[mcp.MethodResourcesRead] = s.handleResourcesRead
	return s
}

// ListTools returns every registered descriptor in registration order.
func (s *Session) ListTools() []Tool {
	return s.registry.ListTools()
}

// CallTool dispatches a tool call. Failures are logged and returned; they
// never end the session.
func (s *Session) CallTool(ctx context.Context, name string, arguments map[string]any) (*CallToolResult, error) {
	s.logger.Info("Tool called", "tool", name)
	result, err := s.dispatcher.Dispatch(ctx, name, arguments)
	if err != nil {
		s.logger.Warn("Tool call failed", "tool", name, "error", err)
		return nil, err
	}
	return result, nil
}

// ReadResource resolves uri against the session's resources.
func (s *Session) ReadResource(ctx context.Context, uri string) (*ReadResourceResult, error) {
	s.logger.Info("Reading resource", "uri", uri)
	result, err := s.resources.Read(ctx, uri)
	if err != nil {
		s.logger.Warn("Resource read failed", "uri", uri, "error", err)
		return nil, err
	}
	return result, nil
}

// Serve runs the session over a single jsonrpc2 connection until the
// channel closes or ctx is done. End of input is a clean shutdown.
func (s *Session) Serve(ctx context.Context, dialer jsonrpc2.Dialer, framer jsonrpc2.Framer) error {
	conn, err := jsonrpc2.Dial(
		ctx,
		dialer,
		jsonrpc2.ConnectionOptions{Handler: jsonrpc2.HandlerFunc(s.Handle), Framer: framer},
	)
	if err != nil {
		return fmt.Errorf("failed to bind the MCP channel: %w", err)
	}
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	s.logger.Info("Server ready",
		"name", s.info.Name,
		"version", s.info.Version,
		"tools", s.registry.Len(),
		"resources", s.resources.Len())
	err = conn.Wait()
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("MCP channel failed: %w", err)
}

// ServeStdio serves on stdin/stdout until EOF, SIGINT or SIGTERM. Frames
// are logged when the logger is enabled at debug level.
func (s *Session) ServeStdio(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	framer := mcp.NewLineRawFramerWithLogger(s.logger)
	if s.logger.Enabled(ctx, slog.LevelDebug) {
		framer = &mcp.LoggingFramer{Base: framer, Logger: s.logger}
	}
	return s.Serve(ctx, mcp.NewStream(os.Stdin, os.Stdout), framer)
}

// Handle processes one incoming JSON-RPC message. It is the jsonrpc2
// handler for Serve and is also used directly by the HTTP channel.
func (s *Session) Handle(ctx context.Context, r *jsonrpc2.Request) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Debug("Server received request",
		"method", r.Method,
		"id", r.ID.Raw(),
		"params", string(r.Params))

	if !r.ID.IsValid() {
		// notifications/initialized, exit and friends need no reply
		if _, isRequest := s.handlers[r.Method]; isRequest {
			s.logger.Warn("Dropping request sent as a notification", "method", r.Method)
		}
		return nil, nil
	}

	handler, ok := s.handlers[r.Method]
	if !ok {
		s.logger.Warn("Method not handled", "method", r.Method, "id", r.ID.Raw())
		return nil, jsonrpc2.ErrNotHandled
	}

	resp, err := handler(ctx, r)
	if err != nil {
		s.logger.Warn("Request failed", "method", r.Method, "id", r.ID.Raw(), "error", err)
		return nil, wireError(err)
	}
	return resp, nil
}

func (s *Session) handleInitialize(
	ctx context.Context,
	r *jsonrpc2.Request,
) (interface{}, error) {
	var params InitializeRequestParams
	if len(r.Params) > 0 {
		if err := json.Unmarshal(r.Params, &params); err != nil {
			return nil, jsonrpc2.NewError(codeInvalidParams, fmt.Sprintf("failed to unmarshal initialize params: %v", err))
		}
	}
	s.logger.Info("Client initializing",
		"client", params.ClientInfo.Name,
		"clientVersion", params.ClientInfo.Version,
		"protocolVersion", params.ProtocolVersion)

	return InitializeResult{
		ProtocolVersion: mcp.ProtocolVersion,
		ServerInfo:      s.info,
		Capabilities: ServerCapabilities{
			Tools:     &mcp.ServerCapabilitiesTools{ListChanged: new(bool)},
			Resources: &mcp.ServerCapabilitiesResources{ListChanged: new(bool), Subscribe: new(bool)},
		},
	}, nil
}

func (s *Session) handlePing(
	ctx context.Context,
	r *jsonrpc2.Request,
) (interface{}, error) {
	return struct{}{}, nil
}

func (s *Session) handleToolsList(
	ctx context.Context,
	r *jsonrpc2.Request,
) (interface{}, error) {
	s.logger.Info("Listing tools")
	// The catalog fits in one page; any cursor is ignored.
	return mcp.ListToolsResult{Tools: s.ListTools()}, nil
}

func (s *Session) handleToolsCall(
	ctx context.Context,
	r *jsonrpc2.Request,
) (interface{}, error) {
	var params mcp.CallToolRequestParams
	if err := json.Unmarshal(r.Params, &params); err != nil {
		return nil, jsonrpc2.NewError(codeInvalidParams, fmt.Sprintf("failed to unmarshal tools/call params: %v", err))
	}
	if params.Name == "" {
		return nil, jsonrpc2.NewError(codeInvalidParams, "tools/call requires a tool name")
	}
	return s.CallTool(ctx, params.Name, params.Arguments)
}

func (s *Session) handleResourcesList(
	ctx context.Context,
	r *jsonrpc2.Request,
) (interface{}, error) {
	s.logger.Info("Listing resources")
	return mcp.ListResourcesResult{Resources: s.resources.ListResources()}, nil
}

func (s *Session) handleResourceTemplatesList(
	ctx context.Context,
	r *jsonrpc2.Request,
) (interface{}, error) {
	s.logger.Info("Listing resource templates")
	return mcp.ListResourceTemplatesResult{ResourceTemplates: s.resources.ListTemplates()}, nil
}

func (s *Session) handleResourcesRead(
	ctx context.Context,
	r *jsonrpc2.Request,
) (interface{}, error) {
	var params mcp.ReadResourceRequestParams
	if err := json.Unmarshal(r.Params, &params); err != nil {
		return nil, jsonrpc2.NewError(codeInvalidParams, fmt.Sprintf("failed to unmarshal resources/read params: %v", err))
	}
	if params.Uri == "" {
		return nil, jsonrpc2.NewError(codeInvalidParams, "resources/read requires a uri")
	}
	return s.ReadResource(ctx, params.Uri)
}

// wireError maps an invocation failure onto a JSON-RPC error carrying the
// same message. Anything else is returned unchanged.
func wireError(err error) error {
	if errors.Is(err, ErrUnknownResource) {
		return jsonrpc2.NewError(codeResourceNotFound, err.Error())
	}
	if errors.Is(err, ErrResourceReadFailed) {
		return jsonrpc2.NewError(codeInternalError, err.Error())
	}
	var inv *InvocationError
	if !errors.As(err, &inv) {
		return err
	}
	if inv.Code == HandlerFailure {
		return jsonrpc2.NewError(codeInternalError, inv.Error())
	}
	return jsonrpc2.NewError(codeInvalidParams, inv.Error())
}
