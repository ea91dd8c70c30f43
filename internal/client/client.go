package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/y0ug/mcptools/internal/mcp"
	"golang.org/x/exp/jsonrpc2"
)

// Client defines the interface for MCP client operations
type Client interface {
	// Initialize sends the initialize request to the server and stores the capabilities
	Initialize(ctx context.Context) (*ServerInfo, error)

	// Ping sends a ping request to check if the server is alive
	Ping(ctx context.Context) error

	// ListTools requests one page of available tools from the server
	ListTools(ctx context.Context, cursor *string) ([]mcp.Tool, *string, error)

	// CallTool executes a specific tool with given parameters
	CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error)

	// ListResources requests one page of fixed resources from the server
	ListResources(ctx context.Context, cursor *string) ([]mcp.Resource, *string, error)

	// ListResourceTemplates requests one page of URI templates from the server
	ListResourceTemplates(ctx context.Context, cursor *string) ([]mcp.ResourceTemplate, *string, error)

	// ReadResource reads the resource at uri
	ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error)

	// Close shuts down the MCP client and, if it started one, the server
	Close() error
}

type client struct {
	conn     *jsonrpc2.Connection
	cancelFn context.CancelFunc
	ctx      context.Context
	logger   *slog.Logger

	// Track initialization state
	initialized bool

	// Server capabilities received during initialization
	ServerInfo *ServerInfo

	cmd       *exec.Cmd
	exited    chan struct{}
	closeOnce sync.Once
}

type ServerInfo mcp.InitializeResult

// FetchAll drains a cursor-paginated listing.
func FetchAll[T any](
	ctx context.Context,
	fetch func(ctx context.Context, cursor *string) ([]T, *string, error),
) ([]T, error) {
	var allItems []T
	var cursor *string

	for {
		items, nextCursor, err := fetch(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("fetch failed: %w", err)
		}

		allItems = append(allItems, items...)

		if nextCursor == nil {
			break
		}

		cursor = nextCursor
	}

	return allItems, nil
}

func logHandler(logger *slog.Logger) jsonrpc2.HandlerFunc {
	return func(ctx context.Context, req *jsonrpc2.Request) (interface{}, error) {
		logger.Info("Request received",
			"method", req.Method,
			"id", req.ID.Raw(),
			"params", string(req.Params))
		return nil, jsonrpc2.ErrNotHandled
	}
}

// New starts serverCmd and connects a client to its stdin/stdout.
func New(
	ctxParent context.Context,
	logger *slog.Logger,
	serverCmd string,
	args ...string,
) (Client, error) {
	cmd := exec.Command(serverCmd, args...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start MCP server: %w", err)
	}

	c, err := dial(ctxParent, logger, mcp.NewStream(stdout, stdin), cmd)
	if err != nil {
		_ = cmd.Process.Kill()
		<-c.exited
		return nil, err
	}
	go c.monitorErrors(stderr)
	return c, nil
}

// NewFromStream connects a client over an already established channel.
func NewFromStream(
	ctx context.Context,
	logger *slog.Logger,
	stream *mcp.Stream,
) (Client, error) {
	c, err := dial(ctx, logger, stream, nil)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func dial(ctxParent context.Context, logger *slog.Logger, stream *mcp.Stream, cmd *exec.Cmd) (*client, error) {
	ctx, cancel := context.WithCancel(ctxParent)
	c := &client{
		cmd:      cmd,
		logger:   logger,
		ctx:      ctx,
		cancelFn: cancel,
		exited:   make(chan struct{}),
	}
	if cmd != nil {
		go func() {
			err := cmd.Wait()
			c.logger.Debug("Process exited", "error", err)
			close(c.exited)
		}()
	} else {
		close(c.exited)
	}

	framer := mcp.NewLineRawFramerWithLogger(logger)
	if logger.Enabled(ctx, slog.LevelDebug) {
		framer = &mcp.LoggingFramer{Base: framer, Logger: logger}
	}

	conn, err := jsonrpc2.Dial(
		ctx,
		stream,
		jsonrpc2.ConnectionOptions{
			Handler: logHandler(logger),
			Framer:  framer,
		},
	)
	if err != nil {
		cancel()
		return c, fmt.Errorf("dial error: %w", err)
	}
	c.conn = conn
	return c, nil
}

func (c *client) monitorErrors(stderr io.ReadCloser) {
	// Process and print stderr errors
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			errText := scanner.Text()
			if errText == "" {
				continue
			}

			c.logger.Debug("reading", "stderr", errText)

			lower := strings.ToLower(errText)
			if strings.Contains(lower, "error") || strings.Contains(lower, "fatal") {
				c.logger.Error("server stderr", "line", errText)
			}
		}

		if err := scanner.Err(); err != nil {
			c.logger.Error("error reading stderr", "error", err)
		}
	}()

	select {
	case <-c.ctx.Done():
	case <-c.exited:
		c.logger.Error("server process exited")
		c.Close()
	}
}

// Initialize sends the initialize request to the server and stores the capabilities
func (c *client) Initialize(ctx context.Context) (*ServerInfo, error) {
	params := mcp.InitializeRequestParams{
		ClientInfo: mcp.Implementation{
			Name:    "mcp-call",
			Version: "0.1.0",
		},
		ProtocolVersion: mcp.ProtocolVersion,
		Capabilities:    mcp.ClientCapabilities{},
	}

	var result mcp.InitializeResult
	c.logger.Debug("Sending initialize request")
	if err := c.conn.Call(ctx, mcp.MethodInitialize, params).Await(ctx, &result); err != nil {
		return nil, fmt.Errorf("initialize failed: %w", err)
	}

	c.ServerInfo = (*ServerInfo)(&result)
	c.initialized = true

	c.logger.Debug("Server initialized",
		"name", c.ServerInfo.ServerInfo.Name,
		"version", c.ServerInfo.ServerInfo.Version)
	if c.ServerInfo.Instructions != nil {
		c.logger.Debug("Server instructions", "instructions", *c.ServerInfo.Instructions)
	}

	if err := c.conn.Notify(ctx, mcp.NotifyInitialized, nil); err != nil {
		return nil, fmt.Errorf("failed to send initialized notification: %w", err)
	}
	return c.ServerInfo, nil
}

// Ping sends a ping request to check if the server is alive
func (c *client) Ping(ctx context.Context) error {
	if !c.initialized {
		return fmt.Errorf("client not initialized")
	}
	if err := c.conn.Call(ctx, mcp.MethodPing, nil).Await(ctx, nil); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	return nil
}

// ListTools requests one page of tools from the server
func (c *client) ListTools(ctx context.Context, cursor *string) ([]mcp.Tool, *string, error) {
	if !c.initialized {
		return nil, nil, fmt.Errorf("client not initialized")
	}
	params := &mcp.ListToolsRequestParams{Cursor: cursor}

	var result mcp.ListToolsResult
	if err := c.conn.Call(ctx, mcp.MethodToolsList, params).Await(ctx, &result); err != nil {
		return nil, nil, fmt.Errorf("list tools failed: %w", err)
	}

	return result.Tools, result.NextCursor, nil
}

// CallTool executes a specific tool with given parameters
func (c *client) CallTool(
	ctx context.Context,
	name string,
	args map[string]interface{},
) (*mcp.CallToolResult, error) {
	if !c.initialized {
		return nil, fmt.Errorf("client not initialized")
	}
	params := mcp.CallToolRequestParams{
		Name:      name,
		Arguments: args,
	}
	var result mcp.CallToolResult
	if err := c.conn.Call(ctx, mcp.MethodToolsCall, params).Await(ctx, &result); err != nil {
		return nil, fmt.Errorf("tool call failed: %w", err)
	}

	return &result, nil
}

// ListResources requests one page of resources from the server
func (c *client) ListResources(ctx context.Context, cursor *string) ([]mcp.Resource, *string, error) {
	if !c.initialized {
		return nil, nil, fmt.Errorf("client not initialized")
	}
	params := &mcp.ListResourcesRequestParams{Cursor: cursor}

	var result mcp.ListResourcesResult
	if err := c.conn.Call(ctx, mcp.MethodResourcesList, params).Await(ctx, &result); err != nil {
		return nil, nil, fmt.Errorf("list resources failed: %w", err)
	}

	return result.Resources, result.NextCursor, nil
}

func (c *client) ListResourceTemplates(
	ctx context.Context,
	cursor *string,
) ([]mcp.ResourceTemplate, *string, error) {
	if !c.initialized {
		return nil, nil, fmt.Errorf("client not initialized")
	}
	params := &mcp.ListResourceTemplatesRequestParams{Cursor: cursor}

	var result mcp.ListResourceTemplatesResult
	if err := c.conn.Call(ctx, mcp.MethodResourcesTemplatesList, params).Await(ctx, &result); err != nil {
		return nil, nil, fmt.Errorf("list resource templates failed: %w", err)
	}

	return result.ResourceTemplates, result.NextCursor, nil
}

// ReadResource reads the resource at uri
func (c *client) ReadResource(ctx context.Context, uri string) (*mcp.ReadResourceResult, error) {
	if !c.initialized {
		return nil, fmt.Errorf("client not initialized")
	}
	params := &mcp.ReadResourceRequestParams{Uri: uri}

	var result mcp.ReadResourceResult
	if err := c.conn.Call(ctx, mcp.MethodResourcesRead, params).Await(ctx, &result); err != nil {
		return nil, fmt.Errorf("read resource failed: %w", err)
	}

	return &result, nil
}

// Close shuts down the MCP client and server
func (c *client) Close() error {
	c.closeOnce.Do(func() {
		c.initialized = false

		if c.conn != nil {
			ctx := context.Background()
			_ = c.conn.Notify(ctx, mcp.NotifyExit, nil)
			_ = c.conn.Close()
		}

		c.logger.Debug("Closing MCP client")
		c.cancelFn()

		if c.cmd != nil && c.cmd.Process != nil {
			select {
			case <-c.exited:
				c.logger.Debug("Process already exited", "code", c.cmd.ProcessState.ExitCode())
			default:
				if err := c.cmd.Process.Kill(); err != nil {
					c.logger.Error("failed to kill process", "error", err)
				}
				<-c.exited
			}
		}

		c.logger.Debug("MCP client closed")
	})
	return nil
}
