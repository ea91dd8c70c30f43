// Command mcp-call starts an MCP server and lists its tools or calls one.
// It can also list the server's resources or read one.
//
//	mcp-call [-tool name -args '{"a":2,"b":3}'] -- server-cmd [server-args...]
//	mcp-call -resources -- server-cmd
//	mcp-call -resource greeting://Ada -- server-cmd
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/y0ug/mcptools"
	"github.com/y0ug/mcptools/internal/client"
	"github.com/y0ug/mcptools/internal/mcp"
)

func main() {
	tool := flag.String("tool", "", "Tool to call; empty lists tools")
	rawArgs := flag.String("args", "{}", "Tool arguments as a JSON object")
	timeout := flag.Duration("timeout", 30*time.Second, "Overall timeout")
	listResources := flag.Bool("resources", false, "List resources and resource templates")
	resource := flag.String("resource", "", "Resource URI to read")
	verbose := flag.Bool("v", false, "Debug logging")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: mcp-call [-tool name -args json | -resources | -resource uri] -- server-cmd [args...]")
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	req := request{tool: *tool, rawArgs: *rawArgs, listResources: *listResources, resource: *resource}
	if err := run(ctx, logger, req, flag.Args()); err != nil {
		logger.Error("mcp-call failed", "error", err)
		os.Exit(1)
	}
}

// request is what the flags ask of the server.
type request struct {
	tool          string
	rawArgs       string
	listResources bool
	resource      string
}

func run(ctx context.Context, logger *slog.Logger, req request, server []string) error {
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(req.rawArgs), &args); err != nil {
		return fmt.Errorf("parse -args: %w", err)
	}

	c, err := mcptools.NewClient(ctx, logger, server[0], server[1:]...)
	if err != nil {
		return err
	}
	defer c.Close()

	info, err := c.Initialize(ctx)
	if err != nil {
		return err
	}
	logger.Info("Connected", "server", info.ServerInfo.Name, "version", info.ServerInfo.Version)

	switch {
	case req.listResources:
		return printResources(ctx, c)
	case req.resource != "":
		result, err := c.ReadResource(ctx, req.resource)
		if err != nil {
			return err
		}
		for _, item := range result.Contents {
			fmt.Println(item.Text)
		}
		return nil
	}

	if req.tool == "" {
		tools, err := client.FetchAll(ctx, c.ListTools)
		if err != nil {
			return err
		}
		for _, t := range tools {
			fmt.Println(describe(t))
		}
		return nil
	}

	result, err := c.CallTool(ctx, req.tool, args)
	if err != nil {
		return err
	}
	for _, item := range result.Content {
		fmt.Println(item.Text)
	}
	return nil
}

func printResources(ctx context.Context, c client.Client) error {
	resources, err := client.FetchAll(ctx, c.ListResources)
	if err != nil {
		return err
	}
	for _, r := range resources {
		fmt.Println(r.URI, "-", r.Name)
	}
	templates, err := client.FetchAll(ctx, c.ListResourceTemplates)
	if err != nil {
		return err
	}
	for _, r := range templates {
		fmt.Println(r.URITemplate, "-", r.Name)
	}
	return nil
}

func describe(t mcp.Tool) string {
	desc := ""
	if t.Description != nil {
		desc = " - " + *t.Description
	}
	return fmt.Sprintf("%s%s %v", t.Name, desc, t.InputSchema.Required)
}
