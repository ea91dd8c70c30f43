// Command mcp-hello serves the built-in hello-world tools over stdio or HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/y0ug/mcptools"
	"github.com/y0ug/mcptools/internal/builtin"
	"github.com/y0ug/mcptools/internal/config"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (default: $"+config.EnvConfigPath+")")
	transport := flag.String("transport", "", "Override transport.kind (stdio or http)")
	addr := flag.String("addr", "", "Override transport.addr for http")
	flag.Parse()

	cfg, err := config.Load(config.ResolvePath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "mcp-hello: %v\n", err)
		os.Exit(1)
	}
	if *transport != "" {
		cfg.Transport.Kind = *transport
	}
	if *addr != "" {
		cfg.Transport.Addr = *addr
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "mcp-hello: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol, so logs go to stderr
	logger := cfg.NewLogger(os.Stderr)

	if err := run(context.Background(), logger, cfg); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config) error {
	session, err := newSession(logger, cfg, mcptools.NewRegistry())
	if err != nil {
		return err
	}

	logger.Info("Starting MCP server", "transport", cfg.Transport.Kind)
	switch cfg.Transport.Kind {
	case config.TransportHTTP:
		return serveHTTP(ctx, logger, cfg.Transport.Addr, session)
	default:
		return session.ServeStdio(ctx)
	}
}

// newSession fills registry with the enabled built-in tools, adds the
// built-in resources and returns the session serving both. Any
// registration failure is returned before a channel is bound.
func newSession(logger *slog.Logger, cfg *config.Config, registry *mcptools.Registry) (*mcptools.Session, error) {
	if err := builtin.Register(registry, logger, cfg.Tools.Enabled...); err != nil {
		return nil, fmt.Errorf("build tool registry: %w", err)
	}

	info := mcptools.Implementation{
		Name:    cfg.Server.Name,
		Version: cfg.Server.Version,
	}
	resources := mcptools.NewResourceRegistry()
	if err := builtin.RegisterResources(resources, logger, info, registry); err != nil {
		return nil, fmt.Errorf("build resource registry: %w", err)
	}

	logger.Debug("Registries built", "tools", registry.Len(), "resources", resources.Len())
	return mcptools.NewSession(logger, info, registry, resources), nil
}

func serveHTTP(ctx context.Context, logger *slog.Logger, addr string, session *mcptools.Session) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              addr,
		Handler:           mcptools.NewHTTPHandler(session),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("Server running on HTTP", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}
