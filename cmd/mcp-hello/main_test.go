package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/y0ug/mcptools"
	"github.com/y0ug/mcptools/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSession(t *testing.T) {
	session, err := newSession(discardLogger(), config.Default(), mcptools.NewRegistry())
	if err != nil {
		t.Fatalf("newSession failed: %v", err)
	}
	if got := len(session.ListTools()); got != 3 {
		t.Errorf("expected 3 tools, got %d", got)
	}
	if _, err := session.ReadResource(context.Background(), "info://server"); err != nil {
		t.Errorf("info://server not served: %v", err)
	}
}

func TestNewSessionDuplicateTool(t *testing.T) {
	registry := mcptools.NewRegistry()
	registry.MustRegister(mcptools.Tool{Name: "greet"}, func(ctx context.Context, args mcptools.Arguments) (string, error) {
		return "", nil
	})

	_, err := newSession(discardLogger(), config.Default(), registry)
	if !errors.Is(err, mcptools.ErrDuplicateToolName) {
		t.Fatalf("expected ErrDuplicateToolName, got %v", err)
	}
}

func TestNewSessionUnknownEnabledTool(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.Enabled = []string{"greet", "subtract"}

	registry := mcptools.NewRegistry()
	if _, err := newSession(discardLogger(), cfg, registry); err == nil {
		t.Fatal("expected error for unknown enabled tool")
	}
	if registry.Len() != 0 {
		t.Errorf("registry should stay empty, has %d tools", registry.Len())
	}
}
