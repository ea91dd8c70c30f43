package mcp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"golang.org/x/exp/jsonrpc2"
)

func TestNewLineRawFramerRead(t *testing.T) {
	input := `{"jsonrpc":"2.0","id":1,"method":"ping"}` + "\n\n  \n" +
		`{"jsonrpc":"2.0","method":"exit"}`
	reader := NewLineRawFramer().Reader(strings.NewReader(input))
	ctx := context.Background()

	msg, _, err := reader.Read(ctx)
	if err != nil {
		t.Fatalf("first Read failed: %v", err)
	}
	req, ok := msg.(*jsonrpc2.Request)
	if !ok || req.Method != MethodPing || !req.ID.IsValid() {
		t.Fatalf("unexpected first message %+v", msg)
	}

	msg, _, err = reader.Read(ctx)
	if err != nil {
		t.Fatalf("second Read failed: %v", err)
	}
	req, ok = msg.(*jsonrpc2.Request)
	if !ok || req.Method != NotifyExit || req.ID.IsValid() {
		t.Fatalf("unexpected second message %+v", msg)
	}

	if _, _, err = reader.Read(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestNewLineRawFramerSkipsInvalid(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	input := "not json\n" + `{"jsonrpc":"2.0","id":2,"method":"ping"}` + "\n" + "trailing garbage"
	reader := NewLineRawFramerWithLogger(logger).Reader(strings.NewReader(input))
	ctx := context.Background()

	msg, _, err := reader.Read(ctx)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	req, ok := msg.(*jsonrpc2.Request)
	if !ok || req.Method != MethodPing || req.ID != jsonrpc2.Int64ID(2) {
		t.Fatalf("unexpected message %+v", msg)
	}
	if !strings.Contains(logs.String(), "level=WARN") || !strings.Contains(logs.String(), "not json") {
		t.Errorf("bad line not logged: %s", logs.String())
	}

	if _, _, err = reader.Read(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after trailing garbage, got %v", err)
	}
	if !strings.Contains(logs.String(), "trailing garbage") {
		t.Errorf("trailing line not logged: %s", logs.String())
	}
}

func TestNewLineRawFramerWrite(t *testing.T) {
	var buf bytes.Buffer
	writer := NewLineRawFramer().Writer(&buf)

	note, err := jsonrpc2.NewNotification(NotifyInitialized, nil)
	if err != nil {
		t.Fatal(err)
	}
	n, err := writer.Write(context.Background(), note)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	out := buf.String()
	if int(n) != len(out) || !strings.HasSuffix(out, "\n") || strings.Count(out, "\n") != 1 {
		t.Fatalf("unexpected frame %q (n=%d)", out, n)
	}
	if !strings.Contains(out, NotifyInitialized) {
		t.Errorf("frame %q lacks the method", out)
	}
}

func TestLoggingFramer(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	framer := &LoggingFramer{Base: NewLineRawFramer(), Logger: logger}

	reader := framer.Reader(strings.NewReader(`{"jsonrpc":"2.0","id":7,"method":"ping"}` + "\n"))
	if _, _, err := reader.Read(context.Background()); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	var out bytes.Buffer
	note, _ := jsonrpc2.NewNotification(NotifyExit, nil)
	if _, err := framer.Writer(&out).Write(context.Background(), note); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if !strings.Contains(logs.String(), "frame read") || !strings.Contains(logs.String(), "frame written") {
		t.Errorf("frames not logged: %s", logs.String())
	}
}

func TestStreamDialOnce(t *testing.T) {
	r, w := io.Pipe()
	s := NewStream(r, w)
	if _, err := s.Dial(context.Background()); err != nil {
		t.Fatalf("first Dial failed: %v", err)
	}
	if _, err := s.Dial(context.Background()); err == nil {
		t.Fatal("second Dial succeeded")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}
