package mcptools

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/y0ug/mcptools/internal/mcp"
	"golang.org/x/exp/jsonrpc2"
)

func newTestSession(t *testing.T) (*Session, *countingHandler) {
	t.Helper()
	h := &countingHandler{text: "echoed"}
	r := NewRegistry()
	r.MustRegister(testTool("echo"), h.handle)
	r.MustRegister(Tool{Name: "fail"}, func(ctx context.Context, args Arguments) (string, error) {
		return "", errBoom
	})
	res := NewResourceRegistry()
	if err := res.AddResource(Resource{URI: "info://test", Name: "info"}, staticReader("test info")); err != nil {
		t.Fatalf("AddResource failed: %v", err)
	}
	if err := res.AddTemplate(ResourceTemplate{URITemplate: "echo://{msg}", Name: "echo"}, echoReader); err != nil {
		t.Fatalf("AddTemplate failed: %v", err)
	}
	return NewSession(discardLogger(), Implementation{Name: "test", Version: "0.0.1"}, r, res), h
}

func call(t *testing.T, s *Session, id int64, method string, params interface{}) (interface{}, error) {
	t.Helper()
	req, err := jsonrpc2.NewCall(jsonrpc2.Int64ID(id), method, params)
	if err != nil {
		t.Fatalf("NewCall(%s) failed: %v", method, err)
	}
	return s.Handle(context.Background(), req)
}

func TestSessionInitialize(t *testing.T) {
	s, _ := newTestSession(t)
	resp, err := call(t, s, 1, mcp.MethodInitialize, InitializeRequestParams{
		ProtocolVersion: mcp.ProtocolVersion,
		ClientInfo:      Implementation{Name: "tester", Version: "1"},
	})
	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	result, ok := resp.(InitializeResult)
	if !ok {
		t.Fatalf("unexpected result type %T", resp)
	}
	if result.ServerInfo.Name != "test" || result.ProtocolVersion != mcp.ProtocolVersion {
		t.Errorf("unexpected initialize result %+v", result)
	}
	if result.Capabilities.Tools == nil {
		t.Error("tools capability not advertised")
	}
	if result.Capabilities.Resources == nil {
		t.Error("resources capability not advertised")
	}
}

func TestSessionListTools(t *testing.T) {
	s, _ := newTestSession(t)
	resp, err := call(t, s, 1, mcp.MethodToolsList, nil)
	if err != nil {
		t.Fatalf("tools/list failed: %v", err)
	}
	result := resp.(mcp.ListToolsResult)
	if len(result.Tools) != 2 || result.Tools[0].Name != "echo" || result.Tools[1].Name != "fail" {
		t.Fatalf("unexpected tools %+v", result.Tools)
	}

	if got := s.ListTools(); len(got) != 2 {
		t.Fatalf("ListTools returned %d tools", len(got))
	}
}

func TestSessionCallTool(t *testing.T) {
	s, h := newTestSession(t)
	resp, err := call(t, s, 1, mcp.MethodToolsCall, mcp.CallToolRequestParams{
		Name:      "echo",
		Arguments: map[string]interface{}{"msg": "hi"},
	})
	if err != nil {
		t.Fatalf("tools/call failed: %v", err)
	}
	result := resp.(*CallToolResult)
	if result.Content[0].Text != "echoed" {
		t.Errorf("unexpected result %+v", result)
	}
	if h.calls != 1 {
		t.Errorf("handler invoked %d times", h.calls)
	}
}

func TestSessionCallToolErrors(t *testing.T) {
	s, h := newTestSession(t)
	tests := []struct {
		name    string
		params  interface{}
		wantMsg string
	}{
		{"unknown tool", mcp.CallToolRequestParams{Name: "subtract"}, "unknown tool: subtract"},
		{"missing field", mcp.CallToolRequestParams{Name: "echo"}, `missing required field "msg"`},
		{"type mismatch", mcp.CallToolRequestParams{Name: "echo", Arguments: map[string]interface{}{"msg": 1}},
			`field "msg": expected string, got number`},
		{"handler failure", mcp.CallToolRequestParams{Name: "fail"}, "tool fail failed: boom"},
		{"no name", mcp.CallToolRequestParams{}, "requires a tool name"},
		{"bad params", json.RawMessage(`[1,2]`), "failed to unmarshal tools/call params"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := call(t, s, int64(i+1), mcp.MethodToolsCall, tt.params)
			if err == nil {
				t.Fatalf("expected error, got %+v", resp)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
	if h.calls != 0 {
		t.Errorf("echo handler invoked %d times", h.calls)
	}
}

func TestSessionCallToolTypedErrors(t *testing.T) {
	s, _ := newTestSession(t)
	_, err := s.CallTool(context.Background(), "subtract", nil)
	var inv *InvocationError
	if !errors.As(err, &inv) || inv.Code != UnknownTool {
		t.Fatalf("CallTool error = %v, want UnknownTool", err)
	}
}

func TestSessionFailureIsolation(t *testing.T) {
	s, _ := newTestSession(t)
	if _, err := call(t, s, 1, mcp.MethodToolsCall, mcp.CallToolRequestParams{Name: "fail"}); err == nil {
		t.Fatal("expected the failing call to fail")
	}
	resp, err := call(t, s, 2, mcp.MethodToolsCall, mcp.CallToolRequestParams{
		Name:      "echo",
		Arguments: map[string]interface{}{"msg": "again"},
	})
	if err != nil {
		t.Fatalf("call after failure failed: %v", err)
	}
	if resp.(*CallToolResult).Content[0].Text != "echoed" {
		t.Errorf("unexpected result after failure: %+v", resp)
	}
}

func TestSessionUnknownMethodAndNotifications(t *testing.T) {
	s, _ := newTestSession(t)
	if _, err := call(t, s, 1, "prompts/list", nil); !errors.Is(err, jsonrpc2.ErrNotHandled) {
		t.Errorf("unknown method error = %v, want ErrNotHandled", err)
	}

	note, err := jsonrpc2.NewNotification(mcp.NotifyInitialized, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := s.Handle(context.Background(), note)
	if resp != nil || err != nil {
		t.Errorf("notification returned %v, %v", resp, err)
	}
}

func TestSessionPing(t *testing.T) {
	s, _ := newTestSession(t)
	if _, err := call(t, s, 1, mcp.MethodPing, nil); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
}

func TestSessionNotificationForRequestMethodIsLogged(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	s := NewSession(logger, Implementation{Name: "test"}, NewRegistry(), nil)

	note, err := jsonrpc2.NewNotification(mcp.MethodToolsCall, mcp.CallToolRequestParams{Name: "echo"})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := s.Handle(context.Background(), note)
	if resp != nil || err != nil {
		t.Fatalf("notification returned %v, %v", resp, err)
	}
	out := logs.String()
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, "method=tools/call") {
		t.Errorf("expected a warning for tools/call sent as a notification, got: %s", out)
	}

	logs.Reset()
	initialized, _ := jsonrpc2.NewNotification(mcp.NotifyInitialized, nil)
	if _, err := s.Handle(context.Background(), initialized); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(logs.String(), "level=WARN") {
		t.Errorf("notifications/initialized should not warn: %s", logs.String())
	}
}

func TestSessionResources(t *testing.T) {
	s, _ := newTestSession(t)

	resp, err := call(t, s, 1, mcp.MethodResourcesList, nil)
	if err != nil {
		t.Fatalf("resources/list failed: %v", err)
	}
	if list := resp.(mcp.ListResourcesResult); len(list.Resources) != 1 || list.Resources[0].URI != "info://test" {
		t.Fatalf("unexpected resources %+v", list)
	}

	resp, err = call(t, s, 2, mcp.MethodResourcesTemplatesList, nil)
	if err != nil {
		t.Fatalf("resources/templates/list failed: %v", err)
	}
	if list := resp.(mcp.ListResourceTemplatesResult); len(list.ResourceTemplates) != 1 {
		t.Fatalf("unexpected templates %+v", list)
	}

	resp, err = call(t, s, 3, mcp.MethodResourcesRead, mcp.ReadResourceRequestParams{Uri: "echo://hi"})
	if err != nil {
		t.Fatalf("resources/read failed: %v", err)
	}
	if got := resp.(*ReadResourceResult).Contents[0].Text; got != "hi" {
		t.Errorf("read returned %q", got)
	}
}

func TestSessionReadResourceErrors(t *testing.T) {
	s, _ := newTestSession(t)
	tests := []struct {
		name     string
		params   interface{}
		wantCode int64
	}{
		{"unknown uri", mcp.ReadResourceRequestParams{Uri: "nope://x"}, codeResourceNotFound},
		{"reader failure", mcp.ReadResourceRequestParams{Uri: "echo://fail"}, codeInternalError},
		{"no uri", mcp.ReadResourceRequestParams{}, codeInvalidParams},
		{"bad params", json.RawMessage(`[1]`), codeInvalidParams},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := call(t, s, int64(i+1), mcp.MethodResourcesRead, tt.params)
			if err == nil {
				t.Fatal("expected error")
			}
			if code := wireCode(t, err); code != tt.wantCode {
				t.Errorf("code = %d, want %d (%v)", code, tt.wantCode, err)
			}
		})
	}
}

// wireCode returns the JSON-RPC error code err carries on the wire.
func wireCode(t *testing.T, err error) int64 {
	t.Helper()
	resp, rerr := jsonrpc2.NewResponse(jsonrpc2.Int64ID(1), nil, err)
	if rerr != nil {
		t.Fatal(rerr)
	}
	data, rerr := jsonrpc2.EncodeMessage(resp)
	if rerr != nil {
		t.Fatal(rerr)
	}
	var wire struct {
		Error struct {
			Code int64 `json:"code"`
		} `json:"error"`
	}
	if rerr := json.Unmarshal(data, &wire); rerr != nil {
		t.Fatal(rerr)
	}
	return wire.Error.Code
}

func TestSessionServeSkipsUndecodableLine(t *testing.T) {
	s, h := newTestSession(t)
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- s.Serve(ctx, mcp.NewStream(inR, outW), mcp.NewLineRawFramerWithLogger(discardLogger()))
	}()

	go func() {
		fmt.Fprint(inW, "garbage\n")
		fmt.Fprint(inW, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"msg":"hi"}}}`+"\n")
	}()

	line, err := bufio.NewReader(outR).ReadBytes('\n')
	if err != nil {
		t.Fatalf("no response after undecodable line: %v", err)
	}
	msg, err := jsonrpc2.DecodeMessage(line)
	if err != nil {
		t.Fatalf("undecodable response %q: %v", line, err)
	}
	resp, ok := msg.(*jsonrpc2.Response)
	if !ok || resp.ID != jsonrpc2.Int64ID(2) || resp.Error != nil {
		t.Fatalf("unexpected response %s", line)
	}
	if h.calls != 1 {
		t.Errorf("handler invoked %d times", h.calls)
	}

	inW.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v after end of input", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after end of input")
	}
}
