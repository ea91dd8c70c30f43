// Package mcp holds the MCP wire shapes and the jsonrpc2 framing shared by
// the server session and the client.
package mcp

// ProtocolVersion is the MCP revision spoken on the wire.
const ProtocolVersion = "2024-11-05"

// Method names.
const (
	MethodInitialize  = "initialize"
	MethodPing        = "ping"
	MethodToolsList   = "tools/list"
	MethodToolsCall   = "tools/call"

	MethodResourcesList          = "resources/list"
	MethodResourcesTemplatesList = "resources/templates/list"
	MethodResourcesRead          = "resources/read"

	NotifyInitialized = "notifications/initialized"
	NotifyExit        = "exit"
)

// ContentTypeText is the only content item variant produced by tools.
const ContentTypeText = "text"

// Implementation describes the name and version of an MCP implementation.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type ClientCapabilities struct {
	Experimental map[string]interface{} `json:"experimental,omitempty"`
}

type ServerCapabilitiesTools struct {
	// ListChanged is always false: the tool set is fixed for the life of
	// the process.
	ListChanged *bool `json:"listChanged,omitempty"`
}

type ServerCapabilitiesResources struct {
	ListChanged *bool `json:"listChanged,omitempty"`
	Subscribe   *bool `json:"subscribe,omitempty"`
}

type ServerCapabilities struct {
	Logging   map[string]interface{}       `json:"logging,omitempty"`
	Resources *ServerCapabilitiesResources `json:"resources,omitempty"`
	Tools     *ServerCapabilitiesTools     `json:"tools,omitempty"`
}

type InitializeRequestParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ClientCapabilities `json:"capabilities"`
	ClientInfo      Implementation     `json:"clientInfo"`
}

type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      Implementation     `json:"serverInfo"`
	Instructions    *string            `json:"instructions,omitempty"`
}

// Property declares the primitive type of a single tool argument.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// ToolInputSchema is the object schema a tool's arguments must satisfy.
type ToolInputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Tool is the descriptor advertised by tools/list.
type Tool struct {
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	InputSchema ToolInputSchema `json:"inputSchema"`
}

type ListToolsRequestParams struct {
	Cursor *string `json:"cursor,omitempty"`
}

type ListToolsResult struct {
	Tools      []Tool  `json:"tools"`
	NextCursor *string `json:"nextCursor,omitempty"`
}

type CallToolRequestParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// Content is a single typed unit of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type CallToolResult struct {
	Content []Content `json:"content"`
	IsError *bool     `json:"isError,omitempty"`
}

// TextContent builds a text content item.
func TextContent(text string) Content {
	return Content{Type: ContentTypeText, Text: text}
}

// Resource is a fixed URI advertised by resources/list.
type Resource struct {
	URI         string  `json:"uri"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	MimeType    *string `json:"mimeType,omitempty"`
}

// ResourceTemplate is a parameterized URI family such as greeting://{name}.
type ResourceTemplate struct {
	URITemplate string  `json:"uriTemplate"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	MimeType    *string `json:"mimeType,omitempty"`
}

type ListResourcesRequestParams struct {
	Cursor *string `json:"cursor,omitempty"`
}

type ListResourcesResult struct {
	Resources  []Resource `json:"resources"`
	NextCursor *string    `json:"nextCursor,omitempty"`
}

type ListResourceTemplatesRequestParams struct {
	Cursor *string `json:"cursor,omitempty"`
}

type ListResourceTemplatesResult struct {
	ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
	NextCursor        *string            `json:"nextCursor,omitempty"`
}

type ReadResourceRequestParams struct {
	Uri string `json:"uri"`
}

// ResourceContents is the text body of a read resource.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}

type ReadResourceResult struct {
	Contents []ResourceContents `json:"contents"`
}
