package jsonrpc

// Error code space, per spec §3: standard JSON-RPC, MCP domain codes, and SDK
// codes. The codec and engine only use these as integer constants; kind-to-code
// mapping lives in the engine's error taxonomy (see engine.MCPError).
const (
	CodeParseError     int32 = -32700
	CodeInvalidRequest int32 = -32600
	CodeMethodNotFound int32 = -32601
	CodeInvalidParams  int32 = -32602
	CodeInternalError  int32 = -32603

	CodeResourceNotFound       int32 = -32002
	CodeURLElicitationRequired int32 = -32042

	CodeConnectionClosed int32 = -32000
	CodeRequestTimeout   int32 = -32001
	CodeTransportError   int32 = -32003
	CodeRequestCancelled int32 = -32004
)
