// Package mcp implements the Model Context Protocol server exposing the
// substrate tool packs to external agents.
//
// # Protocol
//
// The server speaks JSON-RPC 2.0 over the MCP Streamable HTTP transport:
// a single endpoint accepts POST for requests and notifications and
// DELETE for session termination. Server-initiated SSE streams are not
// supported; every request gets a single JSON response.
//
// # Sessions
//
// The initialize handshake creates an in-memory session and returns its
// ID in the Mcp-Session-Id response header. All subsequent requests must
// carry that header; requests against unknown sessions get HTTP 404 so
// the client knows to re-initialize. Sessions hold no state beyond the
// negotiated protocol version, so losing them on restart is harmless.
//
// # Methods
//
//   - initialize: protocol handshake, session creation
//   - tools/list: definitions of every registered tool
//   - tools/call: dispatch to a tool handler via the registry
//
// Tool handler errors are returned as MCP tool results with isError set
// rather than as JSON-RPC errors, so agents can read the guidance text
// (for example the create-before-update hint from the reference tools).
//
// # Usage
//
//	server, err := mcp.NewServer(mcp.Config{Registry: registry, Logger: logger})
//	mux := http.NewServeMux()
//	server.RegisterRoutes(mux)
package mcp
