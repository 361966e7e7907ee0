// Package tools provides the in-process tool registry and the built-in tool
// packs exposed by a substrate server.
//
// # Architecture
//
// Tools are grouped into packs, each a cohesive feature surface:
//
//   - ReferencePack: CRUD, listing, and cleanup over the reference store
//   - ExecutionPack: input composition and transformation with save-back
//   - WorkflowPack: workflow pattern discovery and step guidance
//   - DocumentationPack: documentation retrieval from YAML and legacy
//     Markdown sources
//
// The Registry holds all registered packs, detects tool name collisions, and
// dispatches tools/call invocations to the owning handler. All tools execute
// in-process; there is no external pack transport.
//
// # Handlers
//
// A ToolHandler receives the raw JSON arguments and returns a JSON result or
// an error. Handler errors carry user-facing guidance (for example, how to
// create a reference that was not found) and are surfaced verbatim to the
// calling client.
package tools
