// Package refs provides durable, versioned storage for named references.
//
// # Architecture
//
// A reference is a named unit of text content (a prompt, template, persona,
// or intermediate result) addressed by a hierarchical slash-delimited name
// such as "prompts/greeting" or "pipeline/step3". The package has three
// parts:
//
//   - Resolver: bijective mapping between reference names and on-disk
//     storage paths, with normalization and traversal safety
//   - Store: the contract consumed by every feature module (tools, webview,
//     ledger consumers)
//   - FileStore: the only implementation; one YAML file per reference under
//     a storage root
//
// # Versioning
//
// Every reference carries a version that starts at 1 on first creation and
// increments by exactly 1 on every content-modifying write. Writes to the
// same name are serialized through a per-name lock table, so concurrent
// writers never lose an update and no two successful writes return the same
// version. Deleting a reference destroys its lineage; a later create starts
// again at version 1.
//
// # Formats
//
// The current on-disk format is YAML. Records written by older deployments
// in the legacy JSON format remain readable: Read falls back to the .json
// file when no .yaml record exists, and any successful write upgrades the
// record to YAML and removes the legacy file.
//
// # Error Handling
//
// Failures are classified by four sentinel errors, matched with errors.Is:
//
//   - ErrInvalidName: malformed reference name, a caller error
//   - ErrNotFound: no record exists under the name in either format
//   - ErrStorageIO: the underlying filesystem operation failed
//   - ErrFormat: a record exists but its bytes parse in neither format
//
// All operations accept context.Context for cancellation support.
package refs
