// Package repositories implements SQLite persistence for local client state.
//
// Key Implementations:
//   - [KVRepository] : key-value rows backing the persisted session (the auth_tokens key)
//   - [ExportRunRepository] : history of bulk band exports
//
// Schemas come from the embedded migrations in the shared package; callers open
// the database with shared.OpenDatabase before constructing a repository.
package repositories
