/*
Package storage holds the durable backends behind the session blob.

Backends:
  - FileStore: a single JSON file written atomically, with optional zstd
    compressed timestamped backups
  - SQLiteStore: a pure Go SQLite database with a bounded snapshot history
  - MemoryStore: process-local, for tests and ephemeral runs

Every backend loads "{}" when nothing has been stored yet.
*/
package storage
