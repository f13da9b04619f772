// Package store provides SQLite-backed persistence for deployed metadata.
//
// Tables:
//   - objects: one row per (type, identifier), body stored as canonical JSON
//   - settings: key/value pairs, including chore completion markers
//   - imported_packages: highest imported version per package group
//   - runs: one row per deploy run
//
// Objects are read and written through a Session, a unit of work with an
// identity map: within a session the same (type, identifier) always yields the
// same instance, and nothing reaches the database until Flush. Flush writes
// every changed object in one transaction and skips rows whose content
// fingerprint is unchanged, so redeploying an identical distribution writes
// nothing. Clear drops the identity map; callers Flush first.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Queries that return more than one row order by their key with
// COLLATE BINARY so results are identical across runs.
package store
