// Package sqlite contains SQLite repository implementations for range
// image snapshots.
//
// All database read/write operations for persisted images belong here
// rather than in l3grid, which only knows the SnapshotStore interface.
// Tests can swap in an in-memory fake for the store.
package sqlite
