// Package pstore implements the pocketdb store engine: an in-memory
// key-value table with optional per-key expiration, whole-database snapshot
// persistence and a background auto-save loop. It provides the complete
// implementation of the store.IStore interface.
//
// The package focuses on:
//   - A single-lock concurrency model: one mutex serializes every read and
//     write to the value table, the expiry table and the statistics
//     counters, so operations appear totally ordered
//   - Lazy expiration: expired entries are never scanned for on a timer;
//     they are pruned synchronously as the first step of every
//     table-touching operation, making each operation's cost proportional
//     to the number of TTL-bearing keys rather than total store size
//   - All-or-nothing persistence: snapshots are decoded fully before any
//     in-memory state is replaced, and written via temp-file-and-rename so
//     a failed save never corrupts the previous snapshot
//
// Key Components:
//
//   - storeImpl: The central structure owning both tables, the counters and
//     the auto-save lifecycle. Internal helpers carry the Locked suffix and
//     assume the mutex is held by the calling operation.
//
//   - snapshot: The on-disk image, a versioned self-describing JSON
//     document containing the value table, the expiry table (absolute Unix
//     seconds) and the advisory statistics counters. Default path is
//     <name>.pdb next to the process.
//
//   - Auto-save: A goroutine started exactly once at construction that
//     snapshots the store at a fixed interval. Failures are logged and
//     swallowed; the loop retries on its next cycle. Shutdown stops the
//     loop synchronously and writes one final snapshot.
//
// Disk I/O during Save and Load happens while holding the store lock, so a
// slow disk stalls concurrent operations for the duration. This trades
// throughput for snapshot consistency.
package pstore
