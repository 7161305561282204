// Package store defines the public contract for pocketdb, an embedded,
// process-local key-value store with per-key expiration, full-snapshot
// persistence and usage statistics. It contains the IStore interface, the
// Stats record and a unified error system; the engine itself lives in the
// pstore subpackage.
//
// The package focuses on:
//   - A single interface (IStore) covering all store operations, so that
//     shells, benchmarks and tests depend only on the contract
//   - Typed error reporting through Error and RetCode, preserving the
//     distinction between hard failures (a Get on a missing key) and normal
//     negative results (a Delete on a missing key)
//
// Key Components:
//
//   - IStore Interface: The core abstraction defining every operation of the
//     store engine. All methods are safe for concurrent use; the engine
//     serializes access internally. Table-touching operations prune expired
//     entries before proceeding, so callers never observe stale entries.
//
//   - Error System: A structured error type carrying a RetCode, a message
//     and optionally the underlying cause (for disk errors). CodeOf allows
//     callers to classify failures without type assertions.
//
//   - Stats: A plain record of the store's monotone usage counters plus the
//     derived hit rate.
//
// Implementations:
//
//	The engine implementation is provided by the
//	"github.com/pocketdb/pocketdb/lib/store/pstore" package, values are
//	modelled by the "github.com/pocketdb/pocketdb/lib/store/value" package.
package store
