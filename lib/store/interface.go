package store

import (
	"fmt"
	"io"

	"github.com/pocketdb/pocketdb/lib/store/value"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// Item is one key-value pair as returned by full enumeration.
type Item struct {
	Key   string      `json:"key"`
	Value value.Value `json:"value"`
}

// Stats is a point-in-time snapshot of the usage counters of a store.
// All counters are scoped to the lifetime of one store instance; they are
// included in snapshots for inspection but are advisory only.
type Stats struct {
	Size    int     `json:"size"`
	TTLKeys int     `json:"ttl_keys"`
	Gets    uint64  `json:"gets"`
	Sets    uint64  `json:"sets"`
	Deletes uint64  `json:"deletes"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	Expired uint64  `json:"expired"`
	HitRate float64 `json:"hit_rate"`
}

// IStore is the generic interface for interacting with a pocketdb store.
// All operations are safe for concurrent use; every table-touching operation
// first prunes expired entries, so no caller ever observes an entry whose
// expiry instant lies in the past.
type IStore interface {
	// Set inserts or updates a key-value pair without expiry. If the key
	// previously carried a TTL, the TTL is discarded and the key becomes
	// persistent.
	Set(key string, val value.Value) (err error)
	// SetTTL inserts or updates a key-value pair that expires ttlSeconds
	// from now. ttlSeconds must be a positive number of seconds.
	SetTTL(key string, val value.Value, ttlSeconds int64) (err error)
	// Get returns the value for a key. A missing key is an error
	// (RetCKeyNotFound); use GetDefault when absence is expected.
	Get(key string) (val value.Value, err error)
	// GetDefault returns the value for a key, or def if the key is absent.
	GetDefault(key string, def value.Value) (val value.Value, err error)
	// Delete removes a key-value pair and any associated expiry. The boolean
	// reports whether an entry was actually removed; a missing key is not an
	// error.
	Delete(key string) (removed bool, err error)
	// Exists reports whether a key is present. It does not touch the
	// get/hit/miss counters.
	Exists(key string) (found bool, err error)
	// Size returns the number of live entries.
	Size() (n int)
	// Keys returns all keys matching a shell-style glob pattern. Keys are
	// opaque strings, so "*" and "?" match any characters including "/";
	// a pattern without wildcard characters is an exact-match filter.
	// Order is unspecified.
	Keys(pattern string) (keys []string, err error)
	// Values returns all values. Order is unspecified.
	Values() (vals []value.Value)
	// Items returns all key-value pairs. Order is unspecified.
	Items() (items []Item)
	// Reset clears all entries unconditionally. Statistics are kept and no
	// snapshot is written.
	Reset()
	// Stats returns the current usage counters.
	Stats() (stats Stats)
	// Save writes a full snapshot to filename, or to the store's default
	// file when filename is empty. The in-memory state is left unchanged.
	Save(filename string) (err error)
	// Load replaces the store's state wholesale with the snapshot in
	// filename (default file when empty). On any failure the in-memory
	// state is left untouched.
	Load(filename string) (err error)
	// WriteMetrics writes the store's operational metrics in Prometheus
	// text format.
	WriteMetrics(w io.Writer)
	// Shutdown stops the auto-save loop and writes one final snapshot to
	// the default file. The store must not be used afterwards.
	Shutdown() (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode),
// an error message and optionally the underlying cause.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
	Err  error   // The wrapped cause (disk errors), may be nil
}

// Error implements the error interface.
func (e *Error) Error() string {
	errorCode := ""
	switch e.Code {
	case RetCInvalidKey:
		errorCode = "InvalidKey"
	case RetCInvalidValue:
		errorCode = "InvalidValue"
	case RetCKeyNotFound:
		errorCode = "KeyNotFound"
	case RetCDiskError:
		errorCode = "DiskError"
	default:
		errorCode = "Unknown"
	}

	if e.Err != nil {
		return fmt.Sprintf("PocketDBError (code %s): %s: %v", errorCode, e.Msg, e.Err)
	}
	return fmt.Sprintf("PocketDBError (code %s): %s", errorCode, e.Msg)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// WrapError creates a new Error that wraps an underlying cause.
func WrapError(code RetCode, msg string, err error) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
		Err:  err,
	}
}

// CodeOf returns the return code of an error, or RetCSuccess for nil and
// RetCInternalError for foreign error types.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return RetCInternalError
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess       RetCode = iota // 0: Operation executed successfully.
	RetCInternalError                // 1: Operation failed due to an internal error.
	RetCInvalidKey                   // 2: Key is not a non-empty string after trimming.
	RetCInvalidValue                 // 3: Value is not serializable or the TTL is not positive.
	RetCKeyNotFound                  // 4: Get on a missing key without a default.
	RetCDiskError                    // 5: I/O or (de)serialization failure during Save/Load.
)
