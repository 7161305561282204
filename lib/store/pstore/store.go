package pstore

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/hashicorp/go-hclog"
	"github.com/pocketdb/pocketdb/lib/store"
	"github.com/pocketdb/pocketdb/lib/store/value"
)

// --------------------------------------------------------------------------
// Constants and Options
// --------------------------------------------------------------------------

// Constants for store behavior and structure
const (
	defaultName             = "pocketdb"
	defaultFileExt          = ".pdb"            // Snapshot file extension
	defaultAutoSaveInterval = 60 * time.Second  // Default interval between auto-saves
)

// DefaultFilename derives the default snapshot filename for a store name.
func DefaultFilename(name string) string {
	return name + defaultFileExt
}

// Options configures the store behavior during initialization
type Options struct {
	Name             string        // Store name, used to derive the default snapshot filename
	AutoSaveInterval time.Duration // Time between auto-saves (0 = use default: 60 sec)
	Logger           hclog.Logger  // Logger for lifecycle and auto-save events (nil = discard)
}

// DefaultOptions returns the default store options
func DefaultOptions() *Options {
	return &Options{
		Name:             defaultName,
		AutoSaveInterval: defaultAutoSaveInterval,
	}
}

// --------------------------------------------------------------------------
// Core store structure
// --------------------------------------------------------------------------

// counters holds the monotone usage counters. Guarded by storeImpl.mu.
type counters struct {
	gets    uint64
	sets    uint64
	deletes uint64
	hits    uint64
	misses  uint64
	expired uint64
}

// storeImpl implements store.IStore with two tables (values and expiry
// instants) kept in lockstep under a single mutex.
type storeImpl struct {
	name        string
	defaultFile string

	mu    sync.Mutex
	data  map[string]value.Value
	ttl   map[string]time.Time
	stats counters

	// now is read once per pruning pass; swapped out in tests
	now func() time.Time

	// auto-save lifecycle
	interval        time.Duration
	autoSaveRunning atomic.Bool
	stopCh          chan struct{}
	doneCh          chan struct{}

	logger hclog.Logger

	// operational metrics (prometheus text via WriteMetrics)
	metrics       *metrics.Set
	mSets         *metrics.Counter
	mGets         *metrics.Counter
	mDeletes      *metrics.Counter
	mExpired      *metrics.Counter
	mSaves        *metrics.Counter
	mSaveFailures *metrics.Counter
	mLoads        *metrics.Counter
	mLoadFailures *metrics.Counter
}

// New creates a new store instance and immediately starts its background
// auto-save task. The returned store must be released with Shutdown.
func New(opts *Options) store.IStore {
	return newStore(opts)
}

func newStore(opts *Options) *storeImpl {
	if opts == nil {
		opts = DefaultOptions()
	}

	name := opts.Name
	if name == "" {
		name = defaultName
	}
	interval := opts.AutoSaveInterval
	if interval <= 0 {
		interval = defaultAutoSaveInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	s := &storeImpl{
		name:        name,
		defaultFile: DefaultFilename(name),
		data:        make(map[string]value.Value),
		ttl:         make(map[string]time.Time),
		now:         time.Now,
		interval:    interval,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
		logger:      logger.Named("pstore"),
	}

	// one metrics set per instance so tests can create stores freely
	s.metrics = metrics.NewSet()
	s.mSets = s.metrics.NewCounter(`pocketdb_ops_total{op="set"}`)
	s.mGets = s.metrics.NewCounter(`pocketdb_ops_total{op="get"}`)
	s.mDeletes = s.metrics.NewCounter(`pocketdb_ops_total{op="delete"}`)
	s.mExpired = s.metrics.NewCounter(`pocketdb_keys_expired_total`)
	s.mSaves = s.metrics.NewCounter(`pocketdb_snapshot_saves_total`)
	s.mSaveFailures = s.metrics.NewCounter(`pocketdb_snapshot_save_failures_total`)
	s.mLoads = s.metrics.NewCounter(`pocketdb_snapshot_loads_total`)
	s.mLoadFailures = s.metrics.NewCounter(`pocketdb_snapshot_load_failures_total`)

	s.startAutoSave()

	return s
}

// --------------------------------------------------------------------------
// Validation Helpers
// --------------------------------------------------------------------------

// validateKey fails unless the key is non-empty after trimming whitespace.
func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return store.NewError(store.RetCInvalidKey, "key must be a non-empty string")
	}
	return nil
}

// --------------------------------------------------------------------------
// Lazy Expiration
// --------------------------------------------------------------------------

// pruneLocked removes every entry whose expiry instant lies in the past
// from both tables. It is the first step of every table-touching operation.
//
// The caller must hold s.mu. The current instant is read once per pass, so
// the cost is proportional to the number of TTL-bearing keys.
func (s *storeImpl) pruneLocked() {
	if len(s.ttl) == 0 {
		return
	}

	now := s.now()
	for key, expiry := range s.ttl {
		if now.After(expiry) {
			delete(s.data, key)
			delete(s.ttl, key)
			s.stats.expired++
			s.mExpired.Inc()
		}
	}
}

// --------------------------------------------------------------------------
// Interface Methods - Write Operations (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Set(key string, val value.Value) error {
	return s.set(key, val, 0)
}

func (s *storeImpl) SetTTL(key string, val value.Value, ttlSeconds int64) error {
	if ttlSeconds <= 0 {
		return store.NewError(store.RetCInvalidValue, "ttl must be a positive number of seconds")
	}
	return s.set(key, val, ttlSeconds)
}

// set is the shared implementation of Set and SetTTL. A ttl of zero means
// the key becomes persistent; any previous expiry is discarded.
func (s *storeImpl) set(key string, val value.Value, ttlSeconds int64) error {
	if err := validateKey(key); err != nil {
		return err
	}
	// serializability is a pre-condition of set, checked before the lock
	if err := val.Validate(); err != nil {
		return store.WrapError(store.RetCInvalidValue, "value is not serializable", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()

	s.data[key] = val
	if ttlSeconds > 0 {
		s.ttl[key] = s.now().Add(time.Duration(ttlSeconds) * time.Second)
	} else {
		// discard unused ttl
		delete(s.ttl, key)
	}
	s.stats.sets++
	s.mSets.Inc()

	return nil
}

func (s *storeImpl) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()

	if _, ok := s.data[key]; !ok {
		return false, nil
	}

	delete(s.data, key)
	delete(s.ttl, key)
	s.stats.deletes++
	s.mDeletes.Inc()

	return true, nil
}

func (s *storeImpl) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]value.Value)
	s.ttl = make(map[string]time.Time)
}

// --------------------------------------------------------------------------
// Interface Methods - Read Operations (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Get(key string) (value.Value, error) {
	return s.get(key, value.Null(), false)
}

func (s *storeImpl) GetDefault(key string, def value.Value) (value.Value, error) {
	return s.get(key, def, true)
}

func (s *storeImpl) get(key string, def value.Value, haveDefault bool) (value.Value, error) {
	if err := validateKey(key); err != nil {
		return value.Null(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()

	s.stats.gets++
	s.mGets.Inc()

	if val, ok := s.data[key]; ok {
		s.stats.hits++
		return val, nil
	}

	s.stats.misses++
	if haveDefault {
		return def, nil
	}
	return value.Null(), store.NewError(store.RetCKeyNotFound, fmt.Sprintf("key %q not found", key))
}

func (s *storeImpl) Exists(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()

	_, ok := s.data[key]
	return ok, nil
}

func (s *storeImpl) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()

	return len(s.data)
}

func (s *storeImpl) Keys(pattern string) ([]string, error) {
	match, err := compileKeyPattern(pattern)
	if err != nil {
		return nil, store.WrapError(store.RetCInvalidKey, fmt.Sprintf("invalid key pattern %q", pattern), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()

	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		if match(key) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (s *storeImpl) Values() []value.Value {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()

	vals := make([]value.Value, 0, len(s.data))
	for _, val := range s.data {
		vals = append(vals, val)
	}
	return vals
}

func (s *storeImpl) Items() []store.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()

	items := make([]store.Item, 0, len(s.data))
	for key, val := range s.data {
		items = append(items, store.Item{Key: key, Value: val})
	}
	return items
}

func (s *storeImpl) Stats() store.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()

	hitRate := 0.0
	if s.stats.gets > 0 {
		hitRate = float64(s.stats.hits) / float64(s.stats.gets)
	}

	return store.Stats{
		Size:    len(s.data),
		TTLKeys: len(s.ttl),
		Gets:    s.stats.gets,
		Sets:    s.stats.sets,
		Deletes: s.stats.deletes,
		Hits:    s.stats.hits,
		Misses:  s.stats.misses,
		Expired: s.stats.expired,
		HitRate: hitRate,
	}
}

// --------------------------------------------------------------------------
// Interface Methods - Persistence (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *storeImpl) Save(filename string) error {
	if filename == "" {
		filename = s.defaultFile
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()

	if err := s.writeSnapshotLocked(filename); err != nil {
		s.mSaveFailures.Inc()
		return store.WrapError(store.RetCDiskError, fmt.Sprintf("could not save to %q", filename), err)
	}
	s.mSaves.Inc()

	return nil
}

func (s *storeImpl) Load(filename string) error {
	if filename == "" {
		filename = s.defaultFile
	}

	// the raw read and decode happen outside the lock; nothing is swapped
	// in until the whole snapshot decoded cleanly, so a partial or corrupt
	// file leaves the current state untouched
	data, ttl, stats, err := readSnapshot(filename)
	if err != nil {
		s.mLoadFailures.Inc()
		return store.WrapError(store.RetCDiskError, fmt.Sprintf("could not load from %q", filename), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = data
	s.ttl = ttl
	s.stats = stats

	// a snapshot may carry entries that expired since it was written
	s.pruneLocked()
	s.mLoads.Inc()

	return nil
}

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

func (s *storeImpl) WriteMetrics(w io.Writer) {
	s.metrics.WritePrometheus(w)
}

// --------------------------------------------------------------------------
// Background Auto-Save Task
// --------------------------------------------------------------------------

// startAutoSave starts the auto-save loop.
// If the loop is already running, this function does nothing.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *storeImpl) startAutoSave() {
	if s.autoSaveRunning.CompareAndSwap(false, true) {
		go s.autoSaveLoop()
	}
}

// stopAutoSave stops the auto-save loop and waits for it to exit.
// If the loop is not running, this function does nothing.
// The loop can't be started again after it has been stopped.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (s *storeImpl) stopAutoSave() {
	if s.autoSaveRunning.CompareAndSwap(true, false) {
		close(s.stopCh)
		<-s.doneCh
	}
}

// autoSaveLoop periodically snapshots the store to its default file. Save
// failures are logged and swallowed; the loop retries on its next cycle.
func (s *storeImpl) autoSaveLoop() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if err := s.Save(""); err != nil {
				s.logger.Error("auto-save failed", "file", s.defaultFile, "error", err)
			} else {
				s.logger.Debug("auto-save complete", "file", s.defaultFile)
			}
		}
	}
}

func (s *storeImpl) Shutdown() error {
	s.stopAutoSave()

	if err := s.Save(""); err != nil {
		s.logger.Error("final save failed", "file", s.defaultFile, "error", err)
		return err
	}

	s.logger.Info("store shut down", "name", s.name)
	return nil
}
