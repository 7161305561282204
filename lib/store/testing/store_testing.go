package testing

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/pocketdb/pocketdb/lib/store"
	"github.com/pocketdb/pocketdb/lib/store/value"
)

// StoreFactory is a function that creates a new store instance. The name
// parameter is used as the store name and may be a path prefix; the
// default snapshot file is derived from it, so factories should place it
// inside a test temp directory.
type StoreFactory func(name string) store.IStore

// RunStoreTests runs a comprehensive test suite against a store
// implementation through its public interface only.
func RunStoreTests(t *testing.T, name string, factory StoreFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, newStore(t, factory))
		})

		t.Run("GetDefault", func(t *testing.T) {
			testGetDefault(t, newStore(t, factory))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, newStore(t, factory))
		})

		t.Run("Validation", func(t *testing.T) {
			testValidation(t, newStore(t, factory))
		})

		t.Run("KeyExpiry", func(t *testing.T) {
			testKeyExpiry(t, newStore(t, factory))
		})

		t.Run("Keys", func(t *testing.T) {
			testKeys(t, newStore(t, factory))
		})

		t.Run("Enumeration", func(t *testing.T) {
			testEnumeration(t, newStore(t, factory))
		})

		t.Run("Reset", func(t *testing.T) {
			testReset(t, newStore(t, factory))
		})

		t.Run("Stats", func(t *testing.T) {
			testStats(t, newStore(t, factory))
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("LoadFailure", func(t *testing.T) {
			testLoadFailure(t, newStore(t, factory))
		})

		t.Run("ConcurrentSets", func(t *testing.T) {
			testConcurrentSets(t, newStore(t, factory))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// newStore creates a store rooted in a fresh temp directory and registers
// its shutdown as cleanup.
func newStore(t *testing.T, factory StoreFactory) store.IStore {
	t.Helper()

	s := factory(filepath.Join(t.TempDir(), "test-store"))
	t.Cleanup(func() {
		_ = s.Shutdown()
	})
	return s
}

func mustSet(t *testing.T, s store.IStore, key string, val value.Value) {
	t.Helper()

	if err := s.Set(key, val); err != nil {
		t.Fatalf("Set(%q) failed: %v", key, err)
	}
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, s store.IStore) {
	cases := map[string]value.Value{
		"str":    value.String("hello"),
		"num":    value.Number(42.5),
		"int":    value.Int(7),
		"bool":   value.Bool(true),
		"null":   value.Null(),
		"arr":    value.Array(value.Int(1), value.String("two"), value.Bool(false)),
		"nested": value.Object(map[string]value.Value{"debug": value.Bool(true), "port": value.Int(8080)}),
	}

	for key, val := range cases {
		mustSet(t, s, key, val)

		got, err := s.Get(key)
		if err != nil {
			t.Errorf("Get(%q) failed: %v", key, err)
			continue
		}
		if !got.Equal(val) {
			t.Errorf("Get(%q) = %s, want %s", key, got, val)
		}
	}

	// overwrite keeps the latest value
	mustSet(t, s, "str", value.String("updated"))
	got, err := s.Get("str")
	if err != nil {
		t.Fatalf("Get after overwrite failed: %v", err)
	}
	if !got.Equal(value.String("updated")) {
		t.Errorf("Get after overwrite = %s, want %q", got, "updated")
	}
}

func testGetDefault(t *testing.T, s store.IStore) {
	def := value.String("fallback")

	got, err := s.GetDefault("missing", def)
	if err != nil {
		t.Fatalf("GetDefault on missing key failed: %v", err)
	}
	if !got.Equal(def) {
		t.Errorf("GetDefault = %s, want %s", got, def)
	}

	mustSet(t, s, "present", value.Int(1))
	got, err = s.GetDefault("present", def)
	if err != nil {
		t.Fatalf("GetDefault on present key failed: %v", err)
	}
	if !got.Equal(value.Int(1)) {
		t.Errorf("GetDefault on present key = %s, want 1", got)
	}

	_, err = s.Get("missing")
	if store.CodeOf(err) != store.RetCKeyNotFound {
		t.Errorf("Get on missing key: expected KeyNotFound, got %v", err)
	}
}

func testDelete(t *testing.T, s store.IStore) {
	mustSet(t, s, "doomed", value.String("bye"))

	removed, err := s.Delete("doomed")
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if !removed {
		t.Errorf("Delete of existing key reported removed=false")
	}

	found, err := s.Exists("doomed")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if found {
		t.Errorf("Key still exists after Delete")
	}

	if _, err := s.Get("doomed"); store.CodeOf(err) != store.RetCKeyNotFound {
		t.Errorf("Get after Delete: expected KeyNotFound, got %v", err)
	}

	// absence is not an error for Delete
	removed, err = s.Delete("doomed")
	if err != nil {
		t.Fatalf("Delete of missing key failed: %v", err)
	}
	if removed {
		t.Errorf("Delete of missing key reported removed=true")
	}
}

func testValidation(t *testing.T, s store.IStore) {
	if err := s.Set("", value.Int(1)); store.CodeOf(err) != store.RetCInvalidKey {
		t.Errorf("Set with empty key: expected InvalidKey, got %v", err)
	}
	if err := s.Set("   \t ", value.Int(1)); store.CodeOf(err) != store.RetCInvalidKey {
		t.Errorf("Set with whitespace key: expected InvalidKey, got %v", err)
	}
	if _, err := s.Get(""); store.CodeOf(err) != store.RetCInvalidKey {
		t.Errorf("Get with empty key: expected InvalidKey, got %v", err)
	}

	if err := s.SetTTL("key", value.Int(1), 0); store.CodeOf(err) != store.RetCInvalidValue {
		t.Errorf("SetTTL with ttl=0: expected InvalidValue, got %v", err)
	}
	if err := s.SetTTL("key", value.Int(1), -5); store.CodeOf(err) != store.RetCInvalidValue {
		t.Errorf("SetTTL with negative ttl: expected InvalidValue, got %v", err)
	}

	if found, _ := s.Exists("key"); found {
		t.Errorf("Failing SetTTL must not create an entry")
	}
	if n := s.Size(); n != 0 {
		t.Errorf("Store should be empty after failed writes, size=%d", n)
	}
}

func testKeyExpiry(t *testing.T, s store.IStore) {
	if err := s.SetTTL("ephemeral", value.String("short lived"), 1); err != nil {
		t.Fatalf("SetTTL failed: %v", err)
	}
	mustSet(t, s, "durable", value.String("stays"))

	found, err := s.Exists("ephemeral")
	if err != nil || !found {
		t.Fatalf("Key should exist before its TTL elapses (found=%v, err=%v)", found, err)
	}

	time.Sleep(1100 * time.Millisecond)

	if found, _ := s.Exists("ephemeral"); found {
		t.Errorf("Key should be invisible after its TTL elapsed")
	}
	if _, err := s.Get("ephemeral"); store.CodeOf(err) != store.RetCKeyNotFound {
		t.Errorf("Get on expired key: expected KeyNotFound, got %v", err)
	}
	if n := s.Size(); n != 1 {
		t.Errorf("Size after expiry = %d, want 1", n)
	}

	stats := s.Stats()
	if stats.Expired != 1 {
		t.Errorf("Expired counter = %d, want 1", stats.Expired)
	}

	// a plain Set on a TTL key makes it persistent again
	if err := s.SetTTL("promoted", value.Int(1), 1); err != nil {
		t.Fatalf("SetTTL failed: %v", err)
	}
	mustSet(t, s, "promoted", value.Int(2))

	time.Sleep(1100 * time.Millisecond)

	got, err := s.Get("promoted")
	if err != nil {
		t.Fatalf("Promoted key should have survived: %v", err)
	}
	if !got.Equal(value.Int(2)) {
		t.Errorf("Promoted key = %s, want 2", got)
	}
}

func testKeys(t *testing.T, s store.IStore) {
	for _, key := range []string{"user:1", "user:2", "order:1"} {
		mustSet(t, s, key, value.Null())
	}

	keys, err := s.Keys("user:*")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "user:1" || keys[1] != "user:2" {
		t.Errorf("Keys(user:*) = %v, want [user:1 user:2]", keys)
	}

	all, err := s.Keys("*")
	if err != nil {
		t.Fatalf("Keys(*) failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Keys(*) returned %d keys, want 3", len(all))
	}

	exact, err := s.Keys("order:1")
	if err != nil {
		t.Fatalf("Keys(order:1) failed: %v", err)
	}
	if len(exact) != 1 || exact[0] != "order:1" {
		t.Errorf("Keys(order:1) = %v, want [order:1]", exact)
	}

	one, err := s.Keys("user:?")
	if err != nil {
		t.Fatalf("Keys(user:?) failed: %v", err)
	}
	if len(one) != 2 {
		t.Errorf("Keys(user:?) = %v, want both user keys", one)
	}
}

func testEnumeration(t *testing.T, s store.IStore) {
	want := map[string]value.Value{
		"a": value.Int(1),
		"b": value.String("two"),
		"c": value.Bool(true),
	}
	for key, val := range want {
		mustSet(t, s, key, val)
	}

	if n := s.Size(); n != len(want) {
		t.Errorf("Size = %d, want %d", n, len(want))
	}

	items := s.Items()
	if len(items) != len(want) {
		t.Fatalf("Items returned %d entries, want %d", len(items), len(want))
	}
	for _, item := range items {
		expected, ok := want[item.Key]
		if !ok {
			t.Errorf("Items returned unexpected key %q", item.Key)
			continue
		}
		if !item.Value.Equal(expected) {
			t.Errorf("Items[%q] = %s, want %s", item.Key, item.Value, expected)
		}
	}

	vals := s.Values()
	if len(vals) != len(want) {
		t.Errorf("Values returned %d entries, want %d", len(vals), len(want))
	}
}

func testReset(t *testing.T, s store.IStore) {
	mustSet(t, s, "a", value.Int(1))
	if err := s.SetTTL("b", value.Int(2), 60); err != nil {
		t.Fatalf("SetTTL failed: %v", err)
	}

	statsBefore := s.Stats()

	s.Reset()
	if n := s.Size(); n != 0 {
		t.Errorf("Size after Reset = %d, want 0", n)
	}

	// idempotent
	s.Reset()
	if n := s.Size(); n != 0 {
		t.Errorf("Size after second Reset = %d, want 0", n)
	}

	// statistics survive a reset
	statsAfter := s.Stats()
	if statsAfter.Sets != statsBefore.Sets {
		t.Errorf("Reset must not touch counters: sets %d != %d", statsAfter.Sets, statsBefore.Sets)
	}
}

func testStats(t *testing.T, s store.IStore) {
	mustSet(t, s, "hit", value.Int(1))

	if _, err := s.Get("hit"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, err := s.Get("hit"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, err := s.Get("miss"); store.CodeOf(err) != store.RetCKeyNotFound {
		t.Fatalf("expected KeyNotFound, got %v", err)
	}

	stats := s.Stats()
	if stats.Gets != 3 || stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("Stats = gets %d, hits %d, misses %d; want 3/2/1",
			stats.Gets, stats.Hits, stats.Misses)
	}
	if stats.HitRate < 0.666 || stats.HitRate > 0.667 {
		t.Errorf("HitRate = %f, want ~0.667", stats.HitRate)
	}
	if stats.Sets != 1 {
		t.Errorf("Sets = %d, want 1", stats.Sets)
	}
	if stats.Size != 1 {
		t.Errorf("Size = %d, want 1", stats.Size)
	}

	// exists must not move the get counters
	if _, err := s.Exists("hit"); err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if got := s.Stats().Gets; got != 3 {
		t.Errorf("Exists changed the gets counter: %d", got)
	}
}

func testSaveLoad(t *testing.T, factory StoreFactory) {
	dir := t.TempDir()
	file := filepath.Join(dir, "roundtrip.pdb")

	src := factory(filepath.Join(dir, "src"))
	defer src.Shutdown()

	if err := src.Set("plain", value.String("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := src.Set("nested", value.Object(map[string]value.Value{
		"list": value.Array(value.Int(1), value.Int(2)),
		"ok":   value.Bool(true),
	})); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := src.SetTTL("expiring", value.Int(9), 3600); err != nil {
		t.Fatalf("SetTTL failed: %v", err)
	}

	if err := src.Save(file); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// the source is untouched by the save
	if n := src.Size(); n != 3 {
		t.Errorf("Size after Save = %d, want 3", n)
	}

	dst := factory(filepath.Join(dir, "dst"))
	defer dst.Shutdown()

	if err := dst.Load(file); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	items := dst.Items()
	if len(items) != 3 {
		t.Fatalf("Loaded %d entries, want 3", len(items))
	}
	for _, key := range []string{"plain", "nested", "expiring"} {
		got, err := dst.Get(key)
		if err != nil {
			t.Errorf("Get(%q) after Load failed: %v", key, err)
			continue
		}
		want, err := src.Get(key)
		if err != nil {
			t.Fatalf("source Get(%q) failed: %v", key, err)
		}
		if !got.Equal(want) {
			t.Errorf("Loaded value for %q = %s, want %s", key, got, want)
		}
	}

	stats := dst.Stats()
	if stats.TTLKeys != 1 {
		t.Errorf("Loaded TTLKeys = %d, want 1", stats.TTLKeys)
	}
}

func testLoadFailure(t *testing.T, s store.IStore) {
	mustSet(t, s, "keep", value.String("me"))

	// missing file
	err := s.Load(filepath.Join(t.TempDir(), "does-not-exist.pdb"))
	if store.CodeOf(err) != store.RetCDiskError {
		t.Errorf("Load of missing file: expected DiskError, got %v", err)
	}

	// corrupt file
	garbage := filepath.Join(t.TempDir(), "garbage.pdb")
	if err := os.WriteFile(garbage, []byte("this is not a snapshot"), 0o644); err != nil {
		t.Fatalf("could not write garbage file: %v", err)
	}
	err = s.Load(garbage)
	if store.CodeOf(err) != store.RetCDiskError {
		t.Errorf("Load of corrupt file: expected DiskError, got %v", err)
	}

	// load is all-or-nothing, the old state must survive both failures
	got, err := s.Get("keep")
	if err != nil {
		t.Fatalf("state was lost by a failing Load: %v", err)
	}
	if !got.Equal(value.String("me")) {
		t.Errorf("state was altered by a failing Load: %s", got)
	}
}

func testConcurrentSets(t *testing.T, s store.IStore) {
	const (
		workers       = 8
		keysPerWorker = 100
	)

	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < keysPerWorker; i++ {
				key := fmt.Sprintf("worker-%d-key-%d", worker, i)
				if err := s.Set(key, value.Int(int64(worker*keysPerWorker+i))); err != nil {
					t.Errorf("concurrent Set(%q) failed: %v", key, err)
				}
			}
		}(w)
	}

	wg.Wait()

	items := s.Items()
	if len(items) != workers*keysPerWorker {
		t.Errorf("Items after concurrent sets = %d entries, want %d (lost updates)",
			len(items), workers*keysPerWorker)
	}
}
