package pstore

import (
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/pocketdb/pocketdb/lib/store"
	storetesting "github.com/pocketdb/pocketdb/lib/store/testing"
	"github.com/pocketdb/pocketdb/lib/store/value"
)

func Test(t *testing.T) {
	storetesting.RunStoreTests(t, "PStore", func(name string) store.IStore {
		return New(&Options{Name: name})
	})
}

func Benchmark(b *testing.B) {
	storetesting.RunStoreBenchmarks(b, "PStore", func(name string) store.IStore {
		return New(&Options{Name: name})
	})
}

// --------------------------------------------------------------------------
// Engine-level tests (clock injected, no sleeping)
// --------------------------------------------------------------------------

// newClockStore returns a store whose notion of "now" is controlled by the
// returned setter.
func newClockStore(t *testing.T) (*storeImpl, func(time.Time)) {
	t.Helper()

	s := newStore(&Options{Name: filepath.Join(t.TempDir(), "clock-store")})
	t.Cleanup(func() {
		_ = s.Shutdown()
	})

	current := time.Now()
	s.now = func() time.Time { return current }
	return s, func(now time.Time) { current = now }
}

func TestLazyExpiry(t *testing.T) {
	s, setNow := newClockStore(t)
	base := time.Now()
	setNow(base)

	if err := s.SetTTL("short", value.Int(1), 10); err != nil {
		t.Fatalf("SetTTL failed: %v", err)
	}
	if err := s.SetTTL("long", value.Int(2), 100); err != nil {
		t.Fatalf("SetTTL failed: %v", err)
	}
	if err := s.Set("forever", value.Int(3)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// exactly at the deadline the entry is still alive (expiry is strict)
	setNow(base.Add(10 * time.Second))
	if found, _ := s.Exists("short"); !found {
		t.Errorf("entry must survive until strictly after its deadline")
	}

	setNow(base.Add(10*time.Second + time.Nanosecond))
	if found, _ := s.Exists("short"); found {
		t.Errorf("entry must be invisible after its deadline")
	}
	if stats := s.Stats(); stats.Expired != 1 {
		t.Errorf("Expired = %d, want 1", stats.Expired)
	}

	// pruning removes only what is actually expired
	if found, _ := s.Exists("long"); !found {
		t.Errorf("unexpired TTL key was pruned")
	}
	if found, _ := s.Exists("forever"); !found {
		t.Errorf("persistent key was pruned")
	}

	setNow(base.Add(200 * time.Second))
	if n := s.Size(); n != 1 {
		t.Errorf("Size = %d, want 1 (only the persistent key)", n)
	}
	if stats := s.Stats(); stats.Expired != 2 {
		t.Errorf("Expired = %d, want 2", stats.Expired)
	}
}

func TestExpiryVisibleToAllReaders(t *testing.T) {
	s, setNow := newClockStore(t)
	base := time.Now()
	setNow(base)

	if err := s.SetTTL("gone", value.String("x"), 5); err != nil {
		t.Fatalf("SetTTL failed: %v", err)
	}
	setNow(base.Add(6 * time.Second))

	if keys, _ := s.Keys("*"); len(keys) != 0 {
		t.Errorf("Keys sees expired entry: %v", keys)
	}
	if vals := s.Values(); len(vals) != 0 {
		t.Errorf("Values sees expired entry")
	}
	if items := s.Items(); len(items) != 0 {
		t.Errorf("Items sees expired entry")
	}
	if n := s.Size(); n != 0 {
		t.Errorf("Size sees expired entry: %d", n)
	}
}

func TestSetClearsTTL(t *testing.T) {
	s, setNow := newClockStore(t)
	base := time.Now()
	setNow(base)

	if err := s.SetTTL("key", value.Int(1), 5); err != nil {
		t.Fatalf("SetTTL failed: %v", err)
	}
	if stats := s.Stats(); stats.TTLKeys != 1 {
		t.Fatalf("TTLKeys = %d, want 1", stats.TTLKeys)
	}

	// overwrite without TTL makes the key persistent
	if err := s.Set("key", value.Int(2)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if stats := s.Stats(); stats.TTLKeys != 0 {
		t.Errorf("TTLKeys = %d, want 0 after plain Set", stats.TTLKeys)
	}

	setNow(base.Add(time.Hour))
	if found, _ := s.Exists("key"); !found {
		t.Errorf("key expired although its TTL was cleared")
	}
}

func TestLoadPrunesStaleSnapshot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "stale.pdb")

	src, setSrcNow := newClockStore(t)
	base := time.Now()
	setSrcNow(base)

	if err := src.SetTTL("stale", value.Int(1), 10); err != nil {
		t.Fatalf("SetTTL failed: %v", err)
	}
	if err := src.Set("fresh", value.Int(2)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := src.Save(file); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// load into a store whose clock is past the snapshot's TTL deadline
	dst, setDstNow := newClockStore(t)
	setDstNow(base.Add(time.Minute))

	if err := dst.Load(file); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if found, _ := dst.Exists("stale"); found {
		t.Errorf("already-expired snapshot entry survived the load")
	}
	if found, _ := dst.Exists("fresh"); !found {
		t.Errorf("persistent snapshot entry was lost")
	}
	if stats := dst.Stats(); stats.Expired != 1 {
		t.Errorf("Expired = %d, want 1 after pruning the loaded snapshot", stats.Expired)
	}
}

func TestNonSerializableValue(t *testing.T) {
	s := newStore(&Options{Name: filepath.Join(t.TempDir(), "nan-store")})
	defer s.Shutdown()

	nan := value.Array(value.Number(math.NaN()), value.Int(1))
	err := s.Set("bad", nan)
	if store.CodeOf(err) != store.RetCInvalidValue {
		t.Fatalf("expected InvalidValue for NaN payload, got %v", err)
	}
	if found, _ := s.Exists("bad"); found {
		t.Errorf("failing Set must not create an entry")
	}
}

func TestKeysBadPattern(t *testing.T) {
	s := newStore(&Options{Name: filepath.Join(t.TempDir(), "pattern-store")})
	defer s.Shutdown()

	if err := s.Set("a", value.Null()); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	_, err := s.Keys("[z-a]")
	if store.CodeOf(err) != store.RetCInvalidKey {
		t.Errorf("expected InvalidKey for malformed pattern, got %v", err)
	}
}

func TestKeysWildcardsCrossSlash(t *testing.T) {
	s := newStore(&Options{Name: filepath.Join(t.TempDir(), "slash-store")})
	defer s.Shutdown()

	for _, key := range []string{"user/1", "user/2", "user:3", "[", "group/1"} {
		if err := s.Set(key, value.Null()); err != nil {
			t.Fatalf("Set(%q) failed: %v", key, err)
		}
	}

	keys, err := s.Keys("user*")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 3 || keys[0] != "user/1" || keys[1] != "user/2" || keys[2] != "user:3" {
		t.Errorf("Keys(user*) = %v, want all three user keys", keys)
	}

	// a bare "[" is a plain key and a plain exact-match pattern
	keys, err = s.Keys("[")
	if err != nil {
		t.Fatalf("Keys([) failed: %v", err)
	}
	if len(keys) != 1 || keys[0] != "[" {
		t.Errorf("Keys([) = %v, want the literal bracket key", keys)
	}

	keys, err = s.Keys("user/?")
	if err != nil {
		t.Fatalf("Keys(user/?) failed: %v", err)
	}
	if len(keys) != 2 {
		t.Errorf("Keys(user/?) = %v, want both slash keys", keys)
	}
}

// --------------------------------------------------------------------------
// Lifecycle tests
// --------------------------------------------------------------------------

func TestAutoSave(t *testing.T) {
	name := filepath.Join(t.TempDir(), "autosave-store")
	s := newStore(&Options{
		Name:             name,
		AutoSaveInterval: 20 * time.Millisecond,
	})
	defer s.Shutdown()

	if err := s.Set("key", value.Int(1)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	file := DefaultFilename(name)
	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, err := os.Stat(file); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("auto-save never wrote %s", file)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// the snapshot the loop wrote must be loadable
	other := newStore(&Options{Name: filepath.Join(t.TempDir(), "reader")})
	defer other.Shutdown()
	if err := other.Load(file); err != nil {
		t.Fatalf("auto-saved snapshot is not loadable: %v", err)
	}
	if found, _ := other.Exists("key"); !found {
		t.Errorf("auto-saved snapshot is missing the entry")
	}
}

func TestShutdownWritesFinalSnapshot(t *testing.T) {
	name := filepath.Join(t.TempDir(), "final-store")
	s := newStore(&Options{Name: name})

	if err := s.Set("last", value.String("words")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := s.Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	if _, err := os.Stat(DefaultFilename(name)); err != nil {
		t.Fatalf("Shutdown did not write the final snapshot: %v", err)
	}

	// a second shutdown must not hang or panic
	_ = s.Shutdown()
}

func TestWriteMetrics(t *testing.T) {
	s := newStore(&Options{Name: filepath.Join(t.TempDir(), "metrics-store")})
	defer s.Shutdown()

	if err := s.Set("key", value.Int(1)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := s.Get("key"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	var sb strings.Builder
	s.WriteMetrics(&sb)
	out := sb.String()

	for _, want := range []string{
		`pocketdb_ops_total{op="set"} 1`,
		`pocketdb_ops_total{op="get"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q:\n%s", want, out)
		}
	}
}
