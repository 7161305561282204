package pstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pocketdb/pocketdb/lib/store/value"
)

func TestSnapshotRoundTrip(t *testing.T) {
	name := filepath.Join(t.TempDir(), "codec-store")
	s := newStore(&Options{Name: name})
	defer s.Shutdown()

	expiry := time.Now().Add(time.Hour)
	s.mu.Lock()
	s.data["plain"] = value.String("v")
	s.data["expiring"] = value.Int(7)
	s.ttl["expiring"] = expiry
	s.stats = counters{gets: 3, sets: 2, deletes: 1, hits: 2, misses: 1, expired: 4}
	s.mu.Unlock()

	file := filepath.Join(t.TempDir(), "codec.pdb")
	if err := s.Save(file); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	data, ttl, stats, err := readSnapshot(file)
	if err != nil {
		t.Fatalf("readSnapshot failed: %v", err)
	}

	if len(data) != 2 {
		t.Fatalf("decoded %d entries, want 2", len(data))
	}
	if !data["plain"].Equal(value.String("v")) {
		t.Errorf("plain = %s, want \"v\"", data["plain"])
	}
	if !data["expiring"].Equal(value.Int(7)) {
		t.Errorf("expiring = %s, want 7", data["expiring"])
	}

	got, ok := ttl["expiring"]
	if !ok {
		t.Fatalf("expiry entry missing from decoded snapshot")
	}
	// the Unix-seconds float encoding keeps sub-second precision
	if d := got.Sub(expiry); d < -time.Millisecond || d > time.Millisecond {
		t.Errorf("expiry drifted by %v through the codec", d)
	}

	if stats.gets != 3 || stats.sets != 2 || stats.deletes != 1 ||
		stats.hits != 2 || stats.misses != 1 || stats.expired != 4 {
		t.Errorf("counters did not survive the round-trip: %+v", stats)
	}
}

func TestSnapshotVersionMismatch(t *testing.T) {
	file := filepath.Join(t.TempDir(), "future.pdb")
	doc := map[string]interface{}{
		"version": snapshotVersion + 1,
		"name":    "future",
		"data":    map[string]interface{}{},
		"ttl":     map[string]interface{}{},
		"stats":   map[string]interface{}{},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := os.WriteFile(file, raw, 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, _, _, err := readSnapshot(file); err == nil {
		t.Errorf("expected a version error for a future snapshot")
	}
}

func TestSnapshotDropsOrphanedTTL(t *testing.T) {
	file := filepath.Join(t.TempDir(), "orphan.pdb")
	doc := map[string]interface{}{
		"version": snapshotVersion,
		"name":    "orphan",
		"data":    map[string]interface{}{"kept": 1},
		"ttl": map[string]interface{}{
			"kept":   float64(time.Now().Add(time.Hour).Unix()),
			"orphan": float64(time.Now().Add(time.Hour).Unix()),
		},
		"stats": map[string]interface{}{},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := os.WriteFile(file, raw, 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	_, ttl, _, err := readSnapshot(file)
	if err != nil {
		t.Fatalf("readSnapshot failed: %v", err)
	}
	if _, ok := ttl["orphan"]; ok {
		t.Errorf("expiry entry without a value entry must be dropped")
	}
	if _, ok := ttl["kept"]; !ok {
		t.Errorf("matching expiry entry was dropped")
	}
}

func TestSaveDoesNotClobberOnFailure(t *testing.T) {
	name := filepath.Join(t.TempDir(), "durable-store")
	s := newStore(&Options{Name: name})
	defer s.Shutdown()

	if err := s.Set("key", value.Int(1)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// a target in a nonexistent directory fails at temp-file creation
	err := s.Save(filepath.Join(t.TempDir(), "missing-dir", "oops.pdb"))
	if err == nil {
		t.Fatalf("expected Save into a missing directory to fail")
	}

	// and the store state is untouched
	if n := s.Size(); n != 1 {
		t.Errorf("Size = %d after failed Save, want 1", n)
	}
}
