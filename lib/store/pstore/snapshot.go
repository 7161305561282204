package pstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/pocketdb/pocketdb/lib/store/value"
)

// Constants for the snapshot file format
const (
	snapshotVersion = 1 // Snapshot format version
)

// snapshot is the on-disk image of a store: the value table, the expiry
// table (absolute instants as Unix-seconds numbers) and the advisory
// statistics counters. The document is self-describing JSON so any nested
// value shape survives a round-trip.
type snapshot struct {
	Version int                    `json:"version"`
	Name    string                 `json:"name"`
	SavedAt float64                `json:"saved_at"`
	Data    map[string]value.Value `json:"data"`
	TTL     map[string]float64     `json:"ttl"`
	Stats   map[string]uint64      `json:"stats"`
}

// unixSeconds converts an instant to fractional Unix seconds.
func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// fromUnixSeconds converts fractional Unix seconds back to an instant.
func fromUnixSeconds(f float64) time.Time {
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*float64(time.Second)))
}

// encodeSnapshotLocked serializes the current state to the writer.
// The caller must hold s.mu.
func (s *storeImpl) encodeSnapshotLocked(w *os.File) error {
	snap := snapshot{
		Version: snapshotVersion,
		Name:    s.name,
		SavedAt: unixSeconds(s.now()),
		Data:    s.data,
		TTL:     make(map[string]float64, len(s.ttl)),
		Stats: map[string]uint64{
			"gets":    s.stats.gets,
			"sets":    s.stats.sets,
			"deletes": s.stats.deletes,
			"hits":    s.stats.hits,
			"misses":  s.stats.misses,
			"expired": s.stats.expired,
		},
	}
	for key, expiry := range s.ttl {
		snap.TTL[key] = unixSeconds(expiry)
	}

	bw := bufio.NewWriter(w)
	if err := json.NewEncoder(bw).Encode(&snap); err != nil {
		return err
	}
	return bw.Flush()
}

// writeSnapshotLocked writes the current state to filename durably: the
// snapshot goes to a temp file in the same directory first and is renamed
// over the target only after a successful sync, so a failing save never
// clobbers the previous snapshot.
// The caller must hold s.mu.
func (s *storeImpl) writeSnapshotLocked(filename string) error {
	dir := filepath.Dir(filename)
	tmp, err := os.CreateTemp(dir, filepath.Base(filename)+".tmp-*")
	if err != nil {
		return err
	}

	if err := s.encodeSnapshotLocked(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	return os.Rename(tmp.Name(), filename)
}

// decodeSnapshot reads and validates one snapshot document.
func decodeSnapshot(r *os.File) (*snapshot, error) {
	var snap snapshot
	if err := json.NewDecoder(bufio.NewReader(r)).Decode(&snap); err != nil {
		return nil, err
	}

	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version: %d (expected %d)", snap.Version, snapshotVersion)
	}

	return &snap, nil
}

// readSnapshot loads a snapshot file and converts it back into table form.
// Expiry entries without a matching value entry are dropped to restore the
// lockstep invariant of the two tables.
func readSnapshot(filename string) (map[string]value.Value, map[string]time.Time, counters, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, nil, counters{}, err
	}
	defer file.Close()

	snap, err := decodeSnapshot(file)
	if err != nil {
		return nil, nil, counters{}, err
	}

	data := snap.Data
	if data == nil {
		data = make(map[string]value.Value)
	}

	ttl := make(map[string]time.Time, len(snap.TTL))
	for key, expiry := range snap.TTL {
		if _, ok := data[key]; !ok {
			continue
		}
		ttl[key] = fromUnixSeconds(expiry)
	}

	stats := counters{
		gets:    snap.Stats["gets"],
		sets:    snap.Stats["sets"],
		deletes: snap.Stats["deletes"],
		hits:    snap.Stats["hits"],
		misses:  snap.Stats["misses"],
		expired: snap.Stats["expired"],
	}

	return data, ttl, stats, nil
}
