package testing

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/pocketdb/pocketdb/lib/store"
	"github.com/pocketdb/pocketdb/lib/store/value"
)

// RunStoreBenchmarks runs all benchmarks for a store implementation
func RunStoreBenchmarks(b *testing.B, name string, factory StoreFactory) {

	b.Run("Set", func(b *testing.B) {
		benchmarkSet(b, newBenchStore(b, factory))
	})

	b.Run("SetExisting", func(b *testing.B) {
		benchmarkSetExisting(b, newBenchStore(b, factory))
	})

	b.Run("SetWithTTL", func(b *testing.B) {
		benchmarkSetWithTTL(b, newBenchStore(b, factory))
	})

	b.Run("Get", func(b *testing.B) {
		benchmarkGet(b, newBenchStore(b, factory))
	})

	b.Run("Delete", func(b *testing.B) {
		benchmarkDelete(b, newBenchStore(b, factory))
	})

	b.Run("SaveLoad", func(b *testing.B) {
		benchmarkSaveLoad(b, factory)
	})

	b.Run("MixedUsage", func(b *testing.B) {
		benchmarkMixedUsage(b, newBenchStore(b, factory))
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func newBenchStore(b *testing.B, factory StoreFactory) store.IStore {
	b.Helper()

	s := factory(filepath.Join(b.TempDir(), "bench-store"))
	b.Cleanup(func() {
		_ = s.Shutdown()
	})
	return s
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkSet(b *testing.B, s store.IStore) {
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := fmt.Sprintf("bench-key-%d", counter)
			_ = s.Set(key, value.String(fmt.Sprintf("bench-value-%d", counter)))
			counter++
		}
	})
}

func benchmarkSetExisting(b *testing.B, s store.IStore) {
	_ = s.Set("bench-key", value.String("initial"))

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = s.Set("bench-key", value.String("updated"))
		}
	})
}

func benchmarkSetWithTTL(b *testing.B, s store.IStore) {
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := fmt.Sprintf("bench-ttl-key-%d", counter)
			_ = s.SetTTL(key, value.Int(int64(counter)), 3600)
			counter++
		}
	})
}

func benchmarkGet(b *testing.B, s store.IStore) {
	const keySpread = 1000
	for i := 0; i < keySpread; i++ {
		_ = s.Set(fmt.Sprintf("bench-key-%d", i), value.Int(int64(i)))
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			_, _ = s.Get(fmt.Sprintf("bench-key-%d", counter%keySpread))
			counter++
		}
	})
}

func benchmarkDelete(b *testing.B, s store.IStore) {
	for i := 0; i < b.N; i++ {
		_ = s.Set(fmt.Sprintf("bench-key-%d", i), value.Null())
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = s.Delete(fmt.Sprintf("bench-key-%d", i))
	}
}

func benchmarkSaveLoad(b *testing.B, factory StoreFactory) {
	dir := b.TempDir()
	s := factory(filepath.Join(dir, "bench-store"))
	b.Cleanup(func() {
		_ = s.Shutdown()
	})

	const entries = 10000
	for i := 0; i < entries; i++ {
		_ = s.Set(fmt.Sprintf("bench-key-%d", i), value.String(fmt.Sprintf("bench-value-%d", i)))
	}
	file := filepath.Join(dir, "bench.pdb")

	b.Run("Save", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := s.Save(file); err != nil {
				b.Fatalf("Save failed: %v", err)
			}
		}
	})

	b.Run("Load", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			if err := s.Load(file); err != nil {
				b.Fatalf("Load failed: %v", err)
			}
		}
	})
}

func benchmarkMixedUsage(b *testing.B, s store.IStore) {
	const keySpread = 1000

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		counter := 0
		for pb.Next() {
			key := fmt.Sprintf("bench-key-%d", counter%keySpread)
			switch counter % 4 {
			case 0:
				_ = s.Set(key, value.Int(int64(counter)))
			case 1, 2:
				_, _ = s.GetDefault(key, value.Null())
			case 3:
				_, _ = s.Delete(key)
			}
			counter++
		}
	})
}
