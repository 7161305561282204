package perf

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/pocketdb/pocketdb/cmd/util"
	"github.com/pocketdb/pocketdb/lib/store"
	"github.com/pocketdb/pocketdb/lib/store/pstore"
	"github.com/pocketdb/pocketdb/lib/store/value"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// PerfCmd is the benchmark harness for the store engine
	PerfCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for the store engine",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix  = "__perf"
	perfNumThreads = 10
	perfKeySpread  = 100
	perfSkip       = make([]string, 0)

	// error counts are bumped from many benchmark goroutines at once
	perfErrors = xsync.NewCounter()
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Store flags are shared with the other commands
	util.SetupStoreFlags(PerfCmd)

	// add flags
	key := "skip"
	PerfCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	PerfCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "keys"
	PerfCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	PerfCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfNumThreads = viper.GetInt("threads")
	perfKeySpread = viper.GetInt("keys")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for the PocketDB store engine")

	logger := util.NewLogger()
	opts := util.GetStoreOptions(logger)

	s := pstore.New(opts)
	defer func() {
		_ = s.Shutdown()
		// the benchmark store is throwaway, drop its final snapshot
		_ = os.Remove(pstore.DefaultFilename(opts.Name))
	}()

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("  Store:   %s\n", opts.Name)
	fmt.Printf("  Threads: %d\n", perfNumThreads)
	fmt.Printf("  Keys:    %d\n", perfKeySpread)
	fmt.Println()

	fmt.Println("starting tests...")

	// Create results map
	results := make(map[string]testing.BenchmarkResult)

	setResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("set") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("set")

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				deleteKey(s, "set", k)
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if err := s.Set(getKey(counter), value.String("test")); err != nil {
					perfErrors.Inc()
				}
				counter++
			}
		})
	})

	results["set"] = setResult
	printResult("set", setResult)

	setTTLResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("set-ttl") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("set-ttl")

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				deleteKey(s, "set-ttl", k)
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if err := s.SetTTL(getKey(counter), value.String("test"), 3600); err != nil {
					perfErrors.Inc()
				}
				counter++
			}
		})
	})

	results["set-ttl"] = setTTLResult
	printResult("set-ttl", setTTLResult)

	getResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("get") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("get")

		// set keys
		iter(func(k string) {
			if err := s.Set(k, value.String("test")); err != nil {
				perfErrors.Inc()
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				deleteKey(s, "get", k)
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if _, err := s.Get(getKey(counter)); err != nil {
					perfErrors.Inc()
				}
				counter++
			}
		})
	})

	results["get"] = getResult
	printResult("get", getResult)

	getMissResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("get-miss") {
			return
		}

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				key := fmt.Sprintf("%s/get-miss-%d", perfKeyPrefix, counter%perfKeySpread)
				// absence is the expected result here
				if _, err := s.GetDefault(key, value.Null()); err != nil {
					perfErrors.Inc()
				}
				counter++
			}
		})
	})

	results["get-miss"] = getMissResult
	printResult("get-miss", getMissResult)

	deleteResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("delete") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("delete")

		// set keys
		iter(func(k string) {
			if err := s.Set(k, value.String("test")); err != nil {
				perfErrors.Inc()
			}
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				if _, err := s.Delete(getKey(counter)); err != nil {
					perfErrors.Inc()
				}
				counter++
			}
		})
	})

	results["delete"] = deleteResult
	printResult("delete", deleteResult)

	mixedUsageResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("mixed") {
			return
		}

		// prepare keys
		getKey, iter := getKeys("mixed")

		// set keys
		iter(func(k string) {
			if err := s.Set(k, value.String("test")); err != nil {
				perfErrors.Inc()
			}
		})

		// cleanup
		b.Cleanup(func() {
			iter(func(k string) {
				deleteKey(s, "mixed", k)
			})
		})

		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				key := getKey(counter)

				var err error
				switch counter % 4 {
				case 0: // set
					err = s.Set(key, value.String("test"))
				case 1: // get
					_, err = s.GetDefault(key, value.Null())
				case 2: // delete
					_, err = s.Delete(key)
				case 3: // exists
					_, err = s.Exists(key)
				}

				if err != nil {
					perfErrors.Inc()
				}
				counter++
			}
		})
	})

	results["mixed"] = mixedUsageResult
	printResult("mixed", mixedUsageResult)

	if n := perfErrors.Value(); n > 0 {
		fmt.Printf("\n%d operations returned errors\n", n)
	}

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

func deleteKey(s store.IStore, test, key string) {
	if _, err := s.Delete(key); err != nil {
		fmt.Printf("(%s) - error deleting key: %v\n", test, err)
	}
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-12sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-12s%12d ops%14.1f ns/op%16.0f ops/sec\n", test, result.N, nsPerOp, opsPerSec)
}

// writeResultsToCSV exports the benchmark results
func writeResultsToCSV(path string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	if err := w.Write([]string{"test", "iterations", "ns_per_op", "ops_per_sec"}); err != nil {
		return err
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		result := results[name]
		nsPerOp := math.Max(float64(result.NsPerOp()), 1)
		record := []string{
			name,
			strconv.Itoa(result.N),
			strconv.FormatFloat(nsPerOp, 'f', 1, 64),
			strconv.FormatFloat(1.0/(nsPerOp/1e9), 'f', 0, 64),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	return nil
}
