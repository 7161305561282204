// Package cmd implements the command-line interface for the PocketDB
// embedded key-value store. It provides a hierarchical command structure
// with operations for working with a store interactively and measuring
// its performance.
//
// The package is organized into several subpackages:
//
//   - shell: The interactive shell (set, get, del, keys, save, load, etc.)
//   - perf: Benchmark harness for the store engine
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See pocketdb -help for a list of all commands.
package cmd
