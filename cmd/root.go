package cmd

import (
	"fmt"
	"os"

	"github.com/pocketdb/pocketdb/cmd/perf"
	"github.com/pocketdb/pocketdb/cmd/shell"
	"github.com/spf13/cobra"
)

const (
	Version = "1.2.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "pocketdb",
		Short: "embedded key-value store",
		Long: fmt.Sprintf(`PocketDB (v%s)

An embedded, process-local key-value store with per-key TTL,
periodic snapshot persistence and usage statistics.`, Version),
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of PocketDB",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("PocketDB v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(shell.ShellCmd)
	RootCmd.AddCommand(perf.PerfCmd)
	RootCmd.AddCommand(versionCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
