package shell

import (
	"fmt"
	"os"

	"github.com/pocketdb/pocketdb/cmd/util"
	"github.com/pocketdb/pocketdb/lib/store/pstore"
	"github.com/spf13/cobra"
)

// ShellCmd starts the interactive shell over a freshly created store.
var ShellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive PocketDB shell",
	RunE:  runShell,
}

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add store flags to the shell command
	util.SetupStoreFlags(ShellCmd)
}

func runShell(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	logger := util.NewLogger()
	opts := util.GetStoreOptions(logger)

	s := pstore.New(opts)

	// optionally seed the store from an existing snapshot
	if file := util.GetInitialFile(); file != "" {
		if err := s.Load(file); err != nil {
			logger.Warn("could not load initial snapshot", "file", file, "error", err)
		} else {
			logger.Info("loaded initial snapshot", "file", file)
		}
	}

	runErr := New(s, opts.Name, os.Stdin, os.Stdout).Run()

	// a failing final save is reported but does not prevent exit
	if err := s.Shutdown(); err != nil {
		logger.Error("final save failed", "error", err)
	}
	fmt.Println("PocketDB shut down.")

	return runErr
}
