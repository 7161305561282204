package util

import (
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/pocketdb/pocketdb/lib/store/pstore"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupStoreFlags adds the common store flags to a command
func SetupStoreFlags(cmd *cobra.Command) {
	key := "name"
	cmd.PersistentFlags().String(key, "pocketdb", WrapString("Store name, used to derive the default snapshot file <name>.pdb"))

	key = "file"
	cmd.PersistentFlags().String(key, "", WrapString("Snapshot file to load at startup (optional)"))

	key = "autosave-interval"
	cmd.PersistentFlags().Duration(key, 60*time.Second, WrapString("Interval between automatic snapshots"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "info", WrapString("Log level (trace, debug, info, warn, error, off)"))
}

// InitConfig initializes configuration from environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("pocketdb")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds the flags of a command to viper
func BindCommandFlags(cmd *cobra.Command) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return viper.BindPFlags(cmd.PersistentFlags())
}

// NewLogger creates the application logger from the configured level
func NewLogger() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{
		Name:  "pocketdb",
		Level: hclog.LevelFromString(viper.GetString("log-level")),
	})
}

// GetStoreOptions reads the store configuration from viper
func GetStoreOptions(logger hclog.Logger) *pstore.Options {
	return &pstore.Options{
		Name:             viper.GetString("name"),
		AutoSaveInterval: viper.GetDuration("autosave-interval"),
		Logger:           logger,
	}
}

// GetInitialFile returns the snapshot file to load at startup, if any
func GetInitialFile() string {
	return viper.GetString("file")
}
