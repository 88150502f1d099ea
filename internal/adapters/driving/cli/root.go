// Package cli provides the command-line interface for the enrich tool.
package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/archiva-labs/enrich-cli/internal/adapters/driven/config/file"
	"github.com/archiva-labs/enrich-cli/internal/core/ports/driven"
	"github.com/archiva-labs/enrich-cli/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// configStore backs the settings commands and provider wiring. Wired in
// initConfig; tests may inject their own.
var configStore driven.ConfigStore

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich oral history transcripts with thesaurus concepts",
	Long: `Enrich segments WebVTT interview transcripts, selects the segments worth
annotating, and links them to controlled-vocabulary concepts from a SKOS
thesaurus using exact label lookup, embedding similarity, and LLM
validation. Validated decisions are cached so re-runs only pay for what
changed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// initConfig loads .env values and opens the config store. API keys may
// come from the environment instead of the config file.
func initConfig() error {
	_ = godotenv.Load()

	if configStore != nil {
		return nil
	}
	store, err := file.NewConfigStore(os.Getenv("ENRICH_CONFIG_DIR"))
	if err != nil {
		return err
	}
	configStore = store
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
