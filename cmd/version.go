package cmd

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/event-faces/internal/config"
)

// Build metadata variables, set by -ldflags at compile time.
var (
	Version   = "dev"
	CommitSHA = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the configured backends",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(os.Stdout, config.Load())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// printVersion writes build metadata and the oracle and storage the current
// environment selects. The configuration is not validated.
func printVersion(w io.Writer, cfg *config.Config) {
	fmt.Fprintf(w, "event-faces %s\n", Version)
	fmt.Fprintf(w, "  Commit:  %s\n", CommitSHA)
	fmt.Fprintf(w, "  Built:   %s (%s)\n", BuildDate, runtime.Version())
	fmt.Fprintf(w, "  Oracle:  %s\n", cfg.Oracle.Provider)
	fmt.Fprintf(w, "  Storage: %s (bucket %s)\n", cfg.Storage.Backend, cfg.Storage.Bucket)
	if cfg.Events.Table != "" {
		fmt.Fprintf(w, "  Events:  %s\n", cfg.Events.Table)
	}
}
