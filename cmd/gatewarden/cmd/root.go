package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is the release version, overridden at build time with -ldflags.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "gatewarden",
	Short: "Gatewarden is a signing gateway authentication service",
	Long: `Gatewarden fronts a threshold-signing identity node with API-key, basic,
and session authentication, per-session custody of derived key material,
and named rate-limit buckets.`,
}

func Execute() {
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
