package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "qfosctl",
	Short:   "QFOS - Query Fan-Out Session detection and window optimization",
	Version: version,
	Long: `qfosctl sweeps candidate gap thresholds over a CDN access-log
stream, bundles requests into provider-isolated sessions, scores each
candidate window against six bundle-quality metrics, and recommends a
window with a cross-validated confidence label.`,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(configCmd)
}
