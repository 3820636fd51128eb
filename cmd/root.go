package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "clob-engine",
	Short: "Binary-market arbitrage and trade-management engine",
	Long: `clob-engine discovers binary prediction markets on an external CLOB
exchange, tracks their orderbooks in a Market Cache, runs the Gabagool
arbitrage engine (buy YES+NO when avg(YES)+avg(NO) < 1), manages opened
trades through stop-loss/take-profit/trailing-stop/timeout exits, and
exposes a control plane for inspecting and tuning all of the above.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
