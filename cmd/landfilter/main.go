// Command landfilter hides Naver Land listings by floor. "serve" drives a
// live browser tab and exposes the command API; "apply" filters a saved
// page offline.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "landfilter",
		Short: "Floor filters for Naver Land listing pages",
		Long: `landfilter hides basement, high-floor and low-floor listings on a
Naver Land complex page and keeps newly loaded listings filtered.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newApplyCmd())
	return root
}
