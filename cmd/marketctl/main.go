// Command marketctl is the operator tool for the creator market: schema
// migrations, manual reprices, dividend retries and table dumps.
package main

import (
	"fmt"
	"os"

	"creatorx/internal/logger"

	"github.com/spf13/cobra"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "marketctl",
		Short:        "CreatorX market operator tool",
		SilenceUsage: true,
	}

	root.AddCommand(
		newMigrateCmd(),
		newRepriceCmd(),
		newDistributeCmd(),
		newTiersCmd(),
		newParamsCmd(),
	)
	return root
}
