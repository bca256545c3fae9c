// Command magicstore checks entity catalogs, generates code and SQL from
// them, and serves their entities over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "magicstore",
		Short:         "Lightweight object persistence engine",
		Long:          `magicstore validates entity catalogs, prepares their storage, generates typed Go wrappers and serves entities over a JSON HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newLintCmd(),
		newDDLCmd(),
		newMigrateCmd(),
		newGenCmd(),
		newServeCmd(),
	)
	return root
}
