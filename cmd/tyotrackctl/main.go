// Command tyotrackctl is the operator tool for the timesheet service: it
// previews how shifts are split and classified and applies tenant
// migrations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tyotrackctl",
		Short:         "Tyotrack timesheet operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newSplitCmd())
	root.AddCommand(newMigrateCmd())
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
