// Package cmd defines the prisscanner command line.
package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prisscanner",
		Short: "Scan grocery catalogs for wanted products.",
		Long: `prisscanner renders the weekly catalog of each configured store,
reads every catalog image with OCR and keeps the images whose text fuzzily
matches one of the search terms.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML); PRIS_* environment variables override it")
	cmd.AddCommand(newScanCmd())
	return cmd
}

// Execute runs the root command with a context canceled on SIGINT/SIGTERM.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		// zap.L() is the scan logger once one was built; cobra has already
		// printed the error either way. Fatal exits even on a no-op logger.
		zap.L().Fatal("command execution failed", zap.Error(err))
	}
}
