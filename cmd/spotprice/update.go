package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/icodeforyou/spotprice-go/task"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Run one update and exit",
	Long: `Runs a single update: decides whether new prices are needed, fetches,
merges, persists and refreshes the feed. Exits with status 1 when the run
failed or the merged series was rejected. No-op runs exit with 0.`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.updater.Run(ctx)
	switch res.Outcome {
	case task.OutcomeFailed, task.OutcomeRejected:
		return fmt.Errorf("update %s: %w", res.Outcome, res.Err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d -> %d rows\n", res.Outcome, res.RowsBefore, res.RowsAfter)
	return nil
}
