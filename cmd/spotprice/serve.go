package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/icodeforyou/spotprice-go/task"
	"github.com/icodeforyou/spotprice-go/www"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scheduler and the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.logger
	logger.Info("spotprice is starting...", slog.String("version", Version))

	tasks := task.NewTasks(logger, a.db, a.updater, a.cnfg)
	if isDevMode() {
		logger.Info("dev mode, skipping task scheduling")
	} else {
		if err := tasks.Run(); err != nil {
			return err
		}
		defer func() {
			<-tasks.Stop().Done()
		}()
		tasks.TriggerUpdate()
	}

	server := www.NewServer(logger, a.cnfg.Api, a.db, a.feed, tasks.TriggerUpdate)
	err = server.Run(ctx)
	logger.Info("application is shutting down...")
	return err
}
