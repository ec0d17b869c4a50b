package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/amishk599/mcfradar/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the crawl scheduler",
	Long:  "Runs a crawl immediately, then on every tick of crawl.schedule; blocks until SIGINT/SIGTERM.",
	RunE:  withApp(runStart),
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	opts, err := crawlOptions(a)
	if err != nil {
		return err
	}
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	eng, err := a.engine(ctx, st, nil)
	if err != nil {
		return err
	}

	sched, err := scheduler.New(a.cfg.Crawl.Schedule, eng, a.notifier(), opts, a.logger)
	if err != nil {
		return err
	}
	if err := sched.Run(ctx); err != nil {
		return err
	}
	a.logger.Info("goodbye")
	return nil
}
