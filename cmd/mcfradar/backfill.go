package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amishk599/mcfradar/internal/embedding"
)

var backfillLimit int

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Embed active jobs that have no embedding",
	RunE:  withApp(runBackfill),
}

func init() {
	backfillCmd.Flags().IntVar(&backfillLimit, "limit", 0, "embed at most this many jobs (default: all)")
	rootCmd.AddCommand(backfillCmd)
}

func runBackfill(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	eng, err := a.engine(ctx, st, nil)
	if err != nil {
		return err
	}

	res, err := eng.Backfill(ctx, backfillLimit)
	if errors.Is(err, embedding.ErrDisabled) {
		return fmt.Errorf("backfill needs an embedding provider, set embedding.provider in the config")
	}
	if res != nil {
		printTitle("Backfill")
		printField("Candidates", res.Candidates)
		printField("Embedded", okStyle.Render(fmt.Sprint(res.Embedded)))
		printField("No desc", res.NoDescription)
		printField("Failed", res.Failed)
		if res.Interrupted {
			fmt.Println(warnStyle.Render("Interrupted, run again to continue."))
		}
	}
	return err
}
