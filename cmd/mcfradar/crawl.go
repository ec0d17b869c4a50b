package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/mcfradar/internal/categories"
	"github.com/amishk599/mcfradar/internal/crawler"
	"github.com/amishk599/mcfradar/internal/reconcile"
	"github.com/amishk599/mcfradar/internal/store"
)

var (
	crawlCategories string
	crawlLimit      int
	crawlDryRun     bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Run one reconciliation pass",
	Long: "Lists every job id, diffs it against the store, and fetches details only for new jobs.\n" +
		"Restricting by --categories or --limit makes the run incremental: nothing is deactivated.",
	RunE: withApp(runCrawl),
}

func init() {
	crawlCmd.Flags().StringVar(&crawlCategories, "categories", "", "comma-separated categories to crawl (default: all)")
	crawlCmd.Flags().IntVar(&crawlLimit, "limit", 0, "stop listing after this many unique jobs")
	crawlCmd.Flags().BoolVar(&crawlDryRun, "dry-run", false, "list and diff against an empty store, write nothing")
	rootCmd.AddCommand(crawlCmd)
}

func crawlOptions(a *app) (reconcile.Options, error) {
	opts := reconcile.Options{Limit: crawlLimit}
	cats, err := categories.Parse(crawlCategories)
	if err != nil {
		return opts, err
	}
	if cats == nil && len(a.cfg.Crawl.Categories) > 0 {
		for _, c := range a.cfg.Crawl.Categories {
			canon, err := categories.Validate(c)
			if err != nil {
				return opts, fmt.Errorf("config crawl.categories: %w", err)
			}
			cats = append(cats, canon)
		}
	}
	opts.Categories = cats
	return opts, nil
}

func runCrawl(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	opts, err := crawlOptions(a)
	if err != nil {
		return err
	}

	var st reconcile.Store
	if crawlDryRun {
		a.logger.Info("dry-run mode enabled, nothing will be written")
		st = store.NewNopStore()
	} else if st, err = a.openStore(ctx); err != nil {
		return err
	}

	progress := func(p crawler.Progress) {
		a.logger.Debug("listing progress",
			"category", p.Category,
			"category_index", p.CategoryIndex,
			"categories", p.TotalCategories,
			"fetched", p.Fetched,
			"estimated_total", p.EstimatedTotal,
		)
	}
	eng, err := a.engine(ctx, st, progress)
	if err != nil {
		return err
	}

	res, err := eng.Run(ctx, opts)
	if err != nil {
		return err
	}
	printRunResult(res)

	if !crawlDryRun {
		if err := a.notifier().Notify(context.WithoutCancel(ctx), res.Summary()); err != nil {
			a.logger.Error("notification failed", "run_id", res.Run.ID, "error", err)
		}
	}
	return nil
}

func printRunResult(res *reconcile.Result) {
	title := "Crawl finished"
	switch {
	case res.Interrupted:
		title = "Crawl interrupted"
	case !res.Complete:
		title = "Partial crawl finished"
	}
	printTitle(title)
	printField("Run", res.Run.ID)
	printField("Kind", res.Run.Kind)
	printField("Seen", res.TotalSeen)
	printField("Added", okStyle.Render(fmt.Sprint(len(res.Diff.Added))))
	printField("Maintained", len(res.Diff.Maintained))
	printField("Removed", warnStyle.Render(fmt.Sprint(len(res.Diff.Removed))))
	printField("Written", res.Written)
	if res.DetailErrors > 0 {
		printField("Detail errs", warnStyle.Render(fmt.Sprint(res.DetailErrors)))
	}
	if res.Embedded > 0 || res.EmbedErrors > 0 {
		printField("Embedded", fmt.Sprintf("%d (%d failed)", res.Embedded, res.EmbedErrors))
	}
	printField("Took", res.Duration.Round(time.Second))
	if !res.Complete {
		fmt.Println(dimStyle.Render("Partial view, no jobs were deactivated."))
	}
}
