package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/amishk599/mcfradar/internal/categories"
)

var (
	runsLimit    int
	jobsKeywords string
	jobsLimit    int
	jobsOffset   int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent crawl runs",
	RunE:  withApp(runRuns),
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Search stored active jobs",
	RunE:  withApp(runJobs),
}

var categoriesCmd = &cobra.Command{
	Use:   "categories [search]",
	Short: "List the job categories the crawler partitions by",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCategories,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 10, "number of runs to show")
	jobsCmd.Flags().StringVar(&jobsKeywords, "keywords", "", "match title or company (case-insensitive)")
	jobsCmd.Flags().IntVar(&jobsLimit, "limit", 20, "number of jobs to show")
	jobsCmd.Flags().IntVar(&jobsOffset, "offset", 0, "skip this many jobs")
	rootCmd.AddCommand(runsCmd, jobsCmd, categoriesCmd)
}

func runRuns(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	runs, err := st.RecentRuns(ctx, runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs yet. Try `mcfradar crawl`.")
		return nil
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-24s %-12s %-10s %8s %8s %10s %8s", "Run", "Kind", "Status", "Seen", "Added", "Maintained", "Removed")))
	printRule(86)
	for _, r := range runs {
		status := okStyle.Render(fmt.Sprintf("%-10s", "finished"))
		if !r.Finished() {
			status = warnStyle.Render(fmt.Sprintf("%-10s", "unfinished"))
		}
		fmt.Printf("%-24s %-12s %s %8d %8d %10d %8d\n", r.ID, r.Kind, status, r.TotalSeen, r.Added, r.Maintained, r.Removed)
	}
	return nil
}

func runJobs(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	st, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	total, err := st.ActiveJobCount(ctx)
	if err != nil {
		return err
	}
	jobs, err := st.SearchJobs(ctx, jobsKeywords, jobsLimit, jobsOffset)
	if err != nil {
		return err
	}

	fmt.Println(headerStyle.Render(fmt.Sprintf("%-36s %-40s %-28s %s", "UUID", "Title", "Company", "Last seen")))
	printRule(120)
	for _, j := range jobs {
		seen := "-"
		if j.LastSeenAt != nil {
			seen = j.LastSeenAt.Local().Format(time.DateTime)
		}
		fmt.Printf("%-36s %-40s %-28s %s\n", j.UUID, clip(j.Title, 40), clip(j.CompanyName, 28), seen)
	}
	fmt.Printf("\nShowing %d of %d active jobs\n", len(jobs), total)
	return nil
}

func runCategories(cmd *cobra.Command, args []string) error {
	list := categories.All()
	if len(args) == 1 {
		list = categories.Find(args[0])
	}
	for _, c := range list {
		fmt.Println(c)
	}
	fmt.Println(dimStyle.Render(fmt.Sprintf("\n%d categories", len(list))))
	if len(list) == 0 && len(args) == 1 {
		fmt.Printf("No category matches %q\n", strings.TrimSpace(args[0]))
	}
	return nil
}
