package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/amishk599/mcfradar/internal/match"
)

var (
	topK              int
	excludeInteracted bool
	searchSkills      string
)

var matchJobsCmd = &cobra.Command{
	Use:   "match-jobs",
	Short: "Rank active jobs against a user's resume",
	RunE:  withApp(runMatchJobs),
}

var matchCandidatesCmd = &cobra.Command{
	Use:   "match-candidates <job_uuid>",
	Short: "Rank candidate profiles against a job",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runMatchCandidates),
}

var searchCandidatesCmd = &cobra.Command{
	Use:   "search-candidates",
	Short: "Find candidates by skill keywords",
	RunE:  withApp(runSearchCandidates),
}

func init() {
	for _, c := range []*cobra.Command{matchJobsCmd, matchCandidatesCmd, searchCandidatesCmd} {
		c.Flags().IntVar(&topK, "top-k", match.DefaultTopK, "number of results")
	}
	matchJobsCmd.Flags().StringVar(&userID, "user-id", "", "user whose profile to match (default: default_user_id)")
	matchJobsCmd.Flags().BoolVar(&excludeInteracted, "exclude-interacted", true, "hide jobs the user already interacted with")
	searchCandidatesCmd.Flags().StringVar(&searchSkills, "skills", "", "comma-separated skills")
	_ = searchCandidatesCmd.MarkFlagRequired("skills")

	rootCmd.AddCommand(matchJobsCmd, matchCandidatesCmd, searchCandidatesCmd)
}

func (a *app) matcher(ctx context.Context) (*match.Engine, error) {
	st, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	return match.NewEngine(st, a.logger), nil
}

func runMatchJobs(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	eng, err := a.matcher(ctx)
	if err != nil {
		return err
	}
	p, err := profileForUser(ctx, a.store, a.userID())
	if err != nil {
		return err
	}

	matches, err := eng.MatchCandidateToJobs(ctx, p.ID, topK, excludeInteracted)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Println("No matches. Process your resume first, and make sure jobs have embeddings (`mcfradar backfill`).")
		return nil
	}

	printTitle(fmt.Sprintf("Top %d jobs for %s", len(matches), p.UserID))
	fmt.Println(headerStyle.Render(fmt.Sprintf("%4s  %6s  %-36s %-40s %s", "#", "Score", "UUID", "Title", "Company")))
	printRule(120)
	for i, m := range matches {
		fmt.Printf("%4d  %6.3f  %-36s %-40s %s\n", i+1, m.Score, m.Job.UUID, clip(m.Job.Title, 40), clip(m.Job.CompanyName, 30))
	}
	return nil
}

func runMatchCandidates(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	eng, err := a.matcher(ctx)
	if err != nil {
		return err
	}
	matches, err := eng.MatchJobToCandidates(ctx, args[0], topK)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Println("No matches. The job may have no embedding yet, or no candidate has processed a resume.")
		return nil
	}

	printTitle(fmt.Sprintf("Top %d candidates for job %s", len(matches), args[0]))
	fmt.Println(headerStyle.Render(fmt.Sprintf("%4s  %6s  %s", "#", "Score", "Profile")))
	printRule(52)
	for i, m := range matches {
		fmt.Printf("%4d  %6.3f  %s\n", i+1, m.Score, m.ProfileID)
	}
	return nil
}

func runSearchCandidates(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	eng, err := a.matcher(ctx)
	if err != nil {
		return err
	}
	matches, err := eng.SearchCandidatesBySkills(ctx, strings.Split(searchSkills, ","), topK)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		fmt.Println("No candidate lists any of those skills.")
		return nil
	}

	printTitle(fmt.Sprintf("%d candidates", len(matches)))
	fmt.Println(headerStyle.Render(fmt.Sprintf("%4s  %6s  %-36s %-16s %s", "#", "Score", "Profile", "User", "Matched")))
	printRule(100)
	for i, m := range matches {
		fmt.Printf("%4d  %6.2f  %-36s %-16s %s\n", i+1, m.Score, m.ProfileID, clip(m.UserID, 16), strings.Join(m.Matched, ", "))
	}
	return nil
}
