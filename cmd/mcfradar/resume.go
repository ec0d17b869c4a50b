package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amishk599/mcfradar/internal/model"
	"github.com/amishk599/mcfradar/internal/profile"
)

var (
	resumePath      string
	userID          string
	interactionType string
)

var processResumeCmd = &cobra.Command{
	Use:   "process-resume",
	Short: "Create or update a candidate profile from a resume",
	Long:  "Reads a .txt or .md resume, extracts skills when ai.enabled is set, and stores an embedding of the text.",
	RunE:  withApp(runProcessResume),
}

var markInteractionCmd = &cobra.Command{
	Use:   "mark-interaction <job_uuid>",
	Short: "Record that a user viewed, dismissed, applied to, or saved a job",
	Args:  cobra.ExactArgs(1),
	RunE:  withApp(runMarkInteraction),
}

func init() {
	processResumeCmd.Flags().StringVar(&resumePath, "resume", "", "path to the resume file (.txt or .md)")
	_ = processResumeCmd.MarkFlagRequired("resume")
	processResumeCmd.Flags().StringVar(&userID, "user-id", "", "user the profile belongs to (default: default_user_id)")

	markInteractionCmd.Flags().StringVar(&interactionType, "type", "", "viewed, dismissed, applied or saved")
	_ = markInteractionCmd.MarkFlagRequired("type")
	markInteractionCmd.Flags().StringVar(&userID, "user-id", "", "user recording the interaction (default: default_user_id)")

	rootCmd.AddCommand(processResumeCmd, markInteractionCmd)
}

func (a *app) userID() string {
	if userID != "" {
		return userID
	}
	return a.cfg.DefaultUserID
}

func (a *app) profileService(ctx context.Context) (*profile.Service, error) {
	st, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	emb, err := a.embedder(ctx)
	if err != nil {
		return nil, err
	}
	return profile.NewService(st, emb, a.extractor(), a.logger), nil
}

func runProcessResume(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	text, err := profile.ReadResume(resumePath)
	if err != nil {
		return err
	}
	svc, err := a.profileService(ctx)
	if err != nil {
		return err
	}

	res, err := svc.ProcessResume(ctx, profile.ResumeInput{UserID: a.userID(), Text: text})
	if err != nil {
		return err
	}

	action := "updated"
	if res.Created {
		action = "created"
	}
	printTitle("Profile " + action)
	printField("Profile", res.Profile.ID)
	printField("User", res.Profile.UserID)
	printField("Characters", res.Chars)
	if res.Extracted {
		printField("Skills", len(res.Profile.Skills))
		printField("Experience", len(res.Profile.Experience))
	} else {
		printField("Skills", dimStyle.Render("not extracted"))
	}
	if res.Embedded {
		printField("Embedding", okStyle.Render("stored"))
	} else {
		printField("Embedding", warnStyle.Render("skipped, no embedding provider"))
	}
	return nil
}

func runMarkInteraction(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	svc, err := a.profileService(ctx)
	if err != nil {
		return err
	}
	in := model.Interaction{UserID: a.userID(), JobUUID: args[0], Type: model.InteractionType(interactionType)}
	if err := svc.MarkInteraction(ctx, in); err != nil {
		return err
	}
	fmt.Printf("Marked job %s as %s for %s\n", in.JobUUID, okStyle.Render(string(in.Type)), in.UserID)
	return nil
}
