package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amishk599/mcfradar/internal/notifier"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification",
	Long:  "Sends a sample run summary using the configured notifier.",
	RunE:  withApp(runNotifyTest),
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	if err := notifier.SendTestMessage(ctx, a.notifier()); err != nil {
		return fmt.Errorf("test notification failed: %w", err)
	}
	fmt.Println(okStyle.Render("Test notification sent."))
	return nil
}
