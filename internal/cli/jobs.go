package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stories1001/publisher/internal/config"
	"github.com/stories1001/publisher/internal/entrypoint"
)

// SLACheckCommand runs one SLA sweep outside the scheduler.
type SLACheckCommand struct {
	DryRun bool

	load func() *config.Config
}

func NewSLACheckCommand(load func() *config.Config) *SLACheckCommand {
	return &SLACheckCommand{load: load}
}

func (cmd *SLACheckCommand) Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "sla-check",
		Short: "List overdue submissions and send reminders",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmd.Run()
		},
	}
	c.Flags().BoolVar(&cmd.DryRun, "dry-run", false, "Only list overdue submissions, send nothing")
	return c
}

func (cmd *SLACheckCommand) Run() error {
	return withApp(cmd.load, func(ctx context.Context, app *entrypoint.App) error {
		printHeader("SLA Check")

		items, err := app.Workflow.Overdue(ctx)
		if err != nil {
			return err
		}
		for _, item := range items {
			fmt.Printf("  #%d %-40s %-16s %s overdue by %s\n",
				item.SubmissionID, item.Title, item.Status, item.Kind, item.OverdueBy.Round(time.Minute))
		}
		fmt.Printf("%d overdue submissions\n", len(items))

		if cmd.DryRun {
			fmt.Println("DRY RUN MODE - no reminders sent")
			return nil
		}

		report, err := app.Workflow.SendSLAReminders(ctx)
		if err != nil {
			return err
		}
		if err := app.Settings.SetSLALastRunAt(report.CheckedAt); err != nil {
			return fmt.Errorf("failed to record SLA run: %w", err)
		}
		fmt.Printf("Reminders sent: %d, throttled: %d\n", report.RemindersSent, report.Throttled)
		return nil
	})
}

// RotateFeaturedCommand replaces the featured set.
type RotateFeaturedCommand struct {
	Force bool

	load func() *config.Config
}

func NewRotateFeaturedCommand(load func() *config.Config) *RotateFeaturedCommand {
	return &RotateFeaturedCommand{load: load}
}

func (cmd *RotateFeaturedCommand) Command() *cobra.Command {
	c := &cobra.Command{
		Use:   "rotate-featured",
		Short: "Rotate the featured books",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmd.Run()
		},
	}
	c.Flags().BoolVar(&cmd.Force, "force", false, "Rotate even if the current set has not expired")
	return c
}

func (cmd *RotateFeaturedCommand) Run() error {
	return withApp(cmd.load, func(ctx context.Context, app *entrypoint.App) error {
		result, err := app.Featured.Rotate(ctx, cmd.Force)
		if err != nil {
			return err
		}
		if !result.Rotated {
			fmt.Printf("Featured set not rotated: %s\n", result.Reason)
			return nil
		}
		fmt.Printf("Featured set %d active until %s with books %v\n",
			result.Set.ID, result.Set.EndsAt.Format("2006-01-02"), result.Set.BookIDs)
		return nil
	})
}
