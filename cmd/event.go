package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/frahmantamala/expense-approval/internal/core/events"
	"github.com/frahmantamala/expense-approval/pkg/logger"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Inspect the workflow event bus: list event types and publish test events.`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a test workflow event",
	Long:  `Publish a workflow event to an in-process bus with the audit subscriber attached, for debugging log output.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(cmd.Context(), args[0])
	},
}

var listEventTypesCmd = &cobra.Command{
	Use:   "types",
	Short: "List workflow event types",
	Run: func(cmd *cobra.Command, args []string) {
		for _, t := range events.ExpenseEventTypes {
			fmt.Println(t)
		}
	},
}

var (
	eventExpenseID int64
	eventCompanyID int64
	eventActorID   int64
	eventStatus    string
	eventStep      int
)

func publishTestEvent(ctx context.Context, eventType string) error {
	if !slices.Contains(events.ExpenseEventTypes, eventType) {
		return fmt.Errorf("unknown event type %q, want one of: %s", eventType, strings.Join(events.ExpenseEventTypes, ", "))
	}
	if ctx == nil {
		ctx = context.Background()
	}

	lg := logger.LoggerWrapper()
	bus := events.NewEventBus(lg)
	events.SubscribeAuditLog(bus, lg)

	event := events.NewExpenseEvent(eventType, eventExpenseID, eventCompanyID, eventActorID, eventStatus, eventStep)
	lg.Info("publishing test event", "event_type", eventType, "event_id", event.EventID())

	// synchronous so the audit line is written before the process exits
	if err := bus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	lg.Info("test event published successfully")
	return nil
}

func init() {
	publishEventCmd.Flags().Int64Var(&eventExpenseID, "expense", 1, "expense id")
	publishEventCmd.Flags().Int64Var(&eventCompanyID, "company", 1, "company id")
	publishEventCmd.Flags().Int64Var(&eventActorID, "actor", 1, "acting user id")
	publishEventCmd.Flags().StringVar(&eventStatus, "status", "In Progress", "expense status carried by the event")
	publishEventCmd.Flags().IntVar(&eventStep, "step", 1, "current approval step")

	eventCmd.AddCommand(publishEventCmd)
	eventCmd.AddCommand(listEventTypesCmd)

	rootCmd.AddCommand(eventCmd)
}
