package events

import (
	"context"
	"log/slog"
)

// SubscribeAuditLog writes every workflow event to the audit logger.
func SubscribeAuditLog(bus *EventBus, logger *slog.Logger) {
	audit := logger.With("component", "audit")
	for _, t := range ExpenseEventTypes {
		bus.Subscribe(t, func(ctx context.Context, event Event) error {
			attrs := []any{"event_type", event.EventType(), "event_id", event.EventID(), "occurred_at", event.OccurredAt()}
			if e, ok := event.(*ExpenseEvent); ok {
				attrs = append(attrs,
					"expense_id", e.ExpenseID,
					"company_id", e.CompanyID,
					"actor_id", e.ActorID,
					"status", e.Status,
					"step", e.Step)
			}
			audit.InfoContext(ctx, "expense workflow event", attrs...)
			return nil
		})
	}
}
