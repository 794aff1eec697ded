package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/familycare/visit-service/internal/core/ports"
)

// ChannelName is the Postgres NOTIFY channel the relay listens on.
const ChannelName = "outbox_channel"

// Enqueue writes evt to outbox_events inside tx and schedules a notification
// carrying its id. Postgres delivers the notification only if tx commits.
func Enqueue(ctx context.Context, tx *sql.Tx, evt ports.VisitEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal outbox event: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO outbox_events (id, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		evt.ID, evt.VisitID, evt.Type, payload, evt.OccurredAt,
	); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, ChannelName, evt.ID); err != nil {
		return fmt.Errorf("notify outbox: %w", err)
	}
	return nil
}
