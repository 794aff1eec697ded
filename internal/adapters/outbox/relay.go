package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lib/pq"
	"github.com/sony/gobreaker"

	"github.com/familycare/visit-service/internal/config"
	"github.com/familycare/visit-service/internal/core/ports"
)

const (
	listenerMinReconnectInterval = 10 * time.Second
	listenerMaxReconnectInterval = time.Minute

	eventProcessTimeout     = 30 * time.Second
	batchProcessTimeout     = 60 * time.Second
	periodicProcessInterval = 90 * time.Second

	healthCheckStaleThreshold = 5 * time.Minute

	maxEventsPerBatch = 100
)

type record struct {
	ID        string
	EventType string
	Payload   []byte
}

// Relay listens for NOTIFY on ChannelName and publishes the referenced
// outbox events. A periodic sweep catches anything a dropped connection missed.
type Relay struct {
	db        *sql.DB
	dbURL     string
	publisher ports.VisitEventPublisher
	dbCB      *gobreaker.CircuitBreaker
	logger    *slog.Logger

	lastProcessed atomic.Int64
	healthy       atomic.Bool
}

func NewRelay(db *sql.DB, dbURL string, publisher ports.VisitEventPublisher, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Relay{
		db:        db,
		dbURL:     dbURL,
		publisher: publisher,
		dbCB:      config.NewCircuitBreaker(config.BreakerRelayPostgres),
		logger:    logger.With("component", "outbox_relay"),
	}
	r.lastProcessed.Store(time.Now().UnixNano())
	r.healthy.Store(true)
	return r
}

// IsHealthy is the liveness signal: the process is running its loop. An open
// breaker is degraded but recoverable, so it is not checked here.
func (r *Relay) IsHealthy() bool {
	return r.healthy.Load()
}

// IsReady additionally requires a closed breaker and recent progress.
func (r *Relay) IsReady() bool {
	if r.dbCB.State() == gobreaker.StateOpen {
		return false
	}
	if time.Since(time.Unix(0, r.lastProcessed.Load())) > healthCheckStaleThreshold {
		return false
	}
	return r.healthy.Load()
}

func (r *Relay) markProgress() {
	r.lastProcessed.Store(time.Now().UnixNano())
	r.healthy.Store(true)
}

// Start blocks until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	reportProblem := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			r.logger.Error("listener error", "event", ev, "error", err)
		}
	}

	listener := pq.NewListener(r.dbURL, listenerMinReconnectInterval, listenerMaxReconnectInterval, reportProblem)
	defer listener.Close()

	if err := listener.Listen(ChannelName); err != nil {
		return err
	}
	r.logger.Info("listening for outbox notifications", "channel", ChannelName)

	if err := r.processUnprocessedEvents(ctx); err != nil {
		r.logger.Error("startup backlog failed", "error", err)
	}

	ticker := time.NewTicker(periodicProcessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("shutting down")
			return ctx.Err()

		case n := <-listener.Notify:
			if n == nil {
				// Connection was re-established; notifications may have been lost.
				r.healthy.Store(false)
				if err := r.processUnprocessedEvents(ctx); err == nil {
					r.markProgress()
				}
				continue
			}
			if err := r.processEventByID(ctx, n.Extra); err != nil {
				r.logger.Error("process event failed", "event_id", n.Extra, "error", err)
				continue
			}
			r.markProgress()

		case <-ticker.C:
			go listener.Ping()
			if err := r.processUnprocessedEvents(ctx); err != nil {
				r.logger.Error("periodic sweep failed", "error", err)
				continue
			}
			r.markProgress()
		}
	}
}

func (r *Relay) processEventByID(ctx context.Context, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, eventProcessTimeout)
	defer cancel()

	_, err := r.dbCB.Execute(func() (interface{}, error) {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		var rec record
		err = tx.QueryRowContext(ctx, `
			SELECT id, event_type, payload
			FROM outbox_events
			WHERE id = $1 AND processed_at IS NULL
			FOR UPDATE SKIP LOCKED`, eventID).Scan(&rec.ID, &rec.EventType, &rec.Payload)
		if errors.Is(err, sql.ErrNoRows) {
			// Already handled by the sweep or another relay instance.
			return nil, nil
		}
		if err != nil {
			return nil, err
		}

		if err := r.dispatch(ctx, rec); err != nil {
			return nil, err
		}
		if err := markProcessed(ctx, tx, rec.ID); err != nil {
			return nil, err
		}
		return nil, tx.Commit()
	})
	return err
}

func (r *Relay) processUnprocessedEvents(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, batchProcessTimeout)
	defer cancel()

	_, err := r.dbCB.Execute(func() (interface{}, error) {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		rows, err := tx.QueryContext(ctx, `
			SELECT id, event_type, payload
			FROM outbox_events
			WHERE processed_at IS NULL
			ORDER BY created_at
			LIMIT $1
			FOR UPDATE SKIP LOCKED`, maxEventsPerBatch)
		if err != nil {
			return nil, err
		}

		var records []record
		for rows.Next() {
			var rec record
			if err := rows.Scan(&rec.ID, &rec.EventType, &rec.Payload); err != nil {
				rows.Close()
				return nil, err
			}
			records = append(records, rec)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}

		for _, rec := range records {
			if err := r.dispatch(ctx, rec); err != nil {
				// Left unprocessed for the next sweep.
				r.logger.Warn("publish failed", "event_id", rec.ID, "error", err)
				continue
			}
			if err := markProcessed(ctx, tx, rec.ID); err != nil {
				return nil, err
			}
		}
		return nil, tx.Commit()
	})
	return err
}

// dispatch publishes one outbox record. Records that can never be published
// (unknown type, corrupt payload) are logged and reported as handled so they
// do not block the queue.
func (r *Relay) dispatch(ctx context.Context, rec record) error {
	switch rec.EventType {
	case ports.EventVisitCreated, ports.EventVisitCompleted:
	default:
		r.logger.Warn("skipping unknown event type", "event_id", rec.ID, "event_type", rec.EventType)
		return nil
	}

	var evt ports.VisitEvent
	if err := json.Unmarshal(rec.Payload, &evt); err != nil {
		r.logger.Error("invalid outbox payload", "event_id", rec.ID, "error", err)
		return nil
	}

	if err := r.publisher.PublishVisitEvent(ctx, evt); err != nil {
		return err
	}
	r.logger.Debug("event published", "event_id", rec.ID, "event_type", rec.EventType, "visit_id", evt.VisitID)
	return nil
}

func markProcessed(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx, `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`, id)
	return err
}
