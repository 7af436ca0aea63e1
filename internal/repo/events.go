package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/studio-vouchers/internal/events"
	"github.com/noah-isme/studio-vouchers/internal/voucher"
)

// EventStore appends domain events to voucher_events.
type EventStore struct {
	pool *pgxpool.Pool
}

var _ events.EventStore = (*EventStore)(nil)

// NewEventStore constructs the outbox store.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// InsertEvent stores the event and returns it with its generated id and timestamp.
func (s *EventStore) InsertEvent(ctx context.Context, topic string, aggregateID uuid.UUID, payload []byte) (events.Event, error) {
	if s == nil || s.pool == nil {
		return events.Event{}, fmt.Errorf("%w: postgres pool not configured", voucher.ErrStoreUnavailable)
	}
	ev := events.Event{ID: uuid.New(), Topic: topic, AggregateID: aggregateID, Payload: payload}
	var occurred time.Time
	err := s.pool.QueryRow(ctx, `INSERT INTO voucher_events (id, topic, aggregate_id, payload)
VALUES ($1, $2, $3, $4) RETURNING occurred_at`, ev.ID, topic, aggregateID, payload).Scan(&occurred)
	if err != nil {
		return events.Event{}, unavailable("insert event", err)
	}
	ev.OccurredAt = occurred.UTC()
	return ev, nil
}

// MarkDelivered stamps delivered_at once the notification worker is done with an event.
func (s *EventStore) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("%w: postgres pool not configured", voucher.ErrStoreUnavailable)
	}
	if _, err := s.pool.Exec(ctx, `UPDATE voucher_events SET delivered_at = $2 WHERE id = $1 AND delivered_at IS NULL`, id, at); err != nil {
		return unavailable("mark event delivered", err)
	}
	return nil
}
