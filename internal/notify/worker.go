package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studio-vouchers/internal/events"
	"github.com/noah-isme/studio-vouchers/internal/obs"
)

// Locker runs fn while holding key, or fails fast when the key is held.
type Locker interface {
	TryWithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// DeliveryMarker records that an event has been handled.
type DeliveryMarker interface {
	MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) error
}

// Deliverer performs the side effect for one event.
type Deliverer interface {
	Deliver(ctx context.Context, ev events.Event) error
}

// Worker processes voucher:notify tasks.
type Worker struct {
	Deliverer Deliverer
	Locker    Locker
	Marker    DeliveryMarker
	LockTTL   time.Duration
	Logger    *zerolog.Logger
	Now       func() time.Time
}

// HandleTask implements asynq.HandlerFunc. Undecodable tasks are not retried;
// a held lock or a failed delivery is returned so asynq retries later.
func (w Worker) HandleTask(ctx context.Context, t *asynq.Task) error {
	if w.Deliverer == nil {
		return errors.New("notify worker: deliverer not configured")
	}
	ev, err := DecodeTask(t)
	if err != nil {
		obs.ObserveNotification("deliver", "invalid")
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	deliver := func(ctx context.Context) error { return w.deliver(ctx, ev) }
	if w.Locker == nil {
		return deliver(ctx)
	}
	ttl := w.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return w.Locker.TryWithLock(ctx, "notify:"+ev.ID.String(), ttl, deliver)
}

func (w Worker) deliver(ctx context.Context, ev events.Event) error {
	logger := w.log().With().Str("event_id", ev.ID.String()).Str("topic", ev.Topic).Logger()
	if err := w.Deliverer.Deliver(ctx, ev); err != nil {
		obs.ObserveNotification("deliver", "error")
		logger.Warn().Err(err).Msg("voucher notification failed")
		return err
	}
	obs.ObserveNotification("deliver", "ok")
	if w.Marker != nil {
		if err := w.Marker.MarkDelivered(ctx, ev.ID, w.now()); err != nil {
			logger.Warn().Err(err).Msg("mark event delivered failed")
		}
	}
	logger.Info().Msg("voucher notification delivered")
	return nil
}

func (w Worker) now() time.Time {
	if w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

var nopLogger = zerolog.Nop()

func (w Worker) log() *zerolog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return &nopLogger
}
