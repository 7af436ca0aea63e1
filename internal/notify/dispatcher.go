package notify

import (
	"context"
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/studio-vouchers/internal/events"
	"github.com/noah-isme/studio-vouchers/internal/obs"
)

// Enqueuer is the subset of *asynq.Client used by the dispatcher.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher hands voucher events to the worker queue. It implements events.Notifier.
type Dispatcher struct {
	Client   Enqueuer
	Queue    string
	MaxRetry int
	Timeout  time.Duration
	// Topics limits which topics are enqueued. Nil enqueues everything.
	Topics map[string]bool
}

// Notify enqueues the event. An already-enqueued event counts as success.
func (d Dispatcher) Notify(ctx context.Context, ev events.Event) error {
	if d.Client == nil {
		return nil
	}
	if d.Topics != nil && !d.Topics[ev.Topic] {
		return nil
	}
	ctx, span := otel.Tracer("notify.Dispatcher").Start(ctx, "Dispatcher.Notify")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.topic", ev.Topic),
		attribute.String("event.id", ev.ID.String()),
	)

	task, err := NewTask(ev, d.options()...)
	if err != nil {
		obs.ObserveNotification("enqueue", "error")
		return err
	}
	_, err = d.Client.EnqueueContext(ctx, task)
	switch {
	case err == nil:
		obs.ObserveNotification("enqueue", "ok")
		return nil
	case errors.Is(err, asynq.ErrTaskIDConflict), errors.Is(err, asynq.ErrDuplicateTask):
		obs.ObserveNotification("enqueue", "duplicate")
		return nil
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "enqueue failed")
		obs.ObserveNotification("enqueue", "error")
		return err
	}
}

func (d Dispatcher) options() []asynq.Option {
	var opts []asynq.Option
	if d.Queue != "" {
		opts = append(opts, asynq.Queue(d.Queue))
	}
	if d.MaxRetry > 0 {
		opts = append(opts, asynq.MaxRetry(d.MaxRetry))
	}
	if d.Timeout > 0 {
		opts = append(opts, asynq.Timeout(d.Timeout))
	}
	return opts
}
