package notify

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/studio-vouchers/internal/events"
)

// TaskVoucherNotify is the asynq task type carrying one voucher event.
const TaskVoucherNotify = "voucher:notify"

// NewTask wraps an event as an asynq task. The event id doubles as the task id
// so re-enqueueing the same event is a no-op.
func NewTask(ev events.Event, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("notify: encode task: %w", err)
	}
	opts = append([]asynq.Option{asynq.TaskID(ev.ID.String())}, opts...)
	return asynq.NewTask(TaskVoucherNotify, payload, opts...), nil
}

// DecodeTask is the inverse of NewTask.
func DecodeTask(t *asynq.Task) (events.Event, error) {
	var ev events.Event
	if t == nil {
		return ev, fmt.Errorf("notify: nil task")
	}
	if t.Type() != TaskVoucherNotify {
		return ev, fmt.Errorf("notify: unexpected task type %q", t.Type())
	}
	if err := json.Unmarshal(t.Payload(), &ev); err != nil {
		return ev, fmt.Errorf("notify: decode task: %w", err)
	}
	return ev, nil
}
