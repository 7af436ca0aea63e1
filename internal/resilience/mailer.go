package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/studio-vouchers/internal/common"
)

// Mailer guards an EmailSender with a breaker and a bounded number of retries.
// It implements common.EmailSender.
type Mailer struct {
	Sender      common.EmailSender
	Breaker     *Breaker
	MaxAttempts int
	BaseBackoff time.Duration
	Jitter      float64
	Sleep       func(time.Duration)
}

// Send tries the relay up to MaxAttempts times. An open breaker fails fast
// with ErrOpenCircuit so the task queue can retry later.
func (m Mailer) Send(to, subject, body string) error {
	if m.Sender == nil {
		return nil
	}
	attempts := m.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := m.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	send := func(context.Context) error { return m.Sender.Send(to, subject, body) }

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if m.Breaker != nil {
			err = m.Breaker.Do(context.Background(), send)
		} else {
			err = send(context.Background())
		}
		if err == nil || errors.Is(err, ErrOpenCircuit) {
			return err
		}
		if attempt < attempts {
			sleep(Backoff(m.BaseBackoff, attempt, m.Jitter))
		}
	}
	return err
}
