package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/studio-vouchers/internal/common"
	"github.com/noah-isme/studio-vouchers/internal/events"
)

// EmailNotifier mails a plain-text summary of voucher events to the buyer.
type EmailNotifier struct {
	Mail         common.EmailSender
	Enabled      bool
	TopicToggles map[string]bool
}

// Deliver sends the mail for ev. Events without a contact address are skipped.
func (n EmailNotifier) Deliver(_ context.Context, ev events.Event) error {
	if !n.Enabled || n.Mail == nil {
		return nil
	}
	if enabled, ok := n.TopicToggles[ev.Topic]; ok && !enabled {
		return nil
	}
	var payload events.VoucherNotification
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("email notify: decode payload: %w", err)
		}
	}
	to := strings.TrimSpace(payload.RecipientContact.Email)
	if to == "" {
		to = strings.TrimSpace(payload.Sender.Email)
	}
	if to == "" {
		return nil
	}
	return n.Mail.Send(to, subjectFor(ev.Topic, payload), bodyFor(ev, payload))
}

// Notify lets the notifier run inline on the event bus when no queue is configured.
func (n EmailNotifier) Notify(ctx context.Context, ev events.Event) error {
	return n.Deliver(ctx, ev)
}

func subjectFor(topic string, p events.VoucherNotification) string {
	switch topic {
	case events.TopicVoucherCreated:
		return fmt.Sprintf("Your gift voucher order %s", p.OrderNumber)
	case events.TopicVoucherPaid:
		return fmt.Sprintf("Gift voucher %s is ready", p.Code)
	case events.TopicVoucherRedeemed:
		return fmt.Sprintf("Gift voucher %s was redeemed", p.Code)
	default:
		return fmt.Sprintf("Gift voucher notification %s", topic)
	}
}

func bodyFor(ev events.Event, p events.VoucherNotification) string {
	var b strings.Builder
	if name := strings.TrimSpace(p.RecipientContact.Name); name != "" {
		fmt.Fprintf(&b, "Hello %s,\n\n", name)
	} else if name := strings.TrimSpace(p.Sender.Name); name != "" {
		fmt.Fprintf(&b, "Hello %s,\n\n", name)
	}
	switch ev.Topic {
	case events.TopicVoucherCreated:
		if p.PaymentStatus == "paid" {
			b.WriteString("your gift voucher has been issued.\n")
		} else {
			b.WriteString("we received your gift voucher order. It becomes valid once the payment arrives.\n")
		}
	case events.TopicVoucherPaid:
		b.WriteString("we received your payment. The voucher can now be redeemed.\n")
	case events.TopicVoucherRedeemed:
		fmt.Fprintf(&b, "%s EUR were redeemed from your voucher.\n", p.RedeemedAmount)
	}
	fmt.Fprintf(&b, "\nCode: %s\nOrder: %s\nValue: %s EUR\nRemaining: %s EUR\n", p.Code, p.OrderNumber, p.Amount, p.RemainingAmount)
	if expires, err := time.Parse(time.RFC3339, p.ExpiresAt); err == nil {
		fmt.Fprintf(&b, "Valid until: %s\n", expires.Format("2006-01-02"))
	}
	if !ev.OccurredAt.IsZero() {
		fmt.Fprintf(&b, "\nSent for event %s at %s.\n", ev.Topic, ev.OccurredAt.UTC().Format(time.RFC3339))
	}
	return b.String()
}
