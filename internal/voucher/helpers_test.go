package voucher

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studio-vouchers/internal/events"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// sequenceGenerator hands out codes from a script, then falls back to counters.
type sequenceGenerator struct {
	mu     sync.Mutex
	codes  []string
	orders []string
	n      int
}

func (g *sequenceGenerator) GenerateCode(kind CodeKind) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.codes) > 0 {
		c := g.codes[0]
		g.codes = g.codes[1:]
		return c, nil
	}
	g.n++
	if kind == CodeAdminSale {
		return fmt.Sprintf("SLX%04d", g.n), nil
	}
	return fmt.Sprintf("GV-TEST%06d", g.n), nil
}

func (g *sequenceGenerator) GenerateOrderNumber(now time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.orders) > 0 {
		o := g.orders[0]
		g.orders = g.orders[1:]
		return o, nil
	}
	g.n++
	return fmt.Sprintf("VO-%s-%06d", now.Format("20060102"), g.n), nil
}

type captureEmitter struct {
	mu     sync.Mutex
	topics []string
	last   events.VoucherNotification
	err    error
}

func (c *captureEmitter) Emit(_ context.Context, topic string, id uuid.UUID, payload any) (events.Event, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topics = append(c.topics, topic)
	if n, ok := payload.(events.VoucherNotification); ok {
		c.last = n
	}
	return events.Event{ID: uuid.New(), Topic: topic, AggregateID: id}, c.err
}

func (c *captureEmitter) Topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.topics...)
}

type fixture struct {
	svc    *Service
	store  *MemoryStore
	clock  *testClock
	events *captureEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  NewMemoryStore(),
		clock:  newTestClock(),
		events: &captureEmitter{},
	}
	f.svc = &Service{
		Store:    f.store,
		Codes:    &sequenceGenerator{},
		Policies: StaticPolicy(DefaultPolicy()),
		Events:   f.events,
		Now:      f.clock.Now,
	}
	return f
}

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func strPtr(s string) *string { return &s }

func onlineOrder(amount string) CreateInput {
	return CreateInput{
		StudioID:       "berlin",
		Amount:         money(amount),
		SenderName:     "Anna Schmidt",
		SenderEmail:    strPtr("anna@example.com"),
		DeliveryMethod: DeliveryEmail,
		RecipientName:  strPtr("Lena"),
	}
}

func adminSale(amount string) CreateInput {
	return CreateInput{
		StudioID:       "berlin",
		Amount:         money(amount),
		SenderName:     "Walk-in customer",
		DeliveryMethod: DeliveryEmail,
		AdminCreated:   true,
	}
}

func (f *fixture) activeVoucher(t *testing.T, amount string) Voucher {
	t.Helper()
	v, err := f.svc.Create(context.Background(), adminSale(amount))
	require.NoError(t, err)
	require.Equal(t, StateActive, v.State)
	return v
}

func (f *fixture) requireLedger(t *testing.T, id uuid.UUID) {
	t.Helper()
	v, history, err := f.svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, VerifyLedger(v, history))
	require.Equal(t, v.Remaining.IsZero(), v.IsUsed())
}

func paymentPtr(p PaymentStatus) *PaymentStatus { return &p }

func statusPtr(s Status) *Status { return &s }
