package voucher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/studio-vouchers/internal/events"
	"github.com/noah-isme/studio-vouchers/internal/obs"
)

const (
	defaultCodeAttempts     = 5
	defaultMutationAttempts = 3
	defaultListLimit        = 20
	maxListLimit            = 100
)

// Emitter publishes lifecycle events. *events.Bus satisfies it.
type Emitter interface {
	Emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload any) (events.Event, error)
}

// Service is the only writer of vouchers and their ledger.
type Service struct {
	Store    Store
	Codes    IdentifierGenerator
	Policies PolicySource
	// Events is optional. Publishing failures never fail an operation.
	Events Emitter
	Logger *zerolog.Logger
	Now    func() time.Time

	MaxCodeAttempts     int
	MaxMutationAttempts int
}

var (
	nopLogger = zerolog.Nop()
	validate  = validator.New()
)

// CreateInput describes a new voucher order or in-person sale.
type CreateInput struct {
	StudioID            string
	Amount              decimal.Decimal
	SenderName          string
	SenderEmail         *string
	SenderPhone         *string
	Message             *string
	DeliveryMethod      DeliveryMethod
	RecipientName       *string
	RecipientAddress    *string
	RecipientPostalCode *string
	RecipientCity       *string
	AdminCreated        bool
}

// Create validates the order, assigns unique identifiers and persists it.
// Admin sales start active; online orders wait for payment.
func (s *Service) Create(ctx context.Context, in CreateInput) (Voucher, error) {
	if err := s.ready(); err != nil {
		return Voucher{}, err
	}
	in = normalizeCreate(in)
	if err := validateCreate(in); err != nil {
		s.observe("create", err)
		return Voucher{}, err
	}
	policy, err := s.policy(ctx, in.StudioID)
	if err != nil {
		return Voucher{}, err
	}
	if err := policy.CheckAmount(in.Amount, in.AdminCreated); err != nil {
		s.observe("create", err)
		return Voucher{}, err
	}

	now := s.now()
	v := Voucher{
		ID:                  uuid.New(),
		StudioID:            in.StudioID,
		Amount:              in.Amount,
		Remaining:           in.Amount,
		SenderName:          in.SenderName,
		SenderEmail:         in.SenderEmail,
		SenderPhone:         in.SenderPhone,
		RecipientName:       in.RecipientName,
		RecipientAddress:    in.RecipientAddress,
		RecipientPostalCode: in.RecipientPostalCode,
		RecipientCity:       in.RecipientCity,
		Message:             in.Message,
		DeliveryMethod:      in.DeliveryMethod,
		State:               StateCreated,
		AdminCreated:        in.AdminCreated,
		CreatedAt:           now,
		UpdatedAt:           now,
		ExpiresAt:           policy.ExpiresAt(now),
		Version:             1,
	}
	kind := CodeOnlineOrder
	if in.AdminCreated {
		v.State = StateActive
		kind = CodeAdminSale
	}

	for attempt := 0; attempt < s.codeAttempts(); attempt++ {
		code, orderNumber, fresh, err := s.nextIdentifiers(ctx, kind, now)
		if err != nil {
			return Voucher{}, err
		}
		if !fresh {
			continue
		}
		v.Code, v.OrderNumber = code, orderNumber
		err = s.Store.Insert(ctx, v)
		if errors.Is(err, ErrDuplicateCode) || errors.Is(err, ErrDuplicateOrderNumber) {
			continue
		}
		if err != nil {
			s.observe("create", err)
			return Voucher{}, err
		}
		s.observe("create", nil)
		s.publish(ctx, events.TopicVoucherCreated, v, nil)
		return v, nil
	}
	s.observe("create", ErrGenerationExhausted)
	s.log().Error().Str("studio_id", in.StudioID).Int("attempts", s.codeAttempts()).Msg("voucher identifier generation exhausted")
	return Voucher{}, ErrGenerationExhausted
}

// nextIdentifiers returns a candidate pair and whether both are currently free.
func (s *Service) nextIdentifiers(ctx context.Context, kind CodeKind, now time.Time) (string, string, bool, error) {
	code, err := s.Codes.GenerateCode(kind)
	if err != nil {
		return "", "", false, err
	}
	taken, err := s.Store.CodeTaken(ctx, code)
	if err != nil || taken {
		return "", "", false, err
	}
	orderNumber, err := s.Codes.GenerateOrderNumber(now)
	if err != nil {
		return "", "", false, err
	}
	taken, err = s.Store.OrderNumberTaken(ctx, orderNumber)
	if err != nil || taken {
		return "", "", false, err
	}
	return code, orderNumber, true, nil
}

// Get returns the voucher with its ledger, including trashed vouchers.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Voucher, []Redemption, error) {
	if err := s.ready(); err != nil {
		return Voucher{}, nil, err
	}
	v, err := s.Store.Get(ctx, id)
	if err != nil {
		return Voucher{}, nil, err
	}
	history, err := s.Store.History(ctx, id)
	if err != nil {
		return Voucher{}, nil, err
	}
	return v, history, nil
}

// List returns one page of a studio's live or trashed vouchers and the total count.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Voucher, int, error) {
	if err := s.ready(); err != nil {
		return nil, 0, err
	}
	filter.StudioID = strings.TrimSpace(filter.StudioID)
	if filter.StudioID == "" {
		return nil, 0, invalidInput("studio id is required")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.Store.List(ctx, filter)
}

// mutate runs read, fn and conditional save, retrying the whole cycle on version conflicts.
func (s *Service) mutate(ctx context.Context, op string, id uuid.UUID, fn func(v *Voucher, now time.Time) (*Redemption, error)) (Voucher, *Redemption, error) {
	if err := s.ready(); err != nil {
		return Voucher{}, nil, err
	}
	attempts := s.mutationAttempts()
	for attempt := 1; ; attempt++ {
		current, err := s.Store.Get(ctx, id)
		if err != nil {
			s.observe(op, err)
			return Voucher{}, nil, err
		}
		next := current
		now := s.now()
		redemption, err := fn(&next, now)
		if err != nil {
			s.observe(op, err)
			return Voucher{}, nil, err
		}
		next.UpdatedAt = now
		saved, err := s.Store.Save(ctx, Mutation{Voucher: next, ExpectedVersion: current.Version, Redemption: redemption})
		if err == nil {
			s.observe(op, nil)
			return saved, redemption, nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			s.observe(op, err)
			return Voucher{}, nil, err
		}
		obs.ObserveConflictRetry(op)
		if attempt >= attempts {
			s.observe(op, ErrConcurrentModification)
			s.log().Warn().Str("voucher_id", id.String()).Str("operation", op).Int("attempts", attempt).Msg("voucher write lost every retry")
			return Voucher{}, nil, fmt.Errorf("%w: %s after %d attempts", ErrConcurrentModification, op, attempt)
		}
	}
}

func (s *Service) publish(ctx context.Context, topic string, v Voucher, r *Redemption) {
	if s.Events == nil {
		return
	}
	if _, err := s.Events.Emit(ctx, topic, v.ID, notificationFor(topic, v, r)); err != nil {
		s.log().Warn().Err(err).Str("topic", topic).Str("voucher_id", v.ID.String()).Msg("voucher event publish failed")
	}
}

func notificationFor(topic string, v Voucher, r *Redemption) events.VoucherNotification {
	n := events.VoucherNotification{
		EventType:       topic,
		VoucherID:       v.ID.String(),
		StudioID:        v.StudioID,
		Code:            v.Code,
		OrderNumber:     v.OrderNumber,
		Amount:          v.Amount.StringFixed(2),
		RemainingAmount: v.Remaining.StringFixed(2),
		PaymentStatus:   string(v.PaymentStatus()),
		DeliveryMethod:  string(v.DeliveryMethod),
		ExpiresAt:       v.ExpiresAt.UTC().Format(time.RFC3339),
		Sender:          events.Contact{Name: v.SenderName, Email: deref(v.SenderEmail)},
		RecipientContact: events.Contact{
			Name:  deref(v.RecipientName),
			Email: deref(v.SenderEmail),
		},
	}
	if r != nil {
		n.RedeemedAmount = r.Amount.StringFixed(2)
	}
	return n
}

func (s *Service) policy(ctx context.Context, studioID string) (StudioPolicy, error) {
	if s.Policies == nil {
		return DefaultPolicy(), nil
	}
	return s.Policies.StudioPolicy(ctx, studioID)
}

func (s *Service) observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = KindOf(err).String()
	}
	obs.ObserveVoucherOperation(op, result)
}

func (s *Service) ready() error {
	if s == nil || s.Store == nil || s.Codes == nil {
		return errors.New("voucher service not configured")
	}
	return nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) log() *zerolog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return &nopLogger
}

func (s *Service) codeAttempts() int {
	if s.MaxCodeAttempts > 0 {
		return s.MaxCodeAttempts
	}
	return defaultCodeAttempts
}

func (s *Service) mutationAttempts() int {
	if s.MaxMutationAttempts > 0 {
		return s.MaxMutationAttempts
	}
	return defaultMutationAttempts
}

func normalizeCreate(in CreateInput) CreateInput {
	in.StudioID = strings.TrimSpace(in.StudioID)
	in.SenderName = strings.TrimSpace(in.SenderName)
	in.DeliveryMethod = DeliveryMethod(strings.ToLower(strings.TrimSpace(string(in.DeliveryMethod))))
	in.SenderEmail = optional(in.SenderEmail)
	in.SenderPhone = optional(in.SenderPhone)
	in.Message = optional(in.Message)
	in.RecipientName = optional(in.RecipientName)
	in.RecipientAddress = optional(in.RecipientAddress)
	in.RecipientPostalCode = optional(in.RecipientPostalCode)
	in.RecipientCity = optional(in.RecipientCity)
	if in.DeliveryMethod == DeliveryEmail {
		in.RecipientAddress = nil
		in.RecipientPostalCode = nil
		in.RecipientCity = nil
	}
	return in
}

func validateCreate(in CreateInput) error {
	if in.StudioID == "" {
		return invalidInput("studio id is required")
	}
	if !in.DeliveryMethod.Valid() {
		return invalidInput("delivery method must be email or post")
	}
	if in.SenderName == "" {
		return invalidInput("sender name is required")
	}
	if err := validateContact(in.SenderEmail, in.AdminCreated); err != nil {
		return err
	}
	if in.DeliveryMethod == DeliveryPost && !hasPostalAddress(in.RecipientName, in.RecipientAddress, in.RecipientPostalCode, in.RecipientCity) {
		return ErrMissingRecipientAddress
	}
	return nil
}

func validateContact(email *string, adminCreated bool) error {
	if email == nil {
		if adminCreated {
			return nil
		}
		return invalidInput("sender email is required")
	}
	if err := validate.Var(*email, "email"); err != nil {
		return invalidInput("sender email is not a valid address")
	}
	return nil
}

func hasPostalAddress(fields ...*string) bool {
	for _, f := range fields {
		if f == nil {
			return false
		}
	}
	return true
}

// optional trims a value and maps blanks to nil.
func optional(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
