package voucher

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studio-vouchers/internal/events"
)

func TestOnlineOrderFullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.svc.Create(ctx, onlineOrder("150"))
	require.NoError(t, err)
	require.Equal(t, PaymentPending, v.PaymentStatus())
	require.Equal(t, StatusPending, v.Status())
	require.True(t, v.Remaining.Equal(money("150")))
	require.False(t, v.IsUsed())
	require.True(t, strings.HasPrefix(v.Code, "GV-"))
	require.Equal(t, f.clock.Now().AddDate(0, 12, 0), v.ExpiresAt)

	v, err = f.svc.UpdateStatus(ctx, v.ID, StatusTarget{PaymentStatus: paymentPtr(PaymentPaid)})
	require.NoError(t, err)
	require.Equal(t, PaymentPaid, v.PaymentStatus())
	require.Equal(t, StatusActive, v.Status())

	v, r, err := f.svc.Redeem(ctx, v.ID, money("60"), "Laser")
	require.NoError(t, err)
	require.True(t, v.Remaining.Equal(money("90")))
	require.True(t, r.RemainingAfter.Equal(money("90")))
	require.Equal(t, "Laser", r.Description)

	_, history, err := f.svc.Get(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	v, _, err = f.svc.Redeem(ctx, v.ID, money("90"), "Facial")
	require.NoError(t, err)
	require.True(t, v.Remaining.IsZero())
	require.Equal(t, StatusRedeemed, v.Status())
	require.True(t, v.IsUsed())

	_, _, err = f.svc.Redeem(ctx, v.ID, money("1"), "Extra")
	require.ErrorIs(t, err, ErrInsufficientBalance)
	var balance *InsufficientBalanceError
	require.True(t, errors.As(err, &balance))
	require.True(t, balance.Remaining.IsZero())
	require.True(t, balance.Requested.Equal(money("1")))

	f.requireLedger(t, v.ID)
	require.Equal(t, []string{events.TopicVoucherCreated, events.TopicVoucherPaid, events.TopicVoucherRedeemed, events.TopicVoucherRedeemed}, f.events.Topics())
}

func TestAdminSaleStartsActive(t *testing.T) {
	f := newFixture(t)
	v, err := f.svc.Create(context.Background(), adminSale("80"))
	require.NoError(t, err)
	require.Equal(t, PaymentPaid, v.PaymentStatus())
	require.Equal(t, StatusActive, v.Status())
	require.True(t, v.AdminCreated)
	require.Nil(t, v.SenderEmail)
	require.True(t, strings.HasPrefix(v.Code, "SLX"))
	require.Equal(t, []string{events.TopicVoucherCreated}, f.events.Topics())
	require.Equal(t, "paid", f.events.last.PaymentStatus)
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateInput)
		want   error
	}{
		{"online below minimum", func(in *CreateInput) { in.Amount = money("24.99") }, ErrInvalidAmount},
		{"three decimals", func(in *CreateInput) { in.Amount = money("30.005") }, ErrInvalidAmount},
		{"negative", func(in *CreateInput) { in.Amount = money("-30") }, ErrInvalidAmount},
		{"missing sender email", func(in *CreateInput) { in.SenderEmail = nil }, ErrInvalidInput},
		{"blank sender email", func(in *CreateInput) { in.SenderEmail = strPtr("   ") }, ErrInvalidInput},
		{"malformed sender email", func(in *CreateInput) { in.SenderEmail = strPtr("anna-at-example") }, ErrInvalidInput},
		{"missing sender name", func(in *CreateInput) { in.SenderName = " " }, ErrInvalidInput},
		{"unknown delivery", func(in *CreateInput) { in.DeliveryMethod = "fax" }, ErrInvalidInput},
		{"missing studio", func(in *CreateInput) { in.StudioID = "" }, ErrInvalidInput},
		{"post without address", func(in *CreateInput) {
			in.DeliveryMethod = DeliveryPost
			in.RecipientAddress = strPtr("Hauptstr. 1")
		}, ErrMissingRecipientAddress},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			in := onlineOrder("50")
			tc.mutate(&in)
			_, err := f.svc.Create(context.Background(), in)
			require.ErrorIs(t, err, tc.want)
			require.Equal(t, KindValidation, KindOf(err))
			require.Empty(t, f.events.Topics())
		})
	}
}

func TestCreateAdminBounds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, amount := range []string{"10", "1000", "499.50"} {
		_, err := f.svc.Create(ctx, adminSale(amount))
		require.NoError(t, err, amount)
	}
	for _, amount := range []string{"9.99", "1000.01"} {
		_, err := f.svc.Create(ctx, adminSale(amount))
		require.ErrorIs(t, err, ErrInvalidAmount, amount)
	}
}

func TestCreateEmailDeliveryDropsPostalFields(t *testing.T) {
	f := newFixture(t)
	in := onlineOrder("40")
	in.RecipientAddress = strPtr("Hauptstr. 1")
	in.RecipientPostalCode = strPtr("10115")
	in.RecipientCity = strPtr("Berlin")
	v, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.Nil(t, v.RecipientAddress)
	require.Nil(t, v.RecipientPostalCode)
	require.Nil(t, v.RecipientCity)
	require.Equal(t, "Lena", *v.RecipientName)
}

func TestCreatePostDelivery(t *testing.T) {
	f := newFixture(t)
	in := onlineOrder("40")
	in.DeliveryMethod = DeliveryPost
	in.RecipientAddress = strPtr("Hauptstr. 1")
	in.RecipientPostalCode = strPtr("10115")
	in.RecipientCity = strPtr("Berlin")
	v, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, DeliveryPost, v.DeliveryMethod)
	require.Equal(t, "10115", *v.RecipientPostalCode)
}

type perStudioPolicy map[string]StudioPolicy

func (p perStudioPolicy) StudioPolicy(_ context.Context, studioID string) (StudioPolicy, error) {
	if policy, ok := p[studioID]; ok {
		return policy, nil
	}
	return DefaultPolicy(), nil
}

func TestCreateUsesStudioValidity(t *testing.T) {
	f := newFixture(t)
	short := DefaultPolicy()
	short.ValidityMonths = 3
	f.svc.Policies = perStudioPolicy{"berlin": short}

	v, err := f.svc.Create(context.Background(), onlineOrder("50"))
	require.NoError(t, err)
	require.Equal(t, f.clock.Now().AddDate(0, 3, 0), v.ExpiresAt)
}

func TestCreateRetriesIdentifierCollisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.Codes = &sequenceGenerator{codes: []string{"SLX0001", "SLX0001", "SLX0002"}}

	first, err := f.svc.Create(ctx, adminSale("50"))
	require.NoError(t, err)
	require.Equal(t, "SLX0001", first.Code)

	second, err := f.svc.Create(ctx, adminSale("50"))
	require.NoError(t, err)
	require.Equal(t, "SLX0002", second.Code)
}

type alwaysTakenStore struct {
	*MemoryStore
}

func (alwaysTakenStore) CodeTaken(context.Context, string) (bool, error) { return true, nil }

func TestCreateGenerationExhausted(t *testing.T) {
	f := newFixture(t)
	f.svc.Store = alwaysTakenStore{f.store}
	f.svc.MaxCodeAttempts = 3

	_, err := f.svc.Create(context.Background(), onlineOrder("50"))
	require.ErrorIs(t, err, ErrGenerationExhausted)
	require.Equal(t, KindExhausted, KindOf(err))
}

type duplicateOnInsertStore struct {
	*MemoryStore
	failures int
}

func (s *duplicateOnInsertStore) Insert(ctx context.Context, v Voucher) error {
	if s.failures > 0 {
		s.failures--
		return ErrDuplicateOrderNumber
	}
	return s.MemoryStore.Insert(ctx, v)
}

func TestCreateTreatsInsertDuplicateAsCollision(t *testing.T) {
	f := newFixture(t)
	f.svc.Store = &duplicateOnInsertStore{MemoryStore: f.store, failures: 2}

	v, err := f.svc.Create(context.Background(), onlineOrder("50"))
	require.NoError(t, err)
	_, err = f.store.Get(context.Background(), v.ID)
	require.NoError(t, err)
}

type unavailableStore struct {
	*MemoryStore
}

func (unavailableStore) Get(context.Context, uuid.UUID) (Voucher, error) {
	return Voucher{}, errors.Join(ErrStoreUnavailable, context.DeadlineExceeded)
}

func TestStoreUnavailablePropagates(t *testing.T) {
	f := newFixture(t)
	v := f.activeVoucher(t, "50")
	f.svc.Store = unavailableStore{f.store}

	_, _, err := f.svc.Redeem(context.Background(), v.ID, money("10"), "x")
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, KindUnavailable, KindOf(err))
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")

	v, err := f.svc.Create(context.Background(), adminSale("50"))
	require.NoError(t, err)
	v, _, err = f.svc.Redeem(context.Background(), v.ID, money("50"), "all")
	require.NoError(t, err)
	require.Equal(t, StateRedeemed, v.State)
	require.Len(t, f.events.Topics(), 2)
}

func TestRedeemedNotificationCarriesAmount(t *testing.T) {
	f := newFixture(t)
	v := f.activeVoucher(t, "50")
	_, _, err := f.svc.Redeem(context.Background(), v.ID, money("12.50"), "Massage")
	require.NoError(t, err)
	require.Equal(t, events.TopicVoucherRedeemed, f.events.last.EventType)
	require.Equal(t, "12.50", f.events.last.RedeemedAmount)
	require.Equal(t, "37.50", f.events.last.RemainingAmount)
}

func TestUpdateStatusTransitions(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(t *testing.T, f *fixture) Voucher
		target  StatusTarget
		want    State
		wantErr error
	}{
		{"pay via payment status", createdVoucher, StatusTarget{PaymentStatus: paymentPtr(PaymentPaid)}, StateActive, nil},
		{"pay via status", createdVoucher, StatusTarget{Status: statusPtr(StatusActive)}, StateActive, nil},
		{"cancel created", createdVoucher, StatusTarget{PaymentStatus: paymentPtr(PaymentCancelled)}, StateCancelled, nil},
		{"cancel active", activeVoucher, StatusTarget{Status: statusPtr(StatusCancelled)}, StateCancelled, nil},
		{"pay twice", activeVoucher, StatusTarget{PaymentStatus: paymentPtr(PaymentPaid)}, 0, ErrInvalidTransition},
		{"activate twice", activeVoucher, StatusTarget{Status: statusPtr(StatusActive)}, 0, ErrInvalidTransition},
		{"back to pending", activeVoucher, StatusTarget{PaymentStatus: paymentPtr(PaymentPending)}, 0, ErrInvalidTransition},
		{"force redeemed", activeVoucher, StatusTarget{Status: statusPtr(StatusRedeemed)}, 0, ErrInvalidTransition},
		{"cancel redeemed", redeemedVoucher, StatusTarget{Status: statusPtr(StatusCancelled)}, 0, ErrInvalidTransition},
		{"pay cancelled", cancelledVoucher, StatusTarget{PaymentStatus: paymentPtr(PaymentPaid)}, 0, ErrInvalidTransition},
		{"cancel cancelled", cancelledVoucher, StatusTarget{PaymentStatus: paymentPtr(PaymentCancelled)}, 0, ErrInvalidTransition},
		{"both axes", createdVoucher, StatusTarget{PaymentStatus: paymentPtr(PaymentPaid), Status: statusPtr(StatusActive)}, 0, ErrInvalidInput},
		{"no axis", createdVoucher, StatusTarget{}, 0, ErrInvalidInput},
		{"unknown value", createdVoucher, StatusTarget{Status: statusPtr("archived")}, 0, ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			v := tc.setup(t, f)
			got, err := f.svc.UpdateStatus(context.Background(), v.ID, tc.target)
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				stored, getErr := f.store.Get(context.Background(), v.ID)
				require.NoError(t, getErr)
				require.Equal(t, v.State, stored.State)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got.State)
		})
	}
}

func TestTransitionErrorCarriesState(t *testing.T) {
	f := newFixture(t)
	v := redeemedVoucher(t, f)
	_, err := f.svc.UpdateStatus(context.Background(), v.ID, StatusTarget{Status: statusPtr(StatusCancelled)})
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	require.Equal(t, StateRedeemed, te.Current)
	require.Equal(t, "status=cancelled", te.Target)
	require.Equal(t, KindConflict, KindOf(err))
}

func TestUpdateStatusOnDeletedVoucher(t *testing.T) {
	f := newFixture(t)
	v := createdVoucher(t, f)
	_, err := f.svc.SoftDelete(context.Background(), v.ID, "admin")
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(context.Background(), v.ID, StatusTarget{PaymentStatus: paymentPtr(PaymentPaid)})
	require.ErrorIs(t, err, ErrVoucherDeleted)
}

func TestUpdateStatusNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.UpdateStatus(context.Background(), uuid.New(), StatusTarget{Status: statusPtr(StatusActive)})
	require.ErrorIs(t, err, ErrVoucherNotFound)
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestRedeemPreconditionOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.svc.Redeem(ctx, uuid.New(), money("10"), "")
		require.ErrorIs(t, err, ErrVoucherNotFound)
	})
	t.Run("deleted wins over not active", func(t *testing.T) {
		f := newFixture(t)
		v := createdVoucher(t, f)
		_, err := f.svc.SoftDelete(ctx, v.ID, "admin")
		require.NoError(t, err)
		_, _, err = f.svc.Redeem(ctx, v.ID, money("10"), "")
		require.ErrorIs(t, err, ErrVoucherDeleted)
	})
	t.Run("pending voucher", func(t *testing.T) {
		f := newFixture(t)
		v := createdVoucher(t, f)
		_, _, err := f.svc.Redeem(ctx, v.ID, money("10"), "")
		require.ErrorIs(t, err, ErrVoucherNotActive)
	})
	t.Run("cancelled voucher", func(t *testing.T) {
		f := newFixture(t)
		v := cancelledVoucher(t, f)
		_, _, err := f.svc.Redeem(ctx, v.ID, money("10"), "")
		require.ErrorIs(t, err, ErrVoucherNotActive)
	})
	t.Run("expired wins over amount", func(t *testing.T) {
		f := newFixture(t)
		v := f.activeVoucher(t, "50")
		f.clock.Set(v.ExpiresAt)
		_, _, err := f.svc.Redeem(ctx, v.ID, money("-1"), "")
		require.ErrorIs(t, err, ErrVoucherExpired)
	})
	t.Run("invalid amount", func(t *testing.T) {
		f := newFixture(t)
		v := f.activeVoucher(t, "50")
		for _, amount := range []string{"0", "-5", "1.234"} {
			_, _, err := f.svc.Redeem(ctx, v.ID, money(amount), "")
			require.ErrorIs(t, err, ErrInvalidAmount, amount)
		}
	})
	t.Run("over redemption leaves state unchanged", func(t *testing.T) {
		f := newFixture(t)
		v := f.activeVoucher(t, "50")
		_, _, err := f.svc.Redeem(ctx, v.ID, money("50.01"), "")
		require.ErrorIs(t, err, ErrInsufficientBalance)
		stored, history, getErr := f.svc.Get(ctx, v.ID)
		require.NoError(t, getErr)
		require.Empty(t, history)
		require.True(t, stored.Remaining.Equal(money("50")))
		require.Equal(t, v.Version, stored.Version)
	})
}

func TestRedeemExpiry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.activeVoucher(t, "100")

	f.clock.Set(v.ExpiresAt.Add(-time.Second))
	_, _, err := f.svc.Redeem(ctx, v.ID, money("10"), "last day")
	require.NoError(t, err)

	f.clock.Set(v.ExpiresAt)
	_, _, err = f.svc.Redeem(ctx, v.ID, money("10"), "too late")
	require.ErrorIs(t, err, ErrVoucherExpired)
	require.Equal(t, KindConflict, KindOf(err))
}

func TestBalanceRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.activeVoucher(t, "100")
	for _, amount := range []string{"33.33", "33.33", "33.34"} {
		var err error
		v, _, err = f.svc.Redeem(ctx, v.ID, money(amount), "session")
		require.NoError(t, err)
	}
	require.True(t, v.Remaining.IsZero())
	require.Equal(t, StatusRedeemed, v.Status())
	require.True(t, v.IsUsed())
	f.requireLedger(t, v.ID)
}

func TestUpdateDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := createdVoucher(t, f)

	updated, err := f.svc.UpdateDetails(ctx, v.ID, DetailsPatch{
		SenderName:  strPtr(" Anna Meyer "),
		SenderPhone: strPtr("+49 30 1234"),
		Message:     strPtr("Alles Gute"),
	})
	require.NoError(t, err)
	require.Equal(t, "Anna Meyer", updated.SenderName)
	require.Equal(t, "+49 30 1234", *updated.SenderPhone)
	require.Equal(t, "Alles Gute", *updated.Message)
	require.True(t, updated.Amount.Equal(v.Amount))
	require.Equal(t, v.Code, updated.Code)

	cleared, err := f.svc.UpdateDetails(ctx, v.ID, DetailsPatch{Message: strPtr("")})
	require.NoError(t, err)
	require.Nil(t, cleared.Message)

	_, err = f.svc.UpdateDetails(ctx, v.ID, DetailsPatch{SenderEmail: strPtr("")})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.UpdateDetails(ctx, v.ID, DetailsPatch{})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdateDetailsPostDeliveryKeepsAddress(t *testing.T) {
	f := newFixture(t)
	in := onlineOrder("40")
	in.DeliveryMethod = DeliveryPost
	in.RecipientAddress = strPtr("Hauptstr. 1")
	in.RecipientPostalCode = strPtr("10115")
	in.RecipientCity = strPtr("Berlin")
	v, err := f.svc.Create(context.Background(), in)
	require.NoError(t, err)

	_, err = f.svc.UpdateDetails(context.Background(), v.ID, DetailsPatch{RecipientCity: strPtr("")})
	require.ErrorIs(t, err, ErrMissingRecipientAddress)

	moved, err := f.svc.UpdateDetails(context.Background(), v.ID, DetailsPatch{RecipientCity: strPtr("Potsdam")})
	require.NoError(t, err)
	require.Equal(t, "Potsdam", *moved.RecipientCity)
}

func TestUpdateDetailsRejectedWhenFinal(t *testing.T) {
	for name, setup := range map[string]func(*testing.T, *fixture) Voucher{
		"redeemed":  redeemedVoucher,
		"cancelled": cancelledVoucher,
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			v := setup(t, f)
			_, err := f.svc.UpdateDetails(context.Background(), v.ID, DetailsPatch{Message: strPtr("hi")})
			require.ErrorIs(t, err, ErrVoucherFinalized)
			require.Equal(t, KindConflict, KindOf(err))
		})
	}
}

func TestSoftDeleteRestoreRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.activeVoucher(t, "100")
	v, _, err := f.svc.Redeem(ctx, v.ID, money("25"), "partial")
	require.NoError(t, err)

	deleted, err := f.svc.SoftDelete(ctx, v.ID, "admin@studio")
	require.NoError(t, err)
	require.True(t, deleted.Deleted())
	require.Equal(t, "admin@studio", *deleted.DeletedBy)

	_, err = f.svc.SoftDelete(ctx, v.ID, "admin@studio")
	require.ErrorIs(t, err, ErrAlreadyDeleted)

	live, _, err := f.svc.List(ctx, ListFilter{StudioID: "berlin"})
	require.NoError(t, err)
	require.Empty(t, live)
	trashed, total, err := f.svc.List(ctx, ListFilter{StudioID: "berlin", Trashed: true})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, v.ID, trashed[0].ID)

	restored, err := f.svc.Restore(ctx, v.ID)
	require.NoError(t, err)
	require.False(t, restored.Deleted())
	require.Nil(t, restored.DeletedBy)
	require.Equal(t, v.State, restored.State)
	require.Equal(t, v.PaymentStatus(), restored.PaymentStatus())
	require.True(t, v.Remaining.Equal(restored.Remaining))

	_, err = f.svc.Restore(ctx, v.ID)
	require.ErrorIs(t, err, ErrNotInTrash)
	f.requireLedger(t, v.ID)
}

func TestSoftDeleteKeepsCodeReserved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.Codes = &sequenceGenerator{codes: []string{"SLX0007", "SLX0007", "SLX0008"}}

	first, err := f.svc.Create(ctx, adminSale("50"))
	require.NoError(t, err)
	_, err = f.svc.SoftDelete(ctx, first.ID, "admin")
	require.NoError(t, err)

	second, err := f.svc.Create(ctx, adminSale("50"))
	require.NoError(t, err)
	require.Equal(t, "SLX0008", second.Code)
}

func TestPermanentDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.activeVoucher(t, "100")
	_, _, err := f.svc.Redeem(ctx, v.ID, money("10"), "x")
	require.NoError(t, err)

	err = f.svc.PermanentDelete(ctx, v.ID)
	require.ErrorIs(t, err, ErrNotInTrash)

	_, err = f.svc.SoftDelete(ctx, v.ID, "admin")
	require.NoError(t, err)
	require.NoError(t, f.svc.PermanentDelete(ctx, v.ID))

	_, _, err = f.svc.Get(ctx, v.ID)
	require.ErrorIs(t, err, ErrVoucherNotFound)
	history, err := f.store.History(ctx, v.ID)
	require.NoError(t, err)
	require.Empty(t, history)

	err = f.svc.PermanentDelete(ctx, v.ID)
	require.ErrorIs(t, err, ErrVoucherNotFound)
}

func TestListIsScopedAndPaged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.clock.Set(f.clock.Now().Add(time.Minute))
		_, err := f.svc.Create(ctx, adminSale("50"))
		require.NoError(t, err)
	}
	other := adminSale("50")
	other.StudioID = "hamburg"
	_, err := f.svc.Create(ctx, other)
	require.NoError(t, err)

	page, total, err := f.svc.List(ctx, ListFilter{StudioID: "berlin", Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Equal(t, 5, total)
	require.Len(t, page, 2)
	require.True(t, page[0].CreatedAt.After(page[1].CreatedAt))

	_, _, err = f.svc.List(ctx, ListFilter{})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func createdVoucher(t *testing.T, f *fixture) Voucher {
	t.Helper()
	v, err := f.svc.Create(context.Background(), onlineOrder("100"))
	require.NoError(t, err)
	return v
}

func activeVoucher(t *testing.T, f *fixture) Voucher {
	t.Helper()
	return f.activeVoucher(t, "100")
}

func redeemedVoucher(t *testing.T, f *fixture) Voucher {
	t.Helper()
	v := f.activeVoucher(t, "100")
	v, _, err := f.svc.Redeem(context.Background(), v.ID, money("100"), "all")
	require.NoError(t, err)
	return v
}

func cancelledVoucher(t *testing.T, f *fixture) Voucher {
	t.Helper()
	v := createdVoucher(t, f)
	v, err := f.svc.UpdateStatus(context.Background(), v.ID, StatusTarget{Status: statusPtr(StatusCancelled)})
	require.NoError(t, err)
	return v
}
