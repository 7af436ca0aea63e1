package voucher

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConcurrentRedemptionsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	f.svc.MaxMutationAttempts = 50
	ctx := context.Background()
	v := f.activeVoucher(t, "100")

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		failures  []error
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, _, err := f.svc.Redeem(ctx, v.ID, money("30"), "session")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
				return
			}
			failures = append(failures, err)
		}()
	}
	close(start)
	wg.Wait()

	require.Equal(t, 3, successes)
	require.Len(t, failures, workers-3)
	for _, err := range failures {
		require.True(t, errors.Is(err, ErrInsufficientBalance) || errors.Is(err, ErrConcurrentModification), err)
	}
	stored, err := f.store.Get(ctx, v.ID)
	require.NoError(t, err)
	require.True(t, stored.Remaining.Equal(money("10")))
	f.requireLedger(t, v.ID)
}

// racingStore lets a competing write land between the service's read and its save.
type racingStore struct {
	*MemoryStore
	once    sync.Once
	compete func()
}

func (s *racingStore) Save(ctx context.Context, m Mutation) (Voucher, error) {
	s.once.Do(s.compete)
	return s.MemoryStore.Save(ctx, m)
}

func TestLosingRedemptionRetriesAgainstFreshBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.activeVoucher(t, "100")

	rival := &Service{Store: f.store, Codes: f.svc.Codes, Now: f.clock.Now}
	f.svc.Store = &racingStore{MemoryStore: f.store, compete: func() {
		_, _, err := rival.Redeem(ctx, v.ID, money("60"), "rival")
		require.NoError(t, err)
	}}

	_, _, err := f.svc.Redeem(ctx, v.ID, money("50"), "loser")
	var balance *InsufficientBalanceError
	require.True(t, errors.As(err, &balance), err)
	require.True(t, balance.Remaining.Equal(money("40")))

	stored, history, err := rival.Get(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.True(t, stored.Remaining.Equal(money("40")))
}

func TestLosingRedemptionSucceedsWhenBalanceStillFits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.activeVoucher(t, "100")

	rival := &Service{Store: f.store, Codes: f.svc.Codes, Now: f.clock.Now}
	f.svc.Store = &racingStore{MemoryStore: f.store, compete: func() {
		_, _, err := rival.Redeem(ctx, v.ID, money("30"), "rival")
		require.NoError(t, err)
	}}

	got, r, err := f.svc.Redeem(ctx, v.ID, money("50"), "retried")
	require.NoError(t, err)
	require.True(t, got.Remaining.Equal(money("20")))
	require.True(t, r.RemainingAfter.Equal(money("20")))
	f.requireLedger(t, v.ID)
}

func TestConcurrentCancelTurnsPayIntoInvalidTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := createdVoucher(t, f)

	rival := &Service{Store: f.store, Codes: f.svc.Codes, Now: f.clock.Now}
	f.svc.Store = &racingStore{MemoryStore: f.store, compete: func() {
		_, err := rival.UpdateStatus(ctx, v.ID, StatusTarget{Status: statusPtr(StatusCancelled)})
		require.NoError(t, err)
	}}

	_, err := f.svc.UpdateStatus(ctx, v.ID, StatusTarget{PaymentStatus: paymentPtr(PaymentPaid)})
	var te *TransitionError
	require.True(t, errors.As(err, &te), err)
	require.Equal(t, StateCancelled, te.Current)
}

type conflictingStore struct {
	*MemoryStore
	saves int
}

func (s *conflictingStore) Save(context.Context, Mutation) (Voucher, error) {
	s.saves++
	return Voucher{}, ErrVersionConflict
}

func TestConflictRetriesAreBounded(t *testing.T) {
	f := newFixture(t)
	v := f.activeVoucher(t, "100")
	store := &conflictingStore{MemoryStore: f.store}
	f.svc.Store = store

	_, _, err := f.svc.Redeem(context.Background(), v.ID, money("10"), "x")
	require.ErrorIs(t, err, ErrConcurrentModification)
	require.Equal(t, KindConflict, KindOf(err))
	require.Equal(t, defaultMutationAttempts, store.saves)
}
