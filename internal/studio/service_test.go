package studio_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studio-vouchers/internal/cache"
	"github.com/noah-isme/studio-vouchers/internal/studio"
	"github.com/noah-isme/studio-vouchers/internal/voucher"
)

type memorySettings struct {
	rows  map[string]studio.Settings
	reads int
	err   error
}

func newMemorySettings() *memorySettings {
	return &memorySettings{rows: map[string]studio.Settings{}}
}

func (m *memorySettings) GetSettings(_ context.Context, id string) (studio.Settings, error) {
	m.reads++
	if m.err != nil {
		return studio.Settings{}, m.err
	}
	s, ok := m.rows[id]
	if !ok {
		return studio.Settings{}, studio.ErrSettingsNotFound
	}
	return s, nil
}

func (m *memorySettings) UpsertSettings(_ context.Context, s studio.Settings) (studio.Settings, error) {
	if m.err != nil {
		return studio.Settings{}, m.err
	}
	m.rows[s.StudioID] = s
	return s, nil
}

func newService(t *testing.T) (*studio.Service, *memorySettings, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := newMemorySettings()
	svc := &studio.Service{
		Store:    store,
		Cache:    cache.NewJSON(client, time.Minute),
		Defaults: voucher.DefaultPolicy(),
	}
	return svc, store, mr
}

func validInput() studio.SettingsInput {
	return studio.SettingsInput{
		ValidityMonths: 6,
		OnlineMin:      decimal.NewFromInt(30),
		OnlineMax:      decimal.NewFromInt(500),
		AdminMin:       decimal.NewFromInt(5),
		AdminMax:       decimal.NewFromInt(2000),
	}
}

func TestDefaultsWhenStudioHasNoRow(t *testing.T) {
	svc, _, _ := newService(t)
	policy, err := svc.StudioPolicy(context.Background(), "berlin")
	require.NoError(t, err)
	require.Equal(t, 12, policy.ValidityMonths)
	require.True(t, policy.OnlineMin.Equal(decimal.NewFromInt(25)))
	require.True(t, policy.AdminMax.Equal(decimal.NewFromInt(1000)))
}

func TestSettingsAreCached(t *testing.T) {
	svc, store, mr := newService(t)
	ctx := context.Background()
	_, err := svc.UpdateSettings(ctx, "berlin", validInput())
	require.NoError(t, err)

	first, err := svc.Settings(ctx, "berlin")
	require.NoError(t, err)
	second, err := svc.Settings(ctx, "berlin")
	require.NoError(t, err)
	require.Equal(t, 1, store.reads)
	require.Equal(t, first.ValidityMonths, second.ValidityMonths)
	require.True(t, second.OnlineMax.Equal(decimal.NewFromInt(500)))
	require.True(t, mr.Exists(cache.KeyStudioSettings("berlin")))
}

func TestUpdateInvalidatesCache(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Settings(ctx, "berlin")
	require.NoError(t, err)

	in := validInput()
	in.ValidityMonths = 24
	_, err = svc.UpdateSettings(ctx, "berlin", in)
	require.NoError(t, err)

	policy, err := svc.StudioPolicy(ctx, "berlin")
	require.NoError(t, err)
	require.Equal(t, 24, policy.ValidityMonths)
}

func TestCacheOutageFallsBackToStore(t *testing.T) {
	svc, store, mr := newService(t)
	ctx := context.Background()
	_, err := svc.UpdateSettings(ctx, "berlin", validInput())
	require.NoError(t, err)
	mr.Close()

	settings, err := svc.Settings(ctx, "berlin")
	require.NoError(t, err)
	require.Equal(t, 6, settings.ValidityMonths)
	require.Equal(t, 1, store.reads)
}

func TestUpdateSettingsValidation(t *testing.T) {
	cases := map[string]func(*studio.SettingsInput){
		"validity zero":        func(in *studio.SettingsInput) { in.ValidityMonths = 0 },
		"validity too long":    func(in *studio.SettingsInput) { in.ValidityMonths = 37 },
		"admin min above max":  func(in *studio.SettingsInput) { in.AdminMin = decimal.NewFromInt(3000) },
		"negative online min":  func(in *studio.SettingsInput) { in.OnlineMin = decimal.NewFromInt(-1) },
		"online max below min": func(in *studio.SettingsInput) { in.OnlineMax = decimal.NewFromInt(10) },
		"fractional cents":     func(in *studio.SettingsInput) { in.AdminMin = decimal.RequireFromString("5.001") },
		"negative online max":  func(in *studio.SettingsInput) { in.OnlineMax = decimal.NewFromInt(-5) },
		"zero admin max":       func(in *studio.SettingsInput) { in.AdminMax = decimal.Zero },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			svc, store, _ := newService(t)
			in := validInput()
			mutate(&in)
			_, err := svc.UpdateSettings(context.Background(), "berlin", in)
			require.ErrorIs(t, err, studio.ErrInvalidSettings)
			require.Empty(t, store.rows)
		})
	}
}

func TestUnboundedOnlineMaxAccepted(t *testing.T) {
	svc, _, _ := newService(t)
	in := validInput()
	in.OnlineMax = decimal.Zero
	_, err := svc.UpdateSettings(context.Background(), "berlin", in)
	require.NoError(t, err)
}

func TestStoreErrorsPropagate(t *testing.T) {
	svc, store, _ := newService(t)
	store.err = errors.Join(voucher.ErrStoreUnavailable, errors.New("connection refused"))
	_, err := svc.StudioPolicy(context.Background(), "berlin")
	require.ErrorIs(t, err, voucher.ErrStoreUnavailable)
}
