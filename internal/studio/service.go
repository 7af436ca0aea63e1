package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/studio-vouchers/internal/cache"
	"github.com/noah-isme/studio-vouchers/internal/voucher"
)

var (
	// ErrSettingsNotFound is returned by stores when a studio has no settings row.
	ErrSettingsNotFound = errors.New("studio: settings not found")
	// ErrInvalidSettings indicates rejected settings input.
	ErrInvalidSettings = errors.New("studio: invalid settings")
)

// Settings is the per-studio voucher configuration.
type Settings struct {
	StudioID       string          `json:"studioId"`
	ValidityMonths int             `json:"validityMonths"`
	OnlineMin      decimal.Decimal `json:"onlineMin"`
	OnlineMax      decimal.Decimal `json:"onlineMax"`
	AdminMin       decimal.Decimal `json:"adminMin"`
	AdminMax       decimal.Decimal `json:"adminMax"`
	UpdatedAt      time.Time       `json:"updatedAt"`
	// Default is true when no row exists and configuration defaults apply.
	Default bool `json:"default"`
}

// Policy converts settings into the rules applied at voucher creation.
func (s Settings) Policy() voucher.StudioPolicy {
	return voucher.StudioPolicy{
		ValidityMonths: s.ValidityMonths,
		OnlineMin:      s.OnlineMin,
		OnlineMax:      s.OnlineMax,
		AdminMin:       s.AdminMin,
		AdminMax:       s.AdminMax,
	}
}

// Store persists studio settings.
type Store interface {
	GetSettings(ctx context.Context, studioID string) (Settings, error)
	UpsertSettings(ctx context.Context, s Settings) (Settings, error)
}

// Cache is the subset of cache.JSON used for settings.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	SetJSON(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
}

// Service resolves and updates studio settings. It implements voucher.PolicySource.
type Service struct {
	Store    Store
	Cache    Cache
	Defaults voucher.StudioPolicy
	Logger   *zerolog.Logger
	Now      func() time.Time
}

var nopLogger = zerolog.Nop()

// Settings returns the stored settings, or the defaults when the studio has none.
func (s *Service) Settings(ctx context.Context, studioID string) (Settings, error) {
	studioID = strings.TrimSpace(studioID)
	if studioID == "" {
		return Settings{}, fmt.Errorf("%w: studio id is required", ErrInvalidSettings)
	}
	key := cache.KeyStudioSettings(studioID)
	if s.Cache != nil {
		var cached Settings
		hit, err := s.Cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.log().Warn().Err(err).Str("studio_id", studioID).Msg("studio settings cache read failed")
		} else if hit {
			return cached, nil
		}
	}

	settings, err := s.load(ctx, studioID)
	if err != nil {
		return Settings{}, err
	}
	if s.Cache != nil {
		if err := s.Cache.SetJSON(ctx, key, settings); err != nil {
			s.log().Warn().Err(err).Str("studio_id", studioID).Msg("studio settings cache write failed")
		}
	}
	return settings, nil
}

func (s *Service) load(ctx context.Context, studioID string) (Settings, error) {
	if s.Store == nil {
		return s.defaults(studioID), nil
	}
	settings, err := s.Store.GetSettings(ctx, studioID)
	if errors.Is(err, ErrSettingsNotFound) {
		return s.defaults(studioID), nil
	}
	return settings, err
}

func (s *Service) defaults(studioID string) Settings {
	d := s.Defaults
	if d.ValidityMonths == 0 && d.AdminMax.IsZero() {
		d = voucher.DefaultPolicy()
	}
	return Settings{
		StudioID:       studioID,
		ValidityMonths: voucher.ClampValidityMonths(d.ValidityMonths),
		OnlineMin:      d.OnlineMin,
		OnlineMax:      d.OnlineMax,
		AdminMin:       d.AdminMin,
		AdminMax:       d.AdminMax,
		Default:        true,
	}
}

// StudioPolicy implements voucher.PolicySource.
func (s *Service) StudioPolicy(ctx context.Context, studioID string) (voucher.StudioPolicy, error) {
	settings, err := s.Settings(ctx, studioID)
	if err != nil {
		return voucher.StudioPolicy{}, err
	}
	return settings.Policy(), nil
}

// SettingsInput is the admin-editable part of Settings.
type SettingsInput struct {
	ValidityMonths int
	OnlineMin      decimal.Decimal
	OnlineMax      decimal.Decimal
	AdminMin       decimal.Decimal
	AdminMax       decimal.Decimal
}

// Validate enforces the supported validity range and consistent amount bounds.
func (in SettingsInput) Validate() error {
	if in.ValidityMonths < voucher.MinValidityMonths || in.ValidityMonths > voucher.MaxValidityMonths {
		return fmt.Errorf("%w: validity months must be between %d and %d", ErrInvalidSettings, voucher.MinValidityMonths, voucher.MaxValidityMonths)
	}
	for name, v := range map[string]decimal.Decimal{"onlineMin": in.OnlineMin, "adminMin": in.AdminMin, "adminMax": in.AdminMax} {
		if !v.IsPositive() || !v.Equal(v.Round(2)) {
			return fmt.Errorf("%w: %s must be a positive amount with at most two decimals", ErrInvalidSettings, name)
		}
	}
	if in.OnlineMax.IsNegative() || !in.OnlineMax.Equal(in.OnlineMax.Round(2)) {
		return fmt.Errorf("%w: onlineMax must be zero or a positive amount", ErrInvalidSettings)
	}
	if in.OnlineMax.IsPositive() && in.OnlineMax.LessThan(in.OnlineMin) {
		return fmt.Errorf("%w: onlineMax must not be below onlineMin", ErrInvalidSettings)
	}
	if in.AdminMin.GreaterThan(in.AdminMax) {
		return fmt.Errorf("%w: adminMin must not exceed adminMax", ErrInvalidSettings)
	}
	return nil
}

// UpdateSettings validates and stores settings, then drops the cached copy.
func (s *Service) UpdateSettings(ctx context.Context, studioID string, in SettingsInput) (Settings, error) {
	studioID = strings.TrimSpace(studioID)
	if studioID == "" {
		return Settings{}, fmt.Errorf("%w: studio id is required", ErrInvalidSettings)
	}
	if err := in.Validate(); err != nil {
		return Settings{}, err
	}
	if s.Store == nil {
		return Settings{}, errors.New("studio settings store not configured")
	}
	saved, err := s.Store.UpsertSettings(ctx, Settings{
		StudioID:       studioID,
		ValidityMonths: in.ValidityMonths,
		OnlineMin:      in.OnlineMin,
		OnlineMax:      in.OnlineMax,
		AdminMin:       in.AdminMin,
		AdminMax:       in.AdminMax,
		UpdatedAt:      s.now(),
	})
	if err != nil {
		return Settings{}, err
	}
	if s.Cache != nil {
		if err := s.Cache.Delete(ctx, cache.KeyStudioSettings(studioID)); err != nil {
			s.log().Warn().Err(err).Str("studio_id", studioID).Msg("studio settings cache invalidation failed")
		}
	}
	s.log().Info().Str("studio_id", studioID).Int("validity_months", saved.ValidityMonths).Msg("studio settings updated")
	return saved, nil
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
