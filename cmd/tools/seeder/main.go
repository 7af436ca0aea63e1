package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/studio-vouchers/internal/app"
	"github.com/noah-isme/studio-vouchers/internal/config"
	"github.com/noah-isme/studio-vouchers/internal/obs"
	"github.com/noah-isme/studio-vouchers/internal/studio"
	"github.com/noah-isme/studio-vouchers/internal/voucher"
)

// seeder creates demo settings and vouchers in every lifecycle state for one studio.
func main() {
	studioID := flag.String("studio", "demo", "studio slug to seed")
	count := flag.Int("count", 3, "vouchers per state")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "seeder").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deps, err := app.New(ctx, cfg, logger, "studio-vouchers-seeder")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close()

	studioSvc := deps.StudioService()
	if _, err := studioSvc.UpdateSettings(ctx, *studioID, studio.SettingsInput{
		ValidityMonths: 24,
		OnlineMin:      decimal.NewFromInt(25),
		OnlineMax:      decimal.NewFromInt(500),
		AdminMin:       decimal.NewFromInt(10),
		AdminMax:       decimal.NewFromInt(1000),
	}); err != nil {
		logger.Fatal().Err(err).Msg("seed studio settings")
	}

	// No notifiers: seeded vouchers must not mail anyone.
	svc := deps.VoucherService(studioSvc)
	paid := voucher.PaymentPaid
	for i := 0; i < *count; i++ {
		email := fmt.Sprintf("buyer%d@example.com", i)
		recipient := fmt.Sprintf("Recipient %d", i)
		online := voucher.CreateInput{
			StudioID:       *studioID,
			Amount:         decimal.NewFromInt(int64(50 + 25*i)),
			SenderName:     fmt.Sprintf("Buyer %d", i),
			SenderEmail:    &email,
			RecipientName:  &recipient,
			DeliveryMethod: voucher.DeliveryEmail,
		}

		pending, err := svc.Create(ctx, online)
		mustSeed(err, "pending voucher")

		active, err := svc.Create(ctx, online)
		mustSeed(err, "active voucher")
		_, err = svc.UpdateStatus(ctx, active.ID, voucher.StatusTarget{PaymentStatus: &paid})
		mustSeed(err, "mark paid")
		_, _, err = svc.Redeem(ctx, active.ID, decimal.NewFromInt(20), "Seeded treatment")
		mustSeed(err, "partial redemption")

		sale, err := svc.Create(ctx, voucher.CreateInput{
			StudioID:       *studioID,
			Amount:         decimal.NewFromInt(40),
			SenderName:     "Walk-in",
			DeliveryMethod: voucher.DeliveryEmail,
			AdminCreated:   true,
		})
		mustSeed(err, "admin sale")
		_, _, err = svc.Redeem(ctx, sale.ID, sale.Amount, "Seeded full redemption")
		mustSeed(err, "full redemption")

		logger.Info().Str("pending", pending.Code).Str("active", active.Code).Str("redeemed", sale.Code).Msg("seeded vouchers")
	}
	logger.Info().Str("studio_id", *studioID).Msg("seeding completed")
}

func mustSeed(err error, what string) {
	if err != nil {
		panic(fmt.Errorf("seed %s: %w", what, err))
	}
}
