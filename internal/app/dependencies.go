package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/studio-vouchers/internal/cache"
	"github.com/noah-isme/studio-vouchers/internal/common"
	"github.com/noah-isme/studio-vouchers/internal/config"
	"github.com/noah-isme/studio-vouchers/internal/events"
	"github.com/noah-isme/studio-vouchers/internal/obs"
	"github.com/noah-isme/studio-vouchers/internal/repo"
	"github.com/noah-isme/studio-vouchers/internal/studio"
	"github.com/noah-isme/studio-vouchers/internal/voucher"
)

// Dependencies holds the shared connections and stores of one process.
type Dependencies struct {
	Config *config.Config
	Logger zerolog.Logger
	DB     *pgxpool.Pool
	Redis  *redis.Client

	Vouchers *repo.VoucherStore
	Settings *repo.StudioSettingsStore
	Events   *repo.EventStore
	Audits   *repo.AuditStore
}

// New connects Postgres and Redis and pings both.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, appName string) (*Dependencies, error) {
	pool, err := NewPool(ctx, cfg, appName)
	if err != nil {
		return nil, err
	}
	rdb, err := NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Dependencies{
		Config:   cfg,
		Logger:   logger,
		DB:       pool,
		Redis:    rdb,
		Vouchers: repo.NewVoucherStore(pool),
		Settings: repo.NewStudioSettingsStore(pool),
		Events:   repo.NewEventStore(pool),
		Audits:   repo.NewAuditStore(pool),
	}, nil
}

// NewPool opens a traced pgx pool.
func NewPool(ctx context.Context, cfg *config.Config, appName string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = appName
	if cfg.DBMaxConns > 0 {
		poolConfig.MaxConns = cfg.DBMaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewRedis opens an instrumented Redis client.
func NewRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("instrument redis tracing: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// TaskRedis returns the asynq connection options for the configured Redis.
func (d *Dependencies) TaskRedis() (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(d.Config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse task redis url: %w", err)
	}
	return opt, nil
}

// Mailer returns the SMTP sender, or a no-op sender when SMTP is not configured.
func (d *Dependencies) Mailer() common.EmailSender {
	cfg := d.Config
	if cfg.SMTPHost == "" || cfg.NotifyEmailFrom == "" {
		return common.NopEmailSender{}
	}
	return common.SMTPSender{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.NotifyEmailFrom,
	}
}

// DefaultPolicy is the studio policy applied when a studio has no settings row.
func (d *Dependencies) DefaultPolicy() voucher.StudioPolicy {
	v := d.Config.Voucher
	return voucher.StudioPolicy{
		ValidityMonths: voucher.ClampValidityMonths(v.ValidityMonths),
		OnlineMin:      v.OnlineMin,
		OnlineMax:      v.OnlineMax,
		AdminMin:       v.AdminMin,
		AdminMax:       v.AdminMax,
	}
}

// StudioService builds the cached settings service.
func (d *Dependencies) StudioService() *studio.Service {
	logger := d.Logger.With().Str("component", "studio").Logger()
	return &studio.Service{
		Store:    d.Settings,
		Cache:    cache.NewJSON(d.Redis, d.Config.StudioSettingsCacheTTL),
		Defaults: d.DefaultPolicy(),
		Logger:   &logger,
	}
}

// VoucherService builds the voucher service. Events are persisted to the
// outbox table and handed to notifiers.
func (d *Dependencies) VoucherService(policies voucher.PolicySource, notifiers ...events.Notifier) *voucher.Service {
	logger := d.Logger.With().Str("component", "voucher").Logger()
	v := d.Config.Voucher
	return &voucher.Service{
		Store:               d.Vouchers,
		Codes:               voucher.NewGenerator(v.AdminCodePrefix, v.OnlineCodePrefix),
		Policies:            policies,
		Events:              &events.Bus{Store: d.Events, Notifiers: notifiers},
		Logger:              &logger,
		MaxCodeAttempts:     v.CodeAttempts,
		MaxMutationAttempts: v.MutationAttempts,
	}
}

// RedisPinger adapts a Redis client to health.Pinger.
type RedisPinger struct {
	Client *redis.Client
}

// Ping implements health.Pinger.
func (p RedisPinger) Ping(ctx context.Context) error {
	if p.Client == nil {
		return errors.New("redis not configured")
	}
	return p.Client.Ping(ctx).Err()
}

// Close releases the connections.
func (d *Dependencies) Close() {
	if d == nil {
		return
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
	}
	if d.DB != nil {
		d.DB.Close()
	}
}
