package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/studio-vouchers/internal/app"
	"github.com/noah-isme/studio-vouchers/internal/config"
	"github.com/noah-isme/studio-vouchers/internal/lock"
	"github.com/noah-isme/studio-vouchers/internal/notify"
	"github.com/noah-isme/studio-vouchers/internal/obs"
	"github.com/noah-isme/studio-vouchers/internal/resilience"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("component", "worker").Logger()
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)
	resilience.MustRegisterMetrics(cfg.MetricsNamespace, nil)

	shutdownTracer, err := obs.InitTracer(context.Background(), obs.TracingConfig{
		ServiceName:   "studio-vouchers-worker",
		Endpoint:      cfg.TraceEndpoint,
		Exporter:      cfg.TraceExporter,
		SamplingRatio: cfg.TraceSampling,
		Environment:   cfg.AppEnv,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise tracing")
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error().Err(err).Msg("shutdown tracer")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.New(ctx, cfg, logger, "studio-vouchers-worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close()

	taskRedis, err := deps.TaskRedis()
	if err != nil {
		logger.Fatal().Err(err).Msg("parse task redis")
	}

	mailer := resilience.Mailer{
		Sender:      deps.Mailer(),
		Breaker:     resilience.NewBreaker(5, 0.5, time.Minute).WithTarget("smtp").WithLogger(logger),
		MaxAttempts: 2,
		BaseBackoff: 500 * time.Millisecond,
		Jitter:      0.2,
	}
	worker := notify.Worker{
		Deliverer: notify.EmailNotifier{Mail: mailer, Enabled: cfg.NotifyEmailEnabled},
		Locker:    lock.Locker{R: deps.Redis, Prefix: "lock:"},
		Marker:    deps.Events,
		LockTTL:   cfg.LockTTL,
		Logger:    &logger,
	}

	srv := asynq.NewServer(taskRedis, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues:      map[string]int{cfg.NotifyQueue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Warn().Err(err).Str("task", task.Type()).Msg("task failed")
		}),
	})
	mux := asynq.NewServeMux()
	mux.HandleFunc(notify.TaskVoucherNotify, worker.HandleTask)

	logger.Info().Str("queue", cfg.NotifyQueue).Int("concurrency", cfg.WorkerConcurrency).Msg("worker starting")
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start worker")
	}
	<-ctx.Done()
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}
