package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"

	"github.com/noah-isme/studio-vouchers/internal/app"
	"github.com/noah-isme/studio-vouchers/internal/audit"
	"github.com/noah-isme/studio-vouchers/internal/auth"
	"github.com/noah-isme/studio-vouchers/internal/common"
	"github.com/noah-isme/studio-vouchers/internal/config"
	"github.com/noah-isme/studio-vouchers/internal/events"
	"github.com/noah-isme/studio-vouchers/internal/health"
	httpmw "github.com/noah-isme/studio-vouchers/internal/http/middleware"
	"github.com/noah-isme/studio-vouchers/internal/notify"
	"github.com/noah-isme/studio-vouchers/internal/obs"
	"github.com/noah-isme/studio-vouchers/internal/ratelimit"
	"github.com/noah-isme/studio-vouchers/internal/security"
	"github.com/noah-isme/studio-vouchers/internal/studio"
	"github.com/noah-isme/studio-vouchers/internal/tenant"
	"github.com/noah-isme/studio-vouchers/internal/voucher"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()
	obs.MustRegisterDomainMetrics(cfg.MetricsNamespace, nil)

	shutdownTracer, err := obs.InitTracer(context.Background(), obs.TracingConfig{
		ServiceName:   "studio-vouchers-api",
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.New(ctx, cfg, logger, "studio-vouchers-api")
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise dependencies")
	}
	defer deps.Close()
	if err := redisotel.InstrumentMetrics(deps.Redis); err != nil {
		logger.Error().Err(err).Msg("instrument redis metrics")
	}

	taskRedis, err := deps.TaskRedis()
	if err != nil {
		logger.Fatal().Err(err).Msg("parse task redis")
	}
	taskClient := asynq.NewClient(taskRedis)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()
	dispatcher := notify.Dispatcher{
		Client:   taskClient,
		Queue:    cfg.NotifyQueue,
		MaxRetry: cfg.NotifyMaxRetry,
		Timeout:  30 * time.Second,
		Topics:   topicSet(events.DefaultTopics()),
	}

	studioSvc := deps.StudioService()
	voucherSvc := deps.VoucherService(studioSvc, dispatcher)
	voucherHandler := &voucher.Handler{Svc: voucherSvc, Logger: &logger}
	studioHandler := &studio.Handler{Svc: studioSvc}
	auditHandler := audit.Handler{Store: deps.Audits}

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, 30*time.Second)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise token verifier")
	}
	authMiddleware := auth.Middleware{Verifier: verifier}

	auditRecorder := audit.HTTPRecorder{
		Service: &audit.Service{Store: deps.Audits, Enabled: cfg.AuditEnabled, SamplingRate: cfg.AuditSamplingRate},
		OnError: func(err error) { logger.Warn().Err(err).Msg("record audit entry") },
	}
	audited := func(action, param string) func(http.Handler) http.Handler {
		record := auditRecorder.Middleware(audit.HTTPConfig{Action: action, ResourceIDParam: param})
		return func(next http.Handler) http.Handler {
			return obs.RoutePatternMiddleware(record(next))
		}
	}

	limiterBackend, err := rateLimitBackend(cfg, deps)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise rate limiter")
	}
	orderLimit := ratelimit.Handler{
		Backend: limiterBackend,
		Config:  ratelimit.Config{Key: ratelimit.StudioIPKey("order"), Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
		OnError: func(err error) { logger.Warn().Err(err).Msg("rate limit backend") },
	}
	idem := common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL, Scope: func(r *http.Request) string {
		id, _ := tenant.StudioID(r.Context())
		return id
	}}
	resolver := tenant.NewResolver(cfg.TenantHeader, cfg.TenantRootDomain, cfg.TenantDefault)

	httpMetrics := obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBuckets), nil)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(obs.TracingMiddleware)
	r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.IsProduction()}.Middleware)
	r.Use(security.BodyLimit{Max: 64 << 10}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", resolverHeader(resolver)},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())
	if cfg.PprofUser != "" {
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), cfg.PprofUser, cfg.PprofPassword))
	}

	healthHandler := health.Handler{Probes: []health.Probe{
		health.PingProbe("db", deps.DB, 500*time.Millisecond),
		health.PingProbe("redis", app.RedisPinger{Client: deps.Redis}, 300*time.Millisecond),
	}}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(resolver.Middleware)
		v.Use(httpmw.RequireStudio)

		v.With(orderLimit.Middleware, idem.Middleware).Post("/vouchers", voucherHandler.Order)

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(authMiddleware.RequireAdmin)
			admin.Use(security.Headers{Enable: true, NoStore: true}.Middleware)

			admin.Route("/vouchers", func(vr chi.Router) {
				vr.Get("/", voucherHandler.List)
				vr.With(idem.Middleware, audited(audit.ActionVoucherCreate, "")).Post("/", voucherHandler.Sell)
				vr.Get("/{id}", voucherHandler.Get)
				vr.With(audited(audit.ActionVoucherUpdate, "id")).Patch("/{id}", voucherHandler.Update)
				vr.With(audited(audit.ActionVoucherStatus, "id")).Patch("/{id}/status", voucherHandler.UpdateStatus)
				vr.With(idem.Middleware, audited(audit.ActionVoucherRedeem, "id")).Post("/{id}/redemptions", voucherHandler.Redeem)
				vr.With(audited(audit.ActionVoucherDelete, "id")).Delete("/{id}", voucherHandler.Delete)
				vr.With(audited(audit.ActionVoucherRestore, "id")).Post("/{id}/restore", voucherHandler.Restore)
			})

			admin.Get("/studio/settings", studioHandler.Get)
			admin.With(audited(audit.ActionStudioSettings, "")).Put("/studio/settings", studioHandler.Put)
			admin.Get("/audit-logs", auditHandler.List)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-ctx.Done()
	health.SetReady(false)
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func rateLimitBackend(cfg *config.Config, deps *app.Dependencies) (ratelimit.Backend, error) {
	switch cfg.RateLimitBackend {
	case "ulule":
		return ratelimit.NewRedisStoreLimiter(deps.Redis, "ratelimit")
	default:
		return ratelimit.SlidingWindow{Client: deps.Redis, Prefix: "ratelimit"}, nil
	}
}

func topicSet(topics []string) map[string]bool {
	set := make(map[string]bool, len(topics))
	for _, t := range topics {
		set[t] = true
	}
	return set
}

func resolverHeader(r *tenant.Resolver) string {
	if r == nil || r.HeaderName == "" {
		return tenant.DefaultHeader
	}
	return r.HeaderName
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func newPprofMux() http.Handler {
	mux := chi.NewRouter()
	mux.Get("/", pprof.Index)
	mux.Get("/cmdline", pprof.Cmdline)
	mux.Get("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.Get("/trace", pprof.Trace)
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.Handle("/"+name, pprof.Handler(name))
	}
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

