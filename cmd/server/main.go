package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"

	actiontokenrepo "volunteer-platform/backend/internal/actiontoken/repository"
	actiontokenservice "volunteer-platform/backend/internal/actiontoken/service"
	"volunteer-platform/backend/internal/audit"
	auditrepo "volunteer-platform/backend/internal/audit/repository"
	"volunteer-platform/backend/internal/clock"
	"volunteer-platform/backend/internal/config"
	"volunteer-platform/backend/internal/db"
	healthhandler "volunteer-platform/backend/internal/health/handler"
	identityhandler "volunteer-platform/backend/internal/identity/handler"
	identityservice "volunteer-platform/backend/internal/identity/service"
	membershiphandler "volunteer-platform/backend/internal/membership/handler"
	membershiprepo "volunteer-platform/backend/internal/membership/repository"
	"volunteer-platform/backend/internal/notify"
	notifyhandler "volunteer-platform/backend/internal/notify/handler"
	participationhandler "volunteer-platform/backend/internal/participation/handler"
	participationrepo "volunteer-platform/backend/internal/participation/repository"
	"volunteer-platform/backend/internal/platform/rbac"
	"volunteer-platform/backend/internal/policy/engine"
	policyhandler "volunteer-platform/backend/internal/policy/handler"
	resourcerepo "volunteer-platform/backend/internal/resource/repository"
	"volunteer-platform/backend/internal/security"
	"volunteer-platform/backend/internal/server"
	"volunteer-platform/backend/internal/server/interceptors"
	sessionrepo "volunteer-platform/backend/internal/session/repository"
	sessionservice "volunteer-platform/backend/internal/session/service"
	"volunteer-platform/backend/internal/telemetry"
	telemetryotel "volunteer-platform/backend/internal/telemetry/otel"
	userhandler "volunteer-platform/backend/internal/user/handler"
	userrepo "volunteer-platform/backend/internal/user/repository"
)

const serviceName = "volunteer-platform"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env or set DATABASE_URL")
	}
	ctx := context.Background()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	clk := clock.Real()
	hasher := security.NewHasher(cfg.BcryptCost)
	users := userrepo.NewPostgresRepository(conn)
	securityEvents := telemetry.NewSecurityEmitter(telemetryotel.NewEventEmitter(providers.LoggerProvider))

	tokens := actiontokenservice.NewStore(
		actiontokenrepo.NewPostgresRepository(conn),
		actiontokenservice.Config{ActivationTTL: cfg.ActivationTTL(), PasswordChangeTTL: cfg.PasswordResetTTL()},
		clk, nil,
	)
	tokens.SetEventSink(securityEvents)

	checker := healthhandler.NewChecker(conn, nil)
	sessionRepo, closeSessions, err := newSessionRepository(cfg, conn, checker)
	if err != nil {
		log.Fatalf("sessions: %v", err)
	}
	defer closeSessions()
	sessions := sessionservice.NewStore(sessionRepo, users, hasher, sessionservice.Config{
		TTL:            cfg.SessionTTL(),
		RenewOnSuccess: cfg.SessionRenewOnSuccess,
	}, clk, nil)
	sessions.SetEventSink(securityEvents)

	auditRepo := auditrepo.NewPostgresRepository(conn)
	auditLogger := audit.NewLogger(auditRepo, interceptors.ClientIPFromContext)

	managers := membershiprepo.NewPostgresRepository(conn)
	resources := resourcerepo.NewPostgresRepository(conn)
	resolver := rbac.NewResolver(managers)
	evaluator, err := newEvaluator(ctx, cfg)
	if err != nil {
		log.Fatalf("authz: %v", err)
	}
	if hc, ok := evaluator.(healthhandler.PolicyChecker); ok {
		checker.WithCheck("policy", hc.HealthCheck)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := interceptors.NewMetrics(reg)
	decider := interceptors.MeteredDecider{
		Decider: engine.New(resolver, evaluator, engine.Observers{auditLogger, securityEvents}),
		Metrics: metrics,
	}
	// Permission queries report decisions without auditing them as denials.
	queries := engine.New(resolver, evaluator, nil)

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.NotifyWebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.NotifyWebhookURL, cfg.NotifyWebhookAPIKey).WithSigningKey(cfg.NotifyWebhookSigningKey)
	}
	var outboxHandler http.Handler
	if cfg.DevOutbox {
		outbox := notify.NewOutbox(notifier, cfg.ActivationTTL(), clk)
		notifier = outbox
		outboxHandler = notifyhandler.NewHandler(outbox)
		log.Println("dev outbox enabled: GET /dev/outbox?email=")
	}

	accounts := identityservice.NewService(users, tokens, sessions, hasher, notifier, auditLogger, auditRepo, identityservice.Config{
		AutoActivate:     cfg.AutoActivateUsers,
		ActivationURL:    cfg.ActivationURL,
		PasswordResetURL: cfg.PasswordResetURL,
	}, clk)

	handlers := server.Handlers{
		Identity:       identityhandler.NewHandler(accounts),
		Users:          userhandler.NewHandler(users, accounts, decider),
		Managers:       membershiphandler.NewHandler(managers, resources, users, decider, clk),
		Participations: participationhandler.NewHandler(participationrepo.NewPostgresRepository(conn), resources, decider, clk),
		Permissions:    policyhandler.NewHandler(resources, queries),
	}
	httpSrv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewRouter(handlers.Routes(), server.Options{
			Sessions: sessions,
			Tracer:   providers.Tracer(serviceName),
			Metrics:  metrics,
			Gatherer: reg,
			Audit:    auditLogger,
			Limiter:  interceptors.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
			Health:   checker,
			Outbox:   outboxHandler,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	var grpcSrv *grpc.Server
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			log.Fatalf("listen: %v", err)
		}
		grpcSrv = server.NewGRPCServer(checker)
		go func() {
			log.Printf("gRPC health server listening on %s", cfg.GRPCAddr)
			if err := grpcSrv.Serve(lis); err != nil {
				log.Fatalf("grpc serve: %v", err)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	drainCtx, cancelDrain := context.WithTimeout(context.Background(), telemetry.ShutdownDrainDuration)
	if err := telemetry.Drain(drainCtx); err != nil {
		log.Printf("telemetry drain: %v", err)
	}
	cancelDrain()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("server stopped")
}

// newSessionRepository returns the configured session backend and a close func. The Redis
// backend also adds a redis check to checker.
func newSessionRepository(cfg *config.Config, conn *sql.DB, checker *healthhandler.Checker) (sessionservice.Repository, func(), error) {
	if cfg.SessionBackend != "redis" {
		return sessionrepo.NewPostgresRepository(conn), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	checker.WithCheck("redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
	return sessionrepo.NewRedisRepository(rdb), func() { _ = rdb.Close() }, nil
}

func newEvaluator(ctx context.Context, cfg *config.Config) (engine.Evaluator, error) {
	if cfg.AuthzEvaluator != "opa" {
		return engine.NewTableEvaluator(engine.DefaultRules()), nil
	}
	if cfg.AuthzPolicyFile != "" {
		return engine.NewOPAEvaluatorFromFile(ctx, cfg.AuthzPolicyFile)
	}
	module, err := engine.DefaultRegoModule(engine.DefaultRules())
	if err != nil {
		return nil, err
	}
	return engine.NewOPAEvaluator(ctx, module)
}
