// Command server runs the approval workflow service. main wires high-level
// dependencies and keeps the server lifecycle small; business logic lives in
// the internal feature packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	accounthandler "saccoflow/internal/account/handler"
	accountservice "saccoflow/internal/account/service"
	accountstore "saccoflow/internal/account/store"
	httpapi "saccoflow/internal/http"
	ledgerstore "saccoflow/internal/ledger/store"
	meetinghandler "saccoflow/internal/meeting/handler"
	meetingservice "saccoflow/internal/meeting/service"
	meetingstore "saccoflow/internal/meeting/store"
	memberhandler "saccoflow/internal/member/handler"
	memberservice "saccoflow/internal/member/service"
	memberstore "saccoflow/internal/member/store"
	"saccoflow/internal/platform/config"
	"saccoflow/internal/platform/httpserver"
	"saccoflow/internal/platform/jwttoken"
	"saccoflow/internal/platform/logger"
	"saccoflow/internal/platform/metrics"
	"saccoflow/internal/platform/middleware"
	"saccoflow/internal/platform/postgres"
	"saccoflow/internal/platform/redis"
	postinghandler "saccoflow/internal/posting/handler"
	postingservice "saccoflow/internal/posting/service"
	postingstore "saccoflow/internal/posting/store"
	"saccoflow/pkg/platform/audit"
	auditkafka "saccoflow/pkg/platform/audit/kafka"
	"saccoflow/pkg/platform/audit/publisher"
	auditmemory "saccoflow/pkg/platform/audit/store/memory"
	"saccoflow/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.LogLevel)

	// Persistence. An empty Postgres URL selects the in-memory stores,
	// which is enough for local development and demos.
	var (
		db       *sql.DB
		runner   tx.Runner
		postings postingstore.Store
		members  memberstore.Store
		meetings meetingstore.Store
		accounts accountstore.Store
		ledger   ledgerstore.Store
	)
	if cfg.Postgres.URL != "" {
		var err error
		db, err = postgres.Open(cfg.Postgres)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.Migrate(db, log); err != nil {
			log.Error("run migrations", "error", err)
			os.Exit(1)
		}
		runner = tx.NewSQLRunner(db)
		postings = postingstore.NewPostgres(db)
		members = memberstore.NewPostgres(db)
		meetings = meetingstore.NewPostgres(db)
		accounts = accountstore.NewPostgres(db)
		ledger = ledgerstore.NewPostgres(db)
	} else {
		log.Warn("no postgres url configured, using in-memory stores")
		runner = tx.NewMemoryRunner()
		postings = postingstore.NewMemoryStore()
		members = memberstore.NewMemoryStore()
		meetings = meetingstore.NewMemoryStore()
		accounts = accountstore.NewMemoryStore()
		ledger = ledgerstore.NewMemoryStore()
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}
	cache := redis.NewCache(redisClient, log, cfg.Redis.DetailTTL)
	limiter := redis.NewLimiter(redisClient, log, cfg.Redis.RateLimitPerMinute, time.Minute)

	// Audit trail. Kafka when brokers are configured, in-memory otherwise.
	var sink audit.Sink
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := auditkafka.NewSink(cfg.Kafka.Brokers)
		if err != nil {
			log.Error("connect kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
	} else {
		log.Warn("no kafka brokers configured, audit events stay in memory")
		sink = auditmemory.NewStore()
	}
	auditor := publisher.NewPublisher(sink,
		publisher.WithAsyncBuffer(cfg.Audit.BufferSize),
		publisher.WithLogger(log),
	)
	defer auditor.Close()

	m := metrics.New()
	jwtValidator := jwttoken.NewAdapter(jwttoken.NewJWTService(cfg.Server.JWTSigningKey))

	accountSvc := accountservice.New(accounts, log)
	postingSvc := postingservice.New(postings, ledger, accountSvc, runner, auditor, m, cache, log, cfg.Loan)
	memberSvc := memberservice.New(members, accounts, accountSvc, runner, auditor, m, cache, log)
	meetingSvc := meetingservice.New(meetings, ledger, accountSvc, runner, auditor, m, cache, log)

	checks := map[string]httpapi.HealthChecker{}
	if db != nil {
		checks["postgres"] = db.PingContext
	}
	if redisClient != nil {
		checks["redis"] = redisClient.Health
	}

	global := []func(http.Handler) http.Handler{
		middleware.RateLimit(limiter),
	}
	router := httpapi.NewRouter(checks, global,
		postinghandler.New(postingSvc, log, m, jwtValidator, cfg.Server.RequestTimeout),
		memberhandler.New(memberSvc, log, m, jwtValidator, cfg.Server.RequestTimeout),
		meetinghandler.New(meetingSvc, log, m, jwtValidator, cfg.Server.RequestTimeout),
		accounthandler.New(accountSvc, log, m, jwtValidator, cfg.Server.RequestTimeout),
	)
	srv := httpserver.New(cfg.Server.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
