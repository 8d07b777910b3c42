package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"arcop/internal/audit"
	"arcop/internal/jwttoken"
	"arcop/internal/notifier"
	"arcop/internal/platform/config"
	"arcop/internal/platform/httpserver"
	"arcop/internal/platform/logger"
	"arcop/internal/platform/metrics"
	"arcop/internal/platform/redis"
	"arcop/internal/ratelimit"
	"arcop/internal/request"
	"arcop/internal/request/store"
	httptransport "arcop/internal/transport/http"
)

const expirySweepInterval = time.Hour

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	checks := map[string]httptransport.HealthCheck{}

	// Persistence. Without a Postgres URL everything stays in memory, which
	// is enough for demos and local frontend work.
	var (
		requestStore store.Store
		auditStore   audit.Store
	)
	if cfg.PostgresURL != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			log.Error("could not open postgres pool", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		pgStore := store.NewPostgres(pool)
		pgAudit := audit.NewPostgresStore(pool)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			log.Error("could not ensure request schema", "error", err)
			os.Exit(1)
		}
		if err := pgAudit.EnsureSchema(ctx); err != nil {
			log.Error("could not ensure audit schema", "error", err)
			os.Exit(1)
		}
		requestStore = pgStore
		auditStore = pgAudit
		checks["postgres"] = pool.Ping
	} else {
		log.Warn("no postgres configured, using in-memory stores")
		requestStore = store.NewInMemory()
		auditStore = audit.NewInMemoryStore()
	}

	// Audit trail. Kafka mirroring is optional; the store remains the source
	// of truth either way.
	auditOpts := []audit.Option{audit.WithAsyncBuffer(256)}
	if cfg.KafkaBrokers != "" {
		sink, err := audit.NewKafkaSink(ctx, strings.Split(cfg.KafkaBrokers, ","), cfg.AuditTopic)
		if err != nil {
			log.Error("could not connect audit kafka sink", "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		auditOpts = append(auditOpts, audit.WithSink(sink))
	}
	publisher := audit.NewPublisher(auditStore, auditOpts...)
	defer publisher.Close()

	// Rate limiting. Redis gives a shared counter across replicas; a single
	// instance falls back to the in-process limiter.
	var limiter ratelimit.Limiter
	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		log.Error("could not connect to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		limiter = ratelimit.NewRedisLimiter(redisClient.Client, cfg.RateLimit.RequestsPerMin)
		checks["redis"] = redisClient.Health
	} else {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.RequestsPerMin)
	}
	limitMiddleware := ratelimit.New(limiter, log, ratelimit.WithDisabled(cfg.RateLimit.Disabled))

	settings := notifier.Settings{
		BaseURL:          cfg.Portal.BaseURL,
		CompanyName:      cfg.Portal.CompanyName,
		DPOEmail:         cfg.Portal.DPOEmail,
		TokenTTLMinutes:  cfg.Deadlines.TokenExpiryMinutes,
		DownloadTTLHours: cfg.Deadlines.DownloadLinkHours,
		ResponseDays:     cfg.Deadlines.ResponseBusinessDays,
	}
	var mailer notifier.Notifier
	if cfg.SMTP.Host != "" {
		mailer = notifier.NewSMTP(notifier.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		}, settings)
	} else {
		mailer = notifier.NewLog(log, settings)
	}

	svc := request.New(requestStore, mailer, cfg.Deadlines,
		request.WithLogger(log),
		request.WithAuditPublisher(publisher),
		request.WithMetrics(m),
	)

	tokens := jwttoken.NewService(cfg.Reviewer.JWTSigningKey, "arcop")
	public := httptransport.NewPublicHandler(svc, log, m, limitMiddleware)
	reviewer := httptransport.NewReviewerHandler(svc, tokens, tokens, cfg.Reviewer, log, publisher)

	router := httptransport.NewRouter(log, m, public, reviewer, checks)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting arcop portal", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Deadline sweeper. Requests past their response deadline move to
	// EXPIRED so the dashboard reflects compliance exposure without manual
	// review.
	g.Go(func() error {
		ticker := time.NewTicker(expirySweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				expired, err := svc.ExpireOverdue(gctx)
				if err != nil {
					log.Error("expiry sweep failed", "error", err)
					continue
				}
				if expired > 0 {
					log.Info("expiry sweep finished", "expired", expired)
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
