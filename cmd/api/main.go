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

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"policypulse/backend/internal/actions"
	"policypulse/backend/internal/config"
	"policypulse/backend/internal/csrf"
	"policypulse/backend/internal/db"
	"policypulse/backend/internal/logger"
	"policypulse/backend/internal/observability"
	"policypulse/backend/internal/policy"
	"policypulse/backend/internal/ratelimit"
	"policypulse/backend/internal/server"
	"policypulse/backend/internal/session"
	"policypulse/backend/internal/summary"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid config", "error", err.Error())
	}
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()
	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.OTelEnabled,
		ServiceName: "policypulse-api",
		Environment: cfg.AppEnv,
	})

	var rdb *goredis.Client
	if strings.TrimSpace(cfg.RedisURL) != "" {
		rdb, err = db.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("redis connect failed", "error", err.Error())
		}
	}

	var pool *pgxpool.Pool
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		pool, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal("database connect failed", "error", err.Error())
		}
		defer pool.Close()
	}

	corpus, err := corpusSource(ctx, cfg, pool)
	if err != nil {
		log.Fatal("policy corpus unavailable", "error", err.Error())
	}

	provider, err := summary.NewProvider(ctx, cfg)
	if err != nil {
		log.Fatal("ai provider setup failed", "error", err.Error())
	}

	var (
		sessions   session.Store
		limitStore ratelimit.Store
	)
	if rdb != nil {
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL())
		limitStore = ratelimit.NewRedisStore(rdb)
	} else {
		log.Warn("REDIS_URL not set; sessions and rate limits are kept in process memory")
		sessions = session.NewMemoryStore(cfg.SessionTTL())
		limitStore = ratelimit.NewMemoryStore()
	}

	limiter := ratelimit.New(limitStore)
	signer := csrf.NewSigner(cfg.CSRFSecret, cfg.CSRFMaxAge())
	acts := actions.New(actions.Deps{
		Sessions:      sessions,
		Limiter:       limiter,
		Summaries:     summary.NewService(provider, corpus, log, cfg.AITimeout()),
		Budgets:       cfg.RateLimits(),
		Signer:        signer,
		RequireCookie: cfg.AppEnv != "local",
		Logger:        log,
	})

	app := server.New(cfg, server.Deps{
		Actions:  acts,
		Sessions: sessions,
		Limiter:  limiter,
		Signer:   signer,
		Logger:   log,
	})
	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("policypulse api listening",
			"addr", "http://localhost:"+cfg.AppPort,
			"ai_provider", provider.Name(),
			"corpus_source", cfg.PolicyCorpusSource,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err.Error())
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", "error", err.Error())
	}
	if err := db.CloseRedis(rdb, 5*time.Second); err != nil {
		log.Warn("redis close failed", "error", err.Error())
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Warn("otel shutdown failed", "error", err.Error())
	}
}

// corpusSource picks the configured corpus loader and warms it, so a broken
// corpus fails startup instead of the first generation.
func corpusSource(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) (policy.Source, error) {
	var src policy.Source
	switch strings.ToLower(strings.TrimSpace(cfg.PolicyCorpusSource)) {
	case "file":
		src = policy.FileSource{Path: cfg.PolicyCorpusPath}
	case "postgres":
		if pool == nil {
			return nil, errors.New("POLICY_CORPUS_SOURCE=postgres requires DATABASE_URL")
		}
		if err := policy.ValidateSchema(ctx, pool); err != nil {
			return nil, err
		}
		src = policy.PostgresSource{Pool: pool, Year: cfg.PolicyCorpusYear}
	default:
		src = policy.EmbeddedSource{}
	}

	cached := policy.NewCachedSource(src)
	if _, err := cached.Load(ctx); err != nil {
		return nil, err
	}
	return cached, nil
}
