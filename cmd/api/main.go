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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/recruitment-backend/api/controllers"
	"github.com/angelmondragon/recruitment-backend/api/routes"
	"github.com/angelmondragon/recruitment-backend/internal/allotments"
	"github.com/angelmondragon/recruitment-backend/internal/applications"
	"github.com/angelmondragon/recruitment-backend/internal/eligibility"
	"github.com/angelmondragon/recruitment-backend/internal/ledger"
	"github.com/angelmondragon/recruitment-backend/internal/merit"
	"github.com/angelmondragon/recruitment-backend/pkg/config"
	"github.com/angelmondragon/recruitment-backend/pkg/db"
	"github.com/angelmondragon/recruitment-backend/pkg/enums"
	"github.com/angelmondragon/recruitment-backend/pkg/logger"
	"github.com/angelmondragon/recruitment-backend/pkg/metrics"
	"github.com/angelmondragon/recruitment-backend/pkg/migrate"
	"github.com/angelmondragon/recruitment-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	readiness := map[string]controllers.Pinger{"db": dbClient, "redis": nil}
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(context.Background(), cfg.Redis)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		readiness["redis"] = redisClient
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()), nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create ledger service", err)
		os.Exit(1)
	}

	applicationService, err := applications.NewService(applications.ServiceParams{
		Repo:        applications.NewRepository(dbClient.DB()),
		Ledger:      ledgerService,
		Eligibility: eligibility.NewRepository(dbClient.DB()),
		Tx:          dbClient,
		Metrics:     metrics.NewApplicationMetrics(registry),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create application service", err)
		os.Exit(1)
	}

	meritService, err := merit.NewService(merit.NewRepository(dbClient.DB()), dbClient, scoringPolicy(cfg.Scoring), nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create merit service", err)
		os.Exit(1)
	}

	allotmentService, err := allotments.NewService(allotments.ServiceParams{
		Repo:       allotments.NewRepository(dbClient.DB()),
		Tx:         dbClient,
		MaxRetries: cfg.Dispatcher.MaxRetries,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create allotment service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			registry,
			metrics.NewHTTPMetrics(registry),
			readiness,
			applicationService,
			meritService,
			allotmentService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(groupCtx), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

func scoringPolicy(cfg config.ScoringConfig) merit.ScoringPolicy {
	policy := merit.DefaultPolicy(time.Time{})
	if pref, err := enums.ParseAgePreference(strings.ToUpper(strings.TrimSpace(cfg.AgePreference))); err == nil {
		policy.AgePreference = pref
	}
	if cfg.EducationRankCap > 0 {
		policy.EducationRankCap = cfg.EducationRankCap
	}
	return policy
}
