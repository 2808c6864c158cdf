package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/recruitment-backend/internal/allotments"
	"github.com/angelmondragon/recruitment-backend/internal/cron"
	"github.com/angelmondragon/recruitment-backend/pkg/config"
	"github.com/angelmondragon/recruitment-backend/pkg/db"
	"github.com/angelmondragon/recruitment-backend/pkg/instance"
	"github.com/angelmondragon/recruitment-backend/pkg/logger"
	"github.com/angelmondragon/recruitment-backend/pkg/mailer"
	"github.com/angelmondragon/recruitment-backend/pkg/metrics"
	"github.com/angelmondragon/recruitment-backend/pkg/migrate"
	"github.com/angelmondragon/recruitment-backend/pkg/redis"
	"github.com/angelmondragon/recruitment-backend/pkg/storage"
)

const dispatchLockName = "allotment-dispatch"

func main() {
	once := flag.Bool("once", false, "run a single dispatch cycle and exit")
	metricsAddr := flag.String("metrics-addr", "", "serve /metrics on this address, e.g. :9090")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	lock, closeLock, err := buildLock(cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}
	defer closeLock()

	sender, err := mailer.New(cfg.Mail, cfg.FeatureFlags.MailDryRun, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create mail sender", err)
		os.Exit(1)
	}
	files, err := storage.NewLocalResolver(cfg.Storage.DocumentRoot)
	if err != nil {
		logg.Error(context.Background(), "failed to open document root", err)
		os.Exit(1)
	}

	dispatcher, err := allotments.NewDispatcher(allotments.DispatcherParams{
		Repo:        allotments.NewRepository(dbClient.DB()),
		Tx:          dbClient,
		Sender:      sender,
		Files:       files,
		Logger:      logg,
		Metrics:     metrics.NewAllotmentMetrics(prometheus.DefaultRegisterer),
		SendTimeout: cfg.Mail.SendTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create allotment dispatcher", err)
		os.Exit(1)
	}

	dispatchJob, err := cron.NewAllotmentDispatchJob(cron.AllotmentDispatchJobParams{
		Logger:     logg,
		Dispatcher: dispatcher,
		StaleAfter: cfg.Dispatcher.StaleAfter,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create allotment dispatch job", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(dispatchJob)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Dispatcher.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.ID(),
		"interval":    service.Interval().String(),
		"dryRun":      cfg.FeatureFlags.MailDryRun,
	})

	if *once {
		logg.Info(ctx, "running single cron cycle")
		cycle, err := service.RunOnce(ctx)
		if err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		if len(cycle.Failed) > 0 {
			logg.Error(logg.WithField(ctx, "failed_jobs", cycle.Failed), "cron cycle finished with failures", nil)
			os.Exit(1)
		}
		return
	}

	if *metricsAddr != "" {
		go serveMetrics(ctx, logg, *metricsAddr)
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

// buildLock prefers a Redis lock so several workers never dispatch the same
// cycle; without Redis only this process is guarded.
func buildLock(cfg *config.Config, logg *logger.Logger) (cron.Lock, func(), error) {
	if !cfg.Redis.Enabled() {
		logg.Warn(context.Background(), "redis not configured, using in-process cron lock")
		return cron.NewLocalLock(), func() {}, nil
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey(dispatchLockName), cfg.Dispatcher.LockTTL)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return lock, closeFn, nil
}

// serveMetrics exposes the default registry until ctx ends.
func serveMetrics(ctx context.Context, logg *logger.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logg.Info(logg.WithField(ctx, "metrics_addr", addr), "metrics listener starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics listener stopped", err)
	}
}
