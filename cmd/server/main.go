package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"deicer/internal/confirmation/cooldown"
	confirmationmetrics "deicer/internal/confirmation/metrics"
	confirmationservice "deicer/internal/confirmation/service"
	confirmationstore "deicer/internal/confirmation/store/confirmation"
	markerhandler "deicer/internal/marker/handler"
	markermetrics "deicer/internal/marker/metrics"
	markerservice "deicer/internal/marker/service"
	markerstore "deicer/internal/marker/store/marker"
	"deicer/internal/monitor"
	monitormetrics "deicer/internal/monitor/metrics"
	"deicer/internal/notify"
	"deicer/internal/platform/config"
	"deicer/internal/platform/httpserver"
	"deicer/internal/platform/logger"
	platformredis "deicer/internal/platform/redis"
	"deicer/internal/proximity"
	"deicer/internal/status"
	"deicer/pkg/geo"
	adminmw "deicer/pkg/platform/middleware/admin"
	"deicer/pkg/platform/middleware/device"
	"deicer/pkg/platform/middleware/request"
	"deicer/pkg/platform/middleware/requesttime"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	// Persistence: Postgres when configured, in-memory otherwise. The
	// in-memory wiring injects the ledger store as the marker service's
	// purger so an admin clear removes confirmations in both deployments.
	var (
		markers       markerstore.Store
		confirmations confirmationstore.Store
		purger        markerservice.ConfirmationPurger
		healthz       = status.New()
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if _, err := db.Exec(markerstore.Schema()); err != nil {
			log.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		markers = markerstore.NewPostgres(db)
		// FK cascade removes ledger rows when markers are deleted, so no
		// purger is needed here.
		confirmations = confirmationstore.NewPostgres(db)
		healthz.AddCheck("postgres", dbChecker{db})
	} else {
		memLedger := confirmationstore.NewInMemory()
		markers = markerstore.NewInMemory()
		confirmations = memLedger
		purger = memLedger
	}

	var gate cooldown.Gate = cooldown.NewInMemoryGate()
	if cfg.RedisURL != "" {
		redisClient, err := platformredis.New(cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		gate = cooldown.NewRedisGate(redisClient.Client)
		healthz.AddCheck("redis", redisClient)
		log.Info("cooldown gate backed by redis")
	}

	markerOpts := []markerservice.Option{
		markerservice.WithLogger(log),
		markerservice.WithMetrics(markermetrics.New()),
	}
	if purger != nil {
		markerOpts = append(markerOpts, markerservice.WithConfirmationPurger(purger))
	}
	markerSvc, err := markerservice.New(markers, markerOpts...)
	if err != nil {
		log.Error("failed to build marker service", "error", err)
		os.Exit(1)
	}

	ledger, err := confirmationservice.New(confirmations, markerSvc, cfg.CooldownWindow,
		confirmationservice.WithLogger(log),
		confirmationservice.WithMetrics(confirmationmetrics.New()),
		confirmationservice.WithGate(gate),
	)
	if err != nil {
		log.Error("failed to build confirmation ledger", "error", err)
		os.Exit(1)
	}

	evaluator, err := proximity.New(markerSvc)
	if err != nil {
		log.Error("failed to build proximity evaluator", "error", err)
		os.Exit(1)
	}

	var notifier notify.Notifier = notify.NewLogNotifier(log)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaNotifier, err := notify.NewKafkaNotifier(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
		log.Info("notifications published to kafka", "topic", cfg.KafkaTopic)
	}

	mon, err := monitor.New(
		monitor.StaticProvider{Location: geo.Coordinate{Lat: cfg.MonitorLat, Lng: cfg.MonitorLng}},
		evaluator,
		notifier,
		monitor.NewTickerScheduler(),
		monitor.WithLogger(log),
		monitor.WithMetrics(monitormetrics.New()),
		monitor.WithConfig(monitor.Config{
			RadiusMiles: cfg.MonitorRadiusMiles,
			MinInterval: 5 * time.Minute,
			MaxInterval: time.Hour,
		}),
	)
	if err != nil {
		log.Error("failed to build monitor", "error", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	router.Use(request.RequestID)
	router.Use(request.Recover(log))
	router.Use(request.Log(log))
	router.Use(requesttime.Middleware)
	router.Use(device.Extract)

	router.Route("/api/v1", func(api chi.Router) {
		markerhandler.New(markerSvc, ledger, evaluator, log).Register(api)
	})
	router.Route("/admin", func(adm chi.Router) {
		adm.Use(adminmw.RequireAdminToken(cfg.AdminToken, log))
		markerhandler.NewAdmin(markerSvc, cfg.StaleMaxAge, log).Register(adm)
	})
	healthz.Register(router)
	router.Handle("/metrics", promhttp.Handler())

	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting deicer", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if cfg.MonitorEnabled {
		if err := mon.Start(ctx, cfg.MonitorInterval); err != nil {
			log.Error("failed to start monitor", "error", err)
			os.Exit(1)
		}
	}

	g.Go(func() error {
		<-gctx.Done()
		mon.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

// dbChecker adapts *sql.DB to the status checker interface.
type dbChecker struct {
	db *sql.DB
}

func (c dbChecker) Health(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
