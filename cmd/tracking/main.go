package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/phishtrack/internal/classifier"
	"github.com/ignite/phishtrack/internal/config"
	"github.com/ignite/phishtrack/internal/iprange"
	"github.com/ignite/phishtrack/internal/pkg/logger"
	"github.com/ignite/phishtrack/internal/repository/postgres"
	trackingsvc "github.com/ignite/phishtrack/internal/service/tracking"
	"github.com/ignite/phishtrack/internal/tracking"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedact(!cfg.Logging.NoRedact)

	if cfg.Database.URL == "" {
		logger.Error("database.url is required")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.Database.ConnLifetimeMinutes) * time.Minute)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := db.PingContext(pingCtx); err != nil {
		pingCancel()
		logger.Error("database ping failed", "error", err.Error())
		os.Exit(1)
	}
	pingCancel()
	logger.Info("database connected")

	// Burst-rate tracking is optional: without Redis the classifier just
	// skips its rate checks.
	var rates classifier.RateTracker
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		rpingCtx, rpingCancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rdb.Ping(rpingCtx).Err(); err != nil {
			logger.Warn("redis unavailable, rate checks disabled", "addr", cfg.Redis.Addr, "error", err.Error())
			rdb.Close()
		} else {
			th := cfg.Classifier.Thresholds()
			rates = classifier.NewRedisRateTracker(rdb, th.HitWindow, th.CampaignWindow)
			logger.Info("redis connected", "addr", cfg.Redis.Addr)
		}
		rpingCancel()
	}

	var pub *tracking.Publisher
	if cfg.Analytics.QueueURL != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Analytics.AWSRegion))
		if err != nil {
			logger.Warn("aws config failed, analytics publishing disabled", "error", err.Error())
		} else {
			pub = tracking.NewPublisher(sqs.NewFromConfig(awsCfg), cfg.Analytics.QueueURL)
			logger.Info("analytics publisher enabled")
		}
	}

	matcher := iprange.NewMatcher(cfg.Classifier.ExtraRanges...)
	registry := postgres.NewScannerRegistry(db)
	cls := classifier.New(cfg.Classifier.Thresholds(), matcher, registry, rates)

	repo := postgres.NewTrackingRepo(db)
	svc := trackingsvc.NewService(repo, cls, trackingsvc.Config{
		DebounceWindow: cfg.Tracking.DebounceWindow(),
		PendingTTL:     cfg.Tracking.PendingTTL(),
		SweepInterval:  cfg.Tracking.SweepInterval(),
		SweepBatch:     cfg.Tracking.SweepBatch,
	})

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()
	go svc.StartSweeper(sweepCtx)

	handler := tracking.NewHandler(svc, pub, tracking.Config{
		FallbackURL:         cfg.Tracking.FallbackURL,
		RequireConfirmation: cfg.Tracking.RequireConfirmation,
	})

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// The beacon fires cross-origin from landing pages.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Mount("/", handler.Routes())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("tracking service listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("listen failed", "error", err.Error())
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down tracking service")

	sweepCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
