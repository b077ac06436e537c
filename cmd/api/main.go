package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/loan-service/internal/cache"
	"github.com/Dan9191/loan-service/internal/config"
	"github.com/Dan9191/loan-service/internal/eligibility"
	"github.com/Dan9191/loan-service/internal/genai"
	"github.com/Dan9191/loan-service/internal/handler"
	"github.com/Dan9191/loan-service/internal/integrations/keyrate"
	"github.com/Dan9191/loan-service/internal/middleware"
	"github.com/Dan9191/loan-service/internal/repository"
	"github.com/Dan9191/loan-service/internal/scheduler"
	"github.com/Dan9191/loan-service/internal/service"
	"github.com/Dan9191/loan-service/internal/utils"
	"github.com/Dan9191/loan-service/internal/utils/email"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	var store service.Store
	switch cfg.StorageDriver {
	case "memory":
		logger.Warn("Using in-memory storage, data is lost on restart")
		store = repository.NewMemory()
	default:
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		store = repository.NewRepository(db)
	}

	vault, err := utils.NewVault(cfg.EncryptionKey, cfg.HMACSecret)
	if err != nil {
		logger.Fatalf("Failed to initialize vault: %v", err)
	}

	// Prompt service and scorer
	var prompter eligibility.Prompter
	genaiCfg := genai.Config{
		BaseURL:    cfg.GenAIURL,
		APIKey:     cfg.GenAIAPIKey,
		Model:      cfg.GenAIModel,
		Timeout:    cfg.GenAITimeout,
		MaxRetries: cfg.GenAIMaxRetries,
	}
	genaiClient := genai.NewClient(genaiCfg, logger)
	if genaiClient.Enabled() {
		prompter = genaiClient
	}

	opts := eligibility.Options{
		Strategy:          cfg.ScoringStrategy,
		Prompter:          prompter,
		ApprovalThreshold: cfg.ApprovalThreshold,
		CacheTTL:          cfg.ScoringCacheTTL,
		Logger:            logger,
	}
	if cfg.RedisAddr != "" {
		rdb := cache.NewRedis(cache.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
		if err := rdb.Ping(ctx); err != nil {
			logger.WithError(err).Warn("Redis unreachable, scoring cache will be bypassed until it recovers")
		}
		opts.Cache = rdb
	}
	scorer, err := eligibility.New(opts)
	if err != nil {
		logger.Fatalf("Failed to initialize scorer: %v", err)
	}

	// Initialize layers
	svc := service.NewService(service.Dependencies{
		Store:    store,
		Scorer:   scorer,
		Prompter: prompter,
		Vault:    vault,
		Notifier: email.NewSender(email.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SenderEmail,
		}, logger),
		Rates: keyrate.NewClient(cfg.KeyRateURL, logger),
	}, logger, cfg)

	if err := svc.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Fatalf("Failed to bootstrap admin user: %v", err)
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger)
	limiter.StartCleanup(10*time.Minute, ctx.Done())
	router := handler.NewRouter(svc, limiter, logger)

	sched := scheduler.NewScheduler(ctx, svc, logger)
	if err := sched.Register(cfg.EvaluationCron); err != nil {
		logger.Fatalf("Failed to start scheduler: %v", err)
	}
	sched.Start()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		// Leave room to write the 502 after the prompt service gives up.
		WriteTimeout: genaiCfg.MaxDuration() + 10*time.Second,
	}
	go func() {
		logger.Infof("Starting server on %s (scoring strategy: %s)", addr, scorer.Name())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server shutdown failed")
	}
	sched.Stop()
}
