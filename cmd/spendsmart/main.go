package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"spendsmart/internal/ai"
	"spendsmart/internal/amqp"
	"spendsmart/internal/cache"
	"spendsmart/internal/config"
	apphttp "spendsmart/internal/http"
	"spendsmart/internal/log"
	"spendsmart/internal/ocr"
	"spendsmart/internal/receipt"
	"spendsmart/internal/scanning"
	"spendsmart/internal/services"
	"spendsmart/internal/storage"
)

func main() {
	// Load .env for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig())
	logger.Info("Starting spendsmart", log.FieldOperation, log.OpStartup)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Budget alerts go to the queue when AMQP is configured
	var publisher services.AlertPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		publisher = amqpClient
		logger.Info("AMQP alert publishing enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	cacheManager := cache.NewManager()
	cacheManager.StartCleanup(10 * time.Minute)
	defer cacheManager.Stop()
	caches := services.NewCaches(cacheManager, cfg.CacheTTL)

	budgetSvc := services.NewBudgetService(repo, publisher, logger)
	expenseSvc := services.NewExpenseService(repo, budgetSvc, caches, logger)
	vizSvc := services.NewVisualizationService(repo, caches, logger)

	categorizer, err := ai.NewCategorizer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Error("Failed to initialize categorizer", log.FieldError, err)
		os.Exit(1)
	}
	defer categorizer.Close()

	generator, err := ai.NewInsightsGenerator(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Error("Failed to initialize insights generator", log.FieldError, err)
		os.Exit(1)
	}
	defer generator.Close()
	insightsSvc := services.NewInsightsService(repo, generator, caches, logger)

	// Receipt scanning uses Gemini vision when available and falls
	// back to local OCR.
	var vision scanning.Scanner
	if cfg.GeminiAPIKey != "" {
		v, err := scanning.NewVision(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize vision scanner", log.FieldError, err)
			os.Exit(1)
		}
		defer v.Close()
		vision = v
	}
	extractor := receipt.New(receipt.Thresholds{
		TotalCeiling:  cfg.ReceiptTotalCeiling,
		ArtifactFloor: cfg.ReceiptArtifactFloor,
		FeasibleSlack: 10,
		ArtifactRatio: 5,
	})
	scanner := scanning.NewService(vision, ocr.NewTesseract(cfg.OCRLanguage), extractor)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Expenses:     expenseSvc,
		Budget:       budgetSvc,
		Viz:          vizSvc,
		Insights:     insightsSvc,
		Categorizer:  categorizer,
		Scanner:      scanner,
		AIConfigured: cfg.GeminiAPIKey != "",
	}, logger)
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
