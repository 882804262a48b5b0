package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"risk-service/internal/alerts"
	"risk-service/internal/api"
	"risk-service/internal/config"
	"risk-service/internal/db"
	"risk-service/internal/kafka"
	"risk-service/internal/logging"
	"risk-service/internal/notify"
	"risk-service/internal/risk"
	"risk-service/internal/services"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	dbConn, err := db.New(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	if err := dbConn.RunMigrations(ctx); err != nil {
		logger.Errorf("Migrations failed: %v", err)
		log.Fatalf("Migrations failed: %v", err)
	}

	// Initialize evaluation pipeline
	evaluator := risk.NewEvaluator(risk.DefaultConfig())
	alertMgr := alerts.NewManager(dbConn)
	notifier := notify.NewTelegram(cfg, logger)
	if notifier == nil {
		logger.Infof("Telegram escalation disabled")
	}

	svc := services.New(dbConn, evaluator, alertMgr, nilIfNoNotifier(notifier), logger, cfg)
	var wg sync.WaitGroup
	svc.Start(&wg)

	// Initialize Kafka consumer when a broker is configured
	var consumer *kafka.Consumer
	if cfg.Kafka.Broker != "" {
		consumer = kafka.NewConsumer(cfg, svc)
		logger.Infof("Kafka consumer initialized with topic: %s", cfg.Kafka.Topic)
		consumer.Start(ctx, &wg)
	} else {
		logger.Warnf("KAFKA_BROKER not set, running API-only")
	}

	// Start API server
	handler := api.NewHandler(dbConn, svc, alertMgr, logger)
	router := api.NewRouter(handler, logger, cfg)
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API server failed: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Infof("Shutting down...")
	if consumer != nil {
		consumer.Close()
	}
	svc.Stop()
	wg.Wait()
	logger.Infof("Service stopped")
}

// nilIfNoNotifier keeps the services.Notifier interface nil when Telegram
// is not configured, instead of a typed nil pointer.
func nilIfNoNotifier(t *notify.Telegram) services.Notifier {
	if t == nil {
		return nil
	}
	return t
}
