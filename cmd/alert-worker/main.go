package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"spendsmart/internal/amqp"
	"spendsmart/internal/config"
	"spendsmart/internal/log"
	"spendsmart/internal/notify"
)

// alert-worker consumes budget alerts from the queue and delivers
// them by email.
func main() {
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	logger.Info("Starting alert-worker", log.FieldOperation, log.OpStartup)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the alert worker")
		os.Exit(1)
	}
	if cfg.SMTPHost == "" {
		logger.Error("SMTP_HOST is required for the alert worker")
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	notifier := notify.NewEmailNotifier(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom, cfg.MailTo)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	handler := func(msg *amqp.BudgetAlertMessage) error {
		logger.Info("Budget alert received",
			"status", msg.Status,
			"month", msg.Month,
			log.FieldSpentPct, msg.SpentPct)
		if err := notifier.SendBudgetAlert(msg); err != nil {
			return err
		}
		logger.Info("Budget alert email sent", "month", msg.Month, "status", msg.Status)
		return nil
	}

	if err := amqpClient.ConsumeBudgetAlerts(ctx, handler); err != nil && err != context.Canceled {
		logger.Error("Alert consumption failed", log.FieldError, err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully", log.FieldOperation, log.OpShutdown)
}
