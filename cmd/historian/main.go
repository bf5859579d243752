// cmd/historian/main.go runs the historian: it pops game action records from the Redis queue and
// persists them to PostgreSQL, marking quiet games abandoned.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/config"
	"github.com/jason-s-yu/uno/internal/database"
	"github.com/jason-s-yu/uno/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	cfg, err := config.LoadHistorian()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	logger.SetLevel(config.ParseLogLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cache.ConnectRedis(ctx); err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}
	defer cache.Rdb.Close()

	if err := database.ConnectDB(ctx); err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}
	defer database.Close()
	if err := database.EnsureSchema(ctx); err != nil {
		logger.WithError(err).Fatal("failed to prepare schema")
	}

	queue := cache.QueueName()
	svc := historian.NewService(cache.NewConsumer(cache.Rdb, queue, logger), database.Archive{}, cfg, logger)
	logger.WithFields(logrus.Fields{
		"queue":      queue,
		"batch_size": cfg.BatchSize,
		"flush":      cfg.FlushInterval,
		"inactivity": cfg.InactivityTimeout,
	}).Info("historian configured")

	if err := svc.Run(ctx); err != nil {
		logger.WithError(err).Error("historian exited")
	}
}
