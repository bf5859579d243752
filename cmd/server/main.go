// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/uno/internal/auth"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/config"
	"github.com/jason-s-yu/uno/internal/database"
	"github.com/jason-s-yu/uno/internal/handlers"
	"github.com/jason-s-yu/uno/internal/middleware"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	reapInterval    = time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	logger := logrus.New()
	cfg, err := config.LoadServer()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	logger.SetLevel(config.ParseLogLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := handlers.NewGameServer(logger)
	srv.TickRate = cfg.TickRate
	srv.AllowedOrigins = cfg.AllowedOrigins
	if cfg.RequireTokens {
		tokens, err := auth.NewGameTokens(cfg.TokenTTL)
		if err != nil {
			logger.WithError(err).Fatal("failed to set up game tokens")
		}
		srv.Tokens = tokens
	}

	if !cfg.DisableRedis {
		if err := cache.ConnectRedis(ctx); err != nil {
			logger.WithError(err).Warn("redis unavailable, game actions will not be recorded")
		} else {
			defer cache.Rdb.Close()
			srv.Publisher = cache.NewPublisher(cache.Rdb, cache.QueueName())
		}
	}

	if !cfg.DisableDatabase {
		if err := database.ConnectDB(ctx); err != nil {
			logger.WithError(err).Warn("database unavailable, results will not be archived")
		} else {
			defer database.Close()
			if err := database.EnsureSchema(ctx); err != nil {
				logger.WithError(err).Fatal("failed to prepare schema")
			}
			srv.Archive = database.Archive{}
		}
	}

	httpSrv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.Harden(logger, cfg.AllowedOrigins)(srv.Routes()),
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.GameIdleTimeout > 0 {
		g.Go(func() error {
			srv.ReapIdleGames(gctx, reapInterval, cfg.GameIdleTimeout)
			return nil
		})
	}
	g.Go(func() error {
		logger.Infof("Running on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server exited")
		return
	}
	logger.Info("server stopped")
}
