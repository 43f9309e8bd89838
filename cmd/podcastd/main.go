// Command podcastd serves the podcast generation API.
//
//	@title						Podcast Generation API
//	@version					1.0
//	@description				Submits city podcast generation jobs and serves their status and results.
//	@license.name				MIT
//	@BasePath					/api
//	@securityDefinitions.apikey	CallbackToken
//	@in							header
//	@name						Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-podcast-backend/internal/config"
	httpapi "github.com/tbourn/go-podcast-backend/internal/http"
	"github.com/tbourn/go-podcast-backend/internal/notify"
	"github.com/tbourn/go-podcast-backend/internal/observability"
	"github.com/tbourn/go-podcast-backend/internal/repo"
	"github.com/tbourn/go-podcast-backend/internal/services"
	"github.com/tbourn/go-podcast-backend/internal/sysutil"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("podcastd exited")
	}
}

func run() error {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	sysutil.SetupLogger(os.Stderr, cfg.LogLevel, cfg.LogPretty)
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("setup otel: %w", err)
	}

	db, err := repo.Open(cfg.DB)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	defer sqlDB.Close()

	notifier, closeNotifier, err := buildNotifier(cfg.Notify)
	if err != nil {
		return err
	}
	defer closeNotifier()
	dispatcher := notify.NewDispatcher(notifier, cfg.Notify.Timeout)

	sweepCtx, stopSweep := context.WithCancel(log.Logger.WithContext(context.Background()))
	defer stopSweep()
	if cfg.Jobs.StaleAfter > 0 {
		go services.NewStaleSweeper(db, cfg.Jobs.StaleAfter, cfg.Jobs.SweepInterval).Run(sweepCtx)
	}

	r := gin.New()
	httpapi.RegisterRoutes(r, db, dispatcher, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("version", version).
			Str("db_driver", cfg.DB.Driver).
			Str("notifier", notifier.Name()).
			Msg("podcastd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	stopSweep()
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("generation triggers still in flight")
	}
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("otel shutdown")
	}

	log.Info().Msg("shutdown complete")
	return nil
}

// buildNotifier selects the generation trigger transport. The returned close
// func is always safe to call.
func buildNotifier(cfg config.NotifyConfig) (notify.Notifier, func(), error) {
	switch cfg.Kind {
	case "webhook":
		return notify.NewWebhookNotifier(cfg.WebhookURL, cfg.WebhookToken), func() {}, nil
	case "amqp":
		var (
			n   *notify.AMQPNotifier
			err error
		)
		// The broker may still be starting alongside the service.
		for attempt := 1; attempt <= 5; attempt++ {
			n, err = notify.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
			if err == nil {
				break
			}
			log.Warn().Err(err).Int("attempt", attempt).Msg("amqp dial failed")
			time.Sleep(time.Duration(attempt) * time.Second)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("dial amqp: %w", err)
		}
		return n, func() {
			if err := n.Close(); err != nil {
				log.Warn().Err(err).Msg("amqp close")
			}
		}, nil
	default:
		return notify.NopNotifier{}, func() {}, nil
	}
}
