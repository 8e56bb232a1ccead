package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	config "task-board.com/task-board/internal/configs"
	httpapi "task-board.com/task-board/internal/http"
	model "task-board.com/task-board/internal/models"
	"task-board.com/task-board/internal/queue"
	"task-board.com/task-board/internal/reconcile"
	repository "task-board.com/task-board/internal/repositories"
	"task-board.com/task-board/internal/services"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the board backend",
	Long:  "Starts the board REST API, the websocket push channel and the metrics endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		schema, err := config.LoadBoardSchema(cfg.BoardSchemaFile)
		if err != nil {
			return err
		}

		database, err := config.New(cfg.DatabaseDSN)
		if err != nil {
			return err
		}

		ctx, stop := context.WithCancel(cmd.Context())
		defer stop()

		var broker queue.Broker
		if cfg.RedisAddr != "" {
			redisClient, err := config.NewRedisClient(cfg.RedisAddr)
			if err != nil {
				return err
			}
			defer redisClient.Close()
			broker = queue.NewRedisBroker(redisClient, cfg.RedisChannel, log.StandardLogger())
			log.WithField("addr", cfg.RedisAddr).Info("using redis notification broker")
		} else {
			broker = queue.NewMemoryBroker()
			log.Info("REDIS_HOST not set, using in-process notification broker")
		}

		cardRepo := repository.NewCardRepository(database)
		if cfg.SeedDemoData {
			seeded, err := cardRepo.Seed(ctx, model.DemoCards(time.Now()))
			if err != nil {
				return err
			}
			if seeded {
				log.Info("seeded demo cards")
			}
		}

		notificationService := services.NewNotificationService(
			repository.NewNotificationRepository(database), broker, log.StandardLogger())
		cardService := services.NewCardService(cardRepo, notificationService, schema, log.StandardLogger())

		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		codec, err := reconcile.NewCodec()
		if err != nil {
			return err
		}
		hub, err := httpapi.NewHub(codec, cfg.PushAllowedOrigins, registry, log.StandardLogger())
		if err != nil {
			return err
		}
		unsubscribe, err := broker.Subscribe(hub.Deliver)
		if err != nil {
			return err
		}
		defer unsubscribe()

		e := echo.New()
		e.HideBanner = true
		handler := httpapi.NewHandler(cardService, notificationService, log.StandardLogger())
		httpapi.Register(e, handler, hub, registry, cfg.RateLimit)

		go func() {
			log.WithField("addr", cfg.AppURL).Info("HTTP server listening")
			if err := e.Start(cfg.AppURL); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("server stopped")
				stop()
			}
		}()

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
		if err := hub.Close(shutdownCtx); err != nil {
			log.WithError(err).Warn("push connections did not close in time")
		}

		log.Info("HTTP server and push hub shut down gracefully")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
