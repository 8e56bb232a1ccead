package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	config "task-board.com/task-board/internal/configs"
	model "task-board.com/task-board/internal/models"
)

var rootCmd = &cobra.Command{
	Use:           "task-board",
	Short:         "Task board backend and client",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

// loadConfig reads .env when present, then the environment.
func loadConfig() (config.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug(".env file not found, using environment variables")
	}
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	config.SetupLogger(cfg)
	return cfg, nil
}

func currentUser(cfg config.Config) model.User {
	return model.User{ID: cfg.UserID, Email: cfg.UserEmail}
}

func newHTTPClient(cfg config.Config) *http.Client {
	return &http.Client{Timeout: cfg.RequestTimeout()}
}
