package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"task-board.com/task-board/internal/api"
	"task-board.com/task-board/internal/constants"
	model "task-board.com/task-board/internal/models"
	"task-board.com/task-board/internal/mutation"
	"task-board.com/task-board/internal/notifications"
	"task-board.com/task-board/internal/reconcile"
)

var (
	watchMarkAllRead bool
	watchRefetch     bool
	watchMetricsAddr string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the configured user's notifications",
	Long: "Pulls the notification list and unread counter on their refresh intervals, " +
		"listens on the push channel and prints every new notification until interrupted.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		user := currentUser(cfg)
		ctx := cmd.Context()

		var metrics *mutation.Metrics
		if watchMetricsAddr != "" {
			registry := prometheus.NewRegistry()
			metrics = mutation.NewMetrics(registry)
			srv := &http.Server{
				Addr:              watchMetricsAddr,
				Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.WithError(err).Error("metrics server stopped")
				}
			}()
			defer srv.Close()
		}

		push, err := reconcile.NewPushChannel(cfg.PushURL, reconcile.PushOptions{Logger: log.StandardLogger()})
		if err != nil {
			return err
		}
		push.OnError(func(err error) {
			log.WithError(err).Warn("push channel lost; notifications continue on refresh")
		})

		client := api.NewHTTPClient(cfg.APIBaseURL, api.ClientOptions{
			UserID:     user.Identity(),
			HTTPClient: newHTTPClient(cfg),
		})
		feed := notifications.New(client, push, notifications.Options{
			ListInterval:    cfg.NotificationsRefresh(),
			CountInterval:   cfg.UnreadRefresh(),
			RefetchOnSettle: watchRefetch,
			Logger:          log.StandardLogger(),
			Metrics:         metrics,
			OnError: func(err error) {
				log.WithError(err).Warn("refresh failed")
			},
		})

		changes, cancel := feed.Subscribe()
		defer cancel()

		if err := feed.Start(ctx, user); err != nil {
			log.WithError(err).Warn("feed started degraded")
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
			defer cancel()
			_ = feed.Stop(stopCtx)
		}()

		out := cmd.OutOrStdout()
		seen := make(map[string]struct{})
		printNew(out, feed.Notifications(), seen)
		fmt.Fprintf(out, "unread: %d (push connected: %t)\n", feed.UnreadCount(), feed.IsConnected())

		if watchMarkAllRead {
			call := feed.MarkAllRead(ctx)
			if err := call.Wait(ctx); err != nil {
				log.WithError(err).Warn("mark all read failed")
			}
		}

		lastUnread := feed.UnreadCount()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-changes:
				printNew(out, feed.Notifications(), seen)
				if n := feed.UnreadCount(); n != lastUnread {
					lastUnread = n
					fmt.Fprintf(out, "unread: %d\n", n)
				}
			}
		}
	},
}

// printNew prints notifications not printed before, oldest first.
func printNew(out io.Writer, items []model.Notification, seen map[string]struct{}) {
	for i := len(items) - 1; i >= 0; i-- {
		n := items[i]
		if _, ok := seen[n.ID]; ok {
			continue
		}
		seen[n.ID] = struct{}{}
		marker := "*"
		if n.IsRead {
			marker = " "
		}
		fmt.Fprintf(out, "%s %s  %-20s %s\n", marker, n.CreatedAt.Local().Format(time.DateTime), label(n.Type), n.Message)
	}
}

func label(t constants.NotificationType) string {
	switch t {
	case constants.NotificationTaskAssigned:
		return "assigned"
	case constants.NotificationTaskUnassigned:
		return "unassigned"
	case constants.NotificationTaskStatusChanged:
		return "status changed"
	default:
		return string(t)
	}
}

func init() {
	watchCmd.Flags().BoolVar(&watchMarkAllRead, "mark-all-read", false, "mark every notification read after the first pull")
	watchCmd.Flags().BoolVar(&watchRefetch, "refetch", true, "re-pull list and counter after marks and push arrivals")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "serve client mutation metrics on this address")
	rootCmd.AddCommand(watchCmd)
}
