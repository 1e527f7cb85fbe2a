package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/mrjvadi/busrpc/consumer"
	"github.com/mrjvadi/busrpc/handler"
	"github.com/mrjvadi/busrpc/internal/config"
	"github.com/mrjvadi/busrpc/internal/log"
	"github.com/mrjvadi/busrpc/internal/metrics"
	"github.com/mrjvadi/busrpc/router"
	"github.com/mrjvadi/busrpc/store"
	"github.com/mrjvadi/busrpc/store/pgstore"
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Run the worker: consume requests and reply.",
	RunE:  runConsume,
}

func runConsume(cmd *cobra.Command, _ []string) error {
	settings, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(settings.Environment)
	if err != nil {
		return err
	}
	m := metrics.New()

	usersStore, closeStore, err := newUsersStore(cmd.Context(), settings)
	if err != nil {
		return err
	}
	defer closeStore()

	r, err := router.New(
		handler.NewCRUDHandler[*User]("Users", usersStore, newUser),
		handler.NewHealthHandler(usersStore, m),
	)
	if err != nil {
		return err
	}

	c := consumer.New(settings.Broker, settings.QueueName, r,
		consumer.WithLogger(logger),
		consumer.WithMetrics(m),
		consumer.WithMaxConcurrency(settings.MaxConcurrency),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(settings.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", log.Error(err))
		}
	}()

	logger.Info("consumer starting", log.String("queue", settings.QueueName))
	return c.Run(ctx)
}

func newLogger(env config.Environment) (log.Logger, error) {
	if env.IsProduction() {
		return log.NewProduction()
	}
	return log.NewDevelopment()
}

// newUsersStore picks the pgx-backed store when DATABASE_URL is set, and
// falls back to the in-memory reference store otherwise — handy for running
// the worker against no external dependency at all.
func newUsersStore(ctx context.Context, settings config.AppSettings) (store.Store[*User], func(), error) {
	if settings.DatabaseURL == "" {
		return store.NewMemStore[*User](cloneUser), func() {}, nil
	}
	pool, err := pgxpool.New(ctx, settings.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return pgstore.New[*User](pool, userMapper), pool.Close, nil
}
