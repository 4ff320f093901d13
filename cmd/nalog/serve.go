package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/erazemk/nalog/internal/api"
	"github.com/erazemk/nalog/internal/db"
	"github.com/erazemk/nalog/internal/notify"
	"github.com/erazemk/nalog/internal/store"
	"github.com/erazemk/nalog/internal/workflow"
)

// ServeCmd runs the HTTP API.
type ServeCmd struct {
	Addr            string        `short:"a" default:":8080" env:"NALOG_ADDR" help:"Listen address."`
	AdminUser       string        `short:"u" default:"admin" env:"NALOG_ADMIN_USER" help:"Admin username if the database is created on first run."`
	ShutdownTimeout time.Duration `default:"5s" env:"NALOG_SHUTDOWN_TIMEOUT" help:"Grace period for in-flight requests on shutdown."`

	RedisAddr     string `env:"NALOG_REDIS_ADDR" help:"Publish record events to this Redis server."`
	RedisPassword string `env:"NALOG_REDIS_PASSWORD" help:"Redis password."`
	RedisStream   string `default:"nalog:record-events" env:"NALOG_REDIS_STREAM" help:"Redis stream for record events."`

	KafkaBrokers []string `env:"NALOG_KAFKA_BROKERS" sep:"," help:"Publish record events to these Kafka brokers."`
	KafkaTopic   string   `default:"record-events" env:"NALOG_KAFKA_TOPIC" help:"Kafka topic for record events."`
}

// Run implements the serve subcommand.
func (c *ServeCmd) Run(g *Globals) error {
	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(g.DB); os.IsNotExist(err) {
		database, password, err := initDatabase(g.DB, c.AdminUser)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		database.Close()

		printInitResult(g.DB, c.AdminUser, password)
		fmt.Println()
	}

	database, err := db.Open(g.DB)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}
	slog.Info("database ready", "path", g.DB)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("loading JWT secret: %w", err)
	}

	notifier, closeSinks := c.notifier(ctx)
	defer closeSinks()

	svc := workflow.NewService(database, notifier)

	server := &http.Server{
		Addr:              c.Addr,
		Handler:           api.NewRouter(database, jwtSecret, svc),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		slog.Info("server started", "addr", c.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	grp.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		// Deliver events queued by the last requests before the sinks close.
		if err := svc.Close(shutdownCtx); err != nil {
			slog.Warn("undelivered record events dropped", "error", err)
		}
		return nil
	})

	if err := grp.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped, closing database")
	return nil
}

// notifier assembles the event sinks that are configured. Events are always
// logged; Redis and Kafka are added when their addresses are set.
func (c *ServeCmd) notifier(ctx context.Context) (notify.Notifier, func()) {
	sinks := notify.Multi{notify.Log{}}
	var closers []func() error

	if c.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: c.RedisAddr, Password: c.RedisPassword})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := client.Ping(pingCtx).Err(); err != nil {
			slog.Warn("redis not reachable, record events to it will fail and be dropped until it is", "addr", c.RedisAddr, "error", err)
		}
		cancel()
		sinks = append(sinks, notify.NewRedisStream(client, c.RedisStream))
		closers = append(closers, client.Close)
		slog.Info("publishing record events to redis", "addr", c.RedisAddr, "stream", c.RedisStream)
	}

	if len(c.KafkaBrokers) > 0 {
		sink := notify.NewKafka(notify.NewKafkaWriter(c.KafkaBrokers, c.KafkaTopic))
		sinks = append(sinks, sink)
		closers = append(closers, sink.Close)
		slog.Info("publishing record events to kafka", "brokers", c.KafkaBrokers, "topic", c.KafkaTopic)
	}

	return sinks, func() {
		for _, closeFn := range closers {
			if err := closeFn(); err != nil {
				slog.Error("closing event sink", "error", err)
			}
		}
	}
}
