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

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/config"
	"github.com/emilythestrangee/stackit/backend/internal/database"
	"github.com/emilythestrangee/stackit/backend/internal/forum"
	"github.com/emilythestrangee/stackit/backend/internal/logger"
	"github.com/emilythestrangee/stackit/backend/internal/notify"
	"github.com/emilythestrangee/stackit/backend/internal/realtime"
	"github.com/emilythestrangee/stackit/backend/internal/server"
	"github.com/emilythestrangee/stackit/backend/internal/store"
	"github.com/emilythestrangee/stackit/backend/internal/store/memstore"
	"github.com/emilythestrangee/stackit/backend/internal/store/mongostore"
	"github.com/emilythestrangee/stackit/backend/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

var (
	autoMigrate bool

	rootCmd = &cobra.Command{
		Use:           "stackit",
		Short:         "StackIt Q&A forum backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and realtime endpoint (default)",
		RunE:  runServe,
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the store schema and indexes, then exit",
		RunE:  runMigrate,
	}
)

func init() {
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().BoolVar(&autoMigrate, "migrate", true, "migrate the store schema before serving")
	}
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

// bootstrap loads configuration and builds the process logger.
func bootstrap() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration:", err)
		return config.Config{}, zerolog.Nop(), err
	}
	return cfg, logger.New(cfg.LogLevel, cfg.LogFormat), nil
}

func openStore(ctx context.Context, cfg config.Config, log zerolog.Logger) (store.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		return database.New(ctx, cfg.Postgres.DSN(), log)
	case config.DriverMongo:
		return mongostore.New(ctx, cfg.Mongo.URI, cfg.Mongo.Database, log)
	case config.DriverMemory:
		log.Warn().Msg("using in-memory store; data is lost on restart")
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to open store")
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		log.Error().Err(err).Msg("migration failed")
		return err
	}
	log.Info().Str("driver", cfg.StoreDriver).Msg("migration complete")
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(cfg.ServiceName, cfg.TracesStdout)
	if err != nil {
		log.Error().Err(err).Msg("failed to set up tracing")
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn().Err(err).Msg("failed to flush traces")
		}
	}()

	st, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to open store")
		return err
	}
	defer st.Close()

	if autoMigrate {
		if err := st.Migrate(ctx); err != nil {
			log.Error().Err(err).Msg("migration failed")
			return err
		}
	}

	hub := realtime.NewHub(log)

	var (
		relay      *realtime.Relay
		notifyOpts []notify.Option
	)
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error().Err(err).Str("addr", cfg.Redis.Addr).Msg("failed to reach redis")
			return err
		}
		relay = realtime.NewRelay(rdb, hub, log)
		notifyOpts = append(notifyOpts, notify.WithRelay(relay))
		log.Info().Str("addr", cfg.Redis.Addr).Msg("cross-instance relay enabled")
	}
	if cfg.Twilio.Enabled() {
		notifyOpts = append(notifyOpts, notify.WithSMS(
			notify.NewTwilioSMS(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber),
		))
		log.Info().Msg("sms fallback enabled")
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	dispatcher := notify.NewDispatcher(st, hub, log, notifyOpts...)
	svc := forum.NewService(st, dispatcher, tokens, log, forum.WithPageSize(cfg.PageSize))
	srv := server.NewServer(cfg, server.Deps{Service: svc, Hub: hub, Tokens: tokens, Log: log})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	if relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Str("driver", cfg.StoreDriver).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
