package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"party-planner/api"
	"party-planner/config"
	"party-planner/domain"
	"party-planner/feed"
	"party-planner/repository"
	"party-planner/storage"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "partyplanner",
		Short:         "Party planning data store",
		Long:          "partyplanner keeps the party details, events, tasks, guests, invitations, shopping list and notes for one party, and serves them over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(newFeedCommand())
	root.AddCommand(newResetCommand())
	root.AddCommand(newMigrateCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			return a.serve(ctx)
		},
	}
}

func newFeedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Print the merged calendar feed as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := cmd.Flags().GetString("date")
			if date != "" {
				if _, err := time.Parse(domain.DateKeyLayout, date); err != nil {
					return fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
				}
			}
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			cal, err := a.builder.Calendar(cmd.Context())
			if err != nil {
				return err
			}
			if date != "" {
				cal = cal.Only(date)
			}
			out, err := sonic.ConfigStd.MarshalIndent(cal, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().String("date", "", "Only print this day (YYYY-MM-DD)")
	return cmd
}

func newResetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			yes, _ := cmd.Flags().GetBool("yes")
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()
			return a.repos.Reset(cmd.Context())
		},
	}
	cmd.Flags().Bool("yes", false, "Confirm that all data should be deleted")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply sqlite schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			configureLogging(cfg)
			if cfg.Store.Backend != "sqlite" {
				return fmt.Errorf("migrations only apply to the sqlite backend, not %q", cfg.Store.Backend)
			}
			return storage.Migrate(cfg.Store.SQLitePath)
		},
	}
}

var storeMetrics = sync.OnceValue(func() *storage.Metrics {
	return storage.NewMetrics(prometheus.DefaultRegisterer)
})

type app struct {
	cfg     *config.Config
	store   *storage.Store
	repos   *repository.Repositories
	builder *feed.Builder
	changes *api.ChangeFeed
	redis   *redis.Client
	closers []func() error
}

func configureLogging(cfg *config.Config) {
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}
	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}
}

// setup builds the store, repositories and feed builder from the environment.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	configureLogging(cfg)
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	ids, ok := repository.IDStrategy(cfg.IDStrategy)
	if !ok {
		return nil, fmt.Errorf("unsupported ID_STRATEGY %q", cfg.IDStrategy)
	}

	a := &app{cfg: cfg, changes: api.NewChangeFeed()}
	if cfg.Store.Backend == "redis" || cfg.Notify.Mode == "redis" {
		opts, err := storage.RedisOptions(cfg.Store.RedisConnection)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.redis = redis.NewClient(opts)
		a.closers = append(a.closers, a.redis.Close)
	}

	var backend storage.Backend
	switch cfg.Store.Backend {
	case "redis":
		backend = storage.NewRedis(a.redis)
	case "sqlite":
		db, err := storage.OpenSQLite(cfg.Store.SQLitePath)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		backend = db
	case "tables":
		t, err := storage.NewTables(ctx, cfg.Store.AzureConnection, cfg.Store.TablesTable, cfg.Store.TablesPartition)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("tables: %w", err)
		}
		backend = t
	}

	var notifier storage.Notifier
	switch cfg.Notify.Mode {
	case "redis":
		// Local subscribers hear about writes through the channel subscription.
		notifier = storage.NewRedisNotifier(a.redis, cfg.Notify.Channel)
	case "queue":
		q, err := storage.NewQueueNotifier(cfg.Store.AzureConnection, cfg.Notify.Queue)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("queue: %w", err)
		}
		notifier = storage.Notifiers{a.changes, q}
	default:
		notifier = a.changes
	}

	a.store = storage.New(backend,
		storage.WithPrefix(cfg.Store.Prefix),
		storage.WithNotifier(notifier),
		storage.WithMetrics(storeMetrics()),
	)
	a.repos = repository.New(a.store, repository.WithIDGenerator(ids), repository.WithLocation(loc))
	a.builder = feed.NewBuilder(a.repos, loc)
	log.WithFields(log.Fields{
		"backend":  cfg.Store.Backend,
		"notify":   cfg.Notify.Mode,
		"timezone": loc.String(),
		"ids":      cfg.IDStrategy,
	}).Debug("store ready")
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warnf("close: %v", err)
		}
	}
}

func (a *app) authenticator() (api.Authenticator, error) {
	c := a.cfg.Auth
	switch c.Mode {
	case "hs256":
		return api.NewSharedSecretAuth([]byte(c.Secret), c.Audience, c.Issuer), nil
	case "jwks":
		jwks, err := keyfunc.Get(c.JWKSURL, keyfunc.Options{
			RefreshInterval:   time.Hour,
			RefreshUnknownKID: true,
			RefreshErrorHandler: func(err error) {
				log.Errorf("jwks refresh: %v", err)
			},
		})
		if err != nil {
			return nil, fmt.Errorf("jwks: %w", err)
		}
		a.closers = append(a.closers, func() error { jwks.EndBackground(); return nil })
		return api.NewJWKSAuth(jwks, c.Audience, c.Issuer), nil
	}
	return nil, nil
}

func (a *app) serve(ctx context.Context) error {
	auth, err := a.authenticator()
	if err != nil {
		return err
	}
	deps := api.Deps{
		Repos:   a.repos,
		Builder: a.builder,
		Auth:    auth,
		Changes: a.changes,
		Log:     log.New(),
		Health:  a.store.Ping,
	}
	if a.redis != nil {
		deps.Deduper = api.NewRedisDeduper(a.redis, a.cfg.Store.Prefix, a.cfg.Store.DeduperTTL)
	}
	if a.cfg.Notify.Mode == "redis" {
		go storage.SubscribeChanges(ctx, a.redis, a.cfg.Notify.Channel, a.changes.Publish)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
	}))
	api.Register(e, deps)

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", a.cfg.ListenAddr).Info("listening")
		errCh <- e.Start(a.cfg.ListenAddr)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
