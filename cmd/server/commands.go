package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinema-ticketing/internal/config"
	"github.com/iliyamo/cinema-ticketing/internal/database"
	"github.com/iliyamo/cinema-ticketing/internal/handler"
	"github.com/iliyamo/cinema-ticketing/internal/logger"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
	"github.com/iliyamo/cinema-ticketing/internal/router"
	"github.com/iliyamo/cinema-ticketing/internal/service"
	"github.com/iliyamo/cinema-ticketing/internal/worker"
)

type options struct {
	migrate bool
	consume bool
	logDir  string
}

func newRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "cinema",
		Short:         "Cinema ticketing API: seat maps, pricing, bookings and sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.logDir, "log-dir", "logs", "directory for the booking event log")
	cmd.AddCommand(
		newServeCommand(opts),
		newMigrateCommand(),
		newSweepCommand(),
		newConsumeCommand(opts),
		newFlushPriceCacheCommand(),
	)
	return cmd
}

func newServeCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the session sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.migrate, "migrate", false, "apply the schema before serving")
	cmd.Flags().BoolVar(&opts.consume, "consume", false, "also run the booking event consumer")
	return cmd
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := setup()
			db, err := database.Open(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			logger.Get().Info("schema up to date")
			return nil
		},
	}
}

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep-sessions",
		Short: "Deactivate expired sessions once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := setup()
			db, err := database.Open(cfg)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()
			store := service.NewSessionStore(repository.NewSessionRepo(db), cfg.SessionTTL, cfg.StorageTimeout)
			n, err := store.SweepExpired(cmd.Context())
			if err != nil {
				return err
			}
			logger.Get().Info("expired sessions deactivated", "count", n)
			return nil
		},
	}
}

func newConsumeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Append booking confirmation events to the booking log",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := setup()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			c := &queue.Consumer{URL: cfg.RabbitURL, LogDir: opts.logDir}
			return c.Run(ctx)
		},
	}
}

func newFlushPriceCacheCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "flush-price-cache",
		Short: "Drop the cached age price rules after editing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			setup()
			rdb := config.NewRedisClient()
			if rdb == nil {
				return errors.New("redis is not reachable")
			}
			defer rdb.Close()
			pc := config.LoadPricingCacheConfig()
			cache, ok := service.NewCachedRuleSource(nil, rdb, pc.Key, pc.TTL).(*service.CachedRuleSource)
			if !ok {
				return errors.New("price cache is disabled")
			}
			if err := cache.Invalidate(cmd.Context()); err != nil {
				return err
			}
			logger.Get().Info("price rule cache flushed", "key", pc.Key)
			return nil
		},
	}
}

// setup loads configuration and initialises the default logger.
func setup() config.Config {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	return cfg
}

func serve(parent context.Context, opts *options) error {
	cfg := setup()
	log := logger.Get()

	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if opts.migrate {
		if err := database.Migrate(parent, db); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; rate limiting and price rule cache disabled")
	} else {
		defer rdb.Close()
	}

	publisher := queue.NewPublisher(cfg.RabbitURL)
	defer publisher.Close()

	sessions, e := build(cfg, db, rdb, publisher)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "port", cfg.Port, "env", cfg.Env)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		sw := &worker.Sweeper{Sessions: sessions, Interval: cfg.SessionSweepInterval}
		return sw.Run(ctx)
	})
	if opts.consume {
		g.Go(func() error {
			c := &queue.Consumer{URL: cfg.RabbitURL, LogDir: opts.logDir}
			return c.Run(ctx)
		})
	}
	err = g.Wait()
	log.Info("server stopped")
	return err
}

// build wires repositories, services, handlers and routes.
func build(cfg config.Config, db *sql.DB, rdb *redis.Client, events service.EventPublisher) (*service.SessionStore, *echo.Echo) {
	timeout := cfg.StorageTimeout
	loc := cfg.Location()

	seatRepo := repository.NewSeatRepo(db)
	sessions := service.NewSessionStore(repository.NewSessionRepo(db), cfg.SessionTTL, timeout)
	accounts := service.NewAccountService(repository.NewAccountRepo(db), cfg.BcryptCost, timeout)

	pc := config.LoadPricingCacheConfig()
	var rules service.RuleSource = repository.NewPriceRuleRepo(db)
	if pc.Enabled {
		rules = service.NewCachedRuleSource(rules, rdb, pc.Key, pc.TTL)
	}
	pricing := service.NewPricingEngine(rules, cfg.PricingFallbackLabel, timeout)
	gate := service.NewShowingGate(repository.NewShowingRepo(db), loc)
	seats := service.NewSeatAvailability(db, seatRepo, gate, timeout)
	bookings := service.NewBookingOrchestrator(db, gate, seatRepo, repository.NewBookingRepo(db), pricing, events, timeout)

	e := router.New(router.Deps{
		DB:        db,
		Auth:      handler.NewAuthHandler(accounts, sessions),
		Bookings:  handler.NewBookingHandler(seats, bookings, cfg.ReceiptSecret, cfg.ReceiptTTL),
		Sessions:  sessions,
		RateLimit: config.LoadRateLimitConfig(),
		Redis:     rdb,
	})
	return sessions, e
}
