package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gartstein/companies/internal/company/auth"
	"github.com/gartstein/companies/internal/company/blob"
	"github.com/gartstein/companies/internal/company/config"
	"github.com/gartstein/companies/internal/company/controller"
	"github.com/gartstein/companies/internal/company/db"
	"github.com/gartstein/companies/internal/company/events"
	"github.com/gartstein/companies/internal/company/handlers"
	"github.com/gartstein/companies/internal/company/imaging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const connectTimeout = 30 * time.Second

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:           "company",
		Short:         "Company directory service: REST and gRPC company CRUD with logo uploads",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cfgPath)
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultPath, "path to the YAML config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the gRPC and HTTP servers",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runServe(cmd.Context(), cfgPath)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the company and employee tables",
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runMigrate(cmd.Context(), cfgPath)
			},
		},
		newSeedCommand(&cfgPath),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newSeedCommand(cfgPath *string) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert fake companies for local development",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			cfg, logger, err := setup(*cfgPath)
			if err != nil {
				return err
			}
			defer syncLogger(logger)

			repo, err := connectDatabase(cmd.Context(), cfg.Database(), logger)
			if err != nil {
				return err
			}
			defer repo.Close()

			seeded, err := repo.SeedCompanies(cmd.Context(), count)
			if err != nil {
				return err
			}
			logger.Info("Seeded companies", zap.Int("count", len(seeded)))
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "number of companies to create")
	return cmd
}

func runMigrate(ctx context.Context, cfgPath string) error {
	cfg, logger, err := setup(cfgPath)
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	// NewRepository migrates on open.
	repo, err := connectDatabase(ctx, cfg.Database(), logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	logger.Info("Database migrated", zap.String("driver", cfg.DBDriver))
	return nil
}

func runServe(ctx context.Context, cfgPath string) error {
	cfg, logger, err := setup(cfgPath)
	if err != nil {
		return err
	}
	defer syncLogger(logger)

	repo, err := connectDatabase(ctx, cfg.Database(), logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	blobs, err := blob.NewLocalStore(cfg.StoragePath, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize logo storage: %w", err)
	}

	producer, closeProducer, err := newProducer(cfg, logger)
	if err != nil {
		return err
	}
	defer closeProducer()

	companySvc := controller.NewCompanyService(repo, blobs, imaging.NewThumbnailResizer(), producer, logger)

	authInterceptor := auth.NewAuthInterceptor(cfg.JWTSecret)
	server := handlers.NewServer(cfg.GRPCPort, cfg.HTTPPort, logger, grpc.UnaryInterceptor(authInterceptor.Unary()))
	server.RegisterGRPCHandler(handlers.NewCompanyHandler(companySvc, logger))

	httpHandler := handlers.NewHTTPHandler(companySvc, logger, cfg.MaxUploadBytes)
	if err := server.RegisterHTTPHandler(httpHandler, handlers.HTTPOptions{
		JWTSecret:          cfg.JWTSecret,
		RateLimitPerMinute: cfg.RateLimitRPM,
		CORSOrigins:        cfg.CORSOrigins,
	}); err != nil {
		return fmt.Errorf("failed to register HTTP routes: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	return waitForShutdown(ctx, server, errCh, logger)
}

// setup loads configuration and builds the process logger.
func setup(cfgPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// initLogger initializes a Zap production logger, or a development one at debug level.
func initLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}

	zcfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		zcfg.Level = lvl
	}
	return zcfg.Build()
}

func syncLogger(logger *zap.Logger) {
	_ = logger.Sync()
}

// connectDatabase retries until the database accepts connections or
// connectTimeout passes.
func connectDatabase(ctx context.Context, dbCfg *db.Config, logger *zap.Logger) (*db.Repository, error) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = connectTimeout

	var repo *db.Repository
	err := backoff.RetryNotify(func() error {
		var err error
		repo, err = db.NewRepository(dbCfg)
		return err
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		logger.Warn("Database not ready, retrying",
			zap.Error(err),
			zap.Duration("wait", wait),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return repo, nil
}

func newProducer(cfg *config.Config, logger *zap.Logger) (controller.EventProducer, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("No Kafka brokers configured, lifecycle events are discarded")
		return events.NopProducer{}, func() {}, nil
	}
	producer, err := events.NewProducer(cfg.KafkaBrokers, logger, cfg.Topic)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Kafka producer: %w", err)
	}
	return producer, producer.Close, nil
}

// waitForShutdown blocks until a signal arrives or a server fails, then stops both servers.
func waitForShutdown(ctx context.Context, server *handlers.Server, errCh <-chan error, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		server.Stop()
		logger.Info("Servers stopped properly")
		return <-errCh
	case err := <-errCh:
		server.Stop()
		return err
	}
}
