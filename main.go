package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/anime-warehouse/migrations"
	"github.com/ekaya-inc/anime-warehouse/pkg/config"
	"github.com/ekaya-inc/anime-warehouse/pkg/database"
	"github.com/ekaya-inc/anime-warehouse/pkg/logging"
	"github.com/ekaya-inc/anime-warehouse/pkg/services/pipeline"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:           "anime-warehouse",
	Short:         "Load the anime recommendation exports into a PostgreSQL warehouse",
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       Version,
	RunE:          runPipeline(nil),
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&configPath, "config", "config.yaml", "Path to the YAML configuration file")
	f.StringVar(&logLevel, "log-level", "", "Override log_level from the configuration")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "anime-warehouse: %s\n", logging.SanitizeError(err))
		stop()
		os.Exit(1)
	}
}

// app holds what every sub-command needs once configuration is loaded.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *database.DB
}

// setup loads configuration, builds the logger and connects to the warehouse.
// The returned cleanup closes the pool and flushes the logger.
func setup(ctx context.Context) (*app, func(), error) {
	cfg, err := config.Load(configPath, Version)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}

	connStr := cfg.Database.ConnectionString()
	logger.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", logging.SanitizeConnectionString(connStr)),
		zap.String("data_dir", cfg.Sources.DataDir))

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: cfg.Database.MaxConnections,
		ConnectRetries: cfg.Database.ConnectRetries,
	})
	if err != nil {
		_ = logger.Sync()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	cleanup := func() {
		db.Close()
		_ = logger.Sync()
	}
	return &app{cfg: cfg, logger: logger, db: db}, cleanup, nil
}

func (a *app) deps() *pipeline.Deps {
	return pipeline.NewDeps(a.cfg, a.db, a.db.URL(), migrations.FS, a.logger)
}
