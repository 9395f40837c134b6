package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Kerhoff/hive/internal/config"
	"github.com/Kerhoff/hive/internal/identity"
	"github.com/Kerhoff/hive/internal/media"
	"github.com/Kerhoff/hive/internal/metrics"
	"github.com/Kerhoff/hive/internal/preview"
	"github.com/Kerhoff/hive/internal/repository/sqlite"
	"github.com/Kerhoff/hive/internal/service"
	"github.com/Kerhoff/hive/pkg/logger"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "hive",
		Short:         "The Hive family collaboration server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("db", "", "path of the SQLite database file (HIVE_DB_PATH)")
	flags.String("uploads", "", "directory for uploaded media (HIVE_UPLOAD_DIR)")
	flags.String("log-level", "", "log level: debug, info, warn, error (HIVE_LOG_LEVEL)")

	root.AddCommand(serveCommand(), migrateCommand(), resetCommand())
	return root
}

// app holds everything a command needs, built in startup order
type app struct {
	cfg     *config.Config
	log     *logrus.Logger
	db      *config.Database
	metrics *metrics.Metrics
	svc     *service.Service
}

// bootstrap loads configuration, opens and migrates the store, and wires
// the service. Any failure here is fatal to the command.
func bootstrap(flags *pflag.FlagSet) (*app, error) {
	cfg, err := config.Load(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l := logger.New(cfg.LogLevel, cfg.LogFormat)

	db, err := config.NewDatabase(cfg.DatabasePath, cfg.BusyTimeout, l)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		if m, err = metrics.New(); err != nil {
			db.Close()
			return nil, err
		}
	}

	blobs, err := media.NewBlobStore(cfg.UploadDir, l)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare upload dir: %w", err)
	}
	processor := media.NewProcessor(blobs, media.NewClassifier(),
		media.NewThumbnailer(cfg.FFmpegPath, l), cfg.MaxUploadBytes, m, l)

	store := sqlite.NewStore(db)
	svc := service.New(store,
		identity.NewResolver(store.Settings(), l),
		processor,
		preview.New(cfg.PreviewEnabled, cfg.PreviewTimeout, m, l),
		m, l,
		service.Options{PageSize: cfg.PageSize, AdminSecret: cfg.AdminSecret},
	)

	return &app{cfg: cfg, log: l, db: db, metrics: m, svc: svc}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close database")
	}
}
