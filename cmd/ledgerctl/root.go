package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"ledgerly/internal/backend"
	"ledgerly/internal/config"
	"ledgerly/internal/log"
)

// app is what every subcommand works against. It is opened lazily so that
// --help never touches the database.
type app struct {
	cfgFile string
	dbPath  string
	cfg     *config.Config
	logger  *log.Logger
	backend *backend.Backend
	cleanup backend.CleanupFunc
}

// execute runs ledgerctl with args and releases the backend afterwards,
// including when a command fails.
func execute(ctx context.Context, args []string) error {
	root, a := newRootCmd()
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Inspect and repair ledgerly wallets",
		Long:          `ledgerctl reads the ledgerly SQLite database directly. It lists wallets, audits balances against their transactions, reports stats and purges the transactions of deleted wallets.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&a.cfgFile, "config", "c", "", "YAML config file (keys match the environment variables, lower-cased)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "", "SQLite database path (overrides SQLITE_DB_PATH)")

	root.AddCommand(newWalletsCmd(a))
	root.AddCommand(newAuditCmd(a))
	root.AddCommand(newStatsCmd(a))
	root.AddCommand(newPurgeCmd(a))

	return root, a
}

func (a *app) open(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(a.cfgFile, a.dbPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger = log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    os.Stderr,
	})

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	if bcfg.Type != backend.SQLiteBackend {
		return fmt.Errorf("ledgerctl needs the sqlite backend, got %q", bcfg.Type)
	}
	// Purges run in-process and stats stay local regardless of how ledgerd runs.
	bcfg.CascadeMode = config.CascadeInline
	bcfg.AMQPURL = ""
	bcfg.StatsCache = config.StatsCacheMemory
	bcfg.UploadProvider = config.UploadNone

	res, err := backend.NewFactory(a.logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	a.backend = res.Backend
	a.cleanup = res.Cleanup
	return nil
}

func (a *app) close() error {
	if a.cleanup == nil {
		return nil
	}
	err := a.cleanup()
	a.cleanup = nil
	return err
}

// loadConfig layers an optional YAML file and the environment on top of
// config.Load. Environment variables win over the file and dbPath, when
// set, wins over both.
func loadConfig(cfgFile, dbPath string) (*config.Config, error) {
	base := config.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("data_backend", config.BackendSQLite)
	v.SetDefault("sqlite_db_path", base.SQLiteDBPath)
	v.SetDefault("cascade_batch_size", base.CascadeBatchSize)
	v.SetDefault("upload_folder_root", base.UploadFolderRoot)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", base.LogFormat)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) || os.IsNotExist(err) {
				return nil, fmt.Errorf("config file %s not found", cfgFile)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	if dbPath != "" {
		v.Set("sqlite_db_path", dbPath)
	}

	cfg := *base
	cfg.DataBackend = v.GetString("data_backend")
	cfg.SQLiteDBPath = v.GetString("sqlite_db_path")
	cfg.CascadeBatchSize = v.GetInt("cascade_batch_size")
	cfg.UploadFolderRoot = v.GetString("upload_folder_root")
	cfg.LogLevel = v.GetString("log_level")
	cfg.LogFormat = v.GetString("log_format")

	if cfg.SQLiteDBPath == "" {
		return nil, errors.New("sqlite database path is empty")
	}
	if _, err := os.Stat(cfg.SQLiteDBPath); err != nil {
		return nil, fmt.Errorf("database %s: %w", cfg.SQLiteDBPath, err)
	}
	return &cfg, nil
}
