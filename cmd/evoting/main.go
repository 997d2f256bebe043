package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/evoting/internal/config"
	"github.com/xxxsen/evoting/internal/db"
	"github.com/xxxsen/evoting/internal/repo"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:          "evoting",
		Short:        "evoting backend server",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	load := func() (*config.Config, error) {
		if configPath == "" {
			return nil, fmt.Errorf("--config is required")
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		logger.Init(
			cfg.LogConfig.File,
			cfg.LogConfig.Level,
			int(cfg.LogConfig.FileCount),
			int(cfg.LogConfig.FileSize),
			int(cfg.LogConfig.KeepDays),
			cfg.LogConfig.Console,
		)
		logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
		return cfg, nil
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "run evoting server",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := load()
				if err != nil {
					return err
				}
				store, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer store.Close()
				return runServer(cmd.Context(), cfg, store)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "apply database migrations and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := load()
				if err != nil {
					return err
				}
				store, err := openStore(cfg)
				if err != nil {
					return err
				}
				defer store.Close()
				logutil.GetLogger(cmd.Context()).Info("migrations applied", zap.String("driver", store.Driver()))
				return nil
			},
		},
		newAdminCmd(load),
		newCandidateCmd(load),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logutil.GetLogger(context.Background()).Fatal("command failed", zap.Error(err))
	}
}

func openStore(cfg *config.Config) (*repo.DB, error) {
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn, cfg.Database.Driver); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return repo.NewDB(conn, cfg.Database.Driver, cfg.Database.QueryTimeout()), nil
}
