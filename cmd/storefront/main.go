package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pmgasset/nomadtech/internal/config"
	"github.com/pmgasset/nomadtech/internal/logger"
	"github.com/pmgasset/nomadtech/internal/repository"
)

var version = "dev"

var configPath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "storefront",
		Short:         "NomadNet router and data plan storefront",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newEventsCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Service.Version == "dev" {
		cfg.Service.Version = version
	}
	log := logger.New(logger.Options{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.Service.Name,
		Version: cfg.Service.Version,
	})
	slog.SetDefault(log)
	return cfg, log, nil
}

func postgresCredentials(cfg *config.Config) *repository.Credentials {
	return &repository.Credentials{
		Host:              cfg.Database.Host,
		Port:              cfg.Database.Port,
		User:              cfg.Database.User,
		Password:          cfg.Database.Password,
		DBName:            cfg.Database.Name,
		SSLMode:           cfg.Database.SSLMode,
		MigrationsDirPath: cfg.Database.MigrationsPath,
	}
}
