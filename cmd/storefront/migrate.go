package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pmgasset/nomadtech/internal/catalog"
	"github.com/pmgasset/nomadtech/internal/repository"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply order database and catalog migrations, then exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}

			creds := postgresCredentials(cfg)
			repo, err := repository.NewRepository(cmd.Context(), creds)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer repo.Close()
			if err := repo.RunMigrations(creds); err != nil {
				return err
			}
			log.Info("order database migrations completed")

			products, err := catalog.NewRepository(cfg.Catalog.DBPath)
			if err != nil {
				return err
			}
			defer products.Close()
			if err := products.RunMigrations(cfg.Catalog.MigrationsPath); err != nil {
				return err
			}
			log.Info("catalog migrations completed", "path", cfg.Catalog.DBPath)
			return nil
		},
	}
}
