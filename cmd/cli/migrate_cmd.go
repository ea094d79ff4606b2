package main

import (
	"fmt"
	"log"

	"github.com/nadmax/lockstats/internal/config"
	"github.com/spf13/cobra"
)

func newMigrateCmd(b backends) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the lock history schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			repo, err := b.openRepo(cfg.PostgresDSN)
			if err != nil {
				return err
			}
			defer func() {
				if err := repo.Close(); err != nil {
					log.Printf("failed to close lock history repository: %v", err)
				}
			}()

			if err := repo.Migrate(); err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Lock history schema is up to date")
			return nil
		},
	}
}
