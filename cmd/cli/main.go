package main

import (
	"fmt"
	"os"

	"github.com/nadmax/lockstats/internal/repository"
	"github.com/nadmax/lockstats/internal/settings"
	"github.com/spf13/cobra"
)

type (
	historyRepository interface {
		repository.LockHistoryRepository
		Migrate() error
	}

	settingsStore interface {
		settings.Store
		Close() error
	}

	// backends opens the stores a command needs. Tests replace it.
	backends struct {
		openRepo     func(dsn string) (historyRepository, error)
		openSettings func(addr string) (settingsStore, error)
	}
)

func defaultBackends() backends {
	return backends{
		openRepo: func(dsn string) (historyRepository, error) {
			repo, err := repository.NewPostgresLockHistoryRepository(dsn)
			if err != nil {
				return nil, err
			}
			return repo, nil
		},
		openSettings: func(addr string) (settingsStore, error) {
			store, err := settings.NewRedisStore(addr)
			if err != nil {
				return nil, err
			}
			return store, nil
		},
	}
}

func newRootCmd(b backends) *cobra.Command {
	root := &cobra.Command{
		Use:           "lockstats",
		Short:         "Lock statistics reports for scheduled tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newExportCmd(b))
	root.AddCommand(newMigrateCmd(b))

	return root
}

func main() {
	if err := newRootCmd(defaultBackends()).Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
