package main

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/nadmax/lockstats/internal/config"
	"github.com/nadmax/lockstats/internal/report"
	"github.com/nadmax/lockstats/internal/settings"
	"github.com/nadmax/lockstats/internal/table"
	"github.com/spf13/cobra"
)

func newExportCmd(b backends) *cobra.Command {
	var (
		format    string
		id        string
		threshold string
		taskID    int64
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the lock history report to stdout",
		Long: "Runs the history report download and writes it to stdout. With --task the " +
			"raw history of that task is exported instead.",
		Args: cobra.NoArgs,
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

			path := report.IndexPath
			q := url.Values{table.ParamDownload: {format}}
			if taskID > 0 {
				path = report.DetailPath
				q.Set("task", strconv.FormatInt(taskID, 10))
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, path+"?"+q.Encode(), nil)
			if err != nil {
				return fmt.Errorf("failed to build export request: %w", err)
			}

			newGrid := func(uniqueID string) report.Grid {
				return table.New(uniqueID, repo.DB(), req)
			}
			base := &url.URL{Path: path}

			if taskID > 0 {
				rep := report.NewDetailReport(newGrid, repo, base, taskID, id)
				return rep.Download(cmd.Context(), cmd.OutOrStdout())
			}

			store, closeStore, err := exportSettings(b, cfg, threshold)
			if err != nil {
				return err
			}
			defer closeStore()

			rep, err := report.NewHistoryReport(cmd.Context(), newGrid, repo, store, base, id)
			if err != nil {
				return err
			}

			return rep.Download(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "Export format (csv or json)")
	cmd.Flags().StringVar(&id, "id", "", "Table id suffix, generated when empty")
	cmd.Flags().StringVar(&threshold, "threshold", "", "Threshold in seconds, overrides the stored setting")
	cmd.Flags().Int64Var(&taskID, "task", 0, "Export the raw history of one task")

	return cmd
}

// exportSettings returns the threshold source for an export: a fixed value
// when one was given on the command line, the Redis store otherwise.
func exportSettings(b backends, cfg *config.Config, threshold string) (settings.Store, func(), error) {
	if threshold != "" {
		if _, err := strconv.ParseFloat(threshold, 64); err != nil {
			return nil, nil, fmt.Errorf("invalid threshold %q: %w", threshold, err)
		}

		store := settings.NewStaticStore()
		store.Set(settings.Plugin, settings.ThresholdKey, threshold)
		return store, func() {}, nil
	}

	store, err := b.openSettings(cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}

	return store, func() {
		if err := store.Close(); err != nil {
			log.Printf("failed to close settings store: %v", err)
		}
	}, nil
}
