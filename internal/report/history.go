package report

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/nadmax/lockstats/internal/lockhistory"
	"github.com/nadmax/lockstats/internal/repository"
	"github.com/nadmax/lockstats/internal/settings"
	"github.com/nadmax/lockstats/internal/table"
)

const HistoryTablePrefix = "tool_lockstats_history"

// historyFrom keeps the worst per-lock average of each class over the window.
const historyFrom = `(
  SELECT max(id) id,
         max(taskid) taskid,
         classname,
         max(duration / lockcount) duration
    FROM ` + repository.HistoryTable + `
   WHERE duration > 0
     AND lockcount > 0
     AND (duration / lockcount) > $1
     AND released > $2
GROUP BY classname
) sub`

// HistoryReport lists the lock holding classes whose average hold time is
// above the configured threshold.
type HistoryReport struct {
	grid     Grid
	store    Store
	uniqueID string
}

// NewHistoryReport configures a grid for the history report. An empty id is
// replaced by a generated one.
func NewHistoryReport(ctx context.Context, newGrid GridFactory, store Store, cfg settings.Store, baseURL *url.URL, id string) (*HistoryReport, error) {
	threshold, err := settings.Threshold(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load threshold: %w", err)
	}

	uniqueID := tableID(HistoryTablePrefix, id)
	r := &HistoryReport{
		grid:     newGrid(uniqueID),
		store:    store,
		uniqueID: uniqueID,
	}

	defineColumns(r.grid, []column{
		{name: "duration", header: "duration"},
		{name: "classname", header: "Name"},
	})
	adminTable(r.grid, baseURL)

	r.grid.Sortable(true, "duration", table.SortDesc)
	r.grid.Collapsible(false)
	r.grid.IsDownloadable(true)
	r.grid.ShowDownloadButtonsAt(table.PositionBottom)

	r.grid.SetSQL(table.SQL{
		Fields: "*",
		From:   historyFrom,
		Where:  "1 = 1",
		Params: []any{threshold, lockhistory.ReleasedAfter(now())},
	})
	r.grid.SetColumnFormatter("duration", r.colDuration)
	r.grid.SetColumnFormatter("classname", r.colClassname)

	return r, nil
}

func (r *HistoryReport) UniqueID() string {
	return r.uniqueID
}

func (r *HistoryReport) IsDownloading() bool {
	return r.grid.IsDownloading()
}

// Render writes the report for the current request, pageSize rows at a time.
func (r *HistoryReport) Render(ctx context.Context, w io.Writer, pageSize int) error {
	return r.grid.Out(ctx, w, pageSize, true)
}

// Download exports the report. The reported total is the number of raw
// history rows, not the number of grouped rows exported.
func (r *HistoryReport) Download(ctx context.Context, w io.Writer) error {
	if err := r.grid.ValidateDownload(); err != nil {
		return err
	}

	total, err := r.store.CountRecords(ctx)
	if err != nil {
		return err
	}

	return r.grid.Out(ctx, w, total, false)
}

func (r *HistoryReport) colDuration(row table.Row) string {
	return formatDuration(row, r.grid.IsDownloading())
}

func (r *HistoryReport) colClassname(row table.Row) string {
	taskID, _ := row.String("taskid")
	if r.grid.IsDownloading() {
		return taskID
	}

	className, _ := row.String("classname")
	return ClassLink(taskID, className)
}
