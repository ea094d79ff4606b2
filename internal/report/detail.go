package report

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/nadmax/lockstats/internal/repository"
	"github.com/nadmax/lockstats/internal/table"
)

const DetailTablePrefix = "tool_lockstats_detail"

// detailFields replaces the raw duration with the per-lock hold time so that
// ordering by duration matches the displayed value.
const detailFields = "id, taskid, classname, COALESCE(duration / NULLIF(lockcount, 0), duration) AS duration, lockcount, released"

// DetailReport lists the raw history rows of one task.
type DetailReport struct {
	grid     Grid
	store    Store
	taskID   int64
	uniqueID string
}

func NewDetailReport(newGrid GridFactory, store Store, baseURL *url.URL, taskID int64, id string) *DetailReport {
	uniqueID := tableID(DetailTablePrefix, id)
	r := &DetailReport{
		grid:     newGrid(uniqueID),
		store:    store,
		taskID:   taskID,
		uniqueID: uniqueID,
	}

	defineColumns(r.grid, []column{
		{name: "released", header: "Released"},
		{name: "duration", header: "duration"},
		{name: "lockcount", header: "Lock count"},
	})
	adminTable(r.grid, baseURL)

	r.grid.Sortable(true, "duration", table.SortDesc)
	r.grid.Collapsible(false)
	r.grid.IsDownloadable(true)
	r.grid.ShowDownloadButtonsAt(table.PositionBottom)

	r.grid.SetSQL(table.SQL{
		Fields: detailFields,
		From:   repository.HistoryTable,
		Where:  "taskid = $1",
		Params: []any{taskID},
	})
	r.grid.SetColumnFormatter("duration", r.colDuration)
	r.grid.SetColumnFormatter("released", r.colReleased)

	return r
}

func (r *DetailReport) UniqueID() string {
	return r.uniqueID
}

func (r *DetailReport) IsDownloading() bool {
	return r.grid.IsDownloading()
}

func (r *DetailReport) Render(ctx context.Context, w io.Writer, pageSize int) error {
	return r.grid.Out(ctx, w, pageSize, true)
}

// Download exports every history row of the task.
func (r *DetailReport) Download(ctx context.Context, w io.Writer) error {
	if err := r.grid.ValidateDownload(); err != nil {
		return err
	}

	total, err := r.store.CountTaskRecords(ctx, r.taskID)
	if err != nil {
		return err
	}

	return r.grid.Out(ctx, w, total, false)
}

// colDuration formats the per-lock duration computed by the query.
func (r *DetailReport) colDuration(row table.Row) string {
	duration, ok := row.Float("duration")
	return formatSeconds(duration, ok, r.grid.IsDownloading())
}

func (r *DetailReport) colReleased(row table.Row) string {
	released, ok := row.Float("released")
	if !ok {
		return ""
	}

	t := time.Unix(int64(released), 0).UTC()
	if r.grid.IsDownloading() {
		return t.Format(time.RFC3339)
	}

	return t.Format("2 January 2006, 15:04:05")
}
