// Package report builds the lock statistics admin reports on top of a
// sortable, downloadable grid.
package report

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/nadmax/lockstats/internal/table"
)

const (
	IndexPath  = "/admin/tool/lockstats/index.php"
	DetailPath = "/admin/tool/lockstats/detail.php"
)

var now = time.Now

type (
	// Grid is the table capability a report configures and renders through.
	Grid interface {
		DefineColumns(columns []string)
		DefineHeaders(headers []string)
		DefineBaseURL(u *url.URL)
		SetAttribute(name, value string)
		Sortable(enabled bool, defaultColumn string, dir table.SortDirection)
		Collapsible(enabled bool)
		IsDownloadable(enabled bool)
		ShowDownloadButtonsAt(positions ...table.Position)
		SetSQL(q table.SQL)
		SetColumnFormatter(column string, f table.ColumnFormatter)
		IsDownloading() bool
		ValidateDownload() error
		Out(ctx context.Context, w io.Writer, pageSize int, paginate bool) error
	}

	// GridFactory creates the grid for a report with the given unique id.
	GridFactory func(uniqueID string) Grid

	Store interface {
		CountRecords(ctx context.Context) (int, error)
		CountTaskRecords(ctx context.Context, taskID int64) (int, error)
	}

	column struct {
		name   string
		header string
	}
)

// tableID joins the report prefix with id, generating a random id when empty.
func tableID(prefix, id string) string {
	if id == "" {
		id = uuid.NewString()
	}

	return prefix + id
}

func defineColumns(grid Grid, columns []column) {
	names := make([]string, len(columns))
	headers := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.name
		headers[i] = c.header
	}

	grid.DefineColumns(names)
	grid.DefineHeaders(headers)
}

func adminTable(grid Grid, baseURL *url.URL) {
	grid.DefineBaseURL(baseURL)
	grid.SetAttribute("class", "generaltable admintable")
	grid.SetAttribute("cellspacing", "0")
}
