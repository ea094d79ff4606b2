package table

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	countQuery  = "SELECT COUNT(1) FROM lock_history WHERE lockcount > $1"
	selectQuery = "SELECT * FROM lock_history WHERE lockcount > $1"
)

func setupTestTable(t *testing.T, rawQuery string) (*SQLTable, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	req := httptest.NewRequest(http.MethodGet, "/admin/tool/lockstats/index.php?"+rawQuery, nil)
	base, err := url.Parse("/admin/tool/lockstats/index.php")
	require.NoError(t, err)

	tbl := New("report1", db, req)
	tbl.DefineColumns([]string{"duration", "classname"})
	tbl.DefineHeaders([]string{"duration", "Name"})
	tbl.DefineBaseURL(base)
	tbl.SetAttribute("class", "generaltable")
	tbl.SetAttribute("cellspacing", "0")
	tbl.Sortable(true, "duration", SortDesc)
	tbl.IsDownloadable(true)
	tbl.ShowDownloadButtonsAt(PositionBottom)
	tbl.SetSQL(SQL{
		Fields: "*",
		From:   "lock_history",
		Where:  "lockcount > $1",
		Params: []any{int64(0)},
	})

	return tbl, mock
}

func historyRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "taskid", "classname", "duration"}).
		AddRow(int64(7), int64(42), "tool_lockstats\\task\\cleanup_task", "2.5000").
		AddRow(int64(9), int64(43), "core\\task\\send_<mail>", nil)
}

func expectCount(mock sqlmock.Sqlmock, total int) {
	mock.ExpectQuery(regexp.QuoteMeta(countQuery)).
		WithArgs(int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(total))
}

func TestParseState(t *testing.T) {
	s := parseState(url.Values{
		ParamSort:     {" classname "},
		ParamDir:      {"DESC"},
		ParamPage:     {"3"},
		ParamPerPage:  {"5000"},
		ParamDownload: {"CSV"},
		ParamHide:     {"duration,,duration,classname"},
	})

	assert.Equal(t, "classname", s.sortColumn)
	assert.True(t, s.hasDir)
	assert.Equal(t, SortDesc, s.sortDir)
	assert.Equal(t, 3, s.page)
	assert.Equal(t, maxPerPage, s.perPage)
	assert.Equal(t, "csv", s.download)
	assert.Equal(t, []string{"duration", "classname"}, s.hidden)

	s = parseState(url.Values{ParamPage: {"-1"}, ParamDir: {"sideways"}})
	assert.Zero(t, s.page)
	assert.False(t, s.hasDir)
}

func TestSort(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		column    string
		direction SortDirection
	}{
		{name: "default sort", query: "", column: "duration", direction: SortDesc},
		{name: "requested column keeps default direction", query: "tsort=duration", column: "duration", direction: SortDesc},
		{name: "requested column and direction", query: "tsort=classname&tdir=asc", column: "classname", direction: SortAsc},
		{name: "unknown column falls back", query: "tsort=taskid", column: "duration", direction: SortDesc},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, _ := setupTestTable(t, tt.query)
			column, dir := tbl.Sort()
			assert.Equal(t, tt.column, column)
			assert.Equal(t, tt.direction, dir)
		})
	}

	t.Run("not sortable", func(t *testing.T) {
		tbl, _ := setupTestTable(t, "tsort=classname")
		tbl.Sortable(false, "", SortAsc)
		column, _ := tbl.Sort()
		assert.Empty(t, column)
		assert.NotContains(t, tbl.selectQuery(0, 0), "ORDER BY")
	})
}

func TestOut_Display(t *testing.T) {
	tbl, mock := setupTestTable(t, "")
	tbl.SetColumnFormatter("classname", func(row Row) string {
		name, _ := row.String("classname")
		return "<em>" + name + "</em>"
	})

	expectCount(mock, 2)
	mock.ExpectQuery(regexp.QuoteMeta(selectQuery + " ORDER BY duration DESC LIMIT 30 OFFSET 0")).
		WithArgs(int64(0)).
		WillReturnRows(historyRows())

	var buf bytes.Buffer
	require.NoError(t, tbl.Out(context.Background(), &buf, 30, true))
	assert.NoError(t, mock.ExpectationsWereMet())

	out := buf.String()
	assert.False(t, tbl.IsDownloading())
	assert.Equal(t, 2, tbl.TotalRows())
	assert.Contains(t, out, `<table id="report1" class="generaltable" cellspacing="0">`)
	assert.Contains(t, out, `<a href="/admin/tool/lockstats/index.php?tdir=asc&amp;tsort=duration">duration</a><span class="sort-desc">▼</span>`)
	assert.Contains(t, out, `<a href="/admin/tool/lockstats/index.php?tdir=asc&amp;tsort=classname">Name</a>`)
	assert.Contains(t, out, `<td class="cell c0">2.5000</td>`)
	assert.Contains(t, out, `<em>tool_lockstats\task\cleanup_task</em>`)
	assert.Contains(t, out, `<td class="cell c0"></td>`, "NULL renders as an empty cell")
	assert.NotContains(t, out, `class="pagination"`)
	assert.NotContains(t, out, "Hide")

	assert.Equal(t, 1, strings.Count(out, `class="table-download"`))
	assert.Greater(t, strings.Index(out, `class="table-download"`), strings.Index(out, "</table>"))
	assert.Contains(t, out, `<option value="csv">`)
}

func TestOut_DisplayEscapesUnformattedCells(t *testing.T) {
	tbl, mock := setupTestTable(t, "")

	expectCount(mock, 2)
	mock.ExpectQuery(regexp.QuoteMeta(selectQuery + " ORDER BY duration DESC LIMIT 30 OFFSET 0")).
		WillReturnRows(historyRows())

	var buf bytes.Buffer
	require.NoError(t, tbl.Out(context.Background(), &buf, 30, true))
	assert.Contains(t, buf.String(), "send_&lt;mail&gt;")
	assert.NotContains(t, buf.String(), "send_<mail>")
}

func TestOut_Pagination(t *testing.T) {
	t.Run("second page", func(t *testing.T) {
		tbl, mock := setupTestTable(t, "page=1&perpage=20&tsort=classname&tdir=asc")

		expectCount(mock, 45)
		mock.ExpectQuery(regexp.QuoteMeta(selectQuery + " ORDER BY classname ASC LIMIT 20 OFFSET 20")).
			WillReturnRows(historyRows())

		var buf bytes.Buffer
		require.NoError(t, tbl.Out(context.Background(), &buf, 30, true))
		assert.NoError(t, mock.ExpectationsWereMet())

		out := buf.String()
		assert.Contains(t, out, `<nav class="pagination">`)
		assert.Contains(t, out, `<li class="active"><span>2</span></li>`)
		assert.Contains(t, out, `class="previous"`)
		assert.Contains(t, out, `page=2`)
		assert.Contains(t, out, `class="next"`)
	})

	t.Run("direction without column survives paging", func(t *testing.T) {
		tbl, mock := setupTestTable(t, "tdir=asc")

		expectCount(mock, 5)
		mock.ExpectQuery(regexp.QuoteMeta(selectQuery + " ORDER BY duration ASC LIMIT 2 OFFSET 0")).
			WillReturnRows(historyRows())

		var buf bytes.Buffer
		require.NoError(t, tbl.Out(context.Background(), &buf, 2, true))
		assert.NoError(t, mock.ExpectationsWereMet())

		assert.Equal(t, "/admin/tool/lockstats/index.php?page=1&tdir=asc", tbl.pageLink(1))
		assert.Contains(t, buf.String(), `href="/admin/tool/lockstats/index.php?page=1&amp;tdir=asc"`)
		assert.NotContains(t, tbl.pageLink(1), ParamSort+"=")
	})

	t.Run("page past the end is clamped", func(t *testing.T) {
		tbl, mock := setupTestTable(t, "page=9")

		expectCount(mock, 45)
		mock.ExpectQuery(regexp.QuoteMeta(selectQuery + " ORDER BY duration DESC LIMIT 30 OFFSET 30")).
			WillReturnRows(historyRows())

		var buf bytes.Buffer
		require.NoError(t, tbl.Out(context.Background(), &buf, 30, true))
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.NotContains(t, buf.String(), `class="next"`)
	})

	t.Run("no pagination fetches everything", func(t *testing.T) {
		tbl, mock := setupTestTable(t, "page=1")

		expectCount(mock, 45)
		mock.ExpectQuery(regexp.QuoteMeta(selectQuery + " ORDER BY duration DESC")).
			WillReturnRows(historyRows())

		var buf bytes.Buffer
		require.NoError(t, tbl.Out(context.Background(), &buf, 30, false))
		assert.NoError(t, mock.ExpectationsWereMet())
		assert.NotContains(t, buf.String(), "pagination")
	})
}

func TestOut_Empty(t *testing.T) {
	tbl, mock := setupTestTable(t, "")

	expectCount(mock, 0)
	mock.ExpectQuery(regexp.QuoteMeta(selectQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "taskid", "classname", "duration"}))

	var buf bytes.Buffer
	require.NoError(t, tbl.Out(context.Background(), &buf, 30, true))
	assert.Contains(t, buf.String(), "Nothing to display")
	assert.NotContains(t, buf.String(), "<table")
}

func TestOut_DownloadCSV(t *testing.T) {
	tbl, mock := setupTestTable(t, "download=csv")
	tbl.SetColumnFormatter("classname", func(row Row) string {
		taskID, _ := row.String("taskid")
		return taskID
	})

	mock.ExpectQuery(regexp.QuoteMeta(selectQuery + " ORDER BY duration DESC")).
		WithArgs(int64(0)).
		WillReturnRows(historyRows())

	w := httptest.NewRecorder()
	require.NoError(t, tbl.Out(context.Background(), w, 1000, false))
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.True(t, tbl.IsDownloading())
	assert.Equal(t, "csv", tbl.DownloadFormat())
	assert.Equal(t, 1000, tbl.TotalRows())
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report1.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "1000", w.Header().Get("X-Total-Count"))

	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"duration", "Name"},
		{"2.5000", "42"},
		{"", "43"},
	}, records)
}

func TestOut_DownloadJSON(t *testing.T) {
	tbl, mock := setupTestTable(t, "download=json")

	mock.ExpectQuery(regexp.QuoteMeta(selectQuery + " ORDER BY duration DESC")).
		WillReturnRows(historyRows())

	var buf bytes.Buffer
	require.NoError(t, tbl.Out(context.Background(), &buf, 12, false))

	var payload struct {
		Total   int                 `json:"total"`
		Columns []string            `json:"columns"`
		Headers []string            `json:"headers"`
		Rows    []map[string]string `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	assert.Equal(t, 12, payload.Total)
	assert.Equal(t, []string{"duration", "classname"}, payload.Columns)
	assert.Equal(t, []string{"duration", "Name"}, payload.Headers)
	require.Len(t, payload.Rows, 2)
	assert.Equal(t, "2.5000", payload.Rows[0]["duration"])
}

func TestOut_UnknownFormat(t *testing.T) {
	tbl, mock := setupTestTable(t, "download=xlsx")

	err := tbl.Out(context.Background(), &bytes.Buffer{}, 10, false)
	assert.ErrorIs(t, err, ErrUnknownFormat)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateDownload(t *testing.T) {
	tests := []struct {
		name     string
		rawQuery string
		wantErr  bool
	}{
		{name: "display request", rawQuery: ""},
		{name: "csv", rawQuery: "download=csv"},
		{name: "json", rawQuery: "download=JSON"},
		{name: "unknown format", rawQuery: "download=xls", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, mock := setupTestTable(t, tt.rawQuery)

			err := tbl.ValidateDownload()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownFormat)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestOut_NotDownloadableIgnoresDownload(t *testing.T) {
	tbl, mock := setupTestTable(t, "download=csv")
	tbl.IsDownloadable(false)

	expectCount(mock, 2)
	mock.ExpectQuery(regexp.QuoteMeta(selectQuery + " ORDER BY duration DESC LIMIT 30 OFFSET 0")).
		WillReturnRows(historyRows())

	var buf bytes.Buffer
	require.NoError(t, tbl.Out(context.Background(), &buf, 30, true))
	assert.False(t, tbl.IsDownloading())
	assert.Contains(t, buf.String(), "<table")
	assert.NotContains(t, buf.String(), "table-download")
}

func TestOut_QueryErrors(t *testing.T) {
	t.Run("count fails", func(t *testing.T) {
		tbl, mock := setupTestTable(t, "")
		mock.ExpectQuery(regexp.QuoteMeta(countQuery)).WillReturnError(errors.New("relation does not exist"))

		err := tbl.Out(context.Background(), &bytes.Buffer{}, 30, true)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to count table rows")
	})

	t.Run("select fails", func(t *testing.T) {
		tbl, mock := setupTestTable(t, "download=csv")
		mock.ExpectQuery(regexp.QuoteMeta(selectQuery)).WillReturnError(errors.New("bad threshold"))

		err := tbl.Out(context.Background(), &bytes.Buffer{}, 30, false)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to query table rows")
	})

	t.Run("no columns", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer func() { _ = db.Close() }()

		err = New("empty", db, nil).Out(context.Background(), &bytes.Buffer{}, 30, true)
		assert.ErrorIs(t, err, ErrNoColumns)
	})
}

func TestOut_Collapsible(t *testing.T) {
	tbl, mock := setupTestTable(t, "thide=classname")
	tbl.Collapsible(true)

	expectCount(mock, 2)
	mock.ExpectQuery(regexp.QuoteMeta(selectQuery)).WillReturnRows(historyRows())

	var buf bytes.Buffer
	require.NoError(t, tbl.Out(context.Background(), &buf, 30, true))

	out := buf.String()
	assert.Contains(t, out, `<a href="/admin/tool/lockstats/index.php" class="show-column">Show Name</a>`)
	assert.Contains(t, out, `class="hide-column"`)
	assert.NotContains(t, out, "cleanup_task")
}

func TestSetAttributeOverwrites(t *testing.T) {
	tbl := New("t", nil, nil)
	tbl.SetAttribute("class", "a")
	tbl.SetAttribute("class", "b")

	require.Len(t, tbl.attributes, 1)
	assert.Equal(t, "b", tbl.attributes[0].value)
}
