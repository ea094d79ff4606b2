// Package table implements a sortable, pageable and downloadable report grid
// backed by a SQL query. Display mode renders HTML, download mode writes a flat
// export of the same rows.
package table

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

// Request parameters understood by every table.
const (
	ParamSort     = "tsort"
	ParamDir      = "tdir"
	ParamPage     = "page"
	ParamPerPage  = "perpage"
	ParamDownload = "download"
	ParamHide     = "thide"
)

const maxPerPage = 1000

var (
	ErrUnknownFormat = errors.New("unknown download format")
	ErrNoColumns     = errors.New("table has no columns")
)

type (
	SortDirection int
	Position      int

	// ColumnFormatter turns a row into the cell content for one column. In
	// display mode the result is trusted HTML.
	ColumnFormatter func(row Row) string

	// Querier is satisfied by *sql.DB and *sql.Tx.
	Querier interface {
		QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
		QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	}

	// SQL is the query behind a table: SELECT Fields FROM From WHERE Where.
	SQL struct {
		Fields string
		From   string
		Where  string
		Params []any
	}
)

const (
	SortAsc SortDirection = iota
	SortDesc
)

const (
	PositionTop Position = iota
	PositionBottom
)

func (d SortDirection) String() string {
	if d == SortDesc {
		return "DESC"
	}

	return "ASC"
}

func (d SortDirection) param() string {
	return strings.ToLower(d.String())
}

func (d SortDirection) toggle() SortDirection {
	if d == SortDesc {
		return SortAsc
	}

	return SortDesc
}

type attribute struct {
	name  string
	value string
}

type requestState struct {
	sortColumn string
	sortDir    SortDirection
	hasDir     bool
	page       int
	perPage    int
	download   string
	hidden     []string
}

type SQLTable struct {
	uniqueID     string
	db           Querier
	state        requestState
	columns      []string
	headers      []string
	formatters   map[string]ColumnFormatter
	baseURL      *url.URL
	attributes   []attribute
	sortable     bool
	defaultSort  string
	defaultDir   SortDirection
	collapsible  bool
	downloadable bool
	downloadAt   []Position
	sql          SQL
	totalRows    int
	pageSize     int
	currentPage  int
}

// New creates a table reading its sort, paging and download state from r.
// A nil request means default state.
func New(uniqueID string, db Querier, r *http.Request) *SQLTable {
	t := &SQLTable{
		uniqueID:   uniqueID,
		db:         db,
		formatters: make(map[string]ColumnFormatter),
		downloadAt: []Position{PositionTop},
	}

	if r != nil {
		t.state = parseState(r.URL.Query())
	}

	return t
}

func parseState(q url.Values) requestState {
	s := requestState{
		sortColumn: strings.TrimSpace(q.Get(ParamSort)),
		download:   strings.ToLower(strings.TrimSpace(q.Get(ParamDownload))),
	}

	switch strings.ToLower(q.Get(ParamDir)) {
	case "asc":
		s.sortDir, s.hasDir = SortAsc, true
	case "desc":
		s.sortDir, s.hasDir = SortDesc, true
	}

	if page, err := strconv.Atoi(q.Get(ParamPage)); err == nil && page > 0 {
		s.page = page
	}
	if perPage, err := strconv.Atoi(q.Get(ParamPerPage)); err == nil && perPage > 0 {
		s.perPage = min(perPage, maxPerPage)
	}

	for _, col := range strings.Split(q.Get(ParamHide), ",") {
		if col = strings.TrimSpace(col); col != "" && !slices.Contains(s.hidden, col) {
			s.hidden = append(s.hidden, col)
		}
	}

	return s
}

func (t *SQLTable) UniqueID() string {
	return t.uniqueID
}

func (t *SQLTable) DefineColumns(columns []string) {
	t.columns = slices.Clone(columns)
}

func (t *SQLTable) DefineHeaders(headers []string) {
	t.headers = slices.Clone(headers)
}

func (t *SQLTable) DefineBaseURL(u *url.URL) {
	if u == nil {
		t.baseURL = nil
		return
	}

	clone := *u
	t.baseURL = &clone
}

func (t *SQLTable) SetAttribute(name, value string) {
	for i := range t.attributes {
		if t.attributes[i].name == name {
			t.attributes[i].value = value
			return
		}
	}

	t.attributes = append(t.attributes, attribute{name: name, value: value})
}

func (t *SQLTable) Sortable(enabled bool, defaultColumn string, dir SortDirection) {
	t.sortable = enabled
	t.defaultSort = defaultColumn
	t.defaultDir = dir
}

func (t *SQLTable) Collapsible(enabled bool) {
	t.collapsible = enabled
}

func (t *SQLTable) IsDownloadable(enabled bool) {
	t.downloadable = enabled
}

func (t *SQLTable) ShowDownloadButtonsAt(positions ...Position) {
	t.downloadAt = slices.Clone(positions)
}

func (t *SQLTable) SetSQL(q SQL) {
	t.sql = q
}

func (t *SQLTable) SetColumnFormatter(column string, f ColumnFormatter) {
	t.formatters[column] = f
}

// IsDownloading reports whether the current request asks for an export.
func (t *SQLTable) IsDownloading() bool {
	return t.downloadable && t.state.download != ""
}

// DownloadFormat is the requested export format, empty in display mode.
func (t *SQLTable) DownloadFormat() string {
	if !t.IsDownloading() {
		return ""
	}

	return t.state.download
}

// TotalRows is the row total the last output reported.
func (t *SQLTable) TotalRows() int {
	return t.totalRows
}

// Sort returns the effective sort column and direction.
func (t *SQLTable) Sort() (string, SortDirection) {
	if !t.sortable {
		return "", SortAsc
	}

	column := t.defaultSort
	dir := t.defaultDir
	if t.state.sortColumn != "" && slices.Contains(t.columns, t.state.sortColumn) {
		column = t.state.sortColumn
	}
	if t.state.hasDir {
		dir = t.state.sortDir
	}

	return column, dir
}

func (t *SQLTable) isHidden(column string) bool {
	return t.collapsible && slices.Contains(t.state.hidden, column)
}

func (t *SQLTable) header(i int) string {
	if i < len(t.headers) {
		return t.headers[i]
	}

	return t.columns[i]
}

func (t *SQLTable) cell(column string, row Row) string {
	if f, ok := t.formatters[column]; ok {
		return f(row)
	}

	value, _ := row.String(column)
	return value
}
