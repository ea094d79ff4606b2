package table

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
)

func (t *SQLTable) where() string {
	if strings.TrimSpace(t.sql.Where) == "" {
		return "1 = 1"
	}

	return t.sql.Where
}

func (t *SQLTable) countQuery() string {
	return fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE %s", t.sql.From, t.where())
}

func (t *SQLTable) selectQuery(limit, offset int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE %s", t.sql.Fields, t.sql.From, t.where())

	if column, dir := t.Sort(); column != "" {
		fmt.Fprintf(&b, " ORDER BY %s %s", column, dir)
	}
	if limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d OFFSET %d", limit, offset)
	}

	return b.String()
}

// QueryDB fetches the rows for the current request. In display mode the
// matching rows are counted first and, when paginate is set, only the current
// page is fetched. In download mode pageSize is taken as the reported total
// and every row is fetched.
func (t *SQLTable) QueryDB(ctx context.Context, pageSize int, paginate bool) ([]Row, error) {
	if len(t.columns) == 0 {
		return nil, ErrNoColumns
	}

	limit, offset := 0, 0
	if t.IsDownloading() {
		t.totalRows = pageSize
		t.pageSize = 0
		t.currentPage = 0
	} else {
		if t.state.perPage > 0 {
			pageSize = t.state.perPage
		}

		var total int
		if err := t.db.QueryRowContext(ctx, t.countQuery(), t.sql.Params...).Scan(&total); err != nil {
			return nil, fmt.Errorf("failed to count table rows: %w", err)
		}

		t.totalRows = total
		t.pageSize = pageSize
		t.currentPage = t.state.page
		if paginate && pageSize > 0 {
			lastPage := max((total-1)/pageSize, 0)
			t.currentPage = min(t.currentPage, lastPage)
			limit, offset = pageSize, t.currentPage*pageSize
		}
	}

	rows, err := t.db.QueryContext(ctx, t.selectQuery(limit, offset), t.sql.Params...)
	if err != nil {
		return nil, fmt.Errorf("failed to query table rows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			log.Printf("failed to close rows: %v", err)
		}
	}()

	return scanRows(rows)
}

func scanRows(rows *sql.Rows) ([]Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []Row
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}

		row := make(Row, len(columns))
		for i, column := range columns {
			if b, ok := values[i].([]byte); ok {
				row[column] = string(b)
				continue
			}
			row[column] = values[i]
		}

		result = append(result, row)
	}

	return result, rows.Err()
}
