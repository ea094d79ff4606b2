package table

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

type exporter struct {
	label       string
	extension   string
	contentType string
	write       func(w io.Writer, columns, headers []string, records [][]string, total int) error
}

var formatOrder = []string{"csv", "json"}

var exporters = map[string]exporter{
	"csv": {
		label:       "Comma separated values (.csv)",
		extension:   "csv",
		contentType: "text/csv; charset=utf-8",
		write:       writeCSV,
	},
	"json": {
		label:       "Javascript Object Notation (.json)",
		extension:   "json",
		contentType: "application/json",
		write:       writeJSON,
	},
}

// Out writes the table for the current request: an HTML table in display mode
// or an export in download mode. pageSize is the page length in display mode
// and the reported total in download mode.
func (t *SQLTable) Out(ctx context.Context, w io.Writer, pageSize int, paginate bool) error {
	if err := t.ValidateDownload(); err != nil {
		return err
	}

	rows, err := t.QueryDB(ctx, pageSize, paginate)
	if err != nil {
		return err
	}

	if t.IsDownloading() {
		return t.export(w, rows)
	}

	return t.renderHTML(w, rows, paginate)
}

// ValidateDownload returns ErrUnknownFormat when the request asks for an
// export format the table cannot write. Display requests are always valid.
func (t *SQLTable) ValidateDownload() error {
	if !t.IsDownloading() {
		return nil
	}
	if _, ok := exporters[t.state.download]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, t.state.download)
	}

	return nil
}

func (t *SQLTable) export(w io.Writer, rows []Row) error {
	exp := exporters[t.state.download]

	headers := make([]string, len(t.columns))
	for i := range t.columns {
		headers[i] = t.header(i)
	}

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		record := make([]string, len(t.columns))
		for i, column := range t.columns {
			record[i] = t.cell(column, row)
		}
		records = append(records, record)
	}

	if rw, ok := w.(http.ResponseWriter); ok {
		h := rw.Header()
		h.Set("Content-Type", exp.contentType)
		h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", t.uniqueID+"."+exp.extension))
		h.Set("X-Total-Count", strconv.Itoa(t.totalRows))
	}

	return exp.write(w, t.columns, headers, records, t.totalRows)
}

func writeCSV(w io.Writer, _, headers []string, records [][]string, _ int) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	return writer.WriteAll(records)
}

func writeJSON(w io.Writer, columns, headers []string, records [][]string, total int) error {
	rows := make([]map[string]string, 0, len(records))
	for _, record := range records {
		row := make(map[string]string, len(columns))
		for i, column := range columns {
			row[column] = record[i]
		}
		rows = append(rows, row)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]any{
		"total":   total,
		"columns": columns,
		"headers": headers,
		"rows":    rows,
	})
}
