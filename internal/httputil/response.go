// Package httputil contains shared HTTP utilities for consistent response formatting across handlers.
package httputil

import (
	"encoding/json"
	"net/http"

	gomponents "maragu.dev/gomponents"
	html "maragu.dev/gomponents/html"
)

func WriteJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// WriteHTMLPage wraps an already rendered body fragment in an admin page.
func WriteHTMLPage(w http.ResponseWriter, status int, title, body string) {
	page := html.Doctype(
		html.HTML(
			html.Lang("en"),
			html.Head(
				html.Meta(html.Charset("utf-8")),
				html.TitleEl(gomponents.Text(title)),
			),
			html.Body(
				html.Class("path-admin-tool-lockstats"),
				html.Main(
					html.H2(gomponents.Text(title)),
					gomponents.Raw(body),
				),
			),
		),
	)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = page.Render(w)
}
