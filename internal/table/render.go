package table

import (
	"io"
	"net/url"
	"slices"
	"strconv"
	"strings"

	gomponents "maragu.dev/gomponents"
	html "maragu.dev/gomponents/html"
)

// query returns the base URL parameters merged with the request state that
// has to survive navigation.
func (t *SQLTable) query() url.Values {
	q := url.Values{}
	if t.baseURL != nil {
		q = t.baseURL.Query()
	}

	if t.sortable {
		column, dir := t.Sort()
		if t.state.sortColumn != "" {
			q.Set(ParamSort, column)
		}
		if t.state.sortColumn != "" || t.state.hasDir {
			q.Set(ParamDir, dir.param())
		}
	}
	if t.state.perPage > 0 {
		q.Set(ParamPerPage, strconv.Itoa(t.state.perPage))
	}
	if t.collapsible && len(t.state.hidden) > 0 {
		q.Set(ParamHide, strings.Join(t.state.hidden, ","))
	}

	return q
}

func (t *SQLTable) link(q url.Values) string {
	u := url.URL{}
	if t.baseURL != nil {
		u = *t.baseURL
	}
	u.RawQuery = q.Encode()

	return u.String()
}

func (t *SQLTable) sortLink(column string) string {
	current, dir := t.Sort()
	next := SortAsc
	if column == current {
		next = dir.toggle()
	}

	q := t.query()
	q.Set(ParamSort, column)
	q.Set(ParamDir, next.param())
	q.Del(ParamPage)

	return t.link(q)
}

func (t *SQLTable) hideLink(column string, hide bool) string {
	hidden := slices.DeleteFunc(slices.Clone(t.state.hidden), func(c string) bool { return c == column })
	if hide {
		hidden = append(hidden, column)
	}

	q := t.query()
	q.Del(ParamPage)
	if len(hidden) == 0 {
		q.Del(ParamHide)
	} else {
		q.Set(ParamHide, strings.Join(hidden, ","))
	}

	return t.link(q)
}

func (t *SQLTable) pageLink(page int) string {
	q := t.query()
	if page > 0 {
		q.Set(ParamPage, strconv.Itoa(page))
	}

	return t.link(q)
}

func (t *SQLTable) renderHTML(w io.Writer, rows []Row, paginate bool) error {
	if len(rows) == 0 {
		return html.Div(
			html.ID(t.uniqueID+"_wrapper"),
			html.Class("no-results"),
			gomponents.Text("Nothing to display"),
		).Render(w)
	}

	nodes := make([]gomponents.Node, 0, 4)
	if t.downloadable && slices.Contains(t.downloadAt, PositionTop) {
		nodes = append(nodes, t.downloadForm())
	}

	nodes = append(nodes, t.tableNode(rows))

	if paginate {
		if bar := t.pagingBar(); bar != nil {
			nodes = append(nodes, bar)
		}
	}
	if t.downloadable && slices.Contains(t.downloadAt, PositionBottom) {
		nodes = append(nodes, t.downloadForm())
	}

	return html.Div(
		html.ID(t.uniqueID+"_wrapper"),
		html.Class("table-wrap"),
		gomponents.Group(nodes),
	).Render(w)
}

func (t *SQLTable) tableNode(rows []Row) gomponents.Node {
	attrs := make([]gomponents.Node, 0, len(t.attributes)+1)
	attrs = append(attrs, html.ID(t.uniqueID))
	for _, a := range t.attributes {
		attrs = append(attrs, gomponents.Attr(a.name, a.value))
	}

	headerCells := make([]gomponents.Node, 0, len(t.columns))
	for i, column := range t.columns {
		headerCells = append(headerCells, t.headerCell(i, column))
	}

	bodyRows := make([]gomponents.Node, 0, len(rows))
	for _, row := range rows {
		cells := make([]gomponents.Node, 0, len(t.columns))
		for i, column := range t.columns {
			class := html.Class("cell c" + strconv.Itoa(i))
			if t.isHidden(column) {
				cells = append(cells, html.Td(class))
				continue
			}
			cells = append(cells, html.Td(class, t.displayCell(column, row)))
		}
		bodyRows = append(bodyRows, html.Tr(gomponents.Group(cells)))
	}

	return html.Table(
		gomponents.Group(attrs),
		html.THead(html.Tr(gomponents.Group(headerCells))),
		html.TBody(gomponents.Group(bodyRows)),
	)
}

func (t *SQLTable) headerCell(i int, column string) gomponents.Node {
	class := html.Class("header c" + strconv.Itoa(i))
	label := t.header(i)

	if t.isHidden(column) {
		return html.Th(class,
			html.A(html.Href(t.hideLink(column, false)), html.Class("show-column"), gomponents.Text("Show "+label)),
		)
	}

	content := []gomponents.Node{gomponents.Text(label)}
	if t.sortable {
		content = []gomponents.Node{html.A(html.Href(t.sortLink(column)), gomponents.Text(label))}
		if current, dir := t.Sort(); current == column {
			arrow := "▲"
			if dir == SortDesc {
				arrow = "▼"
			}
			content = append(content, html.Span(html.Class("sort-"+dir.param()), gomponents.Text(arrow)))
		}
	}
	if t.collapsible {
		content = append(content,
			html.A(html.Href(t.hideLink(column, true)), html.Class("hide-column"), gomponents.Text("Hide")),
		)
	}

	return html.Th(class, gomponents.Group(content))
}

func (t *SQLTable) displayCell(column string, row Row) gomponents.Node {
	if f, ok := t.formatters[column]; ok {
		return gomponents.Raw(f(row))
	}

	value, _ := row.String(column)
	return gomponents.Text(value)
}

func (t *SQLTable) pagingBar() gomponents.Node {
	if t.pageSize <= 0 || t.totalRows <= t.pageSize {
		return nil
	}

	pages := (t.totalRows + t.pageSize - 1) / t.pageSize
	items := make([]gomponents.Node, 0, pages+2)

	if t.currentPage > 0 {
		items = append(items, html.Li(html.A(html.Href(t.pageLink(t.currentPage-1)), html.Class("previous"), gomponents.Text("Previous"))))
	}
	for page := range pages {
		label := gomponents.Text(strconv.Itoa(page + 1))
		if page == t.currentPage {
			items = append(items, html.Li(html.Class("active"), html.Span(label)))
			continue
		}
		items = append(items, html.Li(html.A(html.Href(t.pageLink(page)), label)))
	}
	if t.currentPage < pages-1 {
		items = append(items, html.Li(html.A(html.Href(t.pageLink(t.currentPage+1)), html.Class("next"), gomponents.Text("Next"))))
	}

	return html.Nav(html.Class("pagination"), html.Ul(gomponents.Group(items)))
}

func (t *SQLTable) downloadForm() gomponents.Node {
	action := ""
	if t.baseURL != nil {
		action = t.baseURL.Path
	}

	q := t.query()
	q.Del(ParamDownload)
	keys := make([]string, 0, len(q))
	for key := range q {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	hidden := make([]gomponents.Node, 0, len(keys))
	for _, key := range keys {
		for _, value := range q[key] {
			hidden = append(hidden, html.Input(html.Type("hidden"), html.Name(key), html.Value(value)))
		}
	}

	options := make([]gomponents.Node, 0, len(formatOrder))
	for _, format := range formatOrder {
		options = append(options, html.Option(html.Value(format), gomponents.Text(exporters[format].label)))
	}

	return html.Form(
		html.Method("get"),
		html.Action(action),
		html.Class("table-download"),
		gomponents.Group(hidden),
		html.Label(
			gomponents.Text("Download table data as "),
			html.Select(html.Name(ParamDownload), gomponents.Group(options)),
		),
		html.Button(html.Type("submit"), gomponents.Text("Download")),
	)
}
