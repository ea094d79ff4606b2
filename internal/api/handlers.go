package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/nadmax/lockstats/internal/httputil"
	"github.com/nadmax/lockstats/internal/metrics"
	"github.com/nadmax/lockstats/internal/middleware"
	"github.com/nadmax/lockstats/internal/report"
	"github.com/nadmax/lockstats/internal/repository"
	"github.com/nadmax/lockstats/internal/settings"
	"github.com/nadmax/lockstats/internal/table"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	reportHistory = "history"
	reportDetail  = "detail"
)

var recordReportRender = metrics.RecordReportRender

type API struct {
	repo     repository.LockHistoryRepository
	settings settings.Store
	pageSize int
	router   chi.Router
}

// trackingWriter records whether a status or body has been sent.
type trackingWriter struct {
	http.ResponseWriter
	committed bool
}

func (tw *trackingWriter) WriteHeader(code int) {
	tw.committed = true
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *trackingWriter) Write(b []byte) (int, error) {
	tw.committed = true
	return tw.ResponseWriter.Write(b)
}

func (tw *trackingWriter) Unwrap() http.ResponseWriter {
	return tw.ResponseWriter
}

type lockReport interface {
	IsDownloading() bool
	Render(ctx context.Context, w io.Writer, pageSize int) error
	Download(ctx context.Context, w io.Writer) error
}

func NewAPI(repo repository.LockHistoryRepository, cfg settings.Store, pageSize int) *API {
	api := &API{
		repo:     repo,
		settings: cfg,
		pageSize: pageSize,
		router:   chi.NewRouter(),
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	a.router.Use(middleware.MetricsMiddleware)

	a.router.Get(report.IndexPath, a.handleHistory)
	a.router.Get(report.DetailPath, a.handleDetail)
	a.router.Get("/healthz", a.handleHealth)
	a.router.Handle("/metrics", promhttp.Handler())
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

// gridFactory binds new report grids to the request's sort, page and download state.
func (a *API) gridFactory(r *http.Request) report.GridFactory {
	return func(uniqueID string) report.Grid {
		return table.New(uniqueID, a.repo.DB(), r)
	}
}

func (a *API) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	base := reportURL(report.IndexPath, id, nil)

	rep, err := report.NewHistoryReport(r.Context(), a.gridFactory(r), a.repo, a.settings, base, id)
	if err != nil {
		log.Printf("failed to build history report: %v", err)
		httputil.WriteJSONError(w, "Failed to load report settings", http.StatusInternalServerError)
		return
	}

	a.serveReport(w, r, reportHistory, "Lock statistics", rep)
}

func (a *API) handleDetail(w http.ResponseWriter, r *http.Request) {
	taskID, err := strconv.ParseInt(r.URL.Query().Get("task"), 10, 64)
	if err != nil || taskID <= 0 {
		httputil.WriteJSONError(w, "Invalid task ID", http.StatusBadRequest)
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	base := reportURL(report.DetailPath, id, url.Values{"task": {strconv.FormatInt(taskID, 10)}})

	rep := report.NewDetailReport(a.gridFactory(r), a.repo, base, taskID, id)
	a.serveReport(w, r, reportDetail, fmt.Sprintf("Lock history for task %d", taskID), rep)
}

// serveReport streams downloads to w. HTML is buffered and only written once
// the report rendered without error.
func (a *API) serveReport(w http.ResponseWriter, r *http.Request, name, title string, rep lockReport) {
	start := time.Now()

	if rep.IsDownloading() {
		tw := &trackingWriter{ResponseWriter: w}
		err := rep.Download(r.Context(), tw)
		recordReportRender(name, metrics.ModeDownload, time.Since(start), err)
		if err == nil {
			return
		}
		if tw.committed {
			log.Printf("failed to stream %s report: %v", name, err)
			return
		}
		writeReportError(w, name, err)
		return
	}

	var buf bytes.Buffer
	err := rep.Render(r.Context(), &buf, a.pageSize)
	recordReportRender(name, metrics.ModeDisplay, time.Since(start), err)
	if err != nil {
		writeReportError(w, name, err)
		return
	}

	httputil.WriteHTMLPage(w, http.StatusOK, title, buf.String())
}

func writeReportError(w http.ResponseWriter, name string, err error) {
	if errors.Is(err, table.ErrUnknownFormat) {
		httputil.WriteJSONError(w, "Unknown download format", http.StatusBadRequest)
		return
	}

	log.Printf("failed to output %s report: %v", name, err)
	httputil.WriteJSONError(w, "Failed to output report", http.StatusInternalServerError)
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.repo.DB().PingContext(r.Context()); err != nil {
		log.Printf("health check failed: %v", err)
		httputil.WriteJSONError(w, "Database unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		log.Printf("failed to encode health response: %v", err)
	}
}

func reportURL(path, id string, q url.Values) *url.URL {
	if q == nil {
		q = url.Values{}
	}
	if id != "" {
		q.Set("id", id)
	}

	return &url.URL{Path: path, RawQuery: q.Encode()}
}
