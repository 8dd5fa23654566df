package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"saralfin/internal/analytics"
	"saralfin/internal/charts"
	"saralfin/internal/core"
	"saralfin/internal/export"
	"saralfin/internal/history"
)

type summaryView struct {
	Income          core.Amount           `json:"income"`
	Expenses        core.Amount           `json:"expenses"`
	Balance         core.Amount           `json:"balance"`
	SpentPercentage float64               `json:"spentPercentage"`
	Level           analytics.BudgetLevel `json:"level"`
}

type dashboardView struct {
	Date      core.Date                 `json:"date"`
	Budget    core.Amount               `json:"budget"`
	Summary   summaryView               `json:"summary"`
	Breakdown []analytics.CategoryTotal `json:"breakdown"`
	Daily     []analytics.DailyTotal    `json:"daily"`
}

type categoriesView struct {
	Type        string               `json:"type"`
	Categories  []string             `json:"categories"`
	SortOptions []history.SortOption `json:"sortOptions"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ref, err := ParseRefDate(r.URL.Query(), s.today())
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	state := s.svc.Store().Snapshot()
	sum := analytics.MonthlySummary(state.Transactions, state.Budget, ref)
	breakdown := analytics.SortedBreakdown(analytics.CategoryBreakdown(state.Transactions, ref))
	if breakdown == nil {
		breakdown = []analytics.CategoryTotal{}
	}

	NewJSONResponse().Data(dashboardView{
		Date:   ref,
		Budget: state.Budget,
		Summary: summaryView{
			Income:          sum.Income,
			Expenses:        sum.Expenses,
			Balance:         sum.Balance(),
			SpentPercentage: sum.SpentPercentage,
			Level:           sum.Level(),
		},
		Breakdown: breakdown,
		Daily:     analytics.DailySeries(state.Transactions, ref, analytics.DefaultWindowDays),
	}).Write(w)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	typeFilter := history.ParseQuery(r.URL.Query()).Type
	NewJSONResponse().Data(categoriesView{
		Type:        typeFilter,
		Categories:  history.CategoriesFor(typeFilter),
		SortOptions: history.SortOptions,
	}).Write(w)
}

// handleExport downloads the filtered and sorted history view.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}

	txs := history.FilterAndSort(s.svc.Store().Transactions(), history.ParseQuery(r.URL.Query()))

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename()+`"`)
	w.Header().Set("Cache-Control", "no-store")
	if err := export.Write(w, format, txs); err != nil {
		logFor(r).ErrorContext(r.Context(), "Export failed", "format", format, "error", err)
	}
}

func (s *Server) handleDailyChart(w http.ResponseWriter, r *http.Request) {
	s.serveChart(w, r, "daily", func(txs []core.Transaction, ref core.Date) func(io.Writer) error {
		series := analytics.DailySeries(txs, ref, analytics.DefaultWindowDays)
		return func(out io.Writer) error { return charts.DailyBar(out, series) }
	})
}

func (s *Server) handleCategoryChart(w http.ResponseWriter, r *http.Request) {
	s.serveChart(w, r, "categories", func(txs []core.Transaction, ref core.Date) func(io.Writer) error {
		breakdown := analytics.SortedBreakdown(analytics.CategoryBreakdown(txs, ref))
		return func(out io.Writer) error { return charts.CategoryPie(out, breakdown) }
	})
}

// serveChart renders through the chart cache. A chart with nothing to draw is
// answered with 204.
func (s *Server) serveChart(w http.ResponseWriter, r *http.Request, name string, prepare func([]core.Transaction, core.Date) func(io.Writer) error) {
	ref, err := ParseRefDate(r.URL.Query(), s.today())
	if err != nil {
		UnprocessableEntityError(err.Error()).Write(w)
		return
	}

	state, rev := s.svc.Store().SnapshotWithRevision()
	key := chartKey(name, rev, ref.String())
	png, err := s.charts.get(key, prepare(state.Transactions, ref))
	switch {
	case errors.Is(err, charts.ErrNoData):
		w.WriteHeader(http.StatusNoContent)
		return
	case err != nil:
		logFor(r).ErrorContext(r.Context(), "Chart render failed", "chart", name, "error", err)
		InternalServerError("could not render chart").Write(w)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(png)
}
