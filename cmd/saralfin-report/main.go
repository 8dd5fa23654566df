// Command saralfin-report prints the monthly dashboard as text tables and can
// write the charts and the CSV export to disk.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"

	"saralfin/internal/analytics"
	"saralfin/internal/charts"
	"saralfin/internal/cli"
	"saralfin/internal/core"
	"saralfin/internal/export"
	applog "saralfin/internal/log"
	"saralfin/internal/store"
)

type options struct {
	Date      string
	Window    int
	ChartsDir string
	CSVFile   string
}

func main() {
	var opts options
	flag.StringVar(&opts.Date, "date", "", "reference day YYYY-MM-DD (default today)")
	flag.IntVar(&opts.Window, "window", analytics.DefaultWindowDays, "days in the daily spending table")
	flag.StringVar(&opts.ChartsDir, "charts", "", "directory to write daily.png and categories.png into")
	flag.StringVar(&opts.CSVFile, "csv", "", "file to write the CSV export to")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentReport)
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.ApplyLogLevel(cfg, applog.ComponentReport)

	ref := core.Today()
	if opts.Date != "" {
		d, err := core.ParseDate(opts.Date)
		if err != nil {
			logger.Error("Invalid -date", "error", err)
			os.Exit(2)
		}
		ref = d
	}

	st, backendRes := cli.OpenStore(context.Background(), logger, cfg)
	if backendRes.Cleanup != nil {
		defer backendRes.Cleanup()
	}
	state := st.Snapshot()

	writeReport(os.Stdout, state, ref, opts.Window)

	if opts.ChartsDir != "" {
		written, err := writeCharts(opts.ChartsDir, state, ref, opts.Window)
		if err != nil {
			logger.Error("Failed to write charts", "error", err, "dir", opts.ChartsDir)
			os.Exit(1)
		}
		logger.Info("Charts written", "files", strings.Join(written, ","))
	}

	if opts.CSVFile != "" {
		if err := os.WriteFile(opts.CSVFile, []byte(export.CSV(state.Transactions)), 0o644); err != nil {
			logger.Error("Failed to write CSV export", "error", err, "file", opts.CSVFile)
			os.Exit(1)
		}
		logger.Info("CSV export written", "file", opts.CSVFile, "transactions", len(state.Transactions))
	}
}

// writeReport prints the summary, the category breakdown and the daily series
// for ref's month.
func writeReport(w io.Writer, state store.State, ref core.Date, window int) {
	sum := analytics.MonthlySummary(state.Transactions, state.Budget, ref)

	fmt.Fprintf(w, "Summary for %s %d\n", ref.Month(), ref.Year())
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Income", "Expenses", "Balance", "Budget", "Spent"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.Append([]string{
		core.FormatINR(sum.Income),
		core.FormatINR(sum.Expenses),
		core.FormatINR(sum.Balance()),
		core.FormatINR(state.Budget),
		fmt.Sprintf("%.1f%% (%s)", sum.SpentPercentage, sum.Level()),
	})
	table.Render()

	fmt.Fprintln(w, "\nSpending by category")
	breakdown := analytics.SortedBreakdown(analytics.CategoryBreakdown(state.Transactions, ref))
	if len(breakdown) == 0 {
		fmt.Fprintln(w, "No expenses this month.")
	} else {
		table = tablewriter.NewWriter(w)
		table.SetHeader([]string{"Category", "Total"})
		for _, c := range breakdown {
			table.Append([]string{c.Category, core.FormatINR(c.Total)})
		}
		table.Render()
	}

	series := analytics.DailySeries(state.Transactions, ref, window)
	fmt.Fprintf(w, "\nDaily spending, last %d days\n", len(series))
	table = tablewriter.NewWriter(w)
	table.SetHeader([]string{"Day", "Date", "Spent"})
	for _, d := range series {
		table.Append([]string{d.Label, d.Date.String(), core.FormatINR(d.Total)})
	}
	table.Render()
}

// writeCharts renders both PNGs into dir. An empty breakdown skips the pie.
func writeCharts(dir string, state store.State, ref core.Date, window int) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	var written []string
	render := func(name string, draw func(io.Writer) error) error {
		path := filepath.Join(dir, name)
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := draw(f); err != nil {
			f.Close()
			os.Remove(path)
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	series := analytics.DailySeries(state.Transactions, ref, window)
	if err := render("daily.png", func(w io.Writer) error { return charts.DailyBar(w, series) }); err != nil {
		return written, fmt.Errorf("daily chart: %w", err)
	}

	breakdown := analytics.SortedBreakdown(analytics.CategoryBreakdown(state.Transactions, ref))
	err := render("categories.png", func(w io.Writer) error { return charts.CategoryPie(w, breakdown) })
	if err != nil && !errors.Is(err, charts.ErrNoData) {
		return written, fmt.Errorf("category chart: %w", err)
	}
	return written, nil
}
