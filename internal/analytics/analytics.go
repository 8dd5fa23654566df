// Package analytics derives dashboard figures from a transaction list.
// Every function is pure and leaves its input untouched.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"saralfin/internal/core"
)

// DefaultWindowDays is the length of the daily spending series.
const DefaultWindowDays = 7

// BudgetLevel grades how much of the budget has been spent.
type BudgetLevel string

const (
	LevelOK      BudgetLevel = "ok"
	LevelWarning BudgetLevel = "warning"
	LevelDanger  BudgetLevel = "danger"
)

var hundred = decimal.NewFromInt(100)

type (
	// Summary holds the totals for one calendar month.
	Summary struct {
		Income          core.Amount `json:"income"`
		Expenses        core.Amount `json:"expenses"`
		SpentPercentage float64     `json:"spentPercentage"`
	}

	// CategoryTotal is one slice of the expense breakdown.
	CategoryTotal struct {
		Category string      `json:"category"`
		Total    core.Amount `json:"total"`
	}

	// DailyTotal is one bar of the daily spending series.
	DailyTotal struct {
		Date  core.Date   `json:"date"`
		Label string      `json:"label"`
		Total core.Amount `json:"total"`
	}
)

// Balance is income minus expenses and may be negative.
func (s Summary) Balance() core.Amount {
	return s.Income.Sub(s.Expenses)
}

// Level maps the spent percentage onto the dashboard's colour bands.
func (s Summary) Level() BudgetLevel {
	switch {
	case s.SpentPercentage > 90:
		return LevelDanger
	case s.SpentPercentage > 70:
		return LevelWarning
	default:
		return LevelOK
	}
}

// MonthlySummary totals income and expenses dated in ref's month and year.
// SpentPercentage is expenses/budget*100 capped at 100, or 0 when the budget
// is not positive.
func MonthlySummary(txs []core.Transaction, budget core.Amount, ref core.Date) Summary {
	var s Summary
	for _, t := range txs {
		if !t.Date.SameMonth(ref) {
			continue
		}
		switch t.Type {
		case core.Income:
			s.Income = s.Income.Add(t.Amount)
		case core.Expense:
			s.Expenses = s.Expenses.Add(t.Amount)
		}
	}
	s.SpentPercentage = spentPercentage(s.Expenses, budget)
	return s
}

func spentPercentage(expenses, budget core.Amount) float64 {
	if !budget.Decimal.IsPositive() {
		return 0
	}
	pct := expenses.Decimal.Div(budget.Decimal).Mul(hundred)
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	if pct.IsNegative() {
		return 0
	}
	return pct.InexactFloat64()
}

// CategoryBreakdown sums ref-month expenses per category. Categories whose
// total is zero are omitted.
func CategoryBreakdown(txs []core.Transaction, ref core.Date) map[string]core.Amount {
	out := make(map[string]core.Amount)
	for _, t := range txs {
		if !t.IsExpense() || !t.Date.SameMonth(ref) {
			continue
		}
		out[t.Category] = out[t.Category].Add(t.Amount)
	}
	for k, v := range out {
		if v.Decimal.IsZero() {
			delete(out, k)
		}
	}
	return out
}

// SortedBreakdown orders a breakdown by total descending, then by name.
func SortedBreakdown(breakdown map[string]core.Amount) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(breakdown))
	for c, total := range breakdown {
		out = append(out, CategoryTotal{Category: c, Total: total})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// DailySeries returns exactly windowDays entries ending at ref, oldest first.
// Each total sums the expenses dated exactly that day. A non-positive window
// falls back to DefaultWindowDays.
func DailySeries(txs []core.Transaction, ref core.Date, windowDays int) []DailyTotal {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	out := make([]DailyTotal, windowDays)
	for i := range out {
		d := ref.AddDays(i - (windowDays - 1))
		out[i] = DailyTotal{Date: d, Label: DayLabel(d)}
	}
	first := out[0].Date
	for _, t := range txs {
		if !t.IsExpense() {
			continue
		}
		if t.Date.Compare(first) < 0 || t.Date.Compare(ref) > 0 {
			continue
		}
		idx := daysBetween(first, t.Date)
		if idx >= 0 && idx < windowDays && out[idx].Date.Equal(t.Date) {
			out[idx].Total = out[idx].Total.Add(t.Amount)
		}
	}
	return out
}

// DayLabel renders a short weekday and day of month, e.g. "Mon 13".
func DayLabel(d core.Date) string {
	return d.Format("Mon 2")
}

func daysBetween(from, to core.Date) int {
	a := core.NewDate(from.Year(), int(from.Month()), from.Day())
	b := core.NewDate(to.Year(), int(to.Month()), to.Day())
	return int(b.Sub(a.Time).Hours() / 24)
}
