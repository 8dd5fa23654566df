// Package history builds the filtered and sorted transaction view used by the
// history list and the CSV export.
package history

import (
	"net/url"
	"sort"
	"strings"

	"saralfin/internal/core"
)

// All disables a type or category filter.
const All = "all"

// SortOption names an ordering of the history view.
type SortOption string

const (
	SortDateDesc   SortOption = "date-desc"
	SortDateAsc    SortOption = "date-asc"
	SortAmountDesc SortOption = "amount-desc"
	SortAmountAsc  SortOption = "amount-asc"
)

// SortOptions lists every recognised option in display order.
var SortOptions = []SortOption{SortDateDesc, SortDateAsc, SortAmountDesc, SortAmountAsc}

// Query selects and orders transactions. Zero values mean "all" and date-desc.
type Query struct {
	Type     string     `json:"type"`
	Category string     `json:"category"`
	Sort     SortOption `json:"sort"`
}

// DefaultQuery shows everything, newest first.
func DefaultQuery() Query {
	return Query{Type: All, Category: All, Sort: SortDateDesc}
}

// ParseQuery reads type, category and sort request parameters. Unknown values
// are kept as given; FilterAndSort decides how to treat them.
func ParseQuery(v url.Values) Query {
	q := DefaultQuery()
	if s := strings.TrimSpace(v.Get("type")); s != "" {
		q.Type = strings.ToLower(s)
	}
	if s := strings.TrimSpace(v.Get("category")); s != "" {
		q.Category = s
	}
	if s := strings.TrimSpace(v.Get("sort")); s != "" {
		q.Sort = SortOption(strings.ToLower(s))
	}
	return q
}

// Values encodes q back into request parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	v.Set("type", q.typeFilter())
	v.Set("category", q.categoryFilter())
	v.Set("sort", string(q.sortOption()))
	return v
}

func (q Query) typeFilter() string {
	t := core.TransactionType(q.Type)
	if !t.Valid() {
		return All
	}
	return q.Type
}

func (q Query) categoryFilter() string {
	if q.Category == "" {
		return All
	}
	return q.Category
}

func (q Query) sortOption() SortOption {
	switch q.Sort {
	case SortDateDesc, SortDateAsc, SortAmountDesc, SortAmountAsc:
		return q.Sort
	default:
		return SortDateDesc
	}
}

// FilterAndSort applies the type filter, then the category filter, then a
// stable sort. A type filter other than income or expense shows everything;
// an unrecognised sort falls back to date-desc. txs is not modified.
func FilterAndSort(txs []core.Transaction, q Query) []core.Transaction {
	typ := q.typeFilter()
	category := q.categoryFilter()

	out := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if typ != All && string(t.Type) != typ {
			continue
		}
		if category != All && t.Category != category {
			continue
		}
		out = append(out, t)
	}

	var less func(a, b core.Transaction) bool
	switch q.sortOption() {
	case SortDateAsc:
		less = func(a, b core.Transaction) bool { return a.Date.Compare(b.Date) < 0 }
	case SortAmountDesc:
		less = func(a, b core.Transaction) bool { return a.Amount.Cmp(b.Amount) > 0 }
	case SortAmountAsc:
		less = func(a, b core.Transaction) bool { return a.Amount.Cmp(b.Amount) < 0 }
	default:
		less = func(a, b core.Transaction) bool { return a.Date.Compare(b.Date) > 0 }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// CategoriesFor returns the category filter choices for a type filter. With
// no specific type the expense vocabulary is offered.
func CategoriesFor(typeFilter string) []string {
	return core.CategoriesFor(core.TransactionType(strings.ToLower(typeFilter)))
}
