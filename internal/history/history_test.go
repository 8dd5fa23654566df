package history

import (
	"net/url"
	"reflect"
	"testing"

	"saralfin/internal/core"
)

func sample() []core.Transaction {
	mk := func(id int64, typ core.TransactionType, amount, category string, d core.Date) core.Transaction {
		return core.Transaction{ID: id, Type: typ, Amount: core.MustAmount(amount), Category: category, Description: "d", Date: d}
	}
	return []core.Transaction{
		mk(1, core.Expense, "200", "Food", core.NewDate(2025, 1, 3)),
		mk(2, core.Income, "1000", "Allowance", core.NewDate(2025, 1, 1)),
		mk(3, core.Expense, "300", "Rent", core.NewDate(2025, 1, 2)),
		mk(4, core.Expense, "200", "Food", core.NewDate(2025, 1, 3)),
	}
}

func ids(txs []core.Transaction) []int64 {
	out := make([]int64, len(txs))
	for i, t := range txs {
		out[i] = t.ID
	}
	return out
}

func TestFilterAndSort(t *testing.T) {
	cases := []struct {
		name string
		q    Query
		want []int64
	}{
		{"default", DefaultQuery(), []int64{1, 4, 3, 2}},
		{"date asc", Query{Type: All, Category: All, Sort: SortDateAsc}, []int64{2, 3, 1, 4}},
		{"expense amount desc", Query{Type: "expense", Category: All, Sort: SortAmountDesc}, []int64{3, 1, 4}},
		{"amount asc stable", Query{Sort: SortAmountAsc}, []int64{1, 4, 3, 2}},
		{"category", Query{Type: All, Category: "Food"}, []int64{1, 4}},
		{"stale category", Query{Type: "income", Category: "Food"}, []int64{}},
		{"unknown sort", Query{Sort: "random"}, []int64{1, 4, 3, 2}},
		{"unknown type", Query{Type: "transfer", Category: "Rent"}, []int64{3}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(FilterAndSort(sample(), tc.q))
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFilterAndSortIdempotent(t *testing.T) {
	q := Query{Type: "expense", Category: All, Sort: SortAmountDesc}
	once := FilterAndSort(sample(), q)
	twice := FilterAndSort(once, q)
	if !reflect.DeepEqual(ids(once), ids(twice)) {
		t.Fatalf("not idempotent: %v vs %v", ids(once), ids(twice))
	}
}

func TestFilterAndSortDoesNotMutate(t *testing.T) {
	in := sample()
	FilterAndSort(in, Query{Sort: SortDateAsc})
	if !reflect.DeepEqual(ids(in), []int64{1, 2, 3, 4}) {
		t.Fatalf("input reordered: %v", ids(in))
	}
}

func TestParseQuery(t *testing.T) {
	q := ParseQuery(url.Values{"type": {"Expense"}, "sort": {"amount-asc"}})
	if q.Type != "expense" || q.Category != All || q.Sort != SortAmountAsc {
		t.Fatalf("unexpected query %+v", q)
	}
	if got := ParseQuery(nil); got != DefaultQuery() {
		t.Fatalf("empty values should give default query, got %+v", got)
	}
	v := Query{Type: "bogus", Sort: "bogus"}.Values()
	if v.Get("type") != All || v.Get("category") != All || v.Get("sort") != string(SortDateDesc) {
		t.Fatalf("Values should normalise, got %v", v)
	}
}

func TestCategoriesFor(t *testing.T) {
	if !reflect.DeepEqual(CategoriesFor("income"), core.IncomeCategories) {
		t.Fatalf("income categories mismatch")
	}
	if !reflect.DeepEqual(CategoriesFor(All), core.ExpenseCategories) {
		t.Fatalf("all should offer expense categories")
	}
}
