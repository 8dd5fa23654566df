package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"saralfin/internal/core"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// fakeSheets serves the handful of Sheets endpoints the mirror calls.
type fakeSheets struct {
	mu       sync.Mutex
	column   [][]any
	updates  []*gsheet.ValueRange
	batches  []*gsheet.BatchUpdateSpreadsheetRequest
	sheetIDs map[string]int64
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/values/"):
		_ = json.NewEncoder(w).Encode(map[string]any{"values": f.column})
	case r.Method == http.MethodPut && strings.Contains(r.URL.Path, "/values/"):
		var vr gsheet.ValueRange
		if err := json.NewDecoder(r.Body).Decode(&vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.updates = append(f.updates, &vr)
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		var req gsheet.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.batches = append(f.batches, &req)
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodGet:
		var sheets []map[string]any
		for title, id := range f.sheetIDs {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": title, "sheetId": id}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"sheets": sheets})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, f *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithHTTPClient(srv.Client()),
		goption.WithEndpoint(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return NewWithService(svc, "sheet-id", "Transactions")
}

func sample(id int64) core.Transaction {
	return core.Transaction{
		ID:          id,
		Type:        core.Expense,
		Amount:      core.MustAmount("120.5"),
		Category:    "Food",
		Description: "thali",
		Date:        core.NewDate(2025, 2, 3),
	}
}

func TestAppendToEmptySheetWritesHeader(t *testing.T) {
	f := &fakeSheets{}
	c := newTestClient(t, f)

	ref, err := c.Append(context.Background(), sample(42))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ref != "Transactions!A2:F2" {
		t.Errorf("ref = %q", ref)
	}
	if len(f.updates) != 1 {
		t.Fatalf("expected one update, got %d", len(f.updates))
	}
	vals := f.updates[0].Values
	if len(vals) != 2 || vals[0][0] != "id" || vals[1][0] != "42" || vals[1][4] != "thali" {
		t.Errorf("unexpected values: %v", vals)
	}
}

func TestAppendSkipsExistingID(t *testing.T) {
	f := &fakeSheets{column: [][]any{{"id"}, {"42"}}}
	c := newTestClient(t, f)

	ref, err := c.Append(context.Background(), sample(42))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ref != "Transactions!A2:F2" || len(f.updates) != 0 {
		t.Errorf("ref=%q updates=%d", ref, len(f.updates))
	}
}

func TestAppendAfterExistingRows(t *testing.T) {
	f := &fakeSheets{column: [][]any{{"id"}, {"1"}, {"2"}}}
	c := newTestClient(t, f)

	ref, err := c.Append(context.Background(), sample(3))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ref != "Transactions!A4:F4" {
		t.Errorf("ref = %q", ref)
	}
	if len(f.updates) != 1 || len(f.updates[0].Values) != 1 {
		t.Fatalf("expected a single data row, got %+v", f.updates)
	}
}

func TestDeleteRemovesMatchingRow(t *testing.T) {
	f := &fakeSheets{
		column:   [][]any{{"id"}, {"7"}, {"9"}},
		sheetIDs: map[string]int64{"Other": 1, "Transactions": 5},
	}
	c := newTestClient(t, f)

	if err := c.Delete(context.Background(), 9); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(f.batches) != 1 {
		t.Fatalf("expected one batch update, got %d", len(f.batches))
	}
	rng := f.batches[0].Requests[0].DeleteDimension.Range
	if rng.SheetId != 5 || rng.StartIndex != 2 || rng.EndIndex != 3 || rng.Dimension != "ROWS" {
		t.Errorf("unexpected range: %+v", rng)
	}
}

func TestDeleteMissingIDIsNoop(t *testing.T) {
	f := &fakeSheets{column: [][]any{{"id"}, {"7"}}}
	c := newTestClient(t, f)

	if err := c.Delete(context.Background(), 8); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(f.batches) != 0 {
		t.Errorf("unexpected batch update")
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for missing spreadsheet ID")
	}
	_, err := New(context.Background(), Config{SpreadsheetID: "x"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected credentials error, got %v", err)
	}
}

func TestRowOf(t *testing.T) {
	ids := []string{"id", "", "12", "13"}
	if got := rowOf(ids, 13); got != 4 {
		t.Errorf("rowOf = %d, want 4", got)
	}
	if got := rowOf(ids, 14); got != 0 {
		t.Errorf("rowOf = %d, want 0", got)
	}
}
