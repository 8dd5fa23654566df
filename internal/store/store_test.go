package store

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"saralfin/internal/core"
)

type fakeKV struct {
	mu      sync.Mutex
	data    map[string]json.RawMessage
	failSet error
	failGet error
	sets    int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: map[string]json.RawMessage{}}
}

func (f *fakeKV) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return nil, false, f.failGet
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeKV) Set(_ context.Context, key string, value json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSet != nil {
		return f.failSet
	}
	f.sets++
	f.data[key] = append(json.RawMessage(nil), value...)
	return nil
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func draft(typ core.TransactionType, amount string, category string, date core.Date) core.TransactionDraft {
	return core.TransactionDraft{
		Type:        typ,
		Amount:      core.MustAmount(amount),
		Category:    category,
		Description: "test",
		Date:        date,
	}
}

func TestLoadDefaults(t *testing.T) {
	s := New(newFakeKV())
	st := s.Load(context.Background())
	if len(st.Transactions) != 0 {
		t.Fatalf("expected empty list, got %d", len(st.Transactions))
	}
	if !st.Budget.Equal(core.AmountFromInt(5000)) {
		t.Fatalf("expected default budget, got %s", st.Budget)
	}
}

func TestLoadFallsBackOnReadError(t *testing.T) {
	kv := newFakeKV()
	kv.failGet = errors.New("disk gone")
	st := New(kv).Load(context.Background())
	if len(st.Transactions) != 0 || !st.Budget.Equal(DefaultBudget) {
		t.Fatalf("expected defaults, got %+v", st)
	}
}

func TestLoadMalformed(t *testing.T) {
	cases := map[string]struct {
		txs    string
		budget string
		want   int
	}{
		"not json":       {txs: `{{{`, budget: `abc`, want: 0},
		"object not arr": {txs: `{"id":1}`, budget: `"100"`, want: 0},
		"mixed elements": {txs: `[
			{"id":1,"type":"expense","amount":300,"category":"Food","description":"a","date":"2025-01-01"},
			{"id":2,"type":"transfer","amount":1,"category":"x","description":"b","date":"2025-01-01"},
			{"id":3,"type":"income","amount":-5,"category":"x","description":"c","date":"2025-01-01"},
			{"id":4,"type":"income","amount":"5","category":"x","description":"d","date":"2025-01-01"},
			{"id":"5","type":"income","amount":5,"category":"x","description":"e","date":"2025-01-01"},
			{"id":6,"type":"income","amount":5,"category":"x","date":"2025-01-01"},
			{"id":7,"type":"income","amount":5,"category":"x","description":"g","date":"01/02/2025"},
			42,
			{"id":1,"type":"income","amount":5,"category":"x","description":"dup","date":"2025-01-01"},
			{"id":8,"type":"income","amount":0,"category":"Gift","description":"h","date":"2025-01-02"}
		]`, budget: `-1`, want: 2},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			kv := newFakeKV()
			kv.data[KeyTransactions] = json.RawMessage(tc.txs)
			kv.data[KeyBudget] = json.RawMessage(tc.budget)
			st := New(kv).Load(context.Background())
			if len(st.Transactions) != tc.want {
				t.Fatalf("expected %d transactions, got %d", tc.want, len(st.Transactions))
			}
			if !st.Budget.Equal(DefaultBudget) {
				t.Fatalf("expected default budget, got %s", st.Budget)
			}
		})
	}
}

func TestLoadRoundTrip(t *testing.T) {
	kv := newFakeKV()
	ctx := context.Background()
	s := New(kv, WithClock(fixedClock(1000)))
	s.Load(ctx)

	if _, err := s.Add(ctx, draft(core.Expense, "300", "Food", core.NewDate(2025, 1, 1))); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Add(ctx, draft(core.Income, "12.5", "Gift", core.NewDate(2025, 1, 2))); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.SetBudget(ctx, core.AmountFromInt(8000)); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}

	restored := New(kv).Load(ctx)
	if len(restored.Transactions) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(restored.Transactions))
	}
	if restored.Transactions[0].Category != "Gift" {
		t.Fatalf("expected newest first, got %+v", restored.Transactions)
	}
	if !restored.Transactions[0].Amount.Equal(core.MustAmount("12.5")) {
		t.Fatalf("amount not preserved: %s", restored.Transactions[0].Amount)
	}
	if !restored.Budget.Equal(core.AmountFromInt(8000)) {
		t.Fatalf("budget not preserved: %s", restored.Budget)
	}
}

func TestAddAssignsUniqueIncreasingIDs(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeKV(), WithClock(fixedClock(1700000000000)))
	s.Load(ctx)

	seen := map[int64]bool{}
	var last int64
	for i := 0; i < 5; i++ {
		tx, err := s.Add(ctx, draft(core.Expense, "1", "Food", core.NewDate(2025, 1, 1)))
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if seen[tx.ID] {
			t.Fatalf("duplicate id %d", tx.ID)
		}
		if tx.ID <= last {
			t.Fatalf("id %d not after %d", tx.ID, last)
		}
		seen[tx.ID] = true
		last = tx.ID
	}
	if got := s.Transactions()[0].ID; got != last {
		t.Fatalf("newest should be first, got %d want %d", got, last)
	}
}

func TestSnapshotWithRevisionIsConsistent(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeKV())
	s.Load(ctx)
	_, base := s.SnapshotWithRevision()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, err := s.Add(ctx, draft(core.Expense, "1", "Food", core.NewDate(2025, 1, 1))); err != nil {
				t.Errorf("Add: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 200; i++ {
		state, rev := s.SnapshotWithRevision()
		if uint64(len(state.Transactions)) != rev-base {
			t.Fatalf("snapshot has %d transactions at revision %d (base %d)", len(state.Transactions), rev, base)
		}
	}
	wg.Wait()
}

func TestFind(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeKV())
	tx, err := s.Add(ctx, draft(core.Income, "250", "Gift", core.NewDate(2025, 1, 2)))
	if err != nil {
		t.Fatal(err)
	}
	got, ok := s.Find(tx.ID)
	if !ok || got.ID != tx.ID || !got.Amount.Equal(core.MustAmount("250")) {
		t.Fatalf("Find(%d) = %+v, %v", tx.ID, got, ok)
	}
	if _, ok := s.Find(tx.ID + 1); ok {
		t.Fatal("Find should miss unknown ids")
	}
}

func TestAddRejectsNegative(t *testing.T) {
	kv := newFakeKV()
	s := New(kv)
	_, err := s.Add(context.Background(), draft(core.Expense, "-1", "Food", core.NewDate(2025, 1, 1)))
	if !errors.Is(err, core.ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	if kv.sets != 0 || len(s.Transactions()) != 0 {
		t.Fatalf("rejected add must not change state")
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	s := New(kv)
	a, _ := s.Add(ctx, draft(core.Expense, "1", "Food", core.NewDate(2025, 1, 1)))
	b, _ := s.Add(ctx, draft(core.Expense, "2", "Rent", core.NewDate(2025, 1, 1)))

	ok, err := s.Delete(ctx, a.ID)
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	txs := s.Transactions()
	if len(txs) != 1 || txs[0].ID != b.ID {
		t.Fatalf("unexpected list after delete: %+v", txs)
	}

	before := kv.sets
	rev := s.Revision()
	ok, err = s.Delete(ctx, 999)
	if err != nil || ok {
		t.Fatalf("missing id should be a no-op, got %v, %v", ok, err)
	}
	if kv.sets != before || s.Revision() != rev {
		t.Fatalf("no-op delete must not write")
	}
}

func TestSetBudget(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeKV())
	if err := s.SetBudget(ctx, core.MustAmount("-5")); !errors.Is(err, core.ErrNegativeAmount) {
		t.Fatalf("expected ErrNegativeAmount, got %v", err)
	}
	if !s.Budget().Equal(DefaultBudget) {
		t.Fatalf("budget changed on rejection")
	}
	if err := s.SetBudget(ctx, core.Zero); err != nil {
		t.Fatalf("zero budget should be accepted: %v", err)
	}
	if !s.Budget().Equal(core.Zero) {
		t.Fatalf("expected 0 budget, got %s", s.Budget())
	}
}

func TestWriteFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	s := New(kv)
	kept, err := s.Add(ctx, draft(core.Expense, "1", "Food", core.NewDate(2025, 1, 1)))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	rev := s.Revision()

	kv.failSet = errors.New("quota exceeded")

	if _, err := s.Add(ctx, draft(core.Expense, "2", "Food", core.NewDate(2025, 1, 1))); err == nil {
		t.Fatalf("expected add error")
	}
	if ok, err := s.Delete(ctx, kept.ID); err == nil || ok {
		t.Fatalf("expected delete error, got %v, %v", ok, err)
	}
	if err := s.SetBudget(ctx, core.AmountFromInt(1)); err == nil {
		t.Fatalf("expected budget error")
	}

	if txs := s.Transactions(); len(txs) != 1 || txs[0].ID != kept.ID {
		t.Fatalf("state not rolled back: %+v", txs)
	}
	if !s.Budget().Equal(DefaultBudget) {
		t.Fatalf("budget not rolled back: %s", s.Budget())
	}
	if s.Revision() != rev {
		t.Fatalf("revision moved on failed writes")
	}
}

func TestTransactionsReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := New(newFakeKV())
	s.Add(ctx, draft(core.Expense, "1", "Food", core.NewDate(2025, 1, 1)))
	txs := s.Transactions()
	txs[0].Category = "mutated"
	if s.Transactions()[0].Category != "Food" {
		t.Fatalf("caller mutated store state")
	}
}

func TestPersistedShape(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	s := New(kv, WithClock(fixedClock(1736000000000)))
	s.Add(ctx, core.TransactionDraft{
		Type:        core.Expense,
		Amount:      core.AmountFromInt(300),
		Category:    "Food",
		Description: "canteen",
		Date:        core.NewDate(2025, 1, 1),
	})
	want := `[{"id":1736000000000,"type":"expense","amount":300,"category":"Food","description":"canteen","date":"2025-01-01"}]`
	if got := string(kv.data[KeyTransactions]); got != want {
		t.Fatalf("persisted\n got %s\nwant %s", got, want)
	}
}

func TestWithDefaultBudget(t *testing.T) {
	s := New(newFakeKV(), WithDefaultBudget(core.AmountFromInt(3000)))
	if st := s.Load(context.Background()); !st.Budget.Equal(core.AmountFromInt(3000)) {
		t.Fatalf("budget = %s", st.Budget)
	}
	s = New(newFakeKV(), WithDefaultBudget(core.MustAmount("-1")))
	if !s.Budget().Equal(DefaultBudget) {
		t.Fatalf("negative default should be ignored, got %s", s.Budget())
	}
}
