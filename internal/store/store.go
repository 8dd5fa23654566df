// Package store owns the in-memory transaction list and monthly budget and
// writes every change through to a key-value persistence backend.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"saralfin/internal/core"
)

// Storage keys. Values are JSON documents.
const (
	KeyTransactions = "transactions"
	KeyBudget       = "monthlyBudget"
)

// DefaultBudget is used until the user sets one, unless overridden with
// WithDefaultBudget.
var DefaultBudget = core.AmountFromInt(5000)

// KV is the persistence collaborator. Get reports ok=false when the key is absent.
type KV interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
}

// State is a copy of everything the store owns.
type State struct {
	Transactions []core.Transaction `json:"transactions"`
	Budget       core.Amount        `json:"budget"`
}

// Store is safe for concurrent use. Reads return copies.
type Store struct {
	kv            KV
	now           func() time.Time
	defaultBudget core.Amount

	mu       sync.RWMutex
	txs      []core.Transaction // newest first
	budget   core.Amount
	lastID   int64
	revision uint64
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces the id clock. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithDefaultBudget sets the budget used when none is stored.
func WithDefaultBudget(b core.Amount) Option {
	return func(s *Store) {
		if b.Validate() == nil {
			s.defaultBudget = b
		}
	}
}

// New creates an empty store backed by kv. Call Load to restore persisted state.
func New(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:            kv,
		now:           time.Now,
		defaultBudget: DefaultBudget,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.budget = s.defaultBudget
	return s
}

// Load replaces the in-memory state with what the backend holds. Absent,
// unreadable or malformed values fall back to defaults; Load never fails.
func (s *Store) Load(ctx context.Context) State {
	txs := s.loadTransactions(ctx)
	budget := s.loadBudget(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = txs
	s.budget = budget
	s.lastID = 0
	for _, t := range txs {
		if t.ID > s.lastID {
			s.lastID = t.ID
		}
	}
	s.revision++
	return s.snapshotLocked()
}

func (s *Store) loadTransactions(ctx context.Context) []core.Transaction {
	raw, ok, err := s.kv.Get(ctx, KeyTransactions)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read transactions, starting empty", "error", err)
		return nil
	}
	if !ok {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		slog.WarnContext(ctx, "Stored transactions are not a JSON array, starting empty", "error", err)
		return nil
	}

	txs := make([]core.Transaction, 0, len(elems))
	seen := make(map[int64]struct{}, len(elems))
	for i, elem := range elems {
		t, err := decodeTransaction(elem)
		if err != nil {
			slog.WarnContext(ctx, "Dropping malformed stored transaction", "index", i, "error", err)
			continue
		}
		if _, dup := seen[t.ID]; dup {
			slog.WarnContext(ctx, "Dropping stored transaction with duplicate id", "index", i, "id", t.ID)
			continue
		}
		seen[t.ID] = struct{}{}
		txs = append(txs, t)
	}
	return txs
}

func (s *Store) loadBudget(ctx context.Context) core.Amount {
	raw, ok, err := s.kv.Get(ctx, KeyBudget)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read budget, using default", "error", err)
		return s.defaultBudget
	}
	if !ok {
		return s.defaultBudget
	}
	var b core.Amount
	if err := json.Unmarshal(raw, &b); err != nil || b.Validate() != nil {
		slog.WarnContext(ctx, "Stored budget is invalid, using default", "value", string(raw))
		return s.defaultBudget
	}
	return b
}

// storedTransaction mirrors the persisted element shape with every field
// optional so missing keys can be told apart from zero values.
type storedTransaction struct {
	ID          json.RawMessage `json:"id"`
	Type        *string         `json:"type"`
	Amount      *core.Amount    `json:"amount"`
	Category    *string         `json:"category"`
	Description *string         `json:"description"`
	Date        *core.Date      `json:"date"`
}

var errMissingField = errors.New("missing field")

func decodeTransaction(raw json.RawMessage) (core.Transaction, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return core.Transaction{}, errors.New("not an object")
	}
	var st storedTransaction
	if err := json.Unmarshal(raw, &st); err != nil {
		return core.Transaction{}, err
	}
	switch {
	case st.ID == nil:
		return core.Transaction{}, fmt.Errorf("%w: id", errMissingField)
	case st.Type == nil:
		return core.Transaction{}, fmt.Errorf("%w: type", errMissingField)
	case st.Amount == nil:
		return core.Transaction{}, fmt.Errorf("%w: amount", errMissingField)
	case st.Category == nil:
		return core.Transaction{}, fmt.Errorf("%w: category", errMissingField)
	case st.Description == nil:
		return core.Transaction{}, fmt.Errorf("%w: description", errMissingField)
	case st.Date == nil:
		return core.Transaction{}, fmt.Errorf("%w: date", errMissingField)
	}
	id, err := strconv.ParseInt(string(st.ID), 10, 64)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("id is not an integer: %s", st.ID)
	}
	typ := core.TransactionType(*st.Type)
	if !typ.Valid() {
		return core.Transaction{}, fmt.Errorf("%w: %q", core.ErrInvalidType, *st.Type)
	}
	if err := st.Amount.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return core.Transaction{
		ID:          id,
		Type:        typ,
		Amount:      *st.Amount,
		Category:    *st.Category,
		Description: *st.Description,
		Date:        *st.Date,
	}, nil
}

// Add assigns a fresh id, prepends the record and persists the list.
// The draft is trusted apart from the amount sign.
func (s *Store) Add(ctx context.Context, draft core.TransactionDraft) (core.Transaction, error) {
	if err := draft.Amount.Validate(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	t := draft.WithID(s.nextIDLocked())
	prev := s.txs
	next := make([]core.Transaction, 0, len(prev)+1)
	next = append(next, t)
	next = append(next, prev...)

	if err := s.persistTransactions(ctx, next); err != nil {
		return core.Transaction{}, err
	}
	s.txs = next
	s.lastID = t.ID
	s.revision++
	return t, nil
}

// nextIDLocked returns the creation time in milliseconds, bumped past the
// last issued id so rapid additions never collide.
func (s *Store) nextIDLocked() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	return id
}

// Delete removes the transaction with id. A missing id is a no-op and
// reports false.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, t := range s.txs {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false, nil
	}

	next := make([]core.Transaction, 0, len(s.txs)-1)
	next = append(next, s.txs[:idx]...)
	next = append(next, s.txs[idx+1:]...)

	if err := s.persistTransactions(ctx, next); err != nil {
		return false, err
	}
	s.txs = next
	s.revision++
	return true, nil
}

// SetBudget replaces the monthly budget.
func (s *Store) SetBudget(ctx context.Context, amount core.Amount) error {
	if err := amount.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(amount)
	if err != nil {
		return fmt.Errorf("store: encode budget: %w", err)
	}
	if err := s.kv.Set(ctx, KeyBudget, raw); err != nil {
		return fmt.Errorf("store: persist budget: %w", err)
	}
	s.budget = amount
	s.revision++
	return nil
}

func (s *Store) persistTransactions(ctx context.Context, txs []core.Transaction) error {
	if txs == nil {
		txs = []core.Transaction{}
	}
	raw, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("store: encode transactions: %w", err)
	}
	if err := s.kv.Set(ctx, KeyTransactions, raw); err != nil {
		return fmt.Errorf("store: persist transactions: %w", err)
	}
	return nil
}

// Transactions returns a copy of the list, newest first.
func (s *Store) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Transaction(nil), s.txs...)
}

// Find returns the transaction with id, if present.
func (s *Store) Find(id int64) (core.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.txs {
		if t.ID == id {
			return t, true
		}
	}
	return core.Transaction{}, false
}

func (s *Store) Budget() core.Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.budget
}

func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// SnapshotWithRevision returns a snapshot and the revision it belongs to,
// read under one lock.
func (s *Store) SnapshotWithRevision() (State, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), s.revision
}

func (s *Store) snapshotLocked() State {
	return State{
		Transactions: append([]core.Transaction(nil), s.txs...),
		Budget:       s.budget,
	}
}

// Revision changes on every successful mutation and every Load.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}
