package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"saralfin/internal/amqp"
	"saralfin/internal/core"
	applog "saralfin/internal/log"
	"saralfin/internal/store"
)

// EventPublisher sends transaction events to other processes.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, event *amqp.TransactionEvent) error
	Close() error
}

// TransactionService applies user actions to the store and then announces
// them. The store write decides success; publishing is best-effort.
type TransactionService struct {
	store     *store.Store
	publisher EventPublisher
	closers   []func() error
	log       *applog.StructuredLogger
}

// NewTransactionService wires the store with an optional publisher. A nil
// publisher disables events.
func NewTransactionService(st *store.Store, publisher EventPublisher) *TransactionService {
	return &TransactionService{
		store:     st,
		publisher: publisher,
		log:       applog.NewStructuredLogger(applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentStore})),
	}
}

// OnClose registers cleanup to run from Close, e.g. the storage backend.
func (s *TransactionService) OnClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

// Store exposes the underlying store for read paths.
func (s *TransactionService) Store() *store.Store {
	return s.store
}

// EventsEnabled reports whether a publisher is attached.
func (s *TransactionService) EventsEnabled() bool {
	return s.publisher != nil
}

// CreateTransaction validates the draft, stores it and publishes a created event.
func (s *TransactionService) CreateTransaction(ctx context.Context, draft core.TransactionDraft) (core.Transaction, error) {
	if err := draft.Validate(); err != nil {
		return core.Transaction{}, err
	}
	t, err := s.store.Add(ctx, draft)
	if err != nil {
		s.log.LogError(ctx, "Failed to store transaction", err, applog.ErrorTypeStorage, applog.OpCreate, nil)
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.log.LogTransactionCreated(ctx, t.ID, t.Type.String(), t.Amount.String(), t.Category, t.Date.String())

	s.publish(ctx, amqp.NewCreatedEvent(t))
	return t, nil
}

// DeleteTransaction removes id. Deleting an unknown id succeeds with false
// and publishes nothing.
func (s *TransactionService) DeleteTransaction(ctx context.Context, id int64) (bool, error) {
	existed, err := s.store.Delete(ctx, id)
	if err != nil {
		s.log.LogError(ctx, "Failed to delete transaction", err, applog.ErrorTypeStorage, applog.OpDelete, nil)
		return false, fmt.Errorf("delete transaction: %w", err)
	}
	s.log.LogTransactionDeleted(ctx, id, existed)
	if existed {
		s.publish(ctx, amqp.NewDeletedEvent(id))
	}
	return existed, nil
}

// SetBudget replaces the monthly budget.
func (s *TransactionService) SetBudget(ctx context.Context, amount core.Amount) error {
	if err := amount.Validate(); err != nil {
		return err
	}
	if err := s.store.SetBudget(ctx, amount); err != nil {
		s.log.LogError(ctx, "Failed to store budget", err, applog.ErrorTypeStorage, applog.OpSetBudget, nil)
		return fmt.Errorf("save budget: %w", err)
	}
	s.log.LogBudgetSet(ctx, amount.String())
	s.publish(ctx, amqp.NewBudgetSetEvent(amount))
	return nil
}

func (s *TransactionService) publish(ctx context.Context, event *amqp.TransactionEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, event); err != nil {
		// Don't fail the request - the store already holds the change
		slog.WarnContext(ctx, "Failed to publish transaction event",
			"event", event.Event, "id", event.ID, "error", err)
	}
}

// Close releases the publisher and any registered resources.
func (s *TransactionService) Close() error {
	var errs []error

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	for _, fn := range s.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %w", errors.Join(errs...))
	}
	return nil
}
