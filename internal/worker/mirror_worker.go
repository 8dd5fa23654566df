package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"saralfin/internal/amqp"
	"saralfin/internal/core"
	"saralfin/internal/sheets"
)

// MirrorWorker applies transaction events to a spreadsheet mirror.
type MirrorWorker struct {
	mirror sheets.TransactionMirror

	applied atomic.Int64
	failed  atomic.Int64
}

func NewMirrorWorker(mirror sheets.TransactionMirror) *MirrorWorker {
	return &MirrorWorker{mirror: mirror}
}

// Stats reports how many events were applied and how many failed.
type Stats struct {
	Applied int64 `json:"applied"`
	Failed  int64 `json:"failed"`
}

func (w *MirrorWorker) Stats() Stats {
	return Stats{Applied: w.applied.Load(), Failed: w.failed.Load()}
}

// HandleEvent processes a single event from AMQP. A returned error makes the
// consumer requeue the message.
func (w *MirrorWorker) HandleEvent(ctx context.Context, event *amqp.TransactionEvent) error {
	slog.InfoContext(ctx, "Processing transaction event",
		"event", event.Event,
		"id", event.ID)

	var err error
	switch event.Event {
	case amqp.EventCreated:
		err = w.handleCreated(ctx, event)
	case amqp.EventDeleted:
		err = w.handleDeleted(ctx, event)
	case amqp.EventBudgetSet:
		// The mirror only carries transactions.
		slog.DebugContext(ctx, "Ignoring budget event", "budget", event.Budget)
	default:
		err = fmt.Errorf("unknown event type: %s", event.Event)
	}

	if err != nil {
		w.failed.Add(1)
		return err
	}
	w.applied.Add(1)
	return nil
}

func (w *MirrorWorker) handleCreated(ctx context.Context, event *amqp.TransactionEvent) error {
	if event.Transaction == nil {
		return fmt.Errorf("created event %d without transaction", event.ID)
	}
	ref, err := w.mirror.Append(ctx, *event.Transaction)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to mirror transaction",
			"id", event.ID,
			"error", err,
			"timestamp", event.Timestamp)
		return fmt.Errorf("append transaction: %w", err)
	}
	slog.InfoContext(ctx, "Mirrored transaction", "id", event.ID, "row_ref", ref)
	return nil
}

func (w *MirrorWorker) handleDeleted(ctx context.Context, event *amqp.TransactionEvent) error {
	if err := w.mirror.Delete(ctx, event.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to delete mirrored transaction",
			"id", event.ID,
			"error", err,
			"timestamp", event.Timestamp)
		return fmt.Errorf("delete transaction: %w", err)
	}
	slog.InfoContext(ctx, "Deleted mirrored transaction", "id", event.ID)
	return nil
}

// Backfill appends every transaction in txs, oldest first. It is the backup
// path for events lost while no worker was running; the mirror skips rows it
// already has.
func (w *MirrorWorker) Backfill(ctx context.Context, txs []core.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	slog.InfoContext(ctx, "Backfilling mirror", "count", len(txs))

	var failures int
	for i := len(txs) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := w.mirror.Append(ctx, txs[i]); err != nil {
			slog.ErrorContext(ctx, "Failed to backfill transaction", "id", txs[i].ID, "error", err)
			failures++
		}
	}
	if failures > 0 {
		return fmt.Errorf("backfill: %d of %d transactions failed", failures, len(txs))
	}
	return nil
}
