package log

import (
	"context"
	"log/slog"
)

type ContextKey string

const LoggerContextKey ContextKey = "logger"

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the context, falling back to the slog default
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		component: "unknown",
	}
}

// StructuredLogger logs domain events with consistent fields
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

// LogTransactionCreated logs a stored transaction
func (sl *StructuredLogger) LogTransactionCreated(ctx context.Context, id int64, txType, amount, category, date string) {
	fields := NewFields().
		WithTransaction(id, txType, amount, category, date).
		WithOperation(OpCreate)
	sl.logger.InfoContext(ctx, "Transaction created", fields.ToSlice()...)
}

// LogTransactionDeleted logs a removal
func (sl *StructuredLogger) LogTransactionDeleted(ctx context.Context, id int64, existed bool) {
	sl.logger.InfoContext(ctx, "Transaction deleted",
		FieldTransactionID, id, FieldOperation, OpDelete, "existed", existed)
}

// LogBudgetSet logs a budget change
func (sl *StructuredLogger) LogBudgetSet(ctx context.Context, amount string) {
	sl.logger.InfoContext(ctx, "Monthly budget set", FieldBudget, amount, FieldOperation, OpSetBudget)
}

// LogError logs an error with structured context
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, errorType, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	all := fields.WithError(err, errorType).WithOperation(operation)
	sl.logger.ErrorContext(ctx, msg, all.ToSlice()...)
}
