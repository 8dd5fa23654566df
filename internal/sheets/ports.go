// Package sheets defines the outward spreadsheet mirror of the transaction list.
package sheets

import (
	"context"
	"strconv"

	"saralfin/internal/core"
)

// Header is the mirror's first row.
var Header = []string{"id", "type", "amount", "category", "description", "date"}

// Ports for outbound adapters.
type (
	// TransactionMirror keeps a copy of the transaction list outside the app.
	// Append must tolerate a transaction that is already present and Delete an
	// id that is already gone: events may be delivered more than once.
	TransactionMirror interface {
		Append(ctx context.Context, t core.Transaction) (rowRef string, err error)
		Delete(ctx context.Context, id int64) error
	}
)

// Row renders t in mirror column order.
func Row(t core.Transaction) []string {
	return []string{
		strconv.FormatInt(t.ID, 10),
		t.Type.String(),
		t.Amount.String(),
		t.Category,
		t.Description,
		t.Date.String(),
	}
}
