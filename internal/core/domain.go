package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage layout of a calendar date.
const DateLayout = "2006-01-02"

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TransactionType string

	Date struct {
		time.Time
	}

	// Transaction is one recorded income or expense event.
	Transaction struct {
		ID          int64           `json:"id"`
		Type        TransactionType `json:"type"`
		Amount      Amount          `json:"amount"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Date        Date            `json:"date"`
	}

	// TransactionDraft is a transaction before the store assigns its id.
	TransactionDraft struct {
		Type        TransactionType `json:"type"`
		Amount      Amount          `json:"amount"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Date        Date            `json:"date"`
	}
)

var (
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrNegativeAmount   = errors.New("negative amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
)

// ParseTransactionType maps the wire name to a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
	return t, nil
}

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (t TransactionType) String() string {
	return string(t)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a timestamp to its calendar day in the timestamp's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// Today returns the current calendar date in local time.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// AddDays returns the date n calendar days later (earlier when n < 0).
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// SameMonth reports whether both dates fall in the same calendar month and year.
func (d Date) SameMonth(o Date) bool {
	return d.Year() == o.Year() && d.Month() == o.Month()
}

// Equal compares calendar days only.
func (d Date) Equal(o Date) bool {
	return d.Compare(o) == 0
}

// Compare orders two dates by calendar day.
func (d Date) Compare(o Date) int {
	dy, dm, dd := d.Date()
	oy, om, od := o.Date()
	switch {
	case dy != oy:
		return cmpInt(dy, oy)
	case dm != om:
		return cmpInt(int(dm), int(om))
	default:
		return cmpInt(dd, od)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("%w: %s", ErrInvalidDate, s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate checks a draft the way manual entry does before it reaches the store.
func (t TransactionDraft) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	return t.Date.Validate()
}

// WithID turns the draft into a stored transaction.
func (t TransactionDraft) WithID(id int64) Transaction {
	return Transaction{
		ID:          id,
		Type:        t.Type,
		Amount:      t.Amount,
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date,
	}
}

func (t Transaction) IsIncome() bool  { return t.Type == Income }
func (t Transaction) IsExpense() bool { return t.Type == Expense }
