// Package core provides money parsing and handling utilities.
//
// Amounts are currency-agnostic decimals. They are stored and exchanged as plain
// JSON numbers; only the presentation helpers know about rupees.
package core

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Amount is a non-negative decimal quantity.
type Amount struct {
	decimal.Decimal
}

// Zero is the additive identity.
var Zero = Amount{}

// NewAmount wraps a decimal.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// AmountFromInt builds a whole amount.
func AmountFromInt(v int64) Amount {
	return Amount{Decimal: decimal.NewFromInt(v)}
}

// MustAmount parses s and panics on error. Intended for tests and constants.
func MustAmount(s string) Amount {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return Amount{Decimal: d}
}

// ParseAmount converts user input such as "12.34" to an Amount.
//
// Only digits and a single dot are accepted; signs, exponents and thousands
// separators are rejected rather than coerced. The value is kept exactly as
// entered, with no rounding.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("0.004")  -> 0.004, nil
//	ParseAmount("-1")     -> ErrInvalidAmount
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return Amount{}, ErrInvalidAmount
	}
	if parts[0] == "" && (len(parts) == 1 || parts[1] == "") {
		return Amount{}, ErrInvalidAmount
	}
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) || r > unicode.MaxASCII {
				return Amount{}, ErrInvalidAmount
			}
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, ErrInvalidAmount
	}
	return Amount{Decimal: d}, nil
}

// Validate rejects negative amounts.
func (a Amount) Validate() error {
	if a.Decimal.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

func (a Amount) Add(b Amount) Amount {
	return Amount{Decimal: a.Decimal.Add(b.Decimal)}
}

func (a Amount) Sub(b Amount) Amount {
	return Amount{Decimal: a.Decimal.Sub(b.Decimal)}
}

func (a Amount) Equal(b Amount) bool {
	return a.Decimal.Equal(b.Decimal)
}

func (a Amount) Cmp(b Amount) int {
	return a.Decimal.Cmp(b.Decimal)
}

// String renders the plain number, e.g. "300" or "12.5".
func (a Amount) String() string {
	return a.Decimal.String()
}

// MarshalJSON writes a bare JSON number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON only accepts a bare JSON number; quoted strings are rejected.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] == '"' || bytes.Equal(b, []byte("null")) {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, b)
	}
	d, err := decimal.NewFromString(string(b))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidAmount, b)
	}
	a.Decimal = d
	return nil
}

var inrPrinter = message.NewPrinter(language.MustParse("en-IN"))

// FormatINR renders an amount for people, e.g. "₹1,000" or "₹12.5".
func FormatINR(a Amount) string {
	neg := a.Decimal.IsNegative()
	v := a.Decimal.Abs().InexactFloat64()
	s := inrPrinter.Sprintf("%v", number.Decimal(v, number.MaxFractionDigits(2)))
	if neg {
		return "-₹" + s
	}
	return "₹" + s
}
