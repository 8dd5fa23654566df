package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"saralfin/internal/core"
)

var today = core.NewDate(2025, 3, 15)

func newParser(body, contentType string) *RequestBodyParser {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return NewRequestBodyParser(r)
}

func TestParseDraft(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		ctype   string
		want    core.TransactionDraft
		wantErr error
	}{
		{
			name:  "form",
			body:  "type=expense&amount=120.50&category=Food&description=Thali&date=2025-03-01",
			ctype: "application/x-www-form-urlencoded",
			want: core.TransactionDraft{
				Type: core.Expense, Amount: core.MustAmount("120.5"), Category: "Food",
				Description: "Thali", Date: core.NewDate(2025, 3, 1),
			},
		},
		{
			name:  "json number amount, default date",
			body:  `{"type":"income","amount":5000,"category":"Allowance","description":"Monthly"}`,
			ctype: "application/json",
			want: core.TransactionDraft{
				Type: core.Income, Amount: core.AmountFromInt(5000), Category: "Allowance",
				Description: "Monthly", Date: today,
			},
		},
		{
			name:  "json string amount keeps every digit",
			body:  `{"type":"expense","amount":"12.345","category":"Food","description":"Chai"}`,
			ctype: "application/json",
			want: core.TransactionDraft{
				Type: core.Expense, Amount: core.MustAmount("12.345"), Category: "Food",
				Description: "Chai", Date: today,
			},
		},
		{
			name:  "sub-paisa amount is not rounded to zero",
			body:  "type=expense&amount=0.004&category=Food&description=Toffee",
			ctype: "application/x-www-form-urlencoded",
			want: core.TransactionDraft{
				Type: core.Expense, Amount: core.MustAmount("0.004"), Category: "Food",
				Description: "Toffee", Date: today,
			},
		},
		{
			name:  "json number amount keeps every digit",
			body:  `{"type":"expense","amount":99.999,"category":"Food","description":"Thali"}`,
			ctype: "application/json",
			want: core.TransactionDraft{
				Type: core.Expense, Amount: core.MustAmount("99.999"), Category: "Food",
				Description: "Thali", Date: today,
			},
		},
		{name: "bad type", body: "type=gift&amount=1&category=x&description=y", wantErr: core.ErrInvalidType},
		{name: "negative", body: "type=expense&amount=-5&category=x&description=y", wantErr: core.ErrNegativeAmount},
		{name: "not a number", body: "type=expense&amount=abc&category=x&description=y", wantErr: core.ErrInvalidAmount},
		{name: "blank description", body: "type=expense&amount=5&category=x&description=%20", wantErr: core.ErrEmptyDescription},
		{name: "missing category", body: "type=expense&amount=5&description=y", wantErr: core.ErrEmptyCategory},
		{name: "bad date", body: "type=expense&amount=5&category=x&description=y&date=15/03/2025", wantErr: core.ErrInvalidDate},
		{name: "broken json", body: `{"type":`, ctype: "application/json", wantErr: errMalformedBody},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDraft(newParser(tt.body, tt.ctype), today)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDraft: %v", err)
			}
			if got.Type != tt.want.Type || !got.Amount.Equal(tt.want.Amount) || got.Category != tt.want.Category ||
				got.Description != tt.want.Description || !got.Date.Equal(tt.want.Date) {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseBudget(t *testing.T) {
	tests := []struct {
		body    string
		want    string
		wantErr error
	}{
		{`{"budget":4500}`, "4500", nil},
		{"amount=300", "300", nil},
		{`{"budget":-1}`, "", core.ErrNegativeAmount},
		{`{"budget":"lots"}`, "", core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		got, err := ParseBudget(newParser(tt.body, ""))
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("%s: err = %v, want %v", tt.body, err, tt.wantErr)
			}
			continue
		}
		if err != nil || got.String() != tt.want {
			t.Errorf("%s: got %v, %v", tt.body, got, err)
		}
	}
}

func TestParseRefDate(t *testing.T) {
	d, err := ParseRefDate(url.Values{}, today)
	if err != nil || !d.Equal(today) {
		t.Fatalf("default = %v, %v", d, err)
	}
	d, err = ParseRefDate(url.Values{"date": {"2024-12-31"}}, today)
	if err != nil || d.String() != "2024-12-31" {
		t.Fatalf("explicit = %v, %v", d, err)
	}
	if _, err := ParseRefDate(url.Values{"date": {"yesterday"}}, today); !errors.Is(err, core.ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  a\x00b\tc\n "); got != "ab\tc" {
		t.Errorf("sanitizeInput = %q", got)
	}
}

func TestBodyTooLarge(t *testing.T) {
	p := newParser(strings.Repeat("a", maxBodyBytes+1), "text/csv")
	if err := p.Parse(); err == nil {
		t.Fatal("expected size error")
	}
}
