// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating HTTP request data.
// Entry forms post url-encoded fields while API clients post JSON; both reach
// the same draft parser.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"saralfin/internal/core"
)

// maxBodyBytes caps request bodies. CSV uploads for the advisor are the largest.
const maxBodyBytes = 2 << 20

var errMalformedBody = errors.New("malformed request body")

// RequestBodyParser handles different content types for request body parsing.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]any
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once and stores it for later parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if p.err == nil && len(p.body) > maxBodyBytes {
		p.err = fmt.Errorf("request body exceeds %d bytes", maxBodyBytes)
	}
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}

	trimmed := bytes.TrimSpace(p.body)
	if len(trimmed) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if trimmed[0] == '{' || strings.Contains(p.contentType, "application/json") {
		// numbers stay exact: amounts are parsed from their text
		dec := json.NewDecoder(bytes.NewReader(trimmed))
		dec.UseNumber()
		p.jsonData = make(map[string]any)
		if err := dec.Decode(&p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %v", errMalformedBody, err)
			return p.err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(trimmed))
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errMalformedBody, p.err)
	}
	return p.err
}

// Get returns a string value from the parsed data (JSON or form).
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// Has reports whether key was present at all.
func (p *RequestBodyParser) Has(key string) bool {
	if p.jsonData != nil {
		_, ok := p.jsonData[key]
		return ok
	}
	return p.formData != nil && p.formData.Has(key)
}

// GetRaw returns the raw body bytes.
func (p *RequestBodyParser) GetRaw() []byte {
	return p.body
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput drops control characters other than tab and newlines and trims.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// ParseDraft builds a validated draft from an entry form or JSON object. A
// missing date means today.
func ParseDraft(p *RequestBodyParser, today core.Date) (core.TransactionDraft, error) {
	if err := p.Parse(); err != nil {
		return core.TransactionDraft{}, err
	}

	txType, err := core.ParseTransactionType(p.Get("type"))
	if err != nil {
		return core.TransactionDraft{}, err
	}

	amountStr := p.Get("amount")
	if strings.HasPrefix(amountStr, "-") {
		return core.TransactionDraft{}, core.ErrNegativeAmount
	}
	amount, err := core.ParseAmount(amountStr)
	if err != nil {
		return core.TransactionDraft{}, err
	}

	date := today
	if s := p.Get("date"); s != "" {
		if date, err = core.ParseDate(s); err != nil {
			return core.TransactionDraft{}, err
		}
	}

	draft := core.TransactionDraft{
		Type:        txType,
		Amount:      amount,
		Category:    p.Get("category"),
		Description: p.Get("description"),
		Date:        date,
	}
	if err := draft.Validate(); err != nil {
		return core.TransactionDraft{}, err
	}
	return draft, nil
}

// ParseBudget reads the "budget" field, falling back to "amount".
func ParseBudget(p *RequestBodyParser) (core.Amount, error) {
	if err := p.Parse(); err != nil {
		return core.Amount{}, err
	}
	s := p.Get("budget")
	if !p.Has("budget") {
		s = p.Get("amount")
	}
	if strings.HasPrefix(s, "-") {
		return core.Amount{}, core.ErrNegativeAmount
	}
	return core.ParseAmount(s)
}

// ParseRefDate reads the optional ?date= reference day.
func ParseRefDate(query url.Values, today core.Date) (core.Date, error) {
	s := strings.TrimSpace(query.Get("date"))
	if s == "" {
		return today, nil
	}
	return core.ParseDate(s)
}

// isValidationError reports whether err is a user input problem (422).
func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidType,
		core.ErrInvalidDate,
		core.ErrInvalidAmount,
		core.ErrNegativeAmount,
		core.ErrEmptyDescription,
		core.ErrEmptyCategory,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
