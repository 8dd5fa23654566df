// Package export renders a transaction view as a downloadable document.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"saralfin/internal/core"
)

// Format selects the document encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// CSVHeader is the first line of every CSV export.
const CSVHeader = "type,amount,category,description,date"

// Filename is the suggested download name of the CSV export.
const Filename = "transactions.csv"

// ParseFormat maps a request value to a Format. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatYAML, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType is the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatYAML:
		return "application/yaml; charset=utf-8"
	case FormatJSON:
		return "application/json; charset=utf-8"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Filename is the download name for f.
func (f Format) Filename() string {
	switch f {
	case FormatYAML:
		return "transactions.yaml"
	case FormatJSON:
		return "transactions.json"
	default:
		return Filename
	}
}

// Write encodes txs in format f.
func Write(w io.Writer, f Format, txs []core.Transaction) error {
	switch f {
	case FormatYAML:
		b, err := YAML(txs)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case FormatJSON:
		b, err := JSON(txs)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	default:
		return WriteCSV(w, txs)
	}
}

// CSV returns the export as a string. See WriteCSV.
func CSV(txs []core.Transaction) string {
	var buf bytes.Buffer
	_ = WriteCSV(&buf, txs)
	return buf.String()
}

// WriteCSV writes the header, a newline, then one row per transaction with
// rows separated by newlines and no trailing newline. Category and
// description are always quoted with embedded quotes doubled; the other
// fields never need quoting.
func WriteCSV(w io.Writer, txs []core.Transaction) error {
	var b strings.Builder
	b.WriteString(CSVHeader)
	b.WriteByte('\n')
	for i, t := range txs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(string(t.Type))
		b.WriteByte(',')
		b.WriteString(t.Amount.String())
		b.WriteByte(',')
		b.WriteString(quote(t.Category))
		b.WriteByte(',')
		b.WriteString(quote(t.Description))
		b.WriteByte(',')
		b.WriteString(t.Date.String())
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

type yamlRow struct {
	ID          int64  `yaml:"id"`
	Type        string `yaml:"type"`
	Amount      string `yaml:"amount"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
	Date        string `yaml:"date"`
}

// YAML encodes txs as a YAML sequence. Amounts are strings so no precision
// is lost to float parsing on the way back in.
func YAML(txs []core.Transaction) ([]byte, error) {
	rows := make([]yamlRow, 0, len(txs))
	for _, t := range txs {
		rows = append(rows, yamlRow{
			ID:          t.ID,
			Type:        string(t.Type),
			Amount:      t.Amount.String(),
			Category:    t.Category,
			Description: t.Description,
			Date:        t.Date.String(),
		})
	}
	return yaml.Marshal(rows)
}

// JSON encodes txs in the persisted record shape.
func JSON(txs []core.Transaction) ([]byte, error) {
	if txs == nil {
		txs = []core.Transaction{}
	}
	return json.MarshalIndent(txs, "", "  ")
}
