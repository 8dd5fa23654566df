// Package google mirrors transactions into a Google Sheets tab.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"saralfin/internal/core"
	ports "saralfin/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
	ClientOptions      []goption.ClientOption
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.TransactionMirror = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet ID")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Transactions"
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

// newSheetsService initializes a Sheets Service from inline JSON or a key file.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"scope", gsheet.SpreadsheetsScope)

	opts := []goption.ClientOption{
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}
	opts = append(opts, cfg.ClientOptions...)
	service, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Append writes t on the first free row, adding the header on an empty sheet.
// A row already carrying t's id is left as is.
func (c *Client) Append(ctx context.Context, t core.Transaction) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	ids, err := c.readCol(ctx, "A:A")
	if err != nil {
		return "", err
	}
	if row := rowOf(ids, t.ID); row > 0 {
		slog.DebugContext(ctx, "Transaction already mirrored", "transaction_id", t.ID, "row", row)
		return c.rowRef(row), nil
	}

	nextRow := len(ids) + 1
	values := [][]any{}
	if len(ids) == 0 {
		values = append(values, toAny(ports.Header))
		nextRow++
	}
	values = append(values, []any{
		strconv.FormatInt(t.ID, 10),
		t.Type.String(),
		t.Amount.InexactFloat64(),
		t.Category,
		t.Description,
		t.Date.String(),
	})

	startRow := nextRow - len(values) + 1
	rng := fmt.Sprintf("%s!A%d:F%d", c.quotedSheet(), startRow, nextRow)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to update %s: %w", rng, err)
	}
	return c.rowRef(nextRow), nil
}

// Delete removes the row whose id column equals id. Missing ids are ignored.
func (c *Client) Delete(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	ids, err := c.readCol(ctx, "A:A")
	if err != nil {
		return err
	}
	row := rowOf(ids, id)
	if row == 0 {
		slog.DebugContext(ctx, "Transaction not in mirror, nothing to delete", "transaction_id", id)
		return nil
	}

	sheetID, err := c.sheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d: %w", row, err)
	}
	return nil
}

func (c *Client) readCol(ctx context.Context, col string) ([]string, error) {
	rng := fmt.Sprintf("%s!%s", c.quotedSheet(), col)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(row[0]))
	}
	return out, nil
}

func (c *Client) sheetID(ctx context.Context) (int64, error) {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			return sh.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheetName)
}

func (c *Client) quotedSheet() string {
	return "'" + strings.ReplaceAll(c.sheetName, "'", "''") + "'"
}

func (c *Client) rowRef(row int) string {
	return fmt.Sprintf("%s!A%d:F%d", c.sheetName, row, row)
}

// rowOf returns the 1-based row holding id, or 0.
func rowOf(ids []string, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, v := range ids {
		if v == want {
			return i + 1
		}
	}
	return 0
}

func toAny(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
