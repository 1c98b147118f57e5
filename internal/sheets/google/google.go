// Package google mirrors ledger records into a Google Sheets spreadsheet.
// One row per record, keyed by the record UUID in column A, authenticated
// with service account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"piggyflow/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Row layout: A=ID, B=Kind, C=Date, D=Title, E=Emoji, F=Amount, G=Note.
const rowWidth = "A:G"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// numeric sheet id, resolved lazily for row deletion
	sheetID    int64
	sheetIDSet bool
}

var _ sheets.RecordMirror = (*Client)(nil)

// New creates a mirror client. Credentials come from credentialsJSON when
// set, otherwise from credentialsFile.
func New(ctx context.Context, spreadsheetID, sheetName, credentialsFile, credentialsJSON string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(sheetName) == "" {
		return nil, errors.New("missing sheet name")
	}

	creds := []byte(credentialsJSON)
	if len(creds) == 0 {
		if credentialsFile == "" {
			return nil, errors.New("missing service account credentials")
		}
		var err error
		creds, err = os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// Upsert writes the record's row, replacing the existing one when the ID is
// already present and appending otherwise.
func (c *Client) Upsert(ctx context.Context, row sheets.RecordRow) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	idx, err := c.findRow(ctx, row.ID)
	if err != nil {
		return err
	}

	values := &gsheet.ValueRange{Values: [][]any{buildRow(row)}}

	if idx >= 0 {
		rng := fmt.Sprintf("%s!A%d:G%d", c.sheetName, idx+1, idx+1)
		_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, values).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update row %d in sheet %s: %w", idx+1, c.sheetName, err)
		}
		slog.InfoContext(ctx, "Mirrored record updated", "kind", row.Kind, "id", row.ID, "row", idx+1)
		return nil
	}

	rng := fmt.Sprintf("%s!%s", c.sheetName, rowWidth)
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, values).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append row to sheet %s: %w", c.sheetName, err)
	}
	slog.InfoContext(ctx, "Mirrored record appended", "kind", row.Kind, "id", row.ID)
	return nil
}

// Delete removes the record's row. A missing row is not an error so that
// replayed deletion messages ack cleanly.
func (c *Client) Delete(ctx context.Context, kind, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	idx, err := c.findRow(ctx, id)
	if err != nil {
		return err
	}
	if idx < 0 {
		slog.InfoContext(ctx, "Mirror row already gone", "kind", kind, "id", id)
		return nil
	}

	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(idx),
					EndIndex:   int64(idx + 1),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in sheet %s: %w", idx+1, c.sheetName, err)
	}

	slog.InfoContext(ctx, "Mirror row deleted", "kind", kind, "id", id, "row", idx+1)
	return nil
}

// findRow returns the zero-based index of the row whose column A equals id,
// or -1 when absent.
func (c *Client) findRow(ctx context.Context, id string) (int, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return -1, fmt.Errorf("read ids from sheet %s: %w", c.sheetName, err)
	}
	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == id {
			return i, nil
		}
	}
	return -1, nil
}

func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	if c.sheetIDSet {
		return c.sheetID, nil
	}
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	for _, s := range meta.Sheets {
		if s.Properties != nil && s.Properties.Title == c.sheetName {
			c.sheetID = s.Properties.SheetId
			c.sheetIDSet = true
			return c.sheetID, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", c.sheetName)
}

func buildRow(row sheets.RecordRow) []any {
	return []any{
		row.ID,
		row.Kind,
		row.Date,
		row.Title,
		row.Emoji,
		centsToDecimal(row.AmountCents),
		row.Note,
	}
}

// centsToDecimal renders an integer cent amount as a plain decimal string,
// avoiding float formatting drift in the sheet.
func centsToDecimal(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
