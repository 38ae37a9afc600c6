// Package sheets appends ledger entries to a Google Sheets spreadsheet, the
// export target of the background worker.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"kassa/internal/core"
	"kassa/internal/log"
)

type Exporter struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

// New creates an exporter for one spreadsheet. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or application
// default credentials.
func New(ctx context.Context, spreadsheetID, sheetName string, logger *log.Logger) (*Exporter, error) {
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Exporter{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(log.ComponentExport),
	}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	if credsJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")); credsJSON != "" {
		return gsheet.NewService(ctx, goption.WithCredentialsJSON([]byte(credsJSON)))
	}
	if credsFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE")); credsFile != "" {
		return gsheet.NewService(ctx, goption.WithCredentialsFile(credsFile))
	}
	// Fall back to application default credentials.
	return gsheet.NewService(ctx)
}

// Row is one exported entry with its display names resolved. A deleted row
// is a reversal marker: the sheet is append-only, so deletions are recorded
// rather than erased.
type Row struct {
	Entry    core.Entry
	Category string
	Account  string
	Deleted  bool
}

// Append writes one entry row at the bottom of the sheet. The entry id in
// the last column lets a re-export be reconciled by hand if needed.
func (e *Exporter) Append(ctx context.Context, row Row) error {
	typ := string(row.Entry.Type)
	amount := row.Entry.Amount.String()
	if row.Deleted {
		typ = "deleted"
		amount = ""
	}

	vr := &gsheet.ValueRange{Values: [][]any{{
		row.Entry.Date.Format("2006-01-02"),
		typ,
		amount,
		row.Category,
		row.Account,
		row.Entry.Description,
		row.Entry.ID,
	}}}

	_, err := e.svc.Spreadsheets.Values.
		Append(e.spreadsheetID, e.sheetName+"!A:G", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append row: %w", err)
	}

	e.logger.InfoContext(ctx, "entry exported",
		log.FieldOperation, log.OpExport,
		"entry_id", row.Entry.ID,
		"sheet", e.sheetName)
	return nil
}
