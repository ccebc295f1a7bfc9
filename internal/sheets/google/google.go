package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"financeflow/internal/log"
	ports "financeflow/internal/sheets"
)

var ErrMissingCredentials = errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")

// Config selects the target spreadsheet and the service account used to
// write to it. CredentialsJSON takes precedence over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

var _ ports.Exporter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	var credOpt goption.ClientOption
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credOpt = goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON))
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		slog.InfoContext(ctx, "Using service account credentials file", "path", cfg.CredentialsFile)
		credOpt = goption.WithCredentialsFile(cfg.CredentialsFile)
	default:
		return nil, ErrMissingCredentials
	}

	svc, err := gsheet.NewService(ctx, credOpt, goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an already configured Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if sheetName == "" {
		sheetName = "Summary"
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

// AppendRows implements sheets.Exporter. Rows go after the last row of
// columns A:F of the configured sheet.
func (c *Client) AppendRows(ctx context.Context, rows []ports.SummaryRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if len(rows) == 0 {
		return "", nil
	}

	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = r.Values()
	}

	rng := fmt.Sprintf("%s!A:F", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append rows to sheet %s: %w", c.sheetName, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	slog.InfoContext(ctx, "Appended summary rows",
		log.FieldComponent, log.ComponentSheets,
		log.FieldOperation, log.OpExport,
		"sheet", c.sheetName,
		"rows", len(rows),
		"range", ref)
	return ref, nil
}
