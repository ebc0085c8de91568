package recorder

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/annotation-study/registration/internal/config"
	"github.com/annotation-study/registration/internal/registration"
)

const valueInputRaw = "RAW"

// SheetsSink appends records to a Google Sheets tab. Row 1 holds the header;
// it is written when found empty.
type SheetsSink struct {
	values        *sheets.SpreadsheetsValuesService
	spreadsheetID string
	sheetName     string
}

// NewSheetsSink authenticates with a service account key from cfg. Extra
// client options are appended after the credentials.
func NewSheetsSink(ctx context.Context, cfg *config.SheetsSinkConfig, extra ...option.ClientOption) (*SheetsSink, error) {
	keyJSON := []byte(cfg.CredentialsJSON)
	if len(keyJSON) == 0 {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheets credentials: %w", err)
		}
		keyJSON = data
	}

	creds, err := google.CredentialsFromJSON(ctx, keyJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sheets credentials: %w", err)
	}

	opts := append([]option.ClientOption{option.WithCredentials(creds)}, extra...)
	return newSheetsSink(ctx, cfg, opts...)
}

func newSheetsSink(ctx context.Context, cfg *config.SheetsSinkConfig, opts ...option.ClientOption) (*SheetsSink, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets client: %w", err)
	}

	sheetName := cfg.SheetName
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	return &SheetsSink{
		values:        svc.Spreadsheets.Values,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// Name implements Sink
func (s *SheetsSink) Name() string { return "sheets" }

// Append implements Sink
func (s *SheetsSink) Append(ctx context.Context, rec *registration.Record) error {
	if err := s.ensureHeader(ctx); err != nil {
		return err
	}

	row := &sheets.ValueRange{Values: [][]interface{}{toCells(rec.Fields())}}
	_, err := s.values.Append(s.spreadsheetID, s.sheetName, row).
		ValueInputOption(valueInputRaw).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}

func (s *SheetsSink) ensureHeader(ctx context.Context) error {
	firstRow := s.sheetName + "!1:1"
	got, err := s.values.Get(s.spreadsheetID, firstRow).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read header row: %w", err)
	}
	if len(got.Values) > 0 && len(got.Values[0]) > 0 {
		return nil
	}

	header := &sheets.ValueRange{Values: [][]interface{}{toCells(registration.Header)}}
	_, err = s.values.Update(s.spreadsheetID, s.sheetName+"!A1", header).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to write header row: %w", err)
	}
	return nil
}

func toCells(fields []string) []interface{} {
	cells := make([]interface{}, len(fields))
	for i, f := range fields {
		cells[i] = f
	}
	return cells
}
