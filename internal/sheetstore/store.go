package sheetstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"idmeapi/internal/config"
	apperrors "idmeapi/internal/errors"
	"idmeapi/internal/license"
)

// Store is the Google Sheets backed implementation of license.Store.
type Store struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	logger        *slog.Logger
}

// New creates a Store using service account credentials from the configured
// credentials file.
func New(ctx context.Context, cfg config.SheetsConfig, logger *slog.Logger) (*Store, error) {
	service, err := sheets.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return NewWithService(service, cfg, logger), nil
}

// NewWithService creates a Store on an existing sheets service. Used by
// tests and by callers that manage credentials themselves.
func NewWithService(service *sheets.Service, cfg config.SheetsConfig, logger *slog.Logger) *Store {
	return &Store{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		logger:        logger,
	}
}

// dataRange covers every license row, skipping the header.
func (s *Store) dataRange() string {
	return fmt.Sprintf("%s!A2:V", s.sheetName)
}

// FindByKey returns the record whose column A matches key. Comparison trims
// whitespace because hand-pasted keys often carry trailing spaces.
func (s *Store) FindByKey(ctx context.Context, key string) (*license.Record, error) {
	rec, _, err := s.findRow(ctx, key)
	return rec, err
}

// findRow locates a record and its 1-based sheet row number.
func (s *Store) findRow(ctx context.Context, key string) (*license.Record, int, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.dataRange()).
		Context(ctx).Do()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read license sheet: %w", err)
	}

	want := strings.TrimSpace(key)
	for i, row := range resp.Values {
		if cellString(row, colKey) == want {
			// Data starts at sheet row 2.
			return rowToRecord(row), i + 2, nil
		}
	}
	return nil, 0, apperrors.ErrLicenseNotFound
}

// Update rewrites the full row of an existing record. Last writer wins.
func (s *Store) Update(ctx context.Context, rec *license.Record) error {
	_, rowNum, err := s.findRow(ctx, rec.Key)
	if err != nil {
		return err
	}

	writeRange := fmt.Sprintf("%s!A%d:V%d", s.sheetName, rowNum, rowNum)
	valueRange := &sheets.ValueRange{Values: [][]interface{}{recordToRow(rec)}}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, writeRange, valueRange).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update license row: %w", err)
	}

	s.logger.DebugContext(ctx, "license row updated",
		"key", license.MaskKey(rec.Key),
		"row", rowNum,
	)
	return nil
}

// Append adds a new record below the existing rows.
func (s *Store) Append(ctx context.Context, rec *license.Record) error {
	valueRange := &sheets.ValueRange{Values: [][]interface{}{recordToRow(rec)}}

	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.dataRange(), valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to append license row: %w", err)
	}

	s.logger.DebugContext(ctx, "license row appended",
		"key", license.MaskKey(rec.Key),
	)
	return nil
}

// KeyExists reports whether a key occupies any row. Only column A is
// fetched.
func (s *Store) KeyExists(ctx context.Context, key string) (bool, error) {
	keyRange := fmt.Sprintf("%s!A2:A", s.sheetName)
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, keyRange).
		Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("failed to read license keys: %w", err)
	}

	want := strings.TrimSpace(key)
	for _, row := range resp.Values {
		if cellString(row, 0) == want {
			return true, nil
		}
	}
	return false, nil
}

// All returns every license record in sheet order. Rows with an empty key
// cell are skipped.
func (s *Store) All(ctx context.Context) ([]license.Record, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.dataRange()).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to read license sheet: %w", err)
	}

	records := make([]license.Record, 0, len(resp.Values))
	for _, row := range resp.Values {
		if cellString(row, colKey) == "" {
			continue
		}
		records = append(records, *rowToRecord(row))
	}
	return records, nil
}

// Ping verifies the spreadsheet is reachable and the credentials work.
// Used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Get(s.spreadsheetID).
		Fields("spreadsheetId").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheet unreachable: %w", err)
	}
	return nil
}
