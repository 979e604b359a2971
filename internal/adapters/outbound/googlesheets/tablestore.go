package googlesheets

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/raneja-ux/potluck-app/internal/domain/entity"
	"github.com/raneja-ux/potluck-app/internal/ports/outbound"
)

// Compile-time checks that TableStore implements the outbound ports.
var (
	_ outbound.TableStore = (*TableStore)(nil)
	_ outbound.Pinger     = (*TableStore)(nil)
)

// sheetHeader is the first row of the worksheet.
var sheetHeader = []string{"Name", "Category", "Dish", "Note"}

// TableStore implements the TableStore port on a Google Sheets worksheet.
// Columns are located by header name, so reordering columns in the
// spreadsheet does not break reads.
type TableStore struct {
	client *Client
	sheet  string
	logger *slog.Logger
}

// NewTableStore creates a table store over one worksheet.
// An empty sheetName defaults to "Sheet1".
func NewTableStore(client *Client, sheetName string, logger *slog.Logger) (*TableStore, error) {
	if client == nil {
		return nil, fmt.Errorf("sheets client cannot be nil")
	}
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TableStore{
		client: client,
		sheet:  sheetName,
		logger: logger.With("component", "sheets-table-store"),
	}, nil
}

// sheetRange builds an A1 reference with the worksheet title quoted, so
// titles with spaces or apostrophes stay valid.
func (s *TableStore) sheetRange(suffix string) string {
	quoted := "'" + strings.ReplaceAll(s.sheet, "'", "''") + "'"
	if suffix == "" {
		return quoted
	}
	return quoted + "!" + suffix
}

// Read returns every entry on the worksheet in row order.
// The API serves the current sheet, so the freshness hint is not used here;
// wrap the store in the cached decorator to serve aged copies.
//
// A header row missing any of the required Name, Category or Dish columns
// reads as an empty sheet rather than an error. The sheet is hand-editable,
// and the next Write lays the canonical header back down.
func (s *TableStore) Read(ctx context.Context, _ time.Duration) ([]entity.Entry, error) {
	vr, err := s.client.getValues(ctx, s.sheetRange(""))
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", s.sheet, err)
	}
	if len(vr.Values) == 0 {
		return nil, nil
	}

	cols, ok := headerIndex(vr.Values[0])
	if !ok {
		s.logger.Warn("header row is missing Name, Category or Dish; reading sheet as empty",
			"sheet", s.sheet, "header", fmt.Sprint(vr.Values[0]))
		return nil, nil
	}

	var entries []entity.Entry
	for _, row := range vr.Values[1:] {
		e := entity.Entry{
			Name:     cell(row, cols.name),
			Category: entity.Category(cell(row, cols.category)),
			Dish:     cell(row, cols.dish),
			Note:     cell(row, cols.note),
		}
		// Hand-edited sheets accumulate blank tail rows; drop them.
		if e.Name == "" && e.Category == "" && e.Dish == "" && e.Note == "" {
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Write replaces the whole worksheet with the header row and entries.
// The clear and update are two API calls; a concurrent reader can glimpse an
// empty sheet between them.
func (s *TableStore) Write(ctx context.Context, entries []entity.Entry) error {
	if err := s.client.clearValues(ctx, s.sheetRange("")); err != nil {
		return fmt.Errorf("failed to clear sheet %s: %w", s.sheet, err)
	}

	values := make([][]any, 0, len(entries)+1)
	header := make([]any, len(sheetHeader))
	for i, h := range sheetHeader {
		header[i] = h
	}
	values = append(values, header)
	for _, e := range entries {
		values = append(values, []any{e.Name, string(e.Category), e.Dish, e.Note})
	}

	if err := s.client.updateValues(ctx, s.sheetRange("A1"), values); err != nil {
		return fmt.Errorf("failed to write sheet %s: %w", s.sheet, err)
	}

	s.logger.Debug("rewrote sheet", "sheet", s.sheet, "rows", len(entries))
	return nil
}

// InvalidateCache is a no-op; caching lives in the cached decorator.
func (s *TableStore) InvalidateCache(_ context.Context) {}

// Ping checks that the spreadsheet is reachable and readable.
func (s *TableStore) Ping(ctx context.Context) error {
	if _, err := s.client.getValues(ctx, s.sheetRange("A1:A1")); err != nil {
		return fmt.Errorf("failed to reach sheet %s: %w", s.sheet, err)
	}
	return nil
}

// columnIndex locates the sheet columns by header name.
type columnIndex struct {
	name, category, dish, note int
}

// headerIndex reports false when any required column is absent. Note is
// optional; a missing Note column reads as "" for every row.
func headerIndex(header []any) (columnIndex, bool) {
	cols := columnIndex{name: -1, category: -1, dish: -1, note: -1}
	for i, h := range header {
		switch {
		case strings.EqualFold(cellString(h), "Name"):
			cols.name = i
		case strings.EqualFold(cellString(h), "Category"):
			cols.category = i
		case strings.EqualFold(cellString(h), "Dish"):
			cols.dish = i
		case strings.EqualFold(cellString(h), "Note"):
			cols.note = i
		}
	}
	if cols.name < 0 || cols.category < 0 || cols.dish < 0 {
		return cols, false
	}
	return cols, true
}

// cell returns the row value at idx, with short rows padded to "".
func cell(row []any, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return cellString(row[idx])
}
