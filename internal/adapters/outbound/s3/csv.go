package s3

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/raneja-ux/potluck-app/internal/domain/entity"
)

// csvHeader is the first row of the sheet object.
var csvHeader = []string{"Name", "Category", "Dish", "Note"}

// encodeEntries renders the sheet as CSV with a fixed header row.
func encodeEntries(entries []entity.Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, e := range entries {
		record := []string{e.Name, string(e.Category), e.Dish, e.Note}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeEntries parses a sheet object produced by encodeEntries.
// An empty object decodes as an empty sheet.
func decodeEntries(r io.Reader) ([]entity.Entry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(csvHeader)

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	if !headerMatches(header) {
		return nil, fmt.Errorf("unexpected csv header %v, want %v", header, csvHeader)
	}

	var entries []entity.Entry
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv row: %w", err)
		}
		entries = append(entries, entity.Entry{
			Name:     record[0],
			Category: entity.Category(record[1]),
			Dish:     record[2],
			Note:     record[3],
		})
	}
	return entries, nil
}

func headerMatches(header []string) bool {
	if len(header) != len(csvHeader) {
		return false
	}
	for i := range csvHeader {
		if header[i] != csvHeader[i] {
			return false
		}
	}
	return true
}
