package catalog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ImportResult summarizes a CSV import run.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportCSV reads product rows and creates them one by one. Rows that
// fail validation or duplicate checks are skipped and reported; the run
// itself only fails on unreadable input.
func (s *Service) ImportCSV(ctx context.Context, r io.Reader, actorID int64) (ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return ImportResult{}, fmt.Errorf("%w: cannot read header row", ErrValidation)
	}
	index := map[string]int{}
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, required := range []string{"code", "name", "brand"} {
		if _, ok := index[required]; !ok {
			return ImportResult{}, fmt.Errorf("%w: missing column %q", ErrValidation, required)
		}
	}

	field := func(record []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var result ImportResult
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return result, fmt.Errorf("%w: malformed row at line %d", ErrValidation, line)
		}

		input := CreateProductInput{
			Code:        field(record, "code"),
			Name:        field(record, "name"),
			BrandName:   field(record, "brand"),
			Description: field(record, "description"),
			ActorID:     actorID,
		}
		if raw := field(record, "pricevnd"); raw != "" {
			price, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("line %d: invalid price %q", line, raw))
				continue
			}
			input.PriceVnd = price
		}
		if raw := field(record, "stock"); raw != "" {
			stock, err := strconv.Atoi(raw)
			if err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("line %d: invalid stock %q", line, raw))
				continue
			}
			input.Stock = stock
		}
		if raw := field(record, "status"); raw != "" {
			status, err := strconv.Atoi(raw)
			if err != nil {
				result.Skipped++
				result.Errors = append(result.Errors, fmt.Sprintf("line %d: invalid status %q", line, raw))
				continue
			}
			input.Status = &status
		}

		if _, err := s.Create(ctx, input); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		result.Imported++
	}
	return result, nil
}
