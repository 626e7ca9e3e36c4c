package catalog

import (
	"io"
	"strconv"
	"strings"
	"time"
)

const exportDateLayout = "2006-01-02 15:04:05"

var exportHeader = []string{"Id", "Code", "Name", "Brand", "PriceVnd", "Stock", "Status", "Description", "CreateDate", "LastUpdate"}

// WriteCSV serializes product views for download. Every field is quoted
// with embedded quotes doubled, which downstream spreadsheet tooling
// expects regardless of content. encoding/csv only quotes on demand, so
// the records are written by hand.
func WriteCSV(w io.Writer, products []ProductView) error {
	if err := writeCSVRecord(w, exportHeader); err != nil {
		return err
	}
	for _, p := range products {
		record := []string{
			strconv.FormatInt(p.ID, 10),
			p.Code,
			p.Name,
			p.BrandName,
			strconv.FormatFloat(p.PriceVnd, 'f', -1, 64),
			strconv.Itoa(p.Stock),
			strconv.Itoa(p.Status),
			p.Description,
			formatExportDate(p.CreatedAt),
			formatExportDate(p.UpdatedAt),
		}
		if err := writeCSVRecord(w, record); err != nil {
			return err
		}
	}
	return nil
}

func writeCSVRecord(w io.Writer, fields []string) error {
	var b strings.Builder
	for i, field := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(field, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteString("\r\n")
	_, err := io.WriteString(w, b.String())
	return err
}

func formatExportDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(exportDateLayout)
}
