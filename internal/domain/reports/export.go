package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
)

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// WriteCSV writes a header row followed by one record per result row.
func WriteCSV(w io.Writer, r *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Result.Columns); err != nil {
		return err
	}
	record := make([]string, len(r.Result.Columns))
	for _, row := range r.Result.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = formatCell(row[i])
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePDF renders the report as a landscape table.
func WritePDF(w io.Writer, r *Report) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle(r.Type+" report", true)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 10, r.Type+" report")
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 6, "Generated "+r.CreatedAt.UTC().Format(time.RFC3339))
	pdf.Ln(10)

	cols := len(r.Result.Columns)
	if cols == 0 {
		return pdf.Output(w)
	}
	width := 277.0 / float64(cols)
	pdf.SetFont("Helvetica", "B", 9)
	for _, c := range r.Result.Columns {
		pdf.CellFormat(width, 7, c, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	for _, row := range r.Result.Rows {
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(row) {
				cell = formatCell(row[i])
			}
			pdf.CellFormat(width, 6, cell, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(r.Result.Totals) > 0 {
		keys := make([]string, 0, len(r.Result.Totals))
		for k := range r.Result.Totals {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 9)
		for _, k := range keys {
			pdf.Cell(0, 6, fmt.Sprintf("%s: %s", k, formatCell(r.Result.Totals[k])))
			pdf.Ln(5)
		}
	}
	return pdf.Output(w)
}
