package payroll

import (
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// WritePayslipPDF renders p as a one page A4 document.
func WritePayslipPDF(w io.Writer, p *Payslip) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Payslip %s %04d-%02d", p.EmployeeCode, p.Year, p.Month), true)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(40, 10, "Payslip")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s (%s)", p.EmployeeName, p.EmployeeCode))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Period: %s %d", time.Month(p.Month), p.Year))
	pdf.Ln(12)

	row := func(label string, amount float64, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 11)
		pdf.CellFormat(120, 7, label, "B", 0, "L", false, 0, "")
		pdf.CellFormat(50, 7, fmt.Sprintf("%.2f %s", amount, p.Currency), "B", 1, "R", false, 0, "")
	}
	row("Base pay", p.BasePay, false)
	for _, line := range p.Lines {
		if line.Type == LineEarning {
			row(line.Label, line.Amount, false)
		}
	}
	row("Gross", p.Gross, true)
	for _, line := range p.Lines {
		if line.Type == LineDeduction {
			row(line.Label, -line.Amount, false)
		}
	}
	row("Total deductions", -p.TotalDeductions, true)
	row("Net pay", p.Net, true)

	pdf.Ln(8)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 6, "Generated "+p.GeneratedAt.Format(time.RFC3339))
	return pdf.Output(w)
}
