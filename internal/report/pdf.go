// Package report renders applicant evaluation reports as PDF.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Dan9191/loan-service/internal/models"
	"github.com/go-pdf/fpdf"
)

// Data is everything printed on one report
type Data struct {
	Applicant   models.Applicant
	Narrative   string
	Quote       *models.LoanQuote
	GeneratedAt time.Time
}

const scheduleRows = 12

// RenderPDF writes the evaluation report for d to w
func RenderPDF(w io.Writer, d Data) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	a := d.Applicant

	pdf.SetTitle("Loan Evaluation Report", false)
	pdf.SetAuthor("Loan Service", false)
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "Loan Evaluation Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, "Generated "+d.GeneratedAt.Format("2006-01-02 15:04 MST"), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	section(pdf, "Applicant Information")
	row(pdf, tr, "Name", a.Name)
	row(pdf, tr, "Email", a.Email)
	row(pdf, tr, "Application ID", a.ID)
	row(pdf, tr, "Application Date", a.ApplicationDate)
	row(pdf, tr, "Loan Type", string(a.LoanType))
	row(pdf, tr, "Branch", a.Branch)
	row(pdf, tr, "Loan Amount", money(a.LoanAmount))
	row(pdf, tr, "Loan Tenure", fmt.Sprintf("%d months", a.LoanTenure))
	row(pdf, tr, "Annual Income", money(a.AnnualIncome))
	row(pdf, tr, "Existing EMI", money(a.MonthlyEMI))

	section(pdf, "Eligibility Assessment")
	row(pdf, tr, "Credit Score", fmt.Sprintf("%d", a.CreditScore))
	row(pdf, tr, "Eligibility Score", fmt.Sprintf("%d / 100", a.EligibilityScore))
	if len(a.Issues) == 0 {
		row(pdf, tr, "Issues", "None")
	} else {
		row(pdf, tr, "Issues", strings.Join(a.Issues, "; "))
	}

	section(pdf, "Loan Decision")
	row(pdf, tr, "Status", string(a.Status))
	row(pdf, tr, "Recommendation", a.Recommendation)

	section(pdf, "Justification")
	pdf.SetFont("Helvetica", "", 10)
	narrative := strings.TrimSpace(d.Narrative)
	if narrative == "" {
		narrative = "No narrative has been generated for this applicant."
	}
	pdf.MultiCell(0, 5, tr(narrative), "", "L", false)
	pdf.Ln(2)

	if d.Quote != nil {
		schedule(pdf, d.Quote)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return nil
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(230, 236, 245)
	pdf.CellFormat(0, 8, title, "", 1, "L", true, 0, "")
	pdf.Ln(1)
}

func row(pdf *fpdf.Fpdf, tr func(string) string, label, value string) {
	if value == "" {
		value = "-"
	}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(50, 6, label, "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.MultiCell(0, 6, tr(value), "", "L", false)
}

func schedule(pdf *fpdf.Fpdf, q *models.LoanQuote) {
	section(pdf, "Repayment Schedule")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Interest rate %.2f%% p.a. (key rate %.2f%%), monthly payment %s, total interest %s",
		q.InterestRate, q.KeyRate, money(q.MonthlyPayment), money(q.TotalInterest)), "", 1, "L", false, 0, "")
	pdf.Ln(1)

	widths := []float64{20, 40, 40, 40, 40}
	pdf.SetFont("Helvetica", "B", 9)
	for i, h := range []string{"Month", "Payment", "Principal", "Interest", "Balance"} {
		pdf.CellFormat(widths[i], 6, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for i, inst := range q.Schedule {
		if i == scheduleRows {
			break
		}
		pdf.CellFormat(widths[0], 6, fmt.Sprintf("%d", inst.Month), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[1], 6, money(inst.Payment), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, money(inst.Principal), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, money(inst.Interest), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, money(inst.Balance), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	if len(q.Schedule) > scheduleRows {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 5, fmt.Sprintf("%d further installments not shown", len(q.Schedule)-scheduleRows), "", 1, "L", false, 0, "")
	}
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
