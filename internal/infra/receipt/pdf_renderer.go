// File: internal/infra/receipt/pdf_renderer.go
package receipt

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-pdf/fpdf"

	"learnhub-checkout/internal/config"
	"learnhub-checkout/internal/domain/model"
	"learnhub-checkout/internal/domain/ports/adapter"
)

var _ adapter.ReceiptRenderer = (*PDFRenderer)(nil)

// PDFRenderer lays out a one-page A4 receipt.
type PDFRenderer struct {
	issuerName    string
	issuerAddress string
}

func NewPDFRenderer(cfg *config.ReceiptConfig) *PDFRenderer {
	return &PDFRenderer{issuerName: cfg.IssuerName, issuerAddress: cfg.IssuerAddress}
}

func (r *PDFRenderer) ContentType() string { return "application/pdf" }

func (r *PDFRenderer) Render(ctx context.Context, f model.ReceiptFacts) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Payment receipt "+f.Number, true)
	pdf.SetAuthor(r.issuerName, true)
	pdf.SetCreationDate(f.PaidAt)
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(r.issuerName), "", 1, "L", false, 0, "")
	if r.issuerAddress != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, tr(r.issuerAddress), "", "L", false)
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, "Payment Receipt", "B", 1, "L", false, 0, "")
	pdf.Ln(4)

	rows := [][2]string{
		{"Receipt number", f.Number},
		{"Date", f.PaidAt.Format("02 Jan 2006 15:04 MST")},
		{"Paid by", payer(f)},
		{"Course", f.CourseTitle},
		{"Plan", f.PlanLabel},
	}
	if f.InstallmentNumber > 0 && f.InstallmentCount > 0 {
		rows = append(rows, [2]string{"Installment", fmt.Sprintf("%d of %d", f.InstallmentNumber, f.InstallmentCount)})
	}
	if f.PaymentID != "" {
		rows = append(rows, [2]string{"Payment reference", f.PaymentID})
	}
	if f.OrderID != "" {
		rows = append(rows, [2]string{"Order reference", f.OrderID})
	}

	pdf.SetFont("Helvetica", "", 11)
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(50, 8, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, tr(row[1]), "", 1, "L", false, 0, "")
	}

	pdf.Ln(6)
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(100, 10, "Amount paid", "1", 0, "L", true, 0, "")
	pdf.CellFormat(0, 10, model.FormatMoney(f.Amount, f.Currency), "1", 1, "R", true, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(100, 10, "Remaining balance", "1", 0, "L", false, 0, "")
	pdf.CellFormat(0, 10, model.FormatMoney(f.RemainingAmount, f.Currency), "1", 1, "R", false, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 8)
	pdf.MultiCell(0, 4, "This receipt was generated electronically and does not require a signature.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func payer(f model.ReceiptFacts) string {
	switch {
	case f.PayerName != "" && f.PayerEmail != "":
		return fmt.Sprintf("%s <%s>", f.PayerName, f.PayerEmail)
	case f.PayerName != "":
		return f.PayerName
	default:
		return f.PayerEmail
	}
}
