package pdf

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"quotes_service/internal/domain/entities"
	"quotes_service/internal/domain/money"
	"quotes_service/internal/usecase/interfaces"

	"github.com/jung-kurt/gofpdf"
)

const contentType = "application/pdf"

// QuoteRenderer prints a quote as a one-table A4 document using the core Helvetica font,
// so no font files have to ship with the binary.
type QuoteRenderer struct {
	now func() time.Time
}

var _ interfaces.IQuoteDocumentRenderer = (*QuoteRenderer)(nil)

func NewQuoteRenderer() *QuoteRenderer {
	return &QuoteRenderer{now: time.Now}
}

func (r *QuoteRenderer) ContentType() string { return contentType }

func (r *QuoteRenderer) Render(w io.Writer, q entities.Quote) error {
	doc := gofpdf.New("P", "mm", "A4", "")
	doc.SetTitle("Quote "+q.Number, false)
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.Cell(0, 10, tr("Quote "+q.Number))
	doc.Ln(10)

	doc.SetFont("Helvetica", "", 11)
	header := [][2]string{
		{"Project", q.ProjectRef},
		{"Lot", q.LotRef},
		{"Category", q.Category},
		{"Contractor", q.ContractorRef},
		{"Status", string(q.Status)},
		{"Created", q.CreatedAt.UTC().Format("2006-01-02")},
	}
	if q.ApprovedBy != "" && q.ApprovedAt != nil {
		label := "Approved by"
		if q.Status == entities.QuoteStatusRejected {
			label = "Rejected by"
		}
		header = append(header, [2]string{label, q.ApprovedBy + " on " + q.ApprovedAt.UTC().Format("2006-01-02")})
	}
	if q.RejectionReason != "" {
		header = append(header, [2]string{"Reason", q.RejectionReason})
	}
	for _, h := range header {
		if h[1] == "" {
			continue
		}
		doc.Cell(35, 6, tr(h[0]+":"))
		doc.Cell(0, 6, tr(trim(h[1], 80)))
		doc.Ln(6)
	}

	doc.Ln(4)
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(100, 7, "Item", "B", 0, "L", false, 0, "")
	doc.CellFormat(25, 7, "Qty", "B", 0, "R", false, 0, "")
	doc.CellFormat(30, 7, "Rate", "B", 0, "R", false, 0, "")
	doc.CellFormat(35, 7, "Total", "B", 1, "R", false, 0, "")

	doc.SetFont("Helvetica", "", 10)
	for _, li := range q.LineItems {
		doc.CellFormat(100, 6, tr(trim(li.Description, 55)), "", 0, "L", false, 0, "")
		doc.CellFormat(25, 6, li.Quantity.String(), "", 0, "R", false, 0, "")
		doc.CellFormat(30, 6, money.Format(li.Rate), "", 0, "R", false, 0, "")
		doc.CellFormat(35, 6, money.Format(li.LineTotal), "", 1, "R", false, 0, "")
	}

	doc.Ln(2)
	doc.SetFont("Helvetica", "B", 11)
	doc.CellFormat(155, 7, "Total", "T", 0, "R", false, 0, "")
	doc.CellFormat(35, 7, money.Format(q.TotalAmount), "T", 1, "R", false, 0, "")

	doc.Ln(6)
	doc.SetFont("Helvetica", "", 8)
	doc.Cell(0, 5, fmt.Sprintf("%d line item(s). Generated %s", len(q.LineItems), r.now().UTC().Format(time.RFC3339)))
	doc.Ln(5)
	doc.Cell(0, 5, "Revision "+strconv.FormatInt(q.Version, 10))

	if err := doc.Error(); err != nil {
		return fmt.Errorf("render quote %s: %w", q.Number, err)
	}
	if err := doc.Output(w); err != nil {
		return fmt.Errorf("write quote %s pdf: %w", q.Number, err)
	}
	return nil
}

func trim(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
