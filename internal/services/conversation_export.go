package services

import (
	"fmt"
	"io"

	"launchpad_go_backend/internal/models"

	"github.com/jung-kurt/gofpdf"
)

const exportTimeLayout = "2006-01-02 15:04 MST"

// RenderConversationPDF writes a printable transcript of conv to w.
func RenderConversationPDF(conv *models.Conversation, w io.Writer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// core fonts are cp1252; non-Latin runes degrade to '?'
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(conv.Title, true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.MultiCell(0, 8, tr(conv.Title), "", "L", false)
	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(110, 110, 110)
	pdf.CellFormat(0, 6, fmt.Sprintf("Started %s, last updated %s",
		conv.CreatedAt.UTC().Format(exportTimeLayout),
		conv.UpdatedAt.UTC().Format(exportTimeLayout)), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	half := (pageW - left - right) / 2

	for _, m := range conv.Messages {
		label := "You"
		if m.Role == models.RoleAssistant {
			label = "Assistant"
			if m.Model != nil {
				label = fmt.Sprintf("Assistant (%s)", *m.Model)
			}
		}

		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(half, 6, tr(label), "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 8)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(half, 6, m.CreatedAt.UTC().Format(exportTimeLayout), "", 1, "R", false, 0, "")

		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Arial", "", 11)
		pdf.MultiCell(0, 5.5, tr(m.Content), "", "L", false)
		pdf.Ln(3)
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}
