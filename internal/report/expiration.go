// Package report renders expiring stock as downloadable files.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"qualistock/internal/repository"
)

var header = []string{"Expires", "Days", "Product", "SKU", "Category", "Batch", "Location", "Quantity"}

// widths in mm, landscape A4
var widths = []float64{28, 14, 60, 28, 38, 34, 45, 20}

var printer = message.NewPrinter(language.English)

func row(it repository.ExpiringItem) []string {
	return []string{
		it.ExpirationDate.UTC().Format("2006-01-02"),
		strconv.Itoa(it.DaysRemaining),
		it.ProductName,
		it.SKU,
		it.CategoryName,
		it.BatchNumber,
		it.Location,
		strconv.Itoa(it.Quantity),
	}
}

// WriteExpirationCSV writes one line per item after a header line.
func WriteExpirationCSV(w io.Writer, items []repository.ExpiringItem) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write(header); err != nil {
		return err
	}
	for _, it := range items {
		if err := writer.Write(row(it)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ExpirationPDF renders items as a table with a units total.
func ExpirationPDF(items []repository.ExpiringItem, windowDays int, generated time.Time) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Expiring stock", false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Expiring Stock Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Items expiring within %d days, generated %s UTC",
		windowDays, generated.UTC().Format("2006-01-02 15:04")), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	total := 0
	for _, it := range items {
		total += it.Quantity
	}
	pdf.CellFormat(0, 8, printer.Sprintf("Batches: %d    Units: %d", len(items), total), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range header {
		pdf.CellFormat(widths[i], 8, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for _, it := range items {
		// critical rows stand out
		if it.DaysRemaining <= 7 {
			pdf.SetTextColor(180, 0, 0)
		} else {
			pdf.SetTextColor(0, 0, 0)
		}
		cells := row(it)
		cells[7] = printer.Sprintf("%d", it.Quantity)
		for i, v := range cells {
			align := "L"
			if i == 1 || i == 7 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 7, tr(v), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(items) == 0 {
		pdf.SetTextColor(0, 0, 0)
		pdf.CellFormat(0, 8, "No stock expires in this window.", "1", 1, "C", false, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render expiration pdf: %w", err)
	}
	return buf.Bytes(), nil
}
