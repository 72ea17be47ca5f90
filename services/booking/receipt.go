package booking

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"ambulance/models"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// TrackingURL returns the public tracking link for a booking code.
func TrackingURL(baseURL, code string) string {
	return strings.TrimRight(baseURL, "/") + "/" + code
}

// TrackingQR encodes the tracking link as a PNG QR code.
func TrackingQR(baseURL, code string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	png, err := qrcode.Encode(TrackingURL(baseURL, code), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tracking QR: %w", err)
	}
	return png, nil
}

// SlipOptions carries the branding printed on a booking slip.
type SlipOptions struct {
	ServiceName      string
	EmergencyContact string
	TrackingBaseURL  string
	Location         *time.Location
}

// BookingSlipPDF renders a single-page booking slip with a QR code that opens
// the tracking page.
func BookingSlipPDF(b models.Booking, opts SlipOptions) ([]byte, error) {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	qrPNG, err := TrackingQR(opts.TrackingBaseURL, b.BookingCode, 256)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// Header
	pdf.SetFont("Helvetica", "B", 20)
	pdf.Cell(0, 12, tr(strings.ToUpper(opts.ServiceName)))
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, "Ambulance Booking Slip")
	pdf.Ln(12)

	pdf.SetDrawColor(220, 220, 220)
	pdf.Line(15, pdf.GetY(), 195, pdf.GetY())
	pdf.Ln(8)

	// Summary + QR
	yStart := pdf.GetY()
	pdf.SetFillColor(245, 245, 245)
	pdf.Rect(15, yStart, 120, 55, "F")

	pdf.SetXY(20, yStart+7)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 8, "BOOKING SUMMARY")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 12)
	for _, line := range []string{
		"Booking ID: " + b.BookingCode,
		"Status: " + models.StatusText(b.Status),
		"Booked: " + b.CreatedAt.In(loc).Format(indianTimeLayout),
	} {
		pdf.SetX(20)
		pdf.Cell(0, 8, tr(line))
		pdf.Ln(7)
	}

	pdf.RegisterImageOptionsReader("qr", gofpdf.ImageOptions{ImageType: "png"}, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 145, yStart+5, 45, 0, false, gofpdf.ImageOptions{ImageType: "png"}, 0, "")

	pdf.SetY(yStart + 63)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.Cell(0, 6, "Scan the QR code to track this booking.")
	pdf.Ln(10)

	drawSectionTitle(pdf, "PATIENT DETAILS")
	pdf.SetFont("Helvetica", "", 12)
	rows := [][2]string{
		{"Patient", b.PatientName},
		{"Contact", b.ContactNumber},
		{"Pickup", b.PickupAddress},
		{"Destination", b.Destination},
		{"Service", b.EmergencyType},
		{"Additional Info", b.AdditionalInfo},
		{"Notes", b.AdditionalNotes},
	}
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		pdf.MultiCell(0, 7, tr(row[0]+": "+row[1]), "", "", false)
	}
	pdf.Ln(6)

	if opts.EmergencyContact != "" {
		drawSectionTitle(pdf, "EMERGENCY CONTACT")
		pdf.SetFont("Helvetica", "B", 16)
		pdf.Cell(0, 10, opts.EmergencyContact)
		pdf.Ln(10)
	}

	// Footer
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(15, 285, 195, 285)
	pdf.SetY(288)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(0, 8, tr(opts.ServiceName), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render booking slip: %w", err)
	}
	return buf.Bytes(), nil
}

func drawSectionTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(0, 9, title, "", 1, "L", true, 0, "")
	pdf.Ln(3)
}
