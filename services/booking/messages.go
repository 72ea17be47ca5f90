package booking

import (
	"bytes"
	"net/url"
	"strings"
	"text/template"
	"time"

	"ambulance/models"
)

// indianTimeLayout renders timestamps the way en-IN locales print them.
const indianTimeLayout = "2/1/2006, 3:04:05 pm"

var messageTemplates = template.Must(template.New("messages").Funcs(template.FuncMap{
	"status": models.StatusText,
}).Parse(`
{{- define "request" -}}
*AMBULANCE BOOKING REQUEST*
================================

*Patient Name:* {{.Booking.PatientName}}
*Contact Number:* {{.Booking.ContactNumber}}
*Pickup Address:* {{.Booking.PickupAddress}}
*Service Type:* {{.Booking.EmergencyType}}
{{- if .Booking.AdditionalInfo}}
*Additional Info:* {{.Booking.AdditionalInfo}}
{{- end}}

================================
*Request Time:* {{.Time}}

_Please confirm ambulance availability and estimated arrival time._

*{{.ServiceName}}*
{{- end}}

{{- define "confirmation_sms" -}}
{{.ServiceName}}

Booking Confirmed!
ID: {{.Booking.BookingCode}}
Patient: {{.Booking.PatientName}}
Pickup: {{.Booking.PickupAddress}}

We will contact you shortly.
Emergency: {{.EmergencyContact}}
{{- end}}

{{- define "confirmation_whatsapp" -}}
🚑 *{{.ServiceName}}*

✅ *Booking Confirmed*

📋 *Booking ID:* {{.Booking.BookingCode}}
👤 *Patient:* {{.Booking.PatientName}}
📍 *Pickup:* {{.Booking.PickupAddress}}
{{- if .Booking.Destination}}
🏥 *Destination:* {{.Booking.Destination}}
{{- end}}
🚨 *Service:* {{.Booking.EmergencyType}}

📞 *Emergency Contact:* {{.EmergencyContact}}

Our team will contact you shortly!
{{- end}}

{{- define "admin_alert" -}}
🚨 NEW BOOKING ALERT

ID: {{.Booking.BookingCode}}
Patient: {{.Booking.PatientName}}
Type: {{.Booking.EmergencyType}}
Pickup: {{.Booking.PickupAddress}}
Contact: {{.Booking.ContactNumber}}

Login to admin panel for details.
{{- end}}

{{- define "status_update" -}}
{{.ServiceName}}

Booking {{.Booking.BookingCode}} is now {{status .Booking.Status}}.
{{- if .Booking.AdditionalNotes}}
Note: {{.Booking.AdditionalNotes}}
{{- end}}
{{- end}}
`))

// Messages renders the text sent alongside a booking.
type Messages struct {
	ServiceName      string
	EmergencyContact string
	Location         *time.Location
}

type messageData struct {
	Booking          models.Booking
	ServiceName      string
	EmergencyContact string
	Time             string
}

func (m Messages) render(name string, b models.Booking, at time.Time) string {
	loc := m.Location
	if loc == nil {
		loc = time.UTC
	}
	var buf bytes.Buffer
	data := messageData{
		Booking:          b,
		ServiceName:      m.ServiceName,
		EmergencyContact: m.EmergencyContact,
		Time:             at.In(loc).Format(indianTimeLayout),
	}
	if err := messageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return ""
	}
	return buf.String()
}

// RequestText is the booking request handed to the dispatch WhatsApp line.
func (m Messages) RequestText(b models.Booking, at time.Time) string {
	return m.render("request", b, at)
}

// ConfirmationSMS is the short confirmation sent to the requester.
func (m Messages) ConfirmationSMS(b models.Booking) string {
	return m.render("confirmation_sms", b, b.CreatedAt)
}

// ConfirmationWhatsApp is the formatted confirmation sent to the requester.
func (m Messages) ConfirmationWhatsApp(b models.Booking) string {
	return m.render("confirmation_whatsapp", b, b.CreatedAt)
}

// AdminAlert is the new-booking alert for staff.
func (m Messages) AdminAlert(b models.Booking) string {
	return m.render("admin_alert", b, b.CreatedAt)
}

// StatusUpdateText tells the requester about a status change.
func (m Messages) StatusUpdateText(b models.Booking) string {
	return m.render("status_update", b, b.CreatedAt)
}

// InboxMessage is the one-line summary stored in the admin inbox.
func InboxMessage(b models.Booking) string {
	return "New booking from " + b.PatientName + " - " + b.EmergencyType
}

// WhatsAppLink builds a wa.me deep link. Non-digits are stripped from number.
func WhatsAppLink(number, text string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)
	return "https://wa.me/" + digits + "?text=" + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}
