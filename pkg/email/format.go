package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	// Business timezone must resolve on hosts without zoneinfo.
	_ "time/tzdata"
)

const (
	DefaultSiteName  = "Website Contact Form"
	DefaultTimezone  = "Asia/Dubai"
	DefaultZoneLabel = "UAE Time"

	// timestampLayout mirrors the en-AE locale: day/month/year, 12-hour clock.
	timestampLayout = "02/01/2006, 3:04:05 pm"
)

// ContactEmailData holds the data for contact form emails
type ContactEmailData struct {
	SenderName  string
	SenderEmail string
	Phone       string
	Subject     string
	Message     string
}

// Notification is a rendered email ready for the dispatcher.
type Notification struct {
	Subject  string
	HTMLBody string
	TextBody string
}

// Formatter renders contact submissions. It holds no per-request state.
type Formatter struct {
	siteName  string
	location  *time.Location
	zoneLabel string
}

// NewFormatter resolves tz (an IANA name) once. Empty values take the defaults.
func NewFormatter(siteName, tz, zoneLabel string) (*Formatter, error) {
	if siteName == "" {
		siteName = DefaultSiteName
	}
	if tz == "" {
		tz = DefaultTimezone
	}
	if zoneLabel == "" {
		zoneLabel = DefaultZoneLabel
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return &Formatter{siteName: siteName, location: loc, zoneLabel: zoneLabel}, nil
}

type contactView struct {
	ContactEmailData
	SiteName    string
	SubmittedAt string
	ZoneLabel   string
}

// FormatContact renders the notification for a submission received at now.
func (f *Formatter) FormatContact(data ContactEmailData, now time.Time) (Notification, error) {
	view := contactView{
		ContactEmailData: data,
		SiteName:         f.siteName,
		SubmittedAt:      now.In(f.location).Format(timestampLayout),
		ZoneLabel:        f.zoneLabel,
	}

	var html bytes.Buffer
	if err := contactHTMLTemplate.Execute(&html, view); err != nil {
		return Notification{}, fmt.Errorf("failed to execute email template: %w", err)
	}

	return Notification{
		Subject:  fmt.Sprintf("New Contact: %s from %s", oneLine(data.Subject), oneLine(data.SenderName)),
		HTMLBody: html.String(),
		TextBody: renderText(view),
	}, nil
}

func renderText(v contactView) string {
	var b strings.Builder
	b.WriteString("New Contact Form Submission\n")
	b.WriteString("===========================\n\n")
	fmt.Fprintf(&b, "From: %s\n", v.SenderName)
	fmt.Fprintf(&b, "Email: %s\n", v.SenderEmail)
	fmt.Fprintf(&b, "Phone: %s\n", v.Phone)
	fmt.Fprintf(&b, "Subject: %s\n\n", v.Subject)
	b.WriteString("Message:\n")
	b.WriteString(normalizeNewlines(v.Message))
	b.WriteString("\n\n---\n")
	fmt.Fprintf(&b, "Submitted at: %s (%s)", v.SubmittedAt, v.ZoneLabel)
	return b.String()
}

// nl2br escapes s and turns line breaks into <br>.
func nl2br(s string) template.HTML {
	escaped := template.HTMLEscapeString(normalizeNewlines(s))
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// oneLine collapses line breaks so user text cannot spill into extra header lines.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var contactHTMLTemplate = template.Must(template.New("contact").Funcs(template.FuncMap{
	"nl2br": nl2br,
}).Parse(contactEmailTemplate))

// contactEmailTemplate is the HTML template for contact form emails
const contactEmailTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>New Contact Form Submission</title>
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: linear-gradient(135deg, #0ea5e9, #0284c7); color: white; padding: 20px; border-radius: 8px 8px 0 0; }
        .content { background: #f8fafc; padding: 20px; border: 1px solid #e2e8f0; border-top: none; border-radius: 0 0 8px 8px; }
        .field { margin-bottom: 15px; }
        .label { font-weight: bold; color: #0ea5e9; }
        .value { margin-top: 5px; }
        .message-box { background: white; padding: 15px; border-radius: 8px; border: 1px solid #e2e8f0; margin-top: 10px; }
        .footer { margin-top: 20px; font-size: 12px; color: #64748b; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h2 style="margin: 0;">New Contact Form Submission</h2>
            <p style="margin: 10px 0 0 0; opacity: 0.9;">{{.SiteName}}</p>
        </div>
        <div class="content">
            <div class="field">
                <div class="label">From:</div>
                <div class="value">{{.SenderName}}</div>
            </div>
            <div class="field">
                <div class="label">Email:</div>
                <div class="value"><a href="mailto:{{.SenderEmail}}">{{.SenderEmail}}</a></div>
            </div>
            <div class="field">
                <div class="label">Phone:</div>
                <div class="value"><a href="tel:{{.Phone}}">{{.Phone}}</a></div>
            </div>
            <div class="field">
                <div class="label">Subject:</div>
                <div class="value">{{.Subject}}</div>
            </div>
            <div class="field">
                <div class="label">Message:</div>
                <div class="message-box">{{nl2br .Message}}</div>
            </div>
            <div class="footer">
                Submitted at: {{.SubmittedAt}} ({{.ZoneLabel}})
            </div>
        </div>
    </div>
</body>
</html>`
