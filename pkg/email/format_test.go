package email_test

import (
	"strings"
	"testing"
	"time"

	"consultancy-backend/pkg/email"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleData() email.ContactEmailData {
	return email.ContactEmailData{
		SenderName:  "John Doe",
		SenderEmail: "john@example.com",
		Phone:       "+971501234567",
		Subject:     "Business Development",
		Message:     "I would like to discuss a partnership opportunity.",
	}
}

func TestFormatContact(t *testing.T) {
	f, err := email.NewFormatter("Consultancy Website", "", "")
	require.NoError(t, err)

	// 10:30 UTC is 14:30 in Dubai (UTC+4, no DST)
	now := time.Date(2026, 3, 5, 10, 30, 0, 0, time.UTC)
	n, err := f.FormatContact(sampleData(), now)
	require.NoError(t, err)

	assert.Equal(t, "New Contact: Business Development from John Doe", n.Subject)

	assert.Contains(t, n.TextBody, "From: John Doe\n")
	assert.Contains(t, n.TextBody, "Email: john@example.com\n")
	assert.Contains(t, n.TextBody, "Phone: +971501234567\n")
	assert.Contains(t, n.TextBody, "Subject: Business Development\n")
	assert.Contains(t, n.TextBody, "Message:\nI would like to discuss a partnership opportunity.")
	assert.True(t, strings.HasSuffix(n.TextBody, "Submitted at: 05/03/2026, 2:30:00 pm (UAE Time)"))

	assert.Contains(t, n.HTMLBody, "Consultancy Website")
	assert.Contains(t, n.HTMLBody, "John Doe")
	assert.Contains(t, n.HTMLBody, "Submitted at: 05/03/2026, 2:30:00 pm (UAE Time)")
}

func TestFormatContact_EscapesHTML(t *testing.T) {
	f, err := email.NewFormatter("", "", "")
	require.NoError(t, err)

	data := sampleData()
	data.SenderName = `<script>alert("x")</script>`
	data.Subject = "<b>urgent</b>"
	data.Message = "line one\r\nline <two>\nline three"

	n, err := f.FormatContact(data, time.Now())
	require.NoError(t, err)

	assert.NotContains(t, n.HTMLBody, "<script>")
	assert.NotContains(t, n.HTMLBody, "<b>urgent</b>")
	assert.Contains(t, n.HTMLBody, "&lt;script&gt;")
	assert.Contains(t, n.HTMLBody, "line one<br>line &lt;two&gt;<br>line three")

	// the text body keeps the raw message with normalised newlines
	assert.Contains(t, n.TextBody, "line one\nline <two>\nline three")
}

func TestFormatContact_SubjectIsSingleLine(t *testing.T) {
	f, err := email.NewFormatter("", "", "")
	require.NoError(t, err)

	data := sampleData()
	data.Subject = "Hello\r\nBcc: someone@example.com"

	n, err := f.FormatContact(data, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "New Contact: Hello Bcc: someone@example.com from John Doe", n.Subject)
}

func TestFormatContact_Deterministic(t *testing.T) {
	f, err := email.NewFormatter("", "Europe/London", "London")
	require.NoError(t, err)

	now := time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
	a, err := f.FormatContact(sampleData(), now)
	require.NoError(t, err)
	b, err := f.FormatContact(sampleData(), now)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Contains(t, a.TextBody, "01/07/2026, 1:00:00 pm (London)")
}

func TestNewFormatter_UnknownTimezone(t *testing.T) {
	_, err := email.NewFormatter("", "Mars/Olympus", "")
	assert.Error(t, err)
}
