package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotConfigured is returned when SMTP credentials are missing.
var ErrNotConfigured = errors.New("email service is not configured")

const DefaultTimeout = 10 * time.Second

// Config holds the relay credentials and the fixed destinations.
type Config struct {
	Host      string
	Port      string
	Username  string
	Password  string
	FromEmail string // Verified sender; falls back to Username
	FromName  string
	To        string
	Bcc       []string
	Timeout   time.Duration
}

// EmailService handles sending emails via SMTP. One instance is built at startup and shared by
// all requests; each Send opens its own SMTP session.
type EmailService struct {
	cfg    Config
	signer *DKIMSigner
	now    func() time.Time
}

// Option customises an EmailService.
type Option func(*EmailService)

// WithDKIM signs every outgoing message.
func WithDKIM(s *DKIMSigner) Option {
	return func(e *EmailService) { e.signer = s }
}

// WithClock overrides the Date header clock.
func WithClock(now func() time.Time) Option {
	return func(e *EmailService) { e.now = now }
}

// NewEmailService creates a new email service with the given SMTP configuration
func NewEmailService(cfg Config, opts ...Option) *EmailService {
	if cfg.FromEmail == "" {
		cfg.FromEmail = cfg.Username
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	s := &EmailService{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsConfigured checks if the email service has valid SMTP configuration
func (s *EmailService) IsConfigured() bool {
	return s.cfg.Host != "" && s.cfg.Username != "" && s.cfg.Password != "" && s.cfg.To != ""
}

// Send delivers n to the primary recipient and every BCC address, with Reply-To set to replyTo.
func (s *EmailService) Send(ctx context.Context, n Notification, replyTo string) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}

	msg, err := s.buildMessage(n, replyTo)
	if err != nil {
		return err
	}
	if s.signer != nil {
		if msg, err = s.signer.Sign(msg, s.cfg.FromEmail); err != nil {
			return err
		}
	}

	recipients := append([]string{s.cfg.To}, s.cfg.Bcc...)

	return s.withSession(ctx, func(c *smtp.Client) error {
		if err := c.Mail(s.cfg.FromEmail); err != nil {
			return fmt.Errorf("mail from: %w", err)
		}
		for _, rcpt := range recipients {
			if err := c.Rcpt(rcpt); err != nil {
				return fmt.Errorf("rcpt to %s: %w", rcpt, err)
			}
		}
		w, err := c.Data()
		if err != nil {
			return fmt.Errorf("data start: %w", err)
		}
		if _, err := w.Write(msg); err != nil {
			return fmt.Errorf("data write: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("data close: %w", err)
		}
		return nil
	})
}

// Check connects and authenticates against the relay without sending anything.
func (s *EmailService) Check(ctx context.Context) error {
	if !s.IsConfigured() {
		return ErrNotConfigured
	}
	return s.withSession(ctx, func(*smtp.Client) error { return nil })
}

// withSession dials the relay, secures and authenticates the connection, runs fn and quits.
// Port 465 uses implicit TLS; other ports upgrade with STARTTLS when the server offers it.
func (s *EmailService) withSession(ctx context.Context, fn func(*smtp.Client) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return fmt.Errorf("set deadline: %w", err)
		}
	}

	tlsConf := &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
	if s.cfg.Port == "465" {
		conn = tls.Client(conn, tlsConf)
	}

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		return fmt.Errorf("new client: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok && s.cfg.Port != "465" {
		if err := client.StartTLS(tlsConf); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}

	if ok, _ := client.Extension("AUTH"); ok {
		auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := fn(client); err != nil {
		return err
	}

	if err := client.Quit(); err != nil {
		return fmt.Errorf("quit: %w", err)
	}
	return nil
}

// buildMessage renders a multipart/alternative message. BCC recipients never appear in headers.
func (s *EmailService) buildMessage(n Notification, replyTo string) ([]byte, error) {
	from := mail.Address{Name: s.cfg.FromName, Address: s.cfg.FromEmail}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := writePart(mw, "text/plain; charset=UTF-8", n.TextBody); err != nil {
		return nil, err
	}
	if err := writePart(mw, "text/html; charset=UTF-8", n.HTMLBody); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	var msg bytes.Buffer
	writeHeader(&msg, "From", from.String())
	writeHeader(&msg, "To", s.cfg.To)
	if replyTo != "" {
		writeHeader(&msg, "Reply-To", (&mail.Address{Address: replyTo}).String())
	}
	writeHeader(&msg, "Subject", mime.QEncoding.Encode("UTF-8", sanitizeHeader(n.Subject)))
	writeHeader(&msg, "Date", s.now().Format(time.RFC1123Z))
	writeHeader(&msg, "Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), messageIDDomain(s.cfg.FromEmail)))
	writeHeader(&msg, "MIME-Version", "1.0")
	writeHeader(&msg, "Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", mw.Boundary()))
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	return msg.Bytes(), nil
}

func writePart(mw *multipart.Writer, contentType, content string) error {
	h := textproto.MIMEHeader{}
	h.Set("Content-Type", contentType)
	h.Set("Content-Transfer-Encoding", "quoted-printable")
	pw, err := mw.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part: %w", err)
	}
	qp := quotedprintable.NewWriter(pw)
	if _, err := qp.Write([]byte(content)); err != nil {
		return fmt.Errorf("write part: %w", err)
	}
	return qp.Close()
}

func writeHeader(b *bytes.Buffer, key, value string) {
	b.WriteString(key)
	b.WriteString(": ")
	b.WriteString(sanitizeHeader(value))
	b.WriteString("\r\n")
}

func sanitizeHeader(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}

func messageIDDomain(from string) string {
	if d := domainOf(from); d != "" {
		return d
	}
	return "localhost"
}
