package email

import (
	"bytes"
	"crypto"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	msgauthdkim "github.com/emersion/go-msgauth/dkim"
)

// DKIMConfig describes the optional signing key. All fields empty disables signing.
type DKIMConfig struct {
	Domain     string
	Selector   string
	PrivateKey string // inline PEM
	KeyPath    string
}

// Enabled reports whether any DKIM setting was provided.
func (c DKIMConfig) Enabled() bool {
	return c.Selector != "" || c.PrivateKey != "" || c.KeyPath != ""
}

// DKIMSigner adds a DKIM-Signature header to outgoing notifications.
type DKIMSigner struct {
	domain     string
	selector   string
	key        crypto.Signer
	headerKeys []string
}

// NewDKIMSigner returns nil, nil when signing is not configured.
func NewDKIMSigner(cfg DKIMConfig) (*DKIMSigner, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	if strings.TrimSpace(cfg.Selector) == "" {
		return nil, errors.New("dkim: DKIM_SELECTOR is required when enabling DKIM")
	}

	var pemData []byte
	switch {
	case cfg.PrivateKey != "":
		pemData = []byte(cfg.PrivateKey)
	case cfg.KeyPath != "":
		data, err := os.ReadFile(cfg.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("dkim: read private key: %w", err)
		}
		pemData = data
	default:
		return nil, errors.New("dkim: provide DKIM_KEY_PATH or DKIM_PRIVATE_KEY")
	}

	key, err := parsePrivateKey(pemData)
	if err != nil {
		return nil, fmt.Errorf("dkim: parse private key: %w", err)
	}

	return &DKIMSigner{
		domain:   strings.ToLower(strings.TrimSpace(cfg.Domain)),
		selector: strings.TrimSpace(cfg.Selector),
		key:      key,
		headerKeys: []string{
			"from",
			"to",
			"reply-to",
			"subject",
			"date",
			"message-id",
			"mime-version",
			"content-type",
		},
	}, nil
}

// Sign returns message with a DKIM-Signature prepended. from picks the domain when none is configured.
func (s *DKIMSigner) Sign(message []byte, from string) ([]byte, error) {
	if s == nil {
		return message, nil
	}

	domain := s.domain
	if domain == "" {
		domain = domainOf(from)
	}
	if domain == "" {
		return nil, errors.New("dkim: unable to determine signing domain")
	}

	opts := &msgauthdkim.SignOptions{
		Domain:                 domain,
		Selector:               s.selector,
		Signer:                 s.key,
		HeaderCanonicalization: msgauthdkim.CanonicalizationRelaxed,
		BodyCanonicalization:   msgauthdkim.CanonicalizationRelaxed,
		HeaderKeys:             s.headerKeys,
	}

	var signed bytes.Buffer
	if err := msgauthdkim.Sign(&signed, bytes.NewReader(message), opts); err != nil {
		return nil, fmt.Errorf("dkim: signing failed: %w", err)
	}
	return signed.Bytes(), nil
}

func parsePrivateKey(pemData []byte) (crypto.Signer, error) {
	for {
		block, rest := pem.Decode(pemData)
		if block == nil {
			break
		}
		switch block.Type {
		case "RSA PRIVATE KEY":
			key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			return key, nil
		case "PRIVATE KEY":
			key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, err
			}
			if signer, ok := key.(crypto.Signer); ok {
				return signer, nil
			}
			return nil, errors.New("unsupported private key type in PKCS#8 container")
		}
		pemData = rest
	}
	return nil, errors.New("no private key found in PEM data")
}

func domainOf(address string) string {
	address = strings.Trim(strings.TrimSpace(address), "<>")
	if i := strings.LastIndex(address, "@"); i >= 0 && i+1 < len(address) {
		return strings.ToLower(address[i+1:])
	}
	return ""
}
