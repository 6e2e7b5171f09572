package main

import (
	"fmt"

	"consultancy-backend/config"
	"consultancy-backend/pkg/email"
	"consultancy-backend/pkg/recaptcha"
	"consultancy-backend/pkg/security"
)

func newEmailService(cfg *config.Config) (*email.EmailService, error) {
	signer, err := email.NewDKIMSigner(email.DKIMConfig{
		Domain:     cfg.DKIMDomain,
		Selector:   cfg.DKIMSelector,
		PrivateKey: cfg.DKIMPrivateKey,
		KeyPath:    cfg.DKIMKeyPath,
	})
	if err != nil {
		return nil, fmt.Errorf("dkim: %w", err)
	}

	return email.NewEmailService(email.Config{
		Host:      cfg.SMTPHost,
		Port:      cfg.SMTPPort,
		Username:  cfg.SMTPUsername,
		Password:  cfg.SMTPPassword,
		FromEmail: cfg.SMTPFromEmail,
		FromName:  cfg.SMTPFromName,
		To:        cfg.ContactEmailTo,
		Bcc:       cfg.ContactEmailBcc,
		Timeout:   cfg.SMTPTimeout,
	}, email.WithDKIM(signer)), nil
}

func newVerifier(cfg *config.Config, audit *security.SecurityLogger) *recaptcha.Client {
	threshold := cfg.RecaptchaThreshold
	return recaptcha.NewClient(recaptcha.Config{
		BaseURL:   cfg.RecaptchaBaseURL,
		ProjectID: cfg.RecaptchaProjectID,
		SiteKey:   cfg.RecaptchaSiteKey,
		APIKey:    cfg.RecaptchaAPIKey,
		Threshold: &threshold,
		FailOpen:  cfg.RecaptchaFailOpen,
		Timeout:   cfg.RecaptchaTimeout,
	}, recaptcha.WithAuditLogger(audit))
}

func environment(cfg *config.Config) string {
	if cfg.GinMode == "release" {
		return "production"
	}
	return "development"
}
