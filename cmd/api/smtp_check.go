package main

import (
	"fmt"

	"consultancy-backend/config"
	"consultancy-backend/pkg/logger"

	"github.com/spf13/cobra"
)

// smtpCheckCmd verifies relay credentials without sending mail
var smtpCheckCmd = &cobra.Command{
	Use:   "smtp-check",
	Short: "Connect and authenticate against the configured SMTP relay",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}
		logger.Init(cfg.LogLevel)

		svc, err := newEmailService(cfg)
		if err != nil {
			return err
		}
		if err := svc.Check(cmd.Context()); err != nil {
			return fmt.Errorf("smtp check against %s:%s failed: %w", cfg.SMTPHost, cfg.SMTPPort, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "SMTP relay %s:%s accepted the credentials\n", cfg.SMTPHost, cfg.SMTPPort)
		return nil
	},
}
