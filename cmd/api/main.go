package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// @title           Consultancy Contact API
// @version         1.0
// @description     Contact form backend: validation, reCAPTCHA Enterprise risk check and SMTP notification.
// @host            localhost:8080
// @BasePath        /v1
func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "api",
	Short: "Consultancy site backend",
	Long: `Backend for the consultancy site's contact form.

Available subcommands:
  serve      - Run the HTTP API (default)
  smtp-check - Connect and authenticate against the configured SMTP relay`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, smtpCheckCmd)
}
