package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/peppol-connector/internal/config"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
	profile      string
	logLevel     string
	logFormat    string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "peppol-connector",
	Short: "Build, validate and exchange Peppol BIS Billing 3.0 documents",
	Long: `Peppol Connector renders, validates and tracks UBL invoices and credit notes
for exchange over the Peppol network.

Supports:
  - Peppol BIS Billing 3.0 (EN 16931) rule set
  - XRechnung 3.0 overlay with Leitweg-ID routing identifiers
  - UBL 2.1 Invoice and CreditNote rendering and parsing
  - Document registry with a status lifecycle and Access Point submission

Examples:
  # Render a JSON document to UBL
  peppol-connector render invoice.json -o invoice.xml

  # Validate UBL or JSON documents against XRechnung
  peppol-connector validate invoice.xml --profile xrechnung

  # Check a Leitweg-ID
  peppol-connector routing-id 04011000-12345-03

  # Start the HTTP API
  peppol-connector serve --address :8080`,
	Version:           version,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: loadConfig,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "table", "Output format (json, table)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "Validation profile: peppol or xrechnung (env: PEPPOL_PROFILE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (env: PEPPOL_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json (env: PEPPOL_LOG_FORMAT)")
}

// loadConfig reads the environment, then lets explicitly set flags win
func loadConfig(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load()
	if err != nil {
		return err
	}
	if profile != "" {
		loaded.Profile = profile
	}
	if logLevel != "" {
		loaded.LogLevel = logLevel
	}
	if logFormat != "" {
		loaded.LogFormat = logFormat
	}
	if err := loaded.Validate(); err != nil {
		return err
	}
	cfg = loaded
	return nil
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
