package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rezonia/peppol-connector/internal/lifecycle"
	"github.com/rezonia/peppol-connector/internal/model"
)

var showInfos bool

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Validate documents against Peppol BIS Billing 3.0 or XRechnung",
	Long: `Validate one or more JSON or UBL documents.

Checks performed:
  - Mandatory fields and code lists (BR-*, BR-CL-*)
  - Monetary totals and line sums within 0.01 (BR-CO-10 .. BR-CO-16)
  - Tax category rates and duplicate line ids
  - With --profile xrechnung: seller contact, addresses and the Leitweg-ID (BR-DE-*)

Examples:
  peppol-connector validate invoice.xml
  peppol-connector validate invoices/ --profile xrechnung -f json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&showInfos, "infos", false, "Also print informational findings")
}

// ValidationReport holds the result of validating a single file
type ValidationReport struct {
	File   string                  `json:"file"`
	Input  string                  `json:"input,omitempty"`
	Error  string                  `json:"error,omitempty"`
	Result *model.ValidationResult `json:"result,omitempty"`
}

// Valid reports whether the file parsed and has no errors
func (r *ValidationReport) Valid() bool {
	return r.Error == "" && r.Result != nil && r.Result.Valid
}

func runValidate(cmd *cobra.Command, args []string) error {
	validate, err := lifecycle.ValidatorFor(cfg.Profile)
	if err != nil {
		return err
	}

	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files found to validate")
	}

	reports := make([]*ValidationReport, 0, len(files))
	allValid := true
	for _, file := range files {
		report := &ValidationReport{File: file}
		doc, input, err := readDocumentFile(file)
		report.Input = input
		if err != nil {
			report.Error = err.Error()
		} else {
			result := validate(doc)
			report.Result = &result
		}
		if !report.Valid() {
			allValid = false
		}
		reports = append(reports, report)
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		if err := encodeJSON(out, reports); err != nil {
			return err
		}
	} else {
		for _, r := range reports {
			printReport(cmd, r)
		}
	}

	if !allValid {
		return fmt.Errorf("validation failed for some files")
	}
	return nil
}

func printReport(cmd *cobra.Command, r *ValidationReport) {
	out := cmd.OutOrStdout()
	if r.Error != "" {
		fmt.Fprintf(out, "✗ %s: ERROR\n  - %s\n", r.File, r.Error)
		return
	}
	if r.Result.Valid {
		fmt.Fprintf(out, "✓ %s: VALID (%s)\n", r.File, r.Result.Profile)
	} else {
		fmt.Fprintf(out, "✗ %s: INVALID (%s)\n", r.File, r.Result.Profile)
	}
	for _, f := range r.Result.Errors {
		fmt.Fprintf(out, "  - [%s] %s\n", f.RuleID, f.Message)
	}
	for _, f := range r.Result.Warnings {
		fmt.Fprintf(out, "  ⚠ [%s] %s\n", f.RuleID, f.Message)
	}
	if showInfos {
		for _, f := range r.Result.Infos {
			fmt.Fprintf(out, "  i [%s] %s\n", f.RuleID, f.Message)
		}
	}
}
