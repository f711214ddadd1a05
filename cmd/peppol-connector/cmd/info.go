package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rezonia/peppol-connector/internal/model"
	"github.com/rezonia/peppol-connector/internal/xrechnung"
)

var infoCmd = &cobra.Command{
	Use:   "info [files...]",
	Short: "Show information about document files",
	Long: `Display a summary of documents without validating them.

Shows:
  - Input format (JSON or UBL) and document kind
  - Customization and Peppol document type identifiers
  - Seller, buyer and their participant identifiers
  - Totals, line count and Leitweg-ID if present

Examples:
  peppol-connector info invoice.xml
  peppol-connector info invoices/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	files, err := collectFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return fmt.Errorf("no files found")
	}

	for _, file := range files {
		printFileInfo(cmd, file)
		fmt.Fprintln(cmd.OutOrStdout())
	}

	return nil
}

func printFileInfo(cmd *cobra.Command, filePath string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File: %s\n", filePath)

	info, err := os.Stat(filePath)
	if err != nil {
		fmt.Fprintf(out, "  Error: %v\n", err)
		return
	}
	fmt.Fprintf(out, "  Size: %d bytes\n", info.Size())

	doc, input, err := readDocumentFile(filePath)
	if err != nil {
		fmt.Fprintf(out, "  Error: %v\n", err)
		return
	}

	fmt.Fprintf(out, "  Input: %s\n", inputName(input))
	fmt.Fprintf(out, "  Kind: %s (type code %s)\n", doc.Kind, doc.TypeCode)
	fmt.Fprintf(out, "  ID: %s issued %s\n", doc.ID, doc.IssueDate)
	fmt.Fprintf(out, "  Customization: %s\n", doc.CustomizationID)
	fmt.Fprintf(out, "  Document type: %s\n", model.QualifiedDocumentTypeID(model.DocumentTypeIDOf(doc)))
	fmt.Fprintf(out, "  Seller: %s (%s)\n", doc.Seller.Name, participantLabel(doc.Seller.EndpointID))
	fmt.Fprintf(out, "  Buyer: %s (%s)\n", doc.Buyer.Name, participantLabel(doc.Buyer.EndpointID))
	fmt.Fprintf(out, "  Payable: %s %s\n", doc.Totals.PayableAmount.StringFixed(2), doc.Currency)
	fmt.Fprintf(out, "  Lines: %d\n", len(doc.Lines))
	if id, ok := xrechnung.RoutingIdentifierOf(doc); ok {
		fmt.Fprintf(out, "  Leitweg-ID: %s\n", id)
	}
}

func inputName(input string) string {
	switch input {
	case inputUBL:
		return "UBL 2.1 XML"
	case inputJSON:
		return "JSON"
	default:
		return "Unknown"
	}
}

func participantLabel(id model.Identifier) string {
	p := model.ParticipantFromEndpoint(id)
	if !p.IsValid() {
		return "no valid endpoint"
	}
	return p.String()
}
