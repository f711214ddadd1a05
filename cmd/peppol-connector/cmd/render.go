package cmd

import (
	"github.com/spf13/cobra"

	"github.com/rezonia/peppol-connector/internal/ubl"
)

var renderOutput string

var renderCmd = &cobra.Command{
	Use:   "render <file>",
	Short: "Render a document as UBL 2.1 XML",
	Long: `Render a JSON document (or re-render a UBL file) as a UBL 2.1 Invoice or
CreditNote. Output is deterministic: the same input always yields the same bytes.

Examples:
  peppol-connector render invoice.json
  peppol-connector render credit-note.json -o credit-note.xml
  cat invoice.json | peppol-connector render -`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVarP(&renderOutput, "output", "o", "", "Output file (default: stdout)")
}

func runRender(cmd *cobra.Command, args []string) error {
	doc, _, err := readDocumentFile(args[0])
	if err != nil {
		return err
	}

	out, err := ubl.Render(doc)
	if err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), renderOutput, out)
}
