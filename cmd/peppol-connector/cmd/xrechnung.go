package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rezonia/peppol-connector/internal/ubl"
	"github.com/rezonia/peppol-connector/internal/xrechnung"
)

var (
	routingID    string
	extendOutput string
	extendAsXML  bool
)

var xrechnungCmd = &cobra.Command{
	Use:   "xrechnung",
	Short: "XRechnung (German CIUS) tooling",
}

var extendCmd = &cobra.Command{
	Use:   "extend <file>",
	Short: "Apply the XRechnung 3.0 profile and Leitweg-ID to a document",
	Long: `Set the XRechnung customization id, default the buyer reference to the
Leitweg-ID and add a LEITWEG-ID document reference. Running it twice yields
the same document.

Examples:
  peppol-connector xrechnung extend invoice.json --routing-id 04011000-12345-03
  peppol-connector xrechnung extend invoice.xml --routing-id 992-ABC-45 --xml -o out.xml`,
	Args: cobra.ExactArgs(1),
	RunE: runExtend,
}

func init() {
	rootCmd.AddCommand(xrechnungCmd)
	xrechnungCmd.AddCommand(extendCmd)

	extendCmd.Flags().StringVar(&routingID, "routing-id", "", "Leitweg-ID (coarse-fine-check)")
	extendCmd.Flags().BoolVar(&extendAsXML, "xml", false, "Write UBL XML instead of JSON")
	extendCmd.Flags().StringVarP(&extendOutput, "output", "o", "", "Output file (default: stdout)")
	extendCmd.MarkFlagRequired("routing-id")
}

func runExtend(cmd *cobra.Command, args []string) error {
	id, err := xrechnung.ParseRoutingIdentifier(routingID)
	if err != nil {
		return err
	}
	if !id.ChecksumValid() {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: check digits %s do not match expected %s\n", id.Check, id.ExpectedCheck())
	}

	doc, _, err := readDocumentFile(args[0])
	if err != nil {
		return err
	}
	extended := xrechnung.Extend(*doc, id)

	if extendAsXML {
		out, err := ubl.Render(&extended)
		if err != nil {
			return err
		}
		return writeOutput(cmd.OutOrStdout(), extendOutput, out)
	}

	if extendOutput == "" {
		return encodeJSON(cmd.OutOrStdout(), extended)
	}
	var buf bytes.Buffer
	if err := encodeJSON(&buf, extended); err != nil {
		return err
	}
	return writeOutput(cmd.OutOrStdout(), extendOutput, buf.Bytes())
}
