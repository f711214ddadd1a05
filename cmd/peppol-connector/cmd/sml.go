package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rezonia/peppol-connector/internal/model"
	"github.com/rezonia/peppol-connector/internal/network"
)

var smlZone string

var smlCmd = &cobra.Command{
	Use:   "sml <scheme:identifier>",
	Short: "Show the SML/BDXL DNS names of a participant",
	Long: `Compute the DNS names under which a participant's SMP is published.

Examples:
  peppol-connector sml 0088:7300010000001
  peppol-connector sml iso6523-actorid-upis::9930:DE123456789 --zone acc.edelivery.tech.ec.europa.eu`,
	Args: cobra.ExactArgs(1),
	RunE: runSML,
}

func init() {
	rootCmd.AddCommand(smlCmd)

	smlCmd.Flags().StringVar(&smlZone, "zone", "", "SML zone (env: PEPPOL_SML_ZONE)")
}

// SMLReport lists the locator names of one participant
type SMLReport struct {
	Participant   string `json:"participant"`
	Hash          string `json:"hash"`
	Hostname      string `json:"hostname"`
	NAPTRHostname string `json:"naptr_hostname"`
}

func runSML(cmd *cobra.Command, args []string) error {
	p, err := model.ParseParticipant(args[0])
	if err != nil {
		return err
	}
	zone := smlZone
	if zone == "" {
		zone = cfg.SMLZone
	}

	report := SMLReport{
		Participant:   p.URN(),
		Hash:          network.ParticipantHash(p),
		Hostname:      network.SMLHostname(p, zone),
		NAPTRHostname: network.NAPTRHostname(p, zone),
	}

	out := cmd.OutOrStdout()
	if outputFormat == "json" {
		return encodeJSON(out, report)
	}
	fmt.Fprintf(out, "Participant: %s\n", report.Participant)
	fmt.Fprintf(out, "  Hash:     %s\n", report.Hash)
	fmt.Fprintf(out, "  SML host: %s\n", report.Hostname)
	fmt.Fprintf(out, "  BDXL:     %s\n", report.NAPTRHostname)
	return nil
}
