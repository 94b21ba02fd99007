package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/domaincheck/internal/checker"
	"github.com/khanhnv2901/domaincheck/internal/dnssec"
)

var dnssecCmd = &cobra.Command{
	Use:   "dnssec <domain>",
	Short: "Validate the DNSSEC chain of trust from the root to a domain",
	Long: `Walk every zone from the root down to the domain, checking that each
DS record set matches a DNSKEY of the child zone and that the root keys
match the IANA trust anchors.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		jsonOut, _ := cmd.Flags().GetBool("json")

		domain, err := checker.NormalizeDomain(args[0])
		if err != nil {
			return &DomainValidationError{Target: args[0], Err: err}
		}

		analysis := appCtx.Services.Validator.Analyze(cmd.Context(), domain)
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		if jsonOut {
			return writeJSON(cmd.OutOrStdout(), analysis)
		}
		printDNSSEC(cmd.OutOrStdout(), analysis)
		return nil
	},
}

var anchorsCmd = &cobra.Command{
	Use:   "anchors",
	Short: "Show the cached root trust anchors, or refresh them with --refresh",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		refresh, _ := cmd.Flags().GetBool("refresh")
		jsonOut, _ := cmd.Flags().GetBool("json")
		store := appCtx.Services.Anchors

		var anchors []dnssec.TrustAnchor
		if refresh {
			var err error
			anchors, err = store.Refresh(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to refresh trust anchors: %w", err)
			}
		} else {
			anchors = store.Load(cmd.Context())
		}

		if jsonOut {
			return writeJSON(cmd.OutOrStdout(), anchors)
		}
		out := cmd.OutOrStdout()
		if path := store.CachePath(); path != "" {
			fmt.Fprintf(out, "%s %s\n", colorInfo("Cache:"), path)
		}
		if len(anchors) == 0 {
			fmt.Fprintln(out, colorWarn("No trust anchors available."))
			return nil
		}
		now := time.Now()
		for _, a := range anchors {
			state := formatBool(a.IsValid(now), "active", "inactive")
			fmt.Fprintf(out, "  key tag %-6d alg %-3d %s  %s  (%s)\n",
				a.KeyTag, a.Algorithm, dnssec.DigestName(a.DigestType), state, a.ID)
		}
		return nil
	},
}

func init() {
	dnssecCmd.Flags().Bool("json", false, "print the analysis as JSON")
	anchorsCmd.Flags().Bool("refresh", false, "download the anchor file even if the cache is fresh")
	anchorsCmd.Flags().Bool("json", false, "print anchors as JSON")
	rootCmd.AddCommand(dnssecCmd)
	rootCmd.AddCommand(anchorsCmd)
}

func printDNSSEC(w io.Writer, a *dnssec.Analysis) {
	fmt.Fprintf(w, "%s %s\n", colorInfo("Domain:"), a.Domain)
	fmt.Fprintf(w, "  Chain of trust:  %s\n", formatBool(a.ChainValid, "valid", "invalid"))
	fmt.Fprintf(w, "  DS matches key:  %s\n", formatBool(a.DsMatch, "yes", "no"))
	fmt.Fprintf(w, "  AD flag:         %t\n", a.AuthenticData)
	if a.RootKeyTag != 0 {
		fmt.Fprintf(w, "  Root key tag:    %d\n", a.RootKeyTag)
	}

	if len(a.Levels) > 0 {
		fmt.Fprintln(w, "  Levels:")
		for _, l := range a.Levels {
			zone := l.Zone
			if zone == "" {
				zone = "."
			}
			fmt.Fprintf(w, "    %-30s %s  keys=%d ds=%d tags=%s\n",
				zone, formatBool(l.Valid, "ok  ", "FAIL"), len(l.DnsKeys), len(l.DsRecords), joinKeyTags(l.KeyTags))
		}
	}

	if sig, ok := a.EarliestSignatureExpiry(); ok {
		days := sig.DaysRemaining()
		msg := fmt.Sprintf("%s signature by %s expires %s (%d days)",
			sig.TypeCovered, sig.SignerName, sig.Expiration.Format("2006-01-02"), days)
		if days < 3 {
			msg = colorWarn(msg)
		}
		fmt.Fprintf(w, "  %s\n", msg)
	}

	for _, m := range a.MismatchSummary {
		fmt.Fprintf(w, "  %s %s\n", colorError("-"), m)
	}
}

func joinKeyTags(tags []uint16) string {
	if len(tags) == 0 {
		return "-"
	}
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = fmt.Sprint(t)
	}
	return strings.Join(parts, ",")
}
