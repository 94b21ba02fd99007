package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/khanhnv2901/domaincheck/internal/checker"
	"github.com/khanhnv2901/domaincheck/internal/whois"
)

var whoisCmd = &cobra.Command{
	Use:   "whois <domain...>",
	Short: "Query registry WHOIS for one or more domains",
	Long: `Look up each domain at its registry's WHOIS server and parse the reply
with the registry-specific parser. Several domains are queried in parallel;
a failure for one domain does not stop the others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		jsonOut, _ := cmd.Flags().GetBool("json")
		raw, _ := cmd.Flags().GetBool("raw")
		concurrency, _ := cmd.Flags().GetInt("concurrency")

		domains := make([]string, len(args))
		for i, arg := range args {
			name, err := checker.NormalizeDomain(arg)
			if err != nil {
				return &DomainValidationError{Target: arg, Err: err}
			}
			domains[i] = name
		}

		results, batchErr := appCtx.Services.Whois.QueryBatch(cmd.Context(), domains, concurrency)
		if !raw {
			for i, a := range results {
				if a != nil {
					a = a.Clone()
					a.RawText = ""
					results[i] = a
				}
			}
		}

		out := cmd.OutOrStdout()
		if jsonOut {
			if err := writeJSON(out, results); err != nil {
				return err
			}
		} else {
			for i, a := range results {
				if i > 0 {
					fmt.Fprintln(out)
				}
				if a == nil {
					fmt.Fprintf(out, "%s  %s\n", colorInfo(domains[i]), colorError("lookup failed"))
					continue
				}
				printWhois(out, a, raw)
			}
		}

		var merr *multierror.Error
		if errors.As(batchErr, &merr) {
			for _, e := range merr.Errors {
				appCtx.Logger.Warnw("whois_failed", "error", e)
			}
			return fmt.Errorf("%d of %d lookups failed: %w", len(merr.Errors), len(domains), batchErr)
		}
		return batchErr
	},
}

var ipWhoisCmd = &cobra.Command{
	Use:   "ipwhois <ip>",
	Short: "Find the allocation block and origin ASN for an IP address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		jsonOut, _ := cmd.Flags().GetBool("json")

		allocation, asn, err := appCtx.Services.Whois.QueryIP(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOut {
			return writeJSON(cmd.OutOrStdout(), struct {
				IP         string `json:"ip"`
				Allocation string `json:"allocation,omitempty"`
				ASN        string `json:"asn,omitempty"`
			}{strings.TrimSpace(args[0]), allocation, asn})
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", colorInfo("IP:"), strings.TrimSpace(args[0]))
		fmt.Fprintf(out, "  Allocation: %s\n", orDash(allocation))
		fmt.Fprintf(out, "  ASN:        %s\n", orDash(asn))
		return nil
	},
}

func init() {
	whoisCmd.Flags().Bool("json", false, "print results as JSON")
	whoisCmd.Flags().Bool("raw", false, "include the raw server response")
	whoisCmd.Flags().Int("concurrency", 4, "lookups in flight at once")
	ipWhoisCmd.Flags().Bool("json", false, "print the result as JSON")
	rootCmd.AddCommand(whoisCmd)
	rootCmd.AddCommand(ipWhoisCmd)
}

func printWhois(w io.Writer, a *whois.Analysis, raw bool) {
	fmt.Fprintf(w, "%s %s  (%s)\n", colorInfo("Domain:"), a.DomainName, a.WhoisServer)
	fmt.Fprintf(w, "  Registrar:   %s\n", orDash(a.Registrar))
	if a.Registrant != "" || a.RegistrantOrganization != "" {
		fmt.Fprintf(w, "  Registrant:  %s\n", orDash(firstNonEmpty(a.RegistrantOrganization, a.Registrant)))
	}
	fmt.Fprintf(w, "  Created:     %s\n", formatDate(a.CreationDate, a.CreationDateRaw))
	fmt.Fprintf(w, "  Updated:     %s\n", formatDate(a.LastUpdated, a.LastUpdatedRaw))

	expiry := formatDate(a.ExpiryDate, a.ExpiryDateRaw)
	switch {
	case a.IsExpired:
		expiry = colorError(expiry + " (expired)")
	case a.ExpiresSoon:
		if days, ok := a.DaysUntilExpiry(time.Now()); ok {
			expiry = colorWarn(fmt.Sprintf("%s (%d days)", expiry, days))
		}
	}
	fmt.Fprintf(w, "  Expires:     %s\n", expiry)
	fmt.Fprintf(w, "  Locked:      %s\n", formatBool(a.RegistrarLocked, "yes", "no"))
	fmt.Fprintf(w, "  Privacy:     %t\n", a.PrivacyProtected)
	if a.DnsSec != "" {
		fmt.Fprintf(w, "  DNSSEC:      %s\n", a.DnsSec)
	}
	if len(a.NameServers) > 0 {
		fmt.Fprintf(w, "  Nameservers: %s\n", strings.Join(a.NameServers, ", "))
	}
	if len(a.Statuses) > 0 {
		fmt.Fprintf(w, "  Status:      %s\n", strings.Join(a.Statuses, ", "))
	}
	if raw && a.RawText != "" {
		fmt.Fprintf(w, "\n%s\n", a.RawText)
	}
}

func formatDate(t *time.Time, raw string) string {
	if t != nil {
		return t.Format("2006-01-02")
	}
	return orDash(raw)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
