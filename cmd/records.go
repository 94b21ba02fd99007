package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/domaincheck/internal/checker"
	"github.com/khanhnv2901/domaincheck/internal/dnsclient"
	"github.com/khanhnv2901/domaincheck/internal/dnsrecords"
	"github.com/khanhnv2901/domaincheck/internal/heuristics"
)

var recordsCmd = &cobra.Command{
	Use:   "records <domain>",
	Short: "List a domain's DNS records and mail policy (SPF, DMARC, CAA, TLSA)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		jsonOut, _ := cmd.Flags().GetBool("json")

		domain, err := normalizeArg(args[0])
		if err != nil {
			return err
		}
		inv := appCtx.Services.Collector.Collect(cmd.Context(), domain)
		if jsonOut {
			return writeJSON(cmd.OutOrStdout(), inv)
		}
		printInventory(cmd.OutOrStdout(), inv)
		return nil
	},
}

var propagationCmd = &cobra.Command{
	Use:   "propagation <domain>",
	Short: "Compare a record set across public resolvers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		jsonOut, _ := cmd.Flags().GetBool("json")
		typeName, _ := cmd.Flags().GetString("type")

		qtype, ok := dnsclient.ParseType(typeName)
		if !ok {
			return fmt.Errorf("unknown record type %q", typeName)
		}
		domain, err := normalizeArg(args[0])
		if err != nil {
			return err
		}

		res := appCtx.Services.Propagation.Check(cmd.Context(), domain, qtype)
		if jsonOut {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		printPropagation(cmd.OutOrStdout(), res)
		return nil
	},
}

var typosquatCmd = &cobra.Command{
	Use:   "typosquat <domain>",
	Short: "Generate look-alike domains and report the ones that resolve",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		jsonOut, _ := cmd.Flags().GetBool("json")
		limit, _ := cmd.Flags().GetInt("limit")

		domain, err := normalizeArg(args[0])
		if err != nil {
			return err
		}
		res := heuristics.CheckTyposquats(cmd.Context(), appCtx.Services.Resolver, domain, limit)
		if jsonOut {
			return writeJSON(cmd.OutOrStdout(), res)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s  (%d variants checked)\n", colorInfo("Domain:"), res.Domain, res.Checked)
		if len(res.Registered) == 0 {
			fmt.Fprintf(out, "  %s\n", colorSuccess("no look-alike domains resolve"))
			return nil
		}
		for _, c := range res.Registered {
			fmt.Fprintf(out, "  %s %-30s %s\n", colorWarn("!"), c.Domain, strings.Join(c.Addresses, ", "))
		}
		return nil
	},
}

func init() {
	recordsCmd.Flags().Bool("json", false, "print the inventory as JSON")
	propagationCmd.Flags().Bool("json", false, "print the comparison as JSON")
	propagationCmd.Flags().String("type", "A", "record type to compare")
	typosquatCmd.Flags().Bool("json", false, "print the result as JSON")
	typosquatCmd.Flags().Int("limit", heuristics.DefaultTyposquatLimit, "maximum variants to resolve")
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(propagationCmd)
	rootCmd.AddCommand(typosquatCmd)
}

func normalizeArg(arg string) (string, error) {
	domain, err := checker.NormalizeDomain(arg)
	if err != nil {
		return "", &DomainValidationError{Target: arg, Err: err}
	}
	return domain, nil
}

func printInventory(w io.Writer, inv *dnsrecords.Inventory) {
	fmt.Fprintf(w, "%s %s\n", colorInfo("Domain:"), inv.Domain)
	printList(w, "A", inv.A)
	printList(w, "AAAA", inv.AAAA)
	if inv.CNAME != "" {
		printList(w, "CNAME", []string{inv.CNAME})
	}
	if len(inv.MX) > 0 {
		mx := make([]string, len(inv.MX))
		for i, m := range inv.MX {
			mx[i] = fmt.Sprintf("%d %s", m.Preference, m.Host)
		}
		printList(w, "MX", mx)
	}
	printList(w, "NS", inv.NS)
	if inv.SOA != nil {
		printList(w, "SOA", []string{fmt.Sprintf("%s %s serial=%d", inv.SOA.PrimaryNS, inv.SOA.Mailbox, inv.SOA.Serial)})
	}
	printList(w, "TXT", inv.TXT)
	if len(inv.CAA) > 0 {
		caa := make([]string, len(inv.CAA))
		for i, c := range inv.CAA {
			caa[i] = fmt.Sprintf("%d %s %q", c.Flag, c.Tag, c.Value)
		}
		printList(w, "CAA", caa)
	}
	if len(inv.TLSA) > 0 {
		tlsa := make([]string, len(inv.TLSA))
		for i, t := range inv.TLSA {
			tlsa[i] = fmt.Sprintf("%s %d %d %d", t.Host, t.Usage, t.Selector, t.MatchingType)
		}
		printList(w, "TLSA", tlsa)
	}
	printList(w, "PTR", inv.PTR)
	if inv.SPF != "" {
		printList(w, "SPF", []string{inv.SPF})
	}
	if inv.DMARC != "" {
		printList(w, "DMARC", []string{inv.DMARC})
	}

	for _, issue := range inv.Issues {
		fmt.Fprintf(w, "  %s %s\n", colorWarn("!"), issue)
	}
	types := make([]string, 0, len(inv.Errors))
	for t := range inv.Errors {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		fmt.Fprintf(w, "  %s %s lookup failed: %s\n", colorError("x"), t, inv.Errors[t])
	}
}

func printList(w io.Writer, label string, values []string) {
	for i, v := range values {
		if i == 0 {
			fmt.Fprintf(w, "  %-6s %s\n", label, v)
			continue
		}
		fmt.Fprintf(w, "  %-6s %s\n", "", v)
	}
}

func printPropagation(w io.Writer, res *dnsrecords.PropagationResult) {
	fmt.Fprintf(w, "%s %s %s  %s\n", colorInfo("Domain:"), res.Domain, res.Type,
		formatBool(res.Consistent, "consistent", "inconsistent"))
	for _, r := range res.Resolvers {
		answers := strings.Join(r.Answers, ", ")
		switch {
		case r.Error != "":
			answers = colorError(r.Error)
		case answers == "":
			answers = "(no records)"
		}
		fmt.Fprintf(w, "  %-12s %-22s %6.1fms  %s\n", r.Resolver, r.Address, r.Latency, answers)
	}
	if len(res.Consensus) > 0 {
		fmt.Fprintf(w, "  Consensus: %s\n", strings.Join(res.Consensus, ", "))
	}
}
