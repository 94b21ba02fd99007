package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/khanhnv2901/domaincheck/internal/domain/run"
	sharedErrors "github.com/khanhnv2901/domaincheck/internal/shared/errors"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Inspect saved check runs",
}

var resultsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		jsonOut, _ := cmd.Flags().GetBool("json")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := appCtx.Services.Runs.FindAll(cmd.Context())
		if err != nil {
			return err
		}
		if limit > 0 && len(runs) > limit {
			runs = runs[:limit]
		}

		if jsonOut {
			snaps := make([]run.Snapshot, len(runs))
			for i, rn := range runs {
				snaps[i] = rn.Snapshot()
			}
			return writeJSON(cmd.OutOrStdout(), snaps)
		}

		if len(runs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No saved runs in", appCtx.ResultsDir)
			return nil
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tDOMAINS\tFAILED\tOPERATOR")
		for _, rn := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
				rn.ID(),
				rn.StartedAt().Local().Format("2006-01-02 15:04"),
				formatStatusWithColor(string(rn.Status())),
				len(rn.Domains()),
				rn.Failures(),
				orDash(rn.Operator()),
			)
		}
		return tw.Flush()
	},
}

var resultsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show the results of a saved run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		appCtx := getAppContext(cmd)
		jsonOut, _ := cmd.Flags().GetBool("json")
		unicode, _ := cmd.Flags().GetBool("unicode")

		rn, err := appCtx.Services.Runs.FindByID(cmd.Context(), args[0])
		if errors.Is(err, sharedErrors.ErrRunNotFound) {
			return fmt.Errorf("run %s not found in %s", args[0], appCtx.ResultsDir)
		}
		if err != nil {
			return err
		}

		if jsonOut {
			snap := rn.Snapshot()
			snap.Results = resultsForOutput(snap.Results, unicode)
			return writeJSON(cmd.OutOrStdout(), snap)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s  %s\n", colorInfo("Run:"), rn.ID(), formatStatusWithColor(string(rn.Status())))
		fmt.Fprintf(out, "  Started:   %s\n", rn.StartedAt().Local().Format("2006-01-02 15:04:05"))
		if !rn.CompletedAt().IsZero() {
			fmt.Fprintf(out, "  Completed: %s\n", rn.CompletedAt().Local().Format("2006-01-02 15:04:05"))
		}
		if msg := rn.LastError(); msg != "" {
			fmt.Fprintf(out, "  Error:     %s\n", colorError(msg))
		}
		fmt.Fprintln(out)
		for _, r := range rn.Results() {
			printResult(out, r, unicode)
		}
		return nil
	},
}

func init() {
	resultsListCmd.Flags().Bool("json", false, "print runs as JSON")
	resultsListCmd.Flags().Int("limit", 20, "maximum runs to list (0 = all)")
	resultsShowCmd.Flags().Bool("json", false, "print the run as JSON")
	resultsShowCmd.Flags().Bool("unicode", false, "show internationalized names in Unicode")
	resultsCmd.AddCommand(resultsListCmd)
	resultsCmd.AddCommand(resultsShowCmd)
}
