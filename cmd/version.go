package cmd

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/khanhnv2901/domaincheck/cmd.Version=...".
var (
	Version   = "dev"
	GitCommit = ""
	BuildDate = ""
)

type versionInfo struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	// version needs no config, logger or analyzers
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		detailed, _ := cmd.Flags().GetBool("detailed")
		jsonOut, _ := cmd.Flags().GetBool("json")

		info := currentVersion(debug.ReadBuildInfo)
		if jsonOut {
			return writeJSON(cmd.OutOrStdout(), info)
		}
		printVersion(cmd.OutOrStdout(), info, detailed)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolP("detailed", "d", false, "include commit, build date and toolchain")
	versionCmd.Flags().Bool("json", false, "print version information as JSON")
}

// currentVersion merges ldflags values with the VCS stamps Go embeds in
// module builds. ldflags win when set.
func currentVersion(readBuildInfo func() (*debug.BuildInfo, bool)) versionInfo {
	info := versionInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}

	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildDate == "" {
				info.BuildDate = s.Value
			}
		case "vcs.modified":
			info.Modified = s.Value == "true"
		}
	}
	return info
}

func printVersion(w io.Writer, info versionInfo, detailed bool) {
	if !detailed {
		fmt.Fprintf(w, "domaincheck %s\n", info.Version)
		return
	}
	commit := orDash(info.GitCommit)
	if info.Modified {
		commit += " (modified)"
	}
	fmt.Fprintf(w, "domaincheck %s\n", info.Version)
	fmt.Fprintf(w, "  Commit:     %s\n", commit)
	fmt.Fprintf(w, "  Built:      %s\n", orDash(info.BuildDate))
	fmt.Fprintf(w, "  Go:         %s\n", info.GoVersion)
	fmt.Fprintf(w, "  Platform:   %s\n", info.Platform)
}
