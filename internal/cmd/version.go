package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
)

var (
	extended    bool
	versionJSON bool
)

type versionReport struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	Go        string `json:"go,omitempty"`
	Gofulmen  string `json:"gofulmen,omitempty"`
	Crucible  string `json:"crucible,omitempty"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print version information. Use --extended for build, Go, Gofulmen and Crucible versions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		report := versionReport{
			Name:    GetAppIdentity().BinaryName,
			Version: versionInfo.Version,
		}
		if extended {
			ssot := crucible.GetVersion()
			report.Commit = versionInfo.Commit
			report.BuildDate = versionInfo.BuildDate
			report.Go = runtime.Version()
			report.Gofulmen = ssot.Gofulmen
			report.Crucible = ssot.Crucible
		}
		return writeVersion(cmd.OutOrStdout(), report, versionJSON)
	},
}

func writeVersion(w io.Writer, report versionReport, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	if _, err := fmt.Fprintf(w, "%s %s\n", report.Name, report.Version); err != nil {
		return err
	}
	if report.Go == "" {
		return nil
	}
	_, err := fmt.Fprintf(w, "Commit: %s\nBuilt: %s\nGo: %s\n\nGofulmen: %s\nCrucible: %s\n",
		report.Commit, report.BuildDate, report.Go, report.Gofulmen, report.Crucible)
	return err
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVarP(&extended, "extended", "e", false, "show extended version information")
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "print as JSON")
}
