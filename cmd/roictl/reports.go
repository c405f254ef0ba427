package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <name>",
	Short: "Analyze a saved survey and store a new report version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().FetchSurveyAnalysis(cmd.Context(), args[0], nil)
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), resp)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, headingStyle.Render(fmt.Sprintf("%s: report version %d", args[0], resp.Version)))
		if err := printMarkdown(out, resp.Summary); err != nil {
			return err
		}
		fmt.Fprintln(out, mutedStyle.Render(resp.AnalysisLink))
		return nil
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Inspect and export stored analysis reports",
}

var reportsListCmd = &cobra.Command{
	Use:   "list <name>",
	Short: "List report versions of a survey, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		versions, err := newClient().ListReportVersions(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), versions)
		}
		return printVersions(cmd.OutOrStdout(), versions)
	},
}

var reportsGetCmd = &cobra.Command{
	Use:   "get <name> <version>",
	Short: "Show a report version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := parseVersion(args[1])
		if err != nil {
			return err
		}
		rep, err := newClient().GetReportVersion(cmd.Context(), args[0], version)
		if err != nil {
			return err
		}
		if rep == nil {
			return fmt.Errorf("report %s v%d not found", args[0], version)
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), rep)
		}
		return printReport(cmd.OutOrStdout(), rep)
	},
}

var pdfOutput string

var reportsPDFCmd = &cobra.Command{
	Use:   "pdf <name> <version>",
	Short: "Download a report version as PDF",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := parseVersion(args[1])
		if err != nil {
			return err
		}
		data, err := newClient().DownloadReportPDF(cmd.Context(), args[0], version)
		if err != nil {
			return err
		}

		path := pdfOutput
		if path == "" {
			path = fmt.Sprintf("%s-v%d.pdf", args[0], version)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", path, len(data))
		return nil
	},
}

func parseVersion(s string) (int, error) {
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("invalid version %q", s)
	}
	return v, nil
}

func init() {
	reportsPDFCmd.Flags().StringVarP(&pdfOutput, "output", "o", "", "output file (default <name>-v<version>.pdf)")
	reportsCmd.AddCommand(reportsListCmd, reportsGetCmd, reportsPDFCmd)
}
