package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var surveysCmd = &cobra.Command{
	Use:   "surveys",
	Short: "List, inspect, copy and delete saved surveys",
}

var surveysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved survey names",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := newClient().ListSurveys(cmd.Context())
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), names)
		}
		if len(names) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No saved surveys.")
			return nil
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var surveysGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show the answers of a survey",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sv, err := newClient().GetSurveyByName(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if sv == nil {
			return fmt.Errorf("survey %q not found", args[0])
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), sv)
		}
		return printSurvey(cmd.OutOrStdout(), sv)
	},
}

var surveysDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a survey and its reports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		deleted, err := newClient().DeleteSurvey(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("survey %q not found", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", args[0])
		return nil
	},
}

var surveysDuplicateCmd = &cobra.Command{
	Use:   "duplicate <name>",
	Short: "Copy a survey under a new name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sv, err := newClient().DuplicateSurvey(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), sv)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %q\n", sv.Name)
		return nil
	},
}

var waterfallCmd = &cobra.Command{
	Use:   "waterfall <name>",
	Short: "Show the cost and benefit waterfall of a survey",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := newClient().GetWaterfall(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(cmd.OutOrStdout(), wf)
		}
		return printWaterfall(cmd.OutOrStdout(), *wf)
	},
}

func init() {
	surveysCmd.AddCommand(surveysListCmd, surveysGetCmd, surveysDeleteCmd, surveysDuplicateCmd)
}
