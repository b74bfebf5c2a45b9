package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var inputsJSON string
	var inputPairs []string

	cmd := &cobra.Command{
		Use:   "run <workflow>[:graph]",
		Short: "Execute a workflow's graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputs := make(map[string]any)
			if inputsJSON != "" {
				if err := json.Unmarshal([]byte(inputsJSON), &inputs); err != nil {
					return fmt.Errorf("parse --inputs: %w", err)
				}
			}
			for _, pair := range inputPairs {
				key, value, ok := strings.Cut(pair, "=")
				if !ok {
					return fmt.Errorf("--set %q is not key=value", pair)
				}
				inputs[key] = value
			}

			result, err := app.RunWorkflow(cmd.Context(), args[0], inputs)
			if err != nil {
				return err
			}
			renderResult(os.Stdout, args[0], result)
			if !result.Success {
				os.Exit(2)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&inputsJSON, "inputs", "", "Initial state as a JSON object")
	cmd.Flags().StringArrayVar(&inputPairs, "set", nil, "Initial state field as key=value (repeatable)")
	return cmd
}

func newListGraphsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list-graphs",
		Short: "List every graph in the workflows directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := app.ListGraphs()
			if err != nil {
				return err
			}
			renderGraphList(os.Stdout, infos)
			return nil
		},
	}
}

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <workflow>[:graph]",
		Short: "Parse and analyze a workflow without running it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := app.ValidateWorkflow(args[0])
			if err != nil {
				return err
			}
			renderValidation(os.Stdout, report)
			if !report.Valid {
				os.Exit(2)
			}
			return nil
		},
	}
}

func newDiagnoseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose",
		Short: "Report the environment the runtime sees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderDiagnosis(os.Stdout, app.DiagnoseSystem())
			return nil
		},
	}
}

func newRefreshCacheCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh-cache",
		Short: "Discard cached availability answers, forcing revalidation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.RefreshCache(); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, okStyle.Render("availability cache cleared"))
			return nil
		},
	}
}

func newValidateCacheCmd() *cobra.Command {
	var stats bool
	cmd := &cobra.Command{
		Use:   "validate-cache",
		Short: "Report cache health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			renderCacheReport(os.Stdout, app.ValidateCache(stats))
			return nil
		},
	}
	cmd.Flags().BoolVar(&stats, "stats", true, "Include entry counts")
	return cmd
}
