package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"graphorm/internal/validate"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Audit stored nodes against the declared schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			p, err := openProject(ctx)
			if err != nil {
				return err
			}
			defer p.Close(ctx)

			report, err := validate.Run(ctx, p.db, p.reg)
			if err != nil {
				return err
			}
			return printReport(cmd, report)
		},
	}
}

func printReport(cmd *cobra.Command, report *validate.Report) error {
	out := cmd.OutOrStdout()
	var errorIssues, warnIssues []validate.Issue
	for _, issue := range report.Issues {
		switch issue.Severity {
		case validate.SeverityError:
			errorIssues = append(errorIssues, issue)
		case validate.SeverityWarn:
			warnIssues = append(warnIssues, issue)
		}
	}

	if len(errorIssues) == 0 && len(warnIssues) == 0 {
		okColor.Fprintln(out, "No issues found.")
		return nil
	}

	if len(errorIssues) > 0 {
		errorColor.Fprintf(out, "Errors (%d):\n", len(errorIssues))
		printIssues(out, errorIssues)
	}
	if len(warnIssues) > 0 {
		if len(errorIssues) > 0 {
			fmt.Fprintln(out)
		}
		warnColor.Fprintf(out, "Warnings (%d):\n", len(warnIssues))
		printIssues(out, warnIssues)
	}

	if len(errorIssues) > 0 {
		return fmt.Errorf("validation found errors")
	}
	return nil
}
