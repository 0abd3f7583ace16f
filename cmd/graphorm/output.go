package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"graphorm/internal/validate"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	okColor     = color.New(color.FgGreen)
	errorColor  = color.New(color.FgRed, color.Bold)
	warnColor   = color.New(color.FgYellow)
	dimColor    = color.New(color.Faint)
)

func printError(w io.Writer, err error) {
	errorColor.Fprint(w, "error: ")
	fmt.Fprintln(w, err)
}

func printJSON(w io.Writer, v any) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Fprintln(w, string(payload))
	return nil
}

func printIssues(w io.Writer, issues []validate.Issue) {
	for _, issue := range issues {
		c := warnColor
		if issue.Severity == validate.SeverityError {
			c = errorColor
		}
		location := fmt.Sprintf("%s #%d", issue.Kind, issue.ID)
		if issue.Key != "" {
			location += "." + issue.Key
		}
		fmt.Fprint(w, "  - ")
		c.Fprint(w, location)
		fmt.Fprintf(w, ": %s ", issue.Message)
		dimColor.Fprintf(w, "(%s)\n", issue.Code)
	}
}
