package main

import (
	stderrors "errors"
	"fmt"
	"os"

	"aiaudit/internal/errors"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(reportError(err))
	}
}

// reportError prints err to stderr and returns the process exit code.
func reportError(err error) int {
	var ee *exitError
	if stderrors.As(err, &ee) {
		if ee.msg != "" {
			fmt.Fprintln(os.Stderr, ee.msg)
		}
		return ee.code
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	var ae *errors.AuditError
	if stderrors.As(err, &ae) {
		for _, fix := range ae.SuggestedFixes {
			switch {
			case fix.Command != "":
				fmt.Fprintf(os.Stderr, "  try: %s\n", fix.Command)
			case fix.Variable != "":
				fmt.Fprintf(os.Stderr, "  set: %s (%s)\n", fix.Variable, fix.Description)
			case fix.Description != "":
				fmt.Fprintf(os.Stderr, "  hint: %s\n", fix.Description)
			}
		}
	}
	return 1
}
