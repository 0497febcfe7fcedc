package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SamuelRCrider/piiguard-go/core"
	"github.com/SamuelRCrider/piiguard-go/utils"
)

func newScanCmd(root *rootOptions) *cobra.Command {
	var (
		text            string
		dataSource      string
		correlationID   string
		failOnViolation bool
		redact          bool
	)

	cmd := &cobra.Command{
		Use:   "scan [file|-]",
		Short: "Scan a JSON body (or plain text) and print the violations",
		Long: `Scan reads a body from a file or stdin. JSON is walked field by field;
anything else is scanned as a single string. With --text the argument is
scanned directly.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			guard, err := root.guard()
			if err != nil {
				return err
			}

			var body any = text
			if text == "" {
				raw, err := readInput(cmd, args)
				if err != nil {
					return err
				}
				body = core.DecodeBody(raw)
			}

			violations := guard.ScanObject(body, dataSource, correlationID)
			if violations == nil {
				violations = []utils.Violation{}
			}

			if redact {
				s, ok := body.(string)
				if !ok {
					return fmt.Errorf("--redact needs plain text input")
				}
				fmt.Fprintln(cmd.OutOrStdout(), core.ApplyRedactions(s, violations))
			} else if err := outputJSON(cmd.OutOrStdout(), violations); err != nil {
				return err
			}
			if failOnViolation && len(violations) > 0 {
				return errViolations
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "scan this text instead of reading input")
	cmd.Flags().StringVar(&dataSource, "data-source", "request_body", "data source recorded on violations")
	cmd.Flags().StringVar(&correlationID, "correlation-id", "", "correlation id recorded on violations")
	cmd.Flags().BoolVar(&redact, "redact", false, "print the redacted text instead of the violations")
	cmd.Flags().BoolVar(&failOnViolation, "fail-on-violation", false, "exit with status 1 when violations are found")
	return cmd
}
