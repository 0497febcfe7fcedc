package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/SamuelRCrider/piiguard-go/core"
)

func newEnforceCmd(root *rootOptions) *cobra.Command {
	var direction string

	cmd := &cobra.Command{
		Use:   "enforce [file|-]",
		Short: "Scan a body, apply the policy mode and print the inspection",
		Long: `Enforce runs the full request or response pipeline on a body: scan,
enforcement per the policy mode and risk actions. Exits with status 1
when the payload is blocked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := core.Direction(direction)
			if dir != core.DirectionRequest && dir != core.DirectionResponse {
				return fmt.Errorf("--direction must be request or response, got %q", direction)
			}

			guard, err := root.guard()
			if err != nil {
				return err
			}
			raw, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			inspection := guard.Inspect(core.DecodeBody(raw), dir, "")
			if err := outputJSON(cmd.OutOrStdout(), inspection); err != nil {
				return err
			}
			if inspection.Result.Blocked() {
				return errViolations
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&direction, "direction", string(core.DirectionRequest), "request or response")
	return cmd
}
