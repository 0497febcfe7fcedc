package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/SamuelRCrider/piiguard-go/config"
	"github.com/SamuelRCrider/piiguard-go/core"
)

func newPolicyCmd(root *rootOptions) *cobra.Command {
	policyCmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect, validate and initialize policy files",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print statistics for the loaded policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			guard, err := root.guard()
			if err != nil {
				return err
			}
			return outputJSON(cmd.OutOrStdout(), guard.Stats())
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Compile a policy file and report skipped patterns",
		Long: `Validate parses and compiles a policy. Invalid patterns are skipped at
load time rather than rejected, so validate exits with status 1 when any
pattern would be skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := core.LoadPolicyDocument(args[0])
			if err != nil {
				return err
			}

			snap, skipped := core.Compile(doc, args[0])
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Policy: %s\n", args[0])
			fmt.Fprintf(out, "SHA256 Fingerprint: %s\n", doc.Metadata.Hash)
			fmt.Fprintf(out, "Patterns compiled: %d\n", len(snap.Patterns))
			fmt.Fprintf(out, "Mode: %s\n", snap.Mode)
			for _, pe := range skipped {
				fmt.Fprintf(out, "Skipped %s: %v\n", pe.Name, pe.Err)
			}
			if len(skipped) > 0 {
				return errViolations
			}
			return nil
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init <file>",
		Short: "Write the embedded hotel policy to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", args[0])
			}
			if err := os.WriteFile(args[0], config.DefaultPolicy, 0o644); err != nil {
				return fmt.Errorf("writing policy: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote default policy to %s\n", args[0])
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	policyCmd.AddCommand(statsCmd, validateCmd, initCmd)
	return policyCmd
}
