package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	piiguard "github.com/SamuelRCrider/piiguard-go"
	"github.com/SamuelRCrider/piiguard-go/core"
)

// Exit codes
const (
	exitSuccess    = 0
	exitViolations = 1
	exitError      = 2
)

// errViolations signals a successful run that found (or blocked) PII
var errViolations = errors.New("violations found")

type rootOptions struct {
	policyPath string
	logFormat  string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "piiguard",
		Short:         "GDPR PII detection and enforcement for AI provider traffic",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.policyPath == "" {
				opts.policyPath = os.Getenv("PIIGUARD_POLICY")
			}
			return setupLogging(opts.logFormat, opts.logLevel)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.policyPath, "policy", "p", "", "policy file (YAML or JSON); env PIIGUARD_POLICY; empty uses the embedded policy")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format: text or json")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newScanCmd(opts),
		newEnforceCmd(opts),
		newPolicyCmd(opts),
		newServeCmd(opts),
		newMCPCmd(opts),
	)
	return rootCmd
}

func (o *rootOptions) guard(guardOpts ...core.GuardOption) (*core.Guard, error) {
	return piiguard.NewGuard(o.policyPath, guardOpts...)
}

// readInput returns the named file, or stdin for "" and "-"
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", args[0], err)
	}
	return data, nil
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func exitCodeFor(err error) int {
	if errors.Is(err, errViolations) {
		return exitViolations
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	return exitError
}
