package main

import (
	"github.com/spf13/cobra"

	"github.com/SamuelRCrider/piiguard-go/llm"
)

func newMCPCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the guard as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			guard, err := root.guard()
			if err != nil {
				return err
			}
			return llm.NewToolServer(guard, version).ServeStdio()
		},
	}
}
