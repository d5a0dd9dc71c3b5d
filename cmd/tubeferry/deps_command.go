package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tubeferry/internal/deps"
	"tubeferry/internal/preflight"
)

func newDepsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "deps",
		Short: "Check external tool dependencies",
		RunE: func(cmd *cobra.Command, args []string) error {
			statuses := preflight.CheckSystemDeps(ctx.configValue())
			stdout := cmd.OutOrStdout()
			for _, line := range dependencyLines(statuses, isTerminal(stdout)) {
				fmt.Fprintln(stdout, line)
			}
			if missing := deps.MissingRequired(statuses); len(missing) > 0 {
				return fmt.Errorf("required dependency %s is missing", missing[0].Name)
			}
			return nil
		},
	}
}
