package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"tubeferry/internal/ipc"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and manage the download queue",
	}

	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueCancelCommand(ctx))
	queueCmd.AddCommand(newQueueStartCommand(ctx))
	queueCmd.AddCommand(newQueueClearCommand(ctx))

	return queueCmd
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active, pending and finished jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.List()
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp)
				}
				printQueueList(cmd, resp)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the queues as JSON")
	return cmd
}

func newQueueCancelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel KEY...",
		Short: "Cancel pending or running jobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Cancel(args)
				if err != nil {
					return err
				}
				return reportOutcome(cmd, resp.Outcome, fmt.Sprintf("Canceled %d job(s)", len(args)))
			})
		},
	}
}

func newQueueStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start KEY...",
		Short: "Start pending jobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Start(args)
				if err != nil {
					return err
				}
				return reportOutcome(cmd, resp.Outcome, fmt.Sprintf("Started %d job(s)", len(args)))
			})
		},
	}
}

func newQueueClearCommand(ctx *commandContext) *cobra.Command {
	var allDone bool
	cmd := &cobra.Command{
		Use:   "clear [KEY...]",
		Short: "Remove finished jobs from the done list",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !allDone {
				return fmt.Errorf("give one or more keys or --all-done")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Clear(args, allDone)
				if err != nil {
					return err
				}
				summary := fmt.Sprintf("Cleared %d job(s)", len(args))
				if allDone {
					summary = "Cleared all finished jobs"
				}
				return reportOutcome(cmd, resp.Outcome, summary)
			})
		},
	}
	cmd.Flags().BoolVar(&allDone, "all-done", false, "Clear every record in the done list")
	return cmd
}

func reportOutcome(cmd *cobra.Command, outcome ipc.Outcome, summary string) error {
	if outcome.Failed() {
		return fmt.Errorf("%s", strings.TrimSpace(outcome.Msg))
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary)
	return nil
}

func printQueueList(cmd *cobra.Command, resp *ipc.ListResponse) {
	stdout := cmd.OutOrStdout()
	sections := []struct {
		title string
		items []ipc.Item
	}{
		{"Active", resp.Active},
		{"Pending", resp.Pending},
		{"Done", resp.Done},
	}
	colorize := isTerminal(stdout)
	for i, section := range sections {
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		printSection(stdout, fmt.Sprintf("%s (%d)", section.title, len(section.items)), colorize)
		if len(section.items) == 0 {
			fmt.Fprintln(stdout, "  (empty)")
			continue
		}
		writeTable(stdout, queueHeaders, queueRows(section.items, colorize), queueAligns)
	}
}
