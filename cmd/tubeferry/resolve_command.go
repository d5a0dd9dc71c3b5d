package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tubeferry/internal/catalog"
	"tubeferry/internal/ipc"
)

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var (
		limit   int
		asJSON  bool
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "resolve URL",
		Short: "Show how a Spotify reference would be matched on YouTube without queueing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Resolve(strings.TrimSpace(args[0]), limit)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, resp.Plan)
				}
				printPlan(cmd, resp.Plan, verbose)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum tracks to resolve (0 means all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the plan as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List every query and its top candidates")
	return cmd
}

func printPlan(cmd *cobra.Command, plan catalog.Plan, verbose bool) {
	stdout := cmd.OutOrStdout()
	fmt.Fprintf(stdout, "%s (%s)\n", plan.URL, plan.Type)
	if len(plan.Tracks) == 0 {
		fmt.Fprintln(stdout, "No tracks resolved")
		return
	}

	rows := make([][]string, 0, len(plan.Tracks))
	matched := 0
	for i, tp := range plan.Tracks {
		match := "not found"
		if tp.MatchURL != "" {
			matched++
			match = tp.Match + " <" + tp.MatchURL + ">"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			tp.Track.Query(),
			strconv.Itoa(len(tp.Attempts)),
			match,
		})
	}
	writeTable(stdout, []string{"#", "Track", "Queries", "Match"}, rows, []columnAlignment{alignRight, alignLeft, alignRight, alignLeft})
	fmt.Fprintf(stdout, "%d of %d tracks matched\n", matched, len(plan.Tracks))

	if !verbose {
		return
	}
	for i, tp := range plan.Tracks {
		fmt.Fprintf(stdout, "\n%d. %s\n", i+1, tp.Track.Query())
		for _, attempt := range tp.Attempts {
			fmt.Fprintf(stdout, "  query %q\n", attempt.Query)
			if attempt.Error != "" {
				fmt.Fprintf(stdout, "    error: %s\n", attempt.Error)
				continue
			}
			for j, cand := range attempt.Candidates {
				if j == 3 {
					break
				}
				fmt.Fprintf(stdout, "    %4d  %s\n", cand.Score, cand.Entry.Title)
			}
		}
	}
}
