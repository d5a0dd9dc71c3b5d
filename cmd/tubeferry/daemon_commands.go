package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tubeferry/internal/daemonctl"
	"tubeferry/internal/deps"
	"tubeferry/internal/ipc"
	"tubeferry/internal/preflight"
)

func newDaemonCommands(ctx *commandContext) []*cobra.Command {
	var startLogLevel string
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the tubeferry daemon in the background",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			exe, err := daemonctl.DaemonBinary()
			if err != nil {
				return err
			}
			launched, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonctl.LaunchOptions{ConfigPath: ctx.configPath(), LogLevel: startLogLevel},
				10*time.Second,
			)
			if err != nil {
				return err
			}
			if !launched {
				fmt.Fprintln(stdout, "Daemon already running")
				return nil
			}
			fmt.Fprintln(stdout, "Daemon started")
			return nil
		},
	}

	startCmd.Flags().StringVar(&startLogLevel, "log-level", "", "Log level for the launched daemon")

	var stopTimeout time.Duration
	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the tubeferry daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			err := daemonctl.Stop(ctx.socketPath(), stopTimeout)
			if errors.Is(err, daemonctl.ErrDaemonNotRunning) {
				fmt.Fprintln(stdout, "Daemon is not running")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(stdout, "Daemon stopped")
			return nil
		},
	}
	stopCmd.Flags().DurationVar(&stopTimeout, "timeout", 35*time.Second, "How long to wait for the daemon to exit")

	var statusJSON bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.configValue()
			resp, err := daemonctl.BuildStatusSnapshot(cmd.Context(), ctx.socketPath(), cfg)
			if err != nil {
				return err
			}
			if statusJSON {
				return writeJSON(cmd, resp)
			}

			stdout := cmd.OutOrStdout()
			colorize := isTerminal(stdout)

			printSection(stdout, "Daemon", colorize)
			for _, line := range daemonLines(resp, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			printSection(stdout, "Dependencies", colorize)
			for _, line := range dependencyLines(resp.Dependencies, colorize) {
				fmt.Fprintln(stdout, line)
			}
			fmt.Fprintln(stdout)

			printSection(stdout, "Paths", colorize)
			for _, result := range preflight.RunAll(cfg) {
				fmt.Fprintln(stdout, renderStatusLine(result.Name, preflightKind(result), result.Detail, colorize))
			}
			for _, result := range []preflight.Result{preflight.CheckSpotifyFromConfig(cfg), preflight.CheckNotificationsFromConfig(cfg)} {
				fmt.Fprintln(stdout, renderStatusLine(result.Name, statusInfo, result.Detail, colorize))
			}
			fmt.Fprintln(stdout)

			printSection(stdout, "Queue", colorize)
			writeQueueCounts(stdout, resp)
			return nil
		},
	}
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print status as JSON")

	return []*cobra.Command{startCmd, stopCmd, statusCmd}
}

func daemonLines(resp *ipc.StatusResponse, colorize bool) []string {
	if !resp.Running {
		return []string{renderStatusLine("Daemon", statusWarn, "not running (queue counts read from disk)", colorize)}
	}
	detail := "running"
	if resp.PID > 0 {
		detail = fmt.Sprintf("running (pid %d)", resp.PID)
	}
	lines := []string{renderStatusLine("Daemon", statusOK, detail, colorize)}
	if !resp.StartedAt.IsZero() {
		lines = append(lines, renderStatusLine("Started", statusInfo, resp.StartedAt.Local().Format(time.DateTime), colorize))
	}
	mode := resp.Mode
	if mode == "limited" {
		mode = fmt.Sprintf("%s (%d at a time)", mode, resp.MaxConcurrent)
	}
	lines = append(lines,
		renderStatusLine("Mode", statusInfo, mode, colorize),
		renderStatusLine("Restoring", statusInfo, yesNo(resp.Restoring), colorize),
		renderStatusLine("Socket", statusInfo, resp.SocketPath, colorize),
	)
	return lines
}

func dependencyLines(statuses []deps.Status, colorize bool) []string {
	lines := make([]string, 0, len(statuses)+1)
	var missing []string
	for _, dep := range statuses {
		if dep.Available {
			message := "Ready"
			if dep.Command != "" {
				message = fmt.Sprintf("Ready (command: %s)", dep.Command)
			}
			lines = append(lines, renderStatusLine(dep.Name, statusOK, message, colorize))
			continue
		}
		detail := strings.TrimSpace(dep.Detail)
		if detail == "" {
			detail = "not available"
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		lines = append(lines, renderStatusLine(dep.Name, kind, detail, colorize))
		missing = append(missing, dep.Name)
	}
	if len(missing) > 0 {
		lines = append(lines, renderStatusLine("Missing dependencies", statusWarn, strings.Join(missing, ", "), colorize))
	}
	return lines
}

func preflightKind(result preflight.Result) statusKind {
	if result.Passed {
		return statusOK
	}
	return statusError
}

func writeQueueCounts(w io.Writer, resp *ipc.StatusResponse) {
	rows := [][]string{
		{"active", strconv.Itoa(resp.Active)},
		{"pending", strconv.Itoa(resp.Pending)},
		{"done", strconv.Itoa(resp.Done)},
	}
	writeTable(w, []string{"Queue", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
}
