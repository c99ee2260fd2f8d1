package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"papertriage/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show processing state, stats, and checkpoint summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			return ctx.withClient(func(client *ipc.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}

				for _, line := range renderSectionHeader("Processing", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("State", stateKind(status.State), status.State, colorize))
				if status.RunID != "" {
					fmt.Fprintln(stdout, renderStatusLine("Run", statusInfo, status.RunID, colorize))
				}
				if status.CurrentID != 0 {
					detail := fmt.Sprintf("#%d %s", status.CurrentID, status.CurrentDoc)
					fmt.Fprintln(stdout, renderStatusLine("Current document", statusInfo, detail, colorize))
				}
				if status.LastError != "" {
					fmt.Fprintln(stdout, renderStatusLine("Last error", statusError, status.LastError, colorize))
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Run Stats", colorize) {
					fmt.Fprintln(stdout, line)
				}
				rows := [][]string{
					{"total", strconv.Itoa(status.Stats.Total)},
					{"processed", strconv.Itoa(status.Stats.Processed)},
					{"high quality", strconv.Itoa(status.Stats.HighQuality)},
					{"low quality", strconv.Itoa(status.Stats.LowQuality)},
					{"no consensus", strconv.Itoa(status.Stats.NoConsensus)},
					{"errors", strconv.Itoa(status.Stats.Errors)},
					{"skipped", strconv.Itoa(status.Stats.Skipped)},
				}
				fmt.Fprintln(stdout, renderTable([]string{"Bucket", "Count"}, rows, []bool{false, true}))

				for _, line := range renderSectionHeader("Checkpoints", colorize) {
					fmt.Fprintln(stdout, line)
				}
				summary := status.Checkpoint
				fmt.Fprintln(stdout, renderStatusLine("Processed", statusInfo, strconv.Itoa(summary.TotalProcessed), colorize))
				fmt.Fprintln(stdout, renderStatusLine("With consensus", statusInfo, strconv.Itoa(summary.ConsensusCount), colorize))
				fmt.Fprintln(stdout, renderStatusLine("Errors", statusInfo, strconv.Itoa(summary.ErrorCount), colorize))
				if !summary.CreatedAt.IsZero() {
					fmt.Fprintln(stdout, renderStatusLine("Epoch started", statusInfo, summary.CreatedAt.Local().Format("2006-01-02 15:04:05"), colorize))
				}
				return nil
			})
		},
	}
}

func stateKind(state string) statusKind {
	switch state {
	case "running":
		return statusOK
	case "paused", "stopping":
		return statusWarn
	default:
		return statusInfo
	}
}
