package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"papertriage/internal/ipc"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent processing runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.History(limit)
				if err != nil {
					return err
				}
				if len(resp.Runs) == 0 {
					fmt.Fprintln(stdout, "No runs recorded")
					return nil
				}

				rows := make([][]string, 0, len(resp.Runs))
				for _, run := range resp.Runs {
					rows = append(rows, []string{
						shortID(run.ID),
						run.StartedAt.Local().Format("2006-01-02 15:04"),
						run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String(),
						strconv.Itoa(run.Processed),
						strconv.Itoa(run.HighQuality),
						strconv.Itoa(run.LowQuality),
						strconv.Itoa(run.NoConsensus),
						strconv.Itoa(run.Errors),
						strconv.Itoa(run.Skipped),
						run.StopReason,
					})
				}
				headers := []string{"Run", "Started", "Duration", "Processed", "High", "Low", "NoCons", "Errors", "Skipped", "Ended"}
				aligns := []bool{false, false, true, true, true, true, true, true, true, false}
				fmt.Fprintln(stdout, renderTable(headers, rows, aligns))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
