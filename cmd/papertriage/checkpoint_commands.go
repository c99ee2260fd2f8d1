package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"papertriage/internal/checkpoint"
	"papertriage/internal/ipc"
	"papertriage/internal/logging"
)

func newCheckpointCommand(ctx *commandContext) *cobra.Command {
	checkpointCmd := &cobra.Command{
		Use:   "checkpoint",
		Short: "Inspect or clear the checkpoint store",
	}
	checkpointCmd.AddCommand(newCheckpointShowCommand(ctx))
	checkpointCmd.AddCommand(newCheckpointClearCommand(ctx))
	return checkpointCmd
}

func newCheckpointShowCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "show",
		Short: "List checkpoint records for the current epoch",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()

			// Reads go straight to the file so the command works without a
			// running daemon.
			store := checkpoint.Open(cfg.CheckpointPath(), logging.NewNop())
			records := store.Records()
			if len(records) == 0 {
				fmt.Fprintln(stdout, "No checkpoint records")
				return nil
			}
			if limit > 0 && len(records) > limit {
				records = records[len(records)-limit:]
			}

			rows := make([][]string, 0, len(records))
			for _, record := range records {
				verdict := record.QualityResponse
				if verdict == "" {
					verdict = "-"
				}
				detail := record.NewTitle
				if record.Error != "" {
					detail = record.Error
				}
				rows = append(rows, []string{
					strconv.Itoa(record.DocumentID),
					verdict,
					yesNo(record.ConsensusReached),
					fmt.Sprintf("%.1fs", record.ProcessingTime),
					record.ProcessedAt.Local().Format("2006-01-02 15:04"),
					detail,
				})
			}
			headers := []string{"Document", "Verdict", "Consensus", "Time", "Processed", "Detail"}
			aligns := []bool{true, false, false, true, false, false}
			fmt.Fprintln(stdout, renderTable(headers, rows, aligns))

			summary := store.Summary()
			fmt.Fprintf(stdout, "%d records, %d with consensus, %d errors\n",
				summary.TotalProcessed, summary.ConsensusCount, summary.ErrorCount)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show only the most recent N records")
	return cmd
}

func newCheckpointClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop all checkpoint records and start a fresh epoch",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ClearCheckpoints()
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Cleared %d checkpoint records\n", resp.Removed)
				return nil
			})
		},
	}
}
