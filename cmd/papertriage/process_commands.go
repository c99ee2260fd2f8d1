package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"papertriage/internal/ipc"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "process",
		Short: "Start a triage run over untagged documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Start()
				if err != nil {
					return err
				}
				if !resp.Started {
					fmt.Fprintln(stdout, resp.Message)
					return nil
				}
				fmt.Fprintln(stdout, "Processing started")
				return nil
			})
		},
	}
}

func newPauseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "pause",
		Short: "Pause or resume the active run at the next document boundary",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.PauseResume()
				if err != nil {
					return err
				}
				if resp.Paused {
					fmt.Fprintln(stdout, "Processing paused")
				} else {
					fmt.Fprintln(stdout, "Processing resumed")
				}
				return nil
			})
		},
	}
}

func newStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the active run before the next document",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.Stop(); err != nil {
					return err
				}
				fmt.Fprintln(stdout, "Stop requested; checkpoints already written are retained")
				return nil
			})
		},
	}
}

func newResetStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stats",
		Short: "Zero the run counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.ResetStats(); err != nil {
					return err
				}
				fmt.Fprintln(stdout, "Stats reset")
				return nil
			})
		},
	}
}
