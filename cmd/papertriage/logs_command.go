package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"papertriage/internal/ipc"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Logs(limit)
				if err != nil {
					return err
				}
				if len(resp.Entries) == 0 {
					fmt.Fprintln(stdout, "No log entries")
					return nil
				}
				for _, entry := range resp.Entries {
					fmt.Fprintf(stdout, "%s %-5s %s\n",
						entry.Time.Local().Format("2006-01-02 15:04:05"),
						strings.ToUpper(entry.Level),
						entry.Message)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of entries to show")
	return cmd
}
