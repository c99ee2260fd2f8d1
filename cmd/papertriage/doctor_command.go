package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"papertriage/internal/backend"
	"papertriage/internal/logging"
	"papertriage/internal/paperless"
)

// newDoctorCommand checks connectivity to the archive and every configured
// model backend without touching any document.
func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var timeoutSeconds int

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check archive and backend connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			runCtx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeoutSeconds)*time.Second)
			defer cancel()

			for _, line := range renderSectionHeader("Archive", colorize) {
				fmt.Fprintln(stdout, line)
			}
			healthy := true

			archive := paperless.NewClient(cfg.Paperless, logging.NewNop())
			started := time.Now()
			if _, err := archive.FetchCSRFToken(runCtx); err != nil {
				healthy = false
				fmt.Fprintln(stdout, renderStatusLine(cfg.Paperless.BaseURL, statusError, err.Error(), colorize))
			} else {
				detail := fmt.Sprintf("reachable in %s", time.Since(started).Round(time.Millisecond))
				fmt.Fprintln(stdout, renderStatusLine(cfg.Paperless.BaseURL, statusOK, detail, colorize))
			}
			fmt.Fprintln(stdout)

			for _, line := range renderSectionHeader("Backends", colorize) {
				fmt.Fprintln(stdout, line)
			}
			backends, err := backend.FromConfig(cfg.Backends)
			if err != nil {
				return err
			}
			for _, b := range backends {
				started := time.Now()
				_, err := b.EvaluateContent(runCtx, "connectivity probe", "Respond with the word low_quality.", 0)
				if err != nil {
					healthy = false
					fmt.Fprintln(stdout, renderStatusLine(b.Name(), statusError, err.Error(), colorize))
					continue
				}
				detail := fmt.Sprintf("answered in %s", time.Since(started).Round(time.Millisecond))
				fmt.Fprintln(stdout, renderStatusLine(b.Name(), statusOK, detail, colorize))
			}

			if !healthy {
				return fmt.Errorf("one or more checks failed")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 30, "Overall check timeout in seconds")
	return cmd
}
