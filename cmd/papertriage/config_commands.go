package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"papertriage/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	configCmd.AddCommand(newConfigShowCommand())
	configCmd.AddCommand(newConfigInitCommand())
	return configCmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			stdout := cmd.OutOrStdout()

			fmt.Fprintf(stdout, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(stdout, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(stdout)

			rows := [][]string{
				{"paperless.base_url", cfg.Paperless.BaseURL},
				{"paperless.api_token", maskToken(cfg.Paperless.APIToken)},
				{"paperless.max_documents", fmt.Sprintf("%d", cfg.Paperless.MaxDocuments)},
				{"tags.low_quality_tag_id", fmt.Sprintf("%d", cfg.Tags.LowQualityTagID)},
				{"tags.high_quality_tag_id", fmt.Sprintf("%d", cfg.Tags.HighQualityTagID)},
				{"tags.ignore_already_tagged", yesNo(cfg.Tags.IgnoreAlreadyTagged)},
				{"processing.rename_high_quality", yesNo(cfg.Processing.RenameHighQuality)},
				{"processing.document_delay_ms", fmt.Sprintf("%d", cfg.Processing.DocumentDelayMS)},
				{"logging.format", cfg.Logging.Format},
				{"logging.level", cfg.Logging.Level},
				{"paths.data_dir", cfg.Paths.DataDir},
				{"paths.log_dir", cfg.Paths.LogDir},
			}
			for i, backend := range cfg.Backends {
				prefix := fmt.Sprintf("backends[%d]", i)
				rows = append(rows,
					[]string{prefix + ".name", backend.Name},
					[]string{prefix + ".url", backend.URL},
					[]string{prefix + ".model", backend.Model},
				)
			}
			fmt.Fprintln(stdout, renderTable([]string{"Setting", "Value"}, rows, []bool{false, false}))
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set paperless.api_token (or export PAPERLESS_API_TOKEN) before running papertriage.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	return cmd
}

func maskToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 4 {
		return "****"
	}
	return token[:2] + strings.Repeat("*", len(token)-4) + token[len(token)-2:]
}
