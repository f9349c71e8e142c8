package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func buildModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Model listing",
	}
	cmd.AddCommand(buildModelsListCmd())
	return cmd
}

func buildModelsListCmd() *cobra.Command {
	var oss bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known models for the active provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadSettings()
			if err != nil {
				return fmt.Errorf("codex: load settings: %w", err)
			}
			out := cmd.OutOrStdout()
			if oss {
				fmt.Fprintf(out, "oss endpoint: %s\n", cfg.Providers.OSS.Endpoint)
				return nil
			}
			for name, p := range cfg.Providers.Custom {
				fmt.Fprintf(out, "%s\t%s\n", name, p.DefaultModel)
			}
			if cfg.Model.Default != "" {
				fmt.Fprintf(out, "default\t%s\n", cfg.Model.Default)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&oss, "oss", false, "list only the locally hosted OSS endpoint")
	return cmd
}
